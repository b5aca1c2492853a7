package engine

import (
	"context"

	"github.com/google/uuid"

	"phasegate/internal/domain"
	"phasegate/internal/events"
	"phasegate/internal/repo"
)

type ProjectCreateOptions struct {
	ID          string
	Name        string
	Description string
	Status      string
	Progress    int
	ObjectiveID string
	ActorID     string
}

func checkProgress(v int) error {
	if v < 0 || v > 100 {
		return ValidationError{Field: "progress", Reason: "must be between 0 and 100"}
	}
	return nil
}

func (e Engine) CreateProject(ctx context.Context, opts ProjectCreateOptions) (p domain.Project, err error) {
	defer func() { e.observe("create_project", err) }()
	if err := required("name", opts.Name); err != nil {
		return p, err
	}
	status := domain.ProjectPlanning
	if opts.Status != "" {
		status = domain.ProjectStatus(opts.Status)
		if err := checkEnum("status", status, domain.ProjectStatuses); err != nil {
			return p, err
		}
	}
	if err := checkProgress(opts.Progress); err != nil {
		return p, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return p, err
	}
	defer tx.Rollback()
	if opts.ObjectiveID != "" {
		if _, err := e.Repo.GetObjective(ctx, tx, opts.ObjectiveID); err != nil {
			return p, err
		}
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	owner := opts.ActorID
	if owner == "" {
		owner = "system"
	}
	now := e.stamp()
	p = domain.Project{
		ID:          id,
		Name:        opts.Name,
		Description: opts.Description,
		Status:      status,
		Progress:    opts.Progress,
		ObjectiveID: optionalString(opts.ObjectiveID),
		OwnerID:     owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Repo.InsertProject(ctx, tx, p); err != nil {
		return domain.Project{}, err
	}
	if err := e.eventWriter().Append(ctx, tx, events.ProjectCreated, p.ID, "project", p.ID, opts.ActorID, events.EventPayload{
		"name":   p.Name,
		"status": p.Status,
	}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// ProjectUpdateOptions: empty Status and nil pointers are left untouched.
// An empty ObjectiveID unlinks the project.
type ProjectUpdateOptions struct {
	ID          string
	Name        *string
	Description *string
	Status      string
	Progress    *int
	ObjectiveID *string
	ActorID     string
}

func (e Engine) UpdateProject(ctx context.Context, opts ProjectUpdateOptions) (p domain.Project, err error) {
	defer func() { e.observe("update_project", err) }()
	if opts.Status != "" {
		if err := checkEnum("status", domain.ProjectStatus(opts.Status), domain.ProjectStatuses); err != nil {
			return p, err
		}
	}
	if opts.Progress != nil {
		if err := checkProgress(*opts.Progress); err != nil {
			return p, err
		}
	}
	if opts.Name != nil {
		if err := required("name", *opts.Name); err != nil {
			return p, err
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return p, err
	}
	defer tx.Rollback()
	p, err = e.Repo.GetProject(ctx, tx, opts.ID)
	if err != nil {
		return p, err
	}
	from := p.Status
	if opts.Name != nil {
		p.Name = *opts.Name
	}
	if opts.Description != nil {
		p.Description = *opts.Description
	}
	if opts.Status != "" {
		p.Status = domain.ProjectStatus(opts.Status)
	}
	if opts.Progress != nil {
		p.Progress = *opts.Progress
	}
	if opts.ObjectiveID != nil {
		if *opts.ObjectiveID != "" {
			if _, err := e.Repo.GetObjective(ctx, tx, *opts.ObjectiveID); err != nil {
				return p, err
			}
		}
		p.ObjectiveID = optionalString(*opts.ObjectiveID)
	}
	p.UpdatedAt = e.stamp()
	if err := e.Repo.UpdateProject(ctx, tx, p); err != nil {
		return p, err
	}
	if err := e.eventWriter().Append(ctx, tx, events.ProjectUpdated, p.ID, "project", p.ID, opts.ActorID, events.EventPayload{
		"from_status": from,
		"to_status":   p.Status,
		"progress":    p.Progress,
	}); err != nil {
		return p, err
	}
	if err := tx.Commit(); err != nil {
		return p, err
	}
	return p, nil
}

// DeleteProject removes the project; phases, tasks and gates go with it.
func (e Engine) DeleteProject(ctx context.Context, id, actorID string) (err error) {
	defer func() { e.observe("delete_project", err) }()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteProject(ctx, tx, id); err != nil {
		return err
	}
	if err := e.eventWriter().Append(ctx, tx, events.ProjectDeleted, id, "project", id, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) GetProject(ctx context.Context, id string) (domain.Project, error) {
	return e.Repo.GetProject(ctx, nil, id)
}

func (e Engine) ListProjects(ctx context.Context, f repo.ProjectFilters) ([]domain.Project, error) {
	if f.Status != "" {
		if err := checkEnum("status", domain.ProjectStatus(f.Status), domain.ProjectStatuses); err != nil {
			return nil, err
		}
	}
	return e.Repo.ListProjects(ctx, f)
}
