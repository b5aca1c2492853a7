package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"phasegate/internal/domain"
	"phasegate/internal/events"
	"phasegate/internal/progress"
	"phasegate/internal/repo"
)

// InitializeWorkflow creates one not_started phase per lifecycle stage. It
// creates nothing when the project already has any phase.
func (e Engine) InitializeWorkflow(ctx context.Context, projectID, actorID string) (phases []domain.WorkflowPhase, err error) {
	defer func() { e.observe("initialize_workflow", err) }()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetProject(ctx, tx, projectID); err != nil {
		return nil, err
	}
	n, err := e.Repo.CountPhases(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrAlreadyInitialized
	}
	now := e.stamp()
	for _, pt := range domain.PhaseTypes {
		ph := domain.WorkflowPhase{
			ID:        uuid.NewString(),
			ProjectID: projectID,
			PhaseType: pt,
			Status:    domain.PhaseNotStarted,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := e.Repo.InsertPhase(ctx, tx, ph); err != nil {
			// a concurrent initializer won the race
			if repo.IsUniqueViolation(err) {
				return nil, ErrAlreadyInitialized
			}
			return nil, fmt.Errorf("insert %s phase: %w", pt, err)
		}
		phases = append(phases, ph)
	}
	if err := e.eventWriter().Append(ctx, tx, events.WorkflowInitialized, projectID, "project", projectID, actorID, events.EventPayload{
		"phase_types": domain.EnumValues(domain.PhaseTypes),
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		if repo.IsUniqueViolation(err) {
			return nil, ErrAlreadyInitialized
		}
		return nil, err
	}
	e.log().Info("workflow initialized", "project_id", projectID, "phases", len(phases))
	return phases, nil
}

// PhaseCreateOptions are parameters for adding a single phase.
type PhaseCreateOptions struct {
	ProjectID string
	PhaseType string
	Status    string
	StartDate string
	EndDate   string
	Notes     string
	ActorID   string
}

func (e Engine) CreatePhase(ctx context.Context, opts PhaseCreateOptions) (ph domain.WorkflowPhase, err error) {
	defer func() { e.observe("create_phase", err) }()
	if err := required("project_id", opts.ProjectID); err != nil {
		return ph, err
	}
	pt := domain.PhaseType(opts.PhaseType)
	if err := checkEnum("phase_type", pt, domain.PhaseTypes); err != nil {
		return ph, err
	}
	status := domain.PhaseNotStarted
	if opts.Status != "" {
		status = domain.PhaseStatus(opts.Status)
		if err := checkEnum("status", status, domain.PhaseStatuses); err != nil {
			return ph, err
		}
	}
	start, err := normalizeDate("start_date", opts.StartDate)
	if err != nil {
		return ph, err
	}
	end, err := normalizeDate("end_date", opts.EndDate)
	if err != nil {
		return ph, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return ph, err
	}
	defer tx.Rollback()
	if _, err := e.Repo.GetProject(ctx, tx, opts.ProjectID); err != nil {
		return ph, err
	}
	now := e.stamp()
	ph = domain.WorkflowPhase{
		ID:        uuid.NewString(),
		ProjectID: opts.ProjectID,
		PhaseType: pt,
		Status:    status,
		StartDate: optionalString(start),
		EndDate:   optionalString(end),
		Notes:     opts.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.Repo.InsertPhase(ctx, tx, ph); err != nil {
		if repo.IsUniqueViolation(err) {
			return domain.WorkflowPhase{}, fmt.Errorf("%w: %s", ErrDuplicatePhase, pt)
		}
		return domain.WorkflowPhase{}, err
	}
	if err := e.eventWriter().Append(ctx, tx, events.PhaseCreated, ph.ProjectID, "phase", ph.ID, opts.ActorID, events.EventPayload{
		"phase_type": ph.PhaseType,
		"status":     ph.Status,
	}); err != nil {
		return domain.WorkflowPhase{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WorkflowPhase{}, err
	}
	return ph, nil
}

// PhaseUpdateOptions touches only non-empty Status and non-nil pointers.
// An empty string behind a pointer clears the field.
type PhaseUpdateOptions struct {
	ID        string
	Status    string
	StartDate *string
	EndDate   *string
	Notes     *string
	ActorID   string
}

// UpdatePhase assigns fields unconditionally; any status may follow any
// other and task state never feeds back into phase status.
func (e Engine) UpdatePhase(ctx context.Context, opts PhaseUpdateOptions) (ph domain.WorkflowPhase, err error) {
	defer func() { e.observe("update_phase", err) }()
	if opts.Status != "" {
		if err := checkEnum("status", domain.PhaseStatus(opts.Status), domain.PhaseStatuses); err != nil {
			return ph, err
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return ph, err
	}
	defer tx.Rollback()

	ph, err = e.Repo.GetPhase(ctx, tx, opts.ID)
	if err != nil {
		return ph, err
	}
	from := ph.Status
	if opts.Status != "" {
		ph.Status = domain.PhaseStatus(opts.Status)
	}
	if opts.StartDate != nil {
		v, err := normalizeDate("start_date", *opts.StartDate)
		if err != nil {
			return ph, err
		}
		ph.StartDate = optionalString(v)
	}
	if opts.EndDate != nil {
		v, err := normalizeDate("end_date", *opts.EndDate)
		if err != nil {
			return ph, err
		}
		ph.EndDate = optionalString(v)
	}
	if opts.Notes != nil {
		ph.Notes = *opts.Notes
	}
	ph.UpdatedAt = e.stamp()
	if err := e.Repo.UpdatePhase(ctx, tx, ph); err != nil {
		return ph, err
	}
	if err := e.eventWriter().Append(ctx, tx, events.PhaseUpdated, ph.ProjectID, "phase", ph.ID, opts.ActorID, events.EventPayload{
		"phase_type":  ph.PhaseType,
		"from_status": from,
		"to_status":   ph.Status,
	}); err != nil {
		return ph, err
	}
	if err := tx.Commit(); err != nil {
		return ph, err
	}
	return ph, nil
}

func (e Engine) SetPhaseStatus(ctx context.Context, id, status, actorID string) (domain.WorkflowPhase, error) {
	if err := required("status", status); err != nil {
		return domain.WorkflowPhase{}, err
	}
	return e.UpdatePhase(ctx, PhaseUpdateOptions{ID: id, Status: status, ActorID: actorID})
}

// DeletePhase removes the phase and every task under it.
func (e Engine) DeletePhase(ctx context.Context, id, actorID string) (err error) {
	defer func() { e.observe("delete_phase", err) }()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	ph, err := e.Repo.GetPhase(ctx, tx, id)
	if err != nil {
		return err
	}
	removed, err := e.Repo.DeleteTasksByPhase(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := e.Repo.DeletePhase(ctx, tx, id); err != nil {
		return err
	}
	if err := e.eventWriter().Append(ctx, tx, events.PhaseDeleted, ph.ProjectID, "phase", ph.ID, actorID, events.EventPayload{
		"phase_type":    ph.PhaseType,
		"tasks_deleted": removed,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) GetPhase(ctx context.Context, id string) (domain.WorkflowPhase, error) {
	return e.Repo.GetPhase(ctx, nil, id)
}

// ListPhases returns a project's phases in lifecycle order.
func (e Engine) ListPhases(ctx context.Context, projectID string) ([]domain.WorkflowPhase, error) {
	if _, err := e.Repo.GetProject(ctx, nil, projectID); err != nil {
		return nil, err
	}
	return e.Repo.ListPhases(ctx, nil, projectID)
}

// PhaseSummary is a phase with its three-point progress and task tally.
type PhaseSummary struct {
	domain.WorkflowPhase
	Progress   int                       `json:"progress"`
	TaskTotal  int                       `json:"task_total"`
	TaskCounts map[domain.TaskStatus]int `json:"task_counts"`
}

// ProjectWorkflow summarizes every phase of one project.
func (e Engine) ProjectWorkflow(ctx context.Context, projectID string) ([]PhaseSummary, error) {
	phases, err := e.ListPhases(ctx, projectID)
	if err != nil {
		return nil, err
	}
	counts, err := e.Repo.TaskCountsByPhase(ctx, projectID)
	if err != nil {
		return nil, err
	}
	out := make([]PhaseSummary, 0, len(phases))
	for _, ph := range phases {
		s := PhaseSummary{
			WorkflowPhase: ph,
			Progress:      progress.Phase(ph.Status),
			TaskCounts:    map[domain.TaskStatus]int{},
		}
		for _, st := range domain.TaskStatuses {
			n := counts[ph.ID][st]
			s.TaskCounts[st] = n
			s.TaskTotal += n
		}
		out = append(out, s)
	}
	return out, nil
}

// normalizeDate accepts YYYY-MM-DD or RFC3339 and returns it unchanged.
func normalizeDate(field, v string) (string, error) {
	if v == "" {
		return "", nil
	}
	if _, err := time.Parse(time.DateOnly, v); err == nil {
		return v, nil
	}
	if _, err := time.Parse(time.RFC3339, v); err == nil {
		return v, nil
	}
	return "", ValidationError{Field: field, Value: v, Reason: "must be YYYY-MM-DD or RFC3339"}
}
