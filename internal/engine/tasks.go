package engine

import (
	"context"

	"github.com/google/uuid"

	"phasegate/internal/domain"
	"phasegate/internal/events"
	"phasegate/internal/repo"
)

// TaskCreateOptions are parameters for creating a task inside a phase.
type TaskCreateOptions struct {
	PhaseID      string
	TaskType     string
	Title        string
	Description  string
	Status       string
	Priority     string
	AssigneeID   string
	DueDate      string
	Deliverables map[string]any
	Integrations map[string]any
	ActorID      string
}

// CreateTask adds a task to a phase. The task type is checked against the
// catalog but not against the phase's own type.
func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (t domain.WorkflowTask, err error) {
	defer func() { e.observe("create_task", err) }()
	if err := required("phase_id", opts.PhaseID); err != nil {
		return t, err
	}
	if err := required("title", opts.Title); err != nil {
		return t, err
	}
	taskType := domain.TaskType(opts.TaskType)
	if err := checkEnum("task_type", taskType, domain.TaskTypes()); err != nil {
		return t, err
	}
	status := domain.TaskTodo
	if opts.Status != "" {
		status = domain.TaskStatus(opts.Status)
		if err := checkEnum("status", status, domain.TaskStatuses); err != nil {
			return t, err
		}
	}
	priority := domain.PriorityMedium
	if opts.Priority != "" {
		priority = domain.TaskPriority(opts.Priority)
		if err := checkEnum("priority", priority, domain.TaskPriorities); err != nil {
			return t, err
		}
	}
	due, err := normalizeDate("due_date", opts.DueDate)
	if err != nil {
		return t, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return t, err
	}
	defer tx.Rollback()
	ph, err := e.Repo.GetPhase(ctx, tx, opts.PhaseID)
	if err != nil {
		return t, err
	}
	now := e.stamp()
	t = domain.WorkflowTask{
		ID:           uuid.NewString(),
		PhaseID:      ph.ID,
		ProjectID:    ph.ProjectID,
		TaskType:     taskType,
		Title:        opts.Title,
		Description:  opts.Description,
		Status:       status,
		Priority:     priority,
		AssigneeID:   optionalString(opts.AssigneeID),
		DueDate:      optionalString(due),
		Deliverables: opts.Deliverables,
		Integrations: opts.Integrations,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if status == domain.TaskCompleted {
		t.CompletedAt = &now
	}
	if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
		return domain.WorkflowTask{}, err
	}
	if err := e.eventWriter().Append(ctx, tx, events.TaskCreated, t.ProjectID, "task", t.ID, opts.ActorID, events.EventPayload{
		"phase_id":  t.PhaseID,
		"task_type": t.TaskType,
		"status":    t.Status,
	}); err != nil {
		return domain.WorkflowTask{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WorkflowTask{}, err
	}
	return t, nil
}

// TaskUpdateOptions encapsulates allowed updates. Empty strings and nil
// pointers or maps leave the field untouched; an empty string behind a
// pointer clears it.
type TaskUpdateOptions struct {
	ID           string
	TaskType     string
	Title        *string
	Description  *string
	Status       string
	Priority     string
	AssigneeID   *string
	DueDate      *string
	Deliverables map[string]any
	Integrations map[string]any
	ActorID      string
}

func (e Engine) UpdateTask(ctx context.Context, opts TaskUpdateOptions) (t domain.WorkflowTask, err error) {
	defer func() { e.observe("update_task", err) }()
	if opts.TaskType != "" {
		if err := checkEnum("task_type", domain.TaskType(opts.TaskType), domain.TaskTypes()); err != nil {
			return t, err
		}
	}
	if opts.Status != "" {
		if err := checkEnum("status", domain.TaskStatus(opts.Status), domain.TaskStatuses); err != nil {
			return t, err
		}
	}
	if opts.Priority != "" {
		if err := checkEnum("priority", domain.TaskPriority(opts.Priority), domain.TaskPriorities); err != nil {
			return t, err
		}
	}
	if opts.Title != nil {
		if err := required("title", *opts.Title); err != nil {
			return t, err
		}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return t, err
	}
	defer tx.Rollback()
	t, err = e.Repo.GetTask(ctx, tx, opts.ID)
	if err != nil {
		return t, err
	}
	original := t
	now := e.stamp()

	if opts.TaskType != "" {
		t.TaskType = domain.TaskType(opts.TaskType)
	}
	if opts.Title != nil {
		t.Title = *opts.Title
	}
	if opts.Description != nil {
		t.Description = *opts.Description
	}
	if opts.Priority != "" {
		t.Priority = domain.TaskPriority(opts.Priority)
	}
	if opts.AssigneeID != nil {
		t.AssigneeID = optionalString(*opts.AssigneeID)
	}
	if opts.DueDate != nil {
		due, err := normalizeDate("due_date", *opts.DueDate)
		if err != nil {
			return original, err
		}
		t.DueDate = optionalString(due)
	}
	if opts.Deliverables != nil {
		t.Deliverables = opts.Deliverables
	}
	if opts.Integrations != nil {
		t.Integrations = opts.Integrations
	}
	if opts.Status != "" && domain.TaskStatus(opts.Status) != t.Status {
		t.Status = domain.TaskStatus(opts.Status)
		if t.Status == domain.TaskCompleted {
			t.CompletedAt = &now
		} else {
			t.CompletedAt = nil
		}
	}
	t.UpdatedAt = now
	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return original, err
	}
	if err := e.eventWriter().Append(ctx, tx, events.TaskUpdated, t.ProjectID, "task", t.ID, opts.ActorID, events.EventPayload{
		"from_status": original.Status,
		"to_status":   t.Status,
	}); err != nil {
		return original, err
	}
	if err := tx.Commit(); err != nil {
		return original, err
	}
	return t, nil
}

func (e Engine) SetTaskStatus(ctx context.Context, id, status, actorID string) (domain.WorkflowTask, error) {
	if err := required("status", status); err != nil {
		return domain.WorkflowTask{}, err
	}
	return e.UpdateTask(ctx, TaskUpdateOptions{ID: id, Status: status, ActorID: actorID})
}

// DeleteTask removes a single task; nothing else is affected.
func (e Engine) DeleteTask(ctx context.Context, id, actorID string) (err error) {
	defer func() { e.observe("delete_task", err) }()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	t, err := e.Repo.GetTask(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := e.Repo.DeleteTask(ctx, tx, id); err != nil {
		return err
	}
	if err := e.eventWriter().Append(ctx, tx, events.TaskDeleted, t.ProjectID, "task", t.ID, actorID, events.EventPayload{
		"phase_id": t.PhaseID,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) GetTask(ctx context.Context, id string) (domain.WorkflowTask, error) {
	return e.Repo.GetTask(ctx, nil, id)
}

// ListTasks validates enum filters before querying.
func (e Engine) ListTasks(ctx context.Context, f repo.TaskFilters) ([]domain.WorkflowTask, error) {
	if f.Status != "" {
		if err := checkEnum("status", domain.TaskStatus(f.Status), domain.TaskStatuses); err != nil {
			return nil, err
		}
	}
	if f.Priority != "" {
		if err := checkEnum("priority", domain.TaskPriority(f.Priority), domain.TaskPriorities); err != nil {
			return nil, err
		}
	}
	if f.PhaseID != "" {
		if _, err := e.Repo.GetPhase(ctx, nil, f.PhaseID); err != nil {
			return nil, err
		}
	}
	if f.ProjectID != "" {
		if _, err := e.Repo.GetProject(ctx, nil, f.ProjectID); err != nil {
			return nil, err
		}
	}
	return e.Repo.ListTasks(ctx, f)
}
