package engine

import (
	"context"

	"github.com/google/uuid"

	"phasegate/internal/domain"
	"phasegate/internal/events"
	"phasegate/internal/progress"
	"phasegate/internal/repo"
)

func (e Engine) CreateGoal(ctx context.Context, title, description, actorID string) (g domain.StrategicGoal, err error) {
	defer func() { e.observe("create_goal", err) }()
	if err := required("title", title); err != nil {
		return g, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return g, err
	}
	defer tx.Rollback()
	owner := actorID
	if owner == "" {
		owner = "system"
	}
	now := e.stamp()
	g = domain.StrategicGoal{ID: uuid.NewString(), Title: title, Description: description, OwnerID: owner, CreatedAt: now, UpdatedAt: now}
	if err := e.Repo.InsertGoal(ctx, tx, g); err != nil {
		return domain.StrategicGoal{}, err
	}
	if err := e.eventWriter().Append(ctx, tx, events.GoalCreated, "", "goal", g.ID, actorID, events.EventPayload{"title": g.Title}); err != nil {
		return domain.StrategicGoal{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.StrategicGoal{}, err
	}
	return g, nil
}

func (e Engine) GetGoal(ctx context.Context, id string) (domain.StrategicGoal, error) {
	return e.Repo.GetGoal(ctx, nil, id)
}

func (e Engine) ListGoals(ctx context.Context) ([]domain.StrategicGoal, error) {
	return e.Repo.ListGoals(ctx)
}

// DeleteGoal cascades to objectives and key results; linked projects are
// unlinked, not deleted.
func (e Engine) DeleteGoal(ctx context.Context, id, actorID string) (err error) {
	defer func() { e.observe("delete_goal", err) }()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteGoal(ctx, tx, id); err != nil {
		return err
	}
	if err := e.eventWriter().Append(ctx, tx, events.GoalDeleted, "", "goal", id, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) CreateObjective(ctx context.Context, goalID, title, description, actorID string) (o domain.Objective, err error) {
	defer func() { e.observe("create_objective", err) }()
	if err := required("title", title); err != nil {
		return o, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return o, err
	}
	defer tx.Rollback()
	if _, err := e.Repo.GetGoal(ctx, tx, goalID); err != nil {
		return o, err
	}
	now := e.stamp()
	o = domain.Objective{ID: uuid.NewString(), GoalID: goalID, Title: title, Description: description, CreatedAt: now, UpdatedAt: now}
	if err := e.Repo.InsertObjective(ctx, tx, o); err != nil {
		return domain.Objective{}, err
	}
	if err := e.eventWriter().Append(ctx, tx, events.ObjectiveCreated, "", "objective", o.ID, actorID, events.EventPayload{"goal_id": goalID}); err != nil {
		return domain.Objective{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Objective{}, err
	}
	return o, nil
}

func (e Engine) UpdateObjective(ctx context.Context, id string, title, description *string, actorID string) (o domain.Objective, err error) {
	defer func() { e.observe("update_objective", err) }()
	if title != nil {
		if err := required("title", *title); err != nil {
			return o, err
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return o, err
	}
	defer tx.Rollback()
	o, err = e.Repo.GetObjective(ctx, tx, id)
	if err != nil {
		return o, err
	}
	if title != nil {
		o.Title = *title
	}
	if description != nil {
		o.Description = *description
	}
	o.UpdatedAt = e.stamp()
	if err := e.Repo.UpdateObjective(ctx, tx, o); err != nil {
		return o, err
	}
	if err := e.eventWriter().Append(ctx, tx, events.ObjectiveUpdated, "", "objective", o.ID, actorID, nil); err != nil {
		return o, err
	}
	if err := tx.Commit(); err != nil {
		return o, err
	}
	return o, nil
}

func (e Engine) DeleteObjective(ctx context.Context, id, actorID string) (err error) {
	defer func() { e.observe("delete_objective", err) }()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteObjective(ctx, tx, id); err != nil {
		return err
	}
	if err := e.eventWriter().Append(ctx, tx, events.ObjectiveDeleted, "", "objective", id, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) ListObjectives(ctx context.Context, goalID string) ([]domain.Objective, error) {
	if goalID != "" {
		if _, err := e.Repo.GetGoal(ctx, nil, goalID); err != nil {
			return nil, err
		}
	}
	return e.Repo.ListObjectives(ctx, goalID)
}

type KeyResultView struct {
	domain.KeyResult
	Progress float64 `json:"progress"`
}

func NewKeyResultView(kr domain.KeyResult) KeyResultView {
	return KeyResultView{KeyResult: kr, Progress: progress.KeyResult(kr)}
}

// ObjectiveView is an objective with its rolled-up progress.
type ObjectiveView struct {
	domain.Objective
	Progress   int              `json:"progress"`
	KeyResults []KeyResultView  `json:"key_results"`
	Projects   []domain.Project `json:"projects"`
}

func (e Engine) GetObjective(ctx context.Context, id string) (ObjectiveView, error) {
	o, err := e.Repo.GetObjective(ctx, nil, id)
	if err != nil {
		return ObjectiveView{}, err
	}
	krs, err := e.Repo.ListKeyResults(ctx, nil, id)
	if err != nil {
		return ObjectiveView{}, err
	}
	projects, err := e.Repo.ListProjects(ctx, repo.ProjectFilters{ObjectiveID: id})
	if err != nil {
		return ObjectiveView{}, err
	}
	view := ObjectiveView{
		Objective:  o,
		Progress:   progress.Objective(krs),
		KeyResults: make([]KeyResultView, 0, len(krs)),
		Projects:   projects,
	}
	if view.Projects == nil {
		view.Projects = []domain.Project{}
	}
	for _, kr := range krs {
		view.KeyResults = append(view.KeyResults, NewKeyResultView(kr))
	}
	return view, nil
}

type KeyResultCreateOptions struct {
	ObjectiveID  string
	Title        string
	MetricType   string
	Unit         string
	StartValue   float64
	TargetValue  float64
	CurrentValue *float64
	ActorID      string
}

// CreateKeyResult defaults the current value to the start value.
func (e Engine) CreateKeyResult(ctx context.Context, opts KeyResultCreateOptions) (kr domain.KeyResult, err error) {
	defer func() { e.observe("create_key_result", err) }()
	if err := required("title", opts.Title); err != nil {
		return kr, err
	}
	metric := domain.MetricNumber
	if opts.MetricType != "" {
		metric = domain.MetricType(opts.MetricType)
		if err := checkEnum("metric_type", metric, domain.MetricTypes); err != nil {
			return kr, err
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return kr, err
	}
	defer tx.Rollback()
	if _, err := e.Repo.GetObjective(ctx, tx, opts.ObjectiveID); err != nil {
		return kr, err
	}
	current := opts.StartValue
	if opts.CurrentValue != nil {
		current = *opts.CurrentValue
	}
	now := e.stamp()
	kr = domain.KeyResult{
		ID:           uuid.NewString(),
		ObjectiveID:  opts.ObjectiveID,
		Title:        opts.Title,
		MetricType:   metric,
		Unit:         opts.Unit,
		StartValue:   opts.StartValue,
		TargetValue:  opts.TargetValue,
		CurrentValue: current,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.Repo.InsertKeyResult(ctx, tx, kr); err != nil {
		return domain.KeyResult{}, err
	}
	if err := e.eventWriter().Append(ctx, tx, events.KeyResultCreated, "", "key_result", kr.ID, opts.ActorID, events.EventPayload{
		"objective_id": kr.ObjectiveID,
		"progress":     progress.KeyResult(kr),
	}); err != nil {
		return domain.KeyResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.KeyResult{}, err
	}
	return kr, nil
}

type KeyResultUpdateOptions struct {
	ID           string
	Title        *string
	MetricType   string
	Unit         *string
	StartValue   *float64
	TargetValue  *float64
	CurrentValue *float64
	ActorID      string
}

func (e Engine) UpdateKeyResult(ctx context.Context, opts KeyResultUpdateOptions) (kr domain.KeyResult, err error) {
	defer func() { e.observe("update_key_result", err) }()
	if opts.MetricType != "" {
		if err := checkEnum("metric_type", domain.MetricType(opts.MetricType), domain.MetricTypes); err != nil {
			return kr, err
		}
	}
	if opts.Title != nil {
		if err := required("title", *opts.Title); err != nil {
			return kr, err
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return kr, err
	}
	defer tx.Rollback()
	kr, err = e.Repo.GetKeyResult(ctx, tx, opts.ID)
	if err != nil {
		return kr, err
	}
	before := progress.KeyResult(kr)
	if opts.Title != nil {
		kr.Title = *opts.Title
	}
	if opts.MetricType != "" {
		kr.MetricType = domain.MetricType(opts.MetricType)
	}
	if opts.Unit != nil {
		kr.Unit = *opts.Unit
	}
	if opts.StartValue != nil {
		kr.StartValue = *opts.StartValue
	}
	if opts.TargetValue != nil {
		kr.TargetValue = *opts.TargetValue
	}
	if opts.CurrentValue != nil {
		kr.CurrentValue = *opts.CurrentValue
	}
	kr.UpdatedAt = e.stamp()
	if err := e.Repo.UpdateKeyResult(ctx, tx, kr); err != nil {
		return kr, err
	}
	if err := e.eventWriter().Append(ctx, tx, events.KeyResultUpdated, "", "key_result", kr.ID, opts.ActorID, events.EventPayload{
		"objective_id":  kr.ObjectiveID,
		"from_progress": before,
		"to_progress":   progress.KeyResult(kr),
	}); err != nil {
		return kr, err
	}
	if err := tx.Commit(); err != nil {
		return kr, err
	}
	return kr, nil
}

func (e Engine) DeleteKeyResult(ctx context.Context, id, actorID string) (err error) {
	defer func() { e.observe("delete_key_result", err) }()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteKeyResult(ctx, tx, id); err != nil {
		return err
	}
	if err := e.eventWriter().Append(ctx, tx, events.KeyResultDeleted, "", "key_result", id, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) GetKeyResult(ctx context.Context, id string) (KeyResultView, error) {
	kr, err := e.Repo.GetKeyResult(ctx, nil, id)
	if err != nil {
		return KeyResultView{}, err
	}
	return NewKeyResultView(kr), nil
}

func (e Engine) ListKeyResults(ctx context.Context, objectiveID string) ([]KeyResultView, error) {
	if _, err := e.Repo.GetObjective(ctx, nil, objectiveID); err != nil {
		return nil, err
	}
	krs, err := e.Repo.ListKeyResults(ctx, nil, objectiveID)
	if err != nil {
		return nil, err
	}
	out := make([]KeyResultView, 0, len(krs))
	for _, kr := range krs {
		out = append(out, NewKeyResultView(kr))
	}
	return out, nil
}
