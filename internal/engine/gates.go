package engine

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/google/uuid"

	"phasegate/internal/domain"
	"phasegate/internal/events"
	"phasegate/internal/repo"
)

// InitializeQualityGates creates one gate per gate phase, each seeded with
// its required deliverables marked incomplete. All or nothing.
func (e Engine) InitializeQualityGates(ctx context.Context, projectID, actorID string) (gates []domain.QualityGate, err error) {
	defer func() { e.observe("initialize_quality_gates", err) }()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetProject(ctx, tx, projectID); err != nil {
		return nil, err
	}
	n, err := e.Repo.CountGates(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrAlreadyInitialized
	}
	now := e.stamp()
	for _, phase := range domain.GatePhases {
		g := domain.QualityGate{
			ID:           uuid.NewString(),
			ProjectID:    projectID,
			Phase:        phase,
			Status:       domain.GateNotStarted,
			Deliverables: domain.SeedDeliverables(phase),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := e.Repo.InsertGate(ctx, tx, g); err != nil {
			if repo.IsUniqueViolation(err) {
				return nil, ErrAlreadyInitialized
			}
			return nil, fmt.Errorf("insert %s gate: %w", phase, err)
		}
		gates = append(gates, g)
	}
	if err := e.eventWriter().Append(ctx, tx, events.QualityGatesInitialized, projectID, "project", projectID, actorID, events.EventPayload{
		"phases": domain.EnumValues(domain.GatePhases),
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		if repo.IsUniqueViolation(err) {
			return nil, ErrAlreadyInitialized
		}
		return nil, err
	}
	e.log().Info("quality gates initialized", "project_id", projectID, "gates", len(gates))
	return gates, nil
}

// ParseDeliverables decodes a serialized deliverables map. The payload may be
// a JSON object or a JSON string holding one. Anything else is
// ErrInvalidPayload.
func ParseDeliverables(raw []byte) (map[string]domain.Deliverable, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPayload)
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		raw = bytes.TrimSpace([]byte(inner))
	}
	if len(raw) == 0 || raw[0] != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidPayload)
	}
	var out map[string]domain.Deliverable
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if out == nil {
		out = map[string]domain.Deliverable{}
	}
	return out, nil
}

// GateUpdateOptions carries a partial gate update. Deliverables, when set,
// is the raw serialized replacement for the whole map.
type GateUpdateOptions struct {
	ID           string
	Status       string
	Deliverables []byte
	Notes        *string
	ActorID      string
}

// UpdateQualityGate applies the provided fields. A payload that does not
// parse fails with ErrInvalidPayload before anything is written.
func (e Engine) UpdateQualityGate(ctx context.Context, opts GateUpdateOptions) (g domain.QualityGate, err error) {
	defer func() { e.observe("update_quality_gate", err) }()
	if opts.Status != "" {
		if err := checkEnum("status", domain.GateStatus(opts.Status), domain.GateStatuses); err != nil {
			return g, err
		}
	}
	var deliverables map[string]domain.Deliverable
	if opts.Deliverables != nil {
		deliverables, err = ParseDeliverables(opts.Deliverables)
		if err != nil {
			return g, err
		}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return g, err
	}
	defer tx.Rollback()
	g, err = e.Repo.GetGate(ctx, tx, opts.ID)
	if err != nil {
		return g, err
	}
	from := g.Status
	if opts.Status != "" {
		g.Status = domain.GateStatus(opts.Status)
	}
	if deliverables != nil {
		g.Deliverables = deliverables
	}
	if opts.Notes != nil {
		g.Notes = *opts.Notes
	}
	return e.saveGate(ctx, tx, g, from, opts.ActorID, events.EventPayload{
		"deliverables_replaced": deliverables != nil,
	})
}

// SetDeliverable updates one checklist entry and keeps the rest. Nil
// arguments leave the entry's field as is; a missing key is added.
func (e Engine) SetDeliverable(ctx context.Context, gateID, key string, completed *bool, link *string, actorID string) (g domain.QualityGate, err error) {
	defer func() { e.observe("set_deliverable", err) }()
	if err := required("key", key); err != nil {
		return g, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return g, err
	}
	defer tx.Rollback()
	g, err = e.Repo.GetGate(ctx, tx, gateID)
	if err != nil {
		return g, err
	}
	next := maps.Clone(g.Deliverables)
	if next == nil {
		next = map[string]domain.Deliverable{}
	}
	d := next[key]
	if completed != nil {
		d.Completed = *completed
	}
	if link != nil {
		d.Link = *link
	}
	next[key] = d
	g.Deliverables = next
	return e.saveGate(ctx, tx, g, g.Status, actorID, events.EventPayload{
		"deliverable": key,
		"completed":   d.Completed,
	})
}

func (e Engine) saveGate(ctx context.Context, tx *sql.Tx, g domain.QualityGate, from domain.GateStatus, actorID string, payload events.EventPayload) (domain.QualityGate, error) {
	g.UpdatedAt = e.stamp()
	if err := e.Repo.UpdateGate(ctx, tx, g); err != nil {
		return g, err
	}
	payload["phase"] = g.Phase
	payload["from_status"] = from
	payload["to_status"] = g.Status
	payload["deliverables_completed"] = domain.IsDeliverableCompleted(g)
	if err := e.eventWriter().Append(ctx, tx, events.QualityGateUpdated, g.ProjectID, "quality_gate", g.ID, actorID, payload); err != nil {
		return g, err
	}
	if err := tx.Commit(); err != nil {
		return g, err
	}
	return g, nil
}

func (e Engine) GetQualityGate(ctx context.Context, id string) (domain.QualityGate, error) {
	return e.Repo.GetGate(ctx, nil, id)
}

// GetProjectQualityGates lists gates in gate-phase order.
func (e Engine) GetProjectQualityGates(ctx context.Context, projectID string) ([]domain.QualityGate, error) {
	if _, err := e.Repo.GetProject(ctx, nil, projectID); err != nil {
		return nil, err
	}
	return e.Repo.ListGates(ctx, nil, projectID)
}

// GateView exposes the operator-set status next to the derived checklist
// state; the two are independent.
type GateView struct {
	domain.QualityGate
	DeliverablesCompleted bool     `json:"deliverables_completed"`
	RequiredDeliverables  []string `json:"required_deliverables"`
	MissingDeliverables   []string `json:"missing_deliverables"`
}

func NewGateView(g domain.QualityGate) GateView {
	missing := domain.MissingDeliverables(g.Phase, g.Deliverables)
	if missing == nil {
		missing = []string{}
	}
	return GateView{
		QualityGate:           g,
		DeliverablesCompleted: len(missing) == 0,
		RequiredDeliverables:  domain.RequiredDeliverables(g.Phase),
		MissingDeliverables:   missing,
	}
}
