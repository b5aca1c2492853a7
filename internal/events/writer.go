package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const (
	ProjectCreated = "project.created"
	ProjectUpdated = "project.updated"
	ProjectDeleted = "project.deleted"

	WorkflowInitialized = "workflow.initialized"
	PhaseCreated        = "phase.created"
	PhaseUpdated        = "phase.updated"
	PhaseDeleted        = "phase.deleted"

	TaskCreated = "task.created"
	TaskUpdated = "task.updated"
	TaskDeleted = "task.deleted"

	QualityGatesInitialized = "quality_gates.initialized"
	QualityGateUpdated      = "quality_gate.updated"

	GoalCreated      = "goal.created"
	GoalDeleted      = "goal.deleted"
	ObjectiveCreated = "objective.created"
	ObjectiveUpdated = "objective.updated"
	ObjectiveDeleted = "objective.deleted"
	KeyResultCreated = "key_result.created"
	KeyResultUpdated = "key_result.updated"
	KeyResultDeleted = "key_result.deleted"

	UserCreated = "user.created"
	UserLinked  = "user.linked"
)

// Writer appends audit events inside the caller's transaction so an event
// exists iff its mutation committed.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, projectID, entityKind, entityID, actorID string, payload EventPayload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	if actorID == "" {
		actorID = "system"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,project_id,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?,?)`,
		ts, evtType, nullable(projectID), entityKind, nullable(entityID), actorID, string(data))
	if err != nil {
		return fmt.Errorf("append %s event: %w", evtType, err)
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
