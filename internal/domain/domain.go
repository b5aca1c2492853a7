package domain

type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      ProjectStatus `json:"status" enum:"planning,in_progress,on_hold,completed,cancelled"`
	Progress    int           `json:"progress" minimum:"0" maximum:"100"`
	ObjectiveID *string       `json:"objective_id,omitempty"`
	OwnerID     string        `json:"owner_id"`
	CreatedAt   string        `json:"created_at" format:"date-time"`
	UpdatedAt   string        `json:"updated_at" format:"date-time"`
}

type WorkflowPhase struct {
	ID        string      `json:"id"`
	ProjectID string      `json:"project_id"`
	PhaseType PhaseType   `json:"phase_type" enum:"planning,architecture,implementation,testing,deployment"`
	Status    PhaseStatus `json:"status" enum:"not_started,in_progress,completed,on_hold"`
	StartDate *string     `json:"start_date,omitempty"`
	EndDate   *string     `json:"end_date,omitempty"`
	Notes     string      `json:"notes,omitempty"`
	CreatedAt string      `json:"created_at" format:"date-time"`
	UpdatedAt string      `json:"updated_at" format:"date-time"`
}

type WorkflowTask struct {
	ID           string         `json:"id"`
	PhaseID      string         `json:"phase_id"`
	ProjectID    string         `json:"project_id"`
	TaskType     TaskType       `json:"task_type"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	Status       TaskStatus     `json:"status" enum:"todo,in_progress,in_review,completed,blocked"`
	Priority     TaskPriority   `json:"priority" enum:"low,medium,high,critical"`
	AssigneeID   *string        `json:"assignee_id,omitempty"`
	DueDate      *string        `json:"due_date,omitempty"`
	Deliverables map[string]any `json:"deliverables,omitempty"`
	Integrations map[string]any `json:"integrations,omitempty"`
	CreatedAt    string         `json:"created_at" format:"date-time"`
	UpdatedAt    string         `json:"updated_at" format:"date-time"`
	CompletedAt  *string        `json:"completed_at,omitempty" format:"date-time"`
}

// Deliverable is one checklist entry of a quality gate.
type Deliverable struct {
	Completed bool   `json:"completed"`
	Link      string `json:"link"`
}

type QualityGate struct {
	ID           string                 `json:"id"`
	ProjectID    string                 `json:"project_id"`
	Phase        GatePhase              `json:"phase" enum:"building_phase,qa,uat,sqa_sqct,environment_record"`
	Status       GateStatus             `json:"status" enum:"not_started,in_progress,completed,blocked"`
	Deliverables map[string]Deliverable `json:"deliverables"`
	Notes        string                 `json:"notes,omitempty"`
	CreatedAt    string                 `json:"created_at" format:"date-time"`
	UpdatedAt    string                 `json:"updated_at" format:"date-time"`
}

type StrategicGoal struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	OwnerID     string `json:"owner_id"`
	CreatedAt   string `json:"created_at" format:"date-time"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

type Objective struct {
	ID          string `json:"id"`
	GoalID      string `json:"goal_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at" format:"date-time"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

type KeyResult struct {
	ID           string     `json:"id"`
	ObjectiveID  string     `json:"objective_id"`
	Title        string     `json:"title"`
	MetricType   MetricType `json:"metric_type" enum:"number,percentage,currency"`
	Unit         string     `json:"unit,omitempty"`
	StartValue   float64    `json:"start_value"`
	TargetValue  float64    `json:"target_value"`
	CurrentValue float64    `json:"current_value"`
	CreatedAt    string     `json:"created_at" format:"date-time"`
	UpdatedAt    string     `json:"updated_at" format:"date-time"`
}

type User struct {
	ID         string  `json:"id"`
	Email      string  `json:"email"`
	Name       string  `json:"name,omitempty"`
	ExternalID *string `json:"external_id,omitempty"`
	Provider   *string `json:"provider,omitempty"`
	CreatedAt  string  `json:"created_at" format:"date-time"`
	UpdatedAt  string  `json:"updated_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	ProjectID  string `json:"project_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
