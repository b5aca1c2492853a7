package server

import (
	"phasegate/internal/domain"
	"phasegate/internal/engine"
)

// Request payloads

type CreateProjectRequest struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Status      string  `json:"status,omitempty" enum:"planning,in_progress,on_hold,completed,cancelled"`
	Progress    int     `json:"progress,omitempty" minimum:"0" maximum:"100"`
	ObjectiveID *string `json:"objective_id,omitempty"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      string  `json:"status,omitempty" enum:"planning,in_progress,on_hold,completed,cancelled"`
	Progress    *int    `json:"progress,omitempty" minimum:"0" maximum:"100"`
	ObjectiveID *string `json:"objective_id,omitempty"`
}

type CreatePhaseRequest struct {
	PhaseType string `json:"phase_type" enum:"planning,architecture,implementation,testing,deployment"`
	Status    string `json:"status,omitempty" enum:"not_started,in_progress,completed,on_hold"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type UpdatePhaseRequest struct {
	Status    string  `json:"status,omitempty" enum:"not_started,in_progress,completed,on_hold"`
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

type CreateTaskRequest struct {
	TaskType     string         `json:"task_type"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	Status       string         `json:"status,omitempty" enum:"todo,in_progress,in_review,completed,blocked"`
	Priority     string         `json:"priority,omitempty" enum:"low,medium,high,critical"`
	AssigneeID   string         `json:"assignee_id,omitempty"`
	DueDate      string         `json:"due_date,omitempty"`
	Deliverables map[string]any `json:"deliverables,omitempty"`
	Integrations map[string]any `json:"integrations,omitempty"`
}

type UpdateTaskRequest struct {
	TaskType     string         `json:"task_type,omitempty"`
	Title        *string        `json:"title,omitempty"`
	Description  *string        `json:"description,omitempty"`
	Status       string         `json:"status,omitempty" enum:"todo,in_progress,in_review,completed,blocked"`
	Priority     string         `json:"priority,omitempty" enum:"low,medium,high,critical"`
	AssigneeID   *string        `json:"assignee_id,omitempty"`
	DueDate      *string        `json:"due_date,omitempty"`
	Deliverables map[string]any `json:"deliverables,omitempty"`
	Integrations map[string]any `json:"integrations,omitempty"`
}

// UpdateGateRequest accepts deliverables either as an object or as a JSON
// string holding one; the raw value is read from the request body.
type UpdateGateRequest struct {
	Status       string  `json:"status,omitempty" enum:"not_started,in_progress,completed,blocked"`
	Deliverables any     `json:"deliverables,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

type SetDeliverableRequest struct {
	Completed *bool   `json:"completed,omitempty"`
	Link      *string `json:"link,omitempty"`
}

type CreateGoalRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type CreateObjectiveRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type UpdateObjectiveRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

type CreateKeyResultRequest struct {
	Title        string   `json:"title"`
	MetricType   string   `json:"metric_type,omitempty" enum:"number,percentage,currency"`
	Unit         string   `json:"unit,omitempty"`
	StartValue   float64  `json:"start_value,omitempty"`
	TargetValue  float64  `json:"target_value"`
	CurrentValue *float64 `json:"current_value,omitempty"`
}

type UpdateKeyResultRequest struct {
	Title        *string  `json:"title,omitempty"`
	MetricType   string   `json:"metric_type,omitempty" enum:"number,percentage,currency"`
	Unit         *string  `json:"unit,omitempty"`
	StartValue   *float64 `json:"start_value,omitempty"`
	TargetValue  *float64 `json:"target_value,omitempty"`
	CurrentValue *float64 `json:"current_value,omitempty"`
}

type DevLoginRequest struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type SSOCallbackRequest struct {
	ExternalID string `json:"external_id"`
	Provider   string `json:"provider"`
	Email      string `json:"email"`
	Name       string `json:"name,omitempty"`
}

type CreateAPIKeyRequest struct {
	Name string `json:"name,omitempty"`
}

// Responses

type TokenResponse struct {
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expires_at" format:"date-time"`
	User      domain.User `json:"user"`
	Outcome   string      `json:"outcome,omitempty" enum:"matched,linked,created"`
}

type APIKeyResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
	Key       string `json:"key,omitempty"`
}

type MeResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Source string `json:"source" enum:"jwt,api_key,header"`
}

type WorkflowMetricsResponse struct {
	Planning       int `json:"planning"`
	Architecture   int `json:"architecture"`
	Implementation int `json:"implementation"`
	Testing        int `json:"testing"`
	Deployment     int `json:"deployment"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	ProjectID  string         `json:"project_id,omitempty"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func metricsResponse(m map[domain.PhaseType]int) WorkflowMetricsResponse {
	return WorkflowMetricsResponse{
		Planning:       m[domain.PhasePlanning],
		Architecture:   m[domain.PhaseArchitecture],
		Implementation: m[domain.PhaseImplementation],
		Testing:        m[domain.PhaseTesting],
		Deployment:     m[domain.PhaseDeployment],
	}
}

func apiKeyResponse(k domain.APIKey, plain string) APIKeyResponse {
	return APIKeyResponse{ID: k.ID, UserID: k.UserID, Name: k.Name, CreatedAt: k.CreatedAt, Key: plain}
}

func mapGates(items []domain.QualityGate) []engine.GateView {
	res := make([]engine.GateView, 0, len(items))
	for _, g := range items {
		res = append(res, engine.NewGateView(g))
	}
	return res
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
