package phasegatesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal phasegate HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	// UserID is sent as X-User-Id when no credentials are set; the server
	// only honors it with auth.allow_user_header enabled.
	UserID     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	ObjectiveID string `json:"objective_id,omitempty"`
}

type Phase struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	PhaseType string `json:"phase_type"`
	Status    string `json:"status"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// PhaseSummary is a phase with its progress and task tally.
type PhaseSummary struct {
	Phase
	Progress   int            `json:"progress"`
	TaskTotal  int            `json:"task_total"`
	TaskCounts map[string]int `json:"task_counts"`
}

type Task struct {
	ID          string `json:"id"`
	PhaseID     string `json:"phase_id"`
	ProjectID   string `json:"project_id"`
	TaskType    string `json:"task_type"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	AssigneeID  string `json:"assignee_id,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
}

type Deliverable struct {
	Completed bool   `json:"completed"`
	Link      string `json:"link"`
}

// QualityGate carries the operator-set status and the derived checklist view.
type QualityGate struct {
	ID                    string                 `json:"id"`
	ProjectID             string                 `json:"project_id"`
	Phase                 string                 `json:"phase"`
	Status                string                 `json:"status"`
	Deliverables          map[string]Deliverable `json:"deliverables"`
	Notes                 string                 `json:"notes,omitempty"`
	DeliverablesCompleted bool                   `json:"deliverables_completed"`
	RequiredDeliverables  []string               `json:"required_deliverables"`
	MissingDeliverables   []string               `json:"missing_deliverables"`
}

// WorkflowMetrics is the mean phase progress per phase type.
type WorkflowMetrics struct {
	Planning       int `json:"planning"`
	Architecture   int `json:"architecture"`
	Implementation int `json:"implementation"`
	Testing        int `json:"testing"`
	Deployment     int `json:"deployment"`
}

type Goal struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type KeyResult struct {
	ID           string  `json:"id"`
	ObjectiveID  string  `json:"objective_id"`
	Title        string  `json:"title"`
	MetricType   string  `json:"metric_type"`
	Unit         string  `json:"unit,omitempty"`
	StartValue   float64 `json:"start_value"`
	TargetValue  float64 `json:"target_value"`
	CurrentValue float64 `json:"current_value"`
	Progress     float64 `json:"progress"`
}

type Objective struct {
	ID          string      `json:"id"`
	GoalID      string      `json:"goal_id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Progress    int         `json:"progress"`
	KeyResults  []KeyResult `json:"key_results,omitempty"`
	Projects    []Project   `json:"projects,omitempty"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	ProjectID  string         `json:"project_id"`
	EntityID   string         `json:"entity_id"`
	EntityKind string         `json:"entity_kind"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// IsCode reports whether err is an APIError with the given error code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// CreateProject creates a project. An empty id lets the server assign one.
func (c *Client) CreateProject(ctx context.Context, id, name string) (Project, error) {
	body := map[string]any{"name": name}
	if id != "" {
		body["id"] = id
	}
	var resp Project
	err := c.do(ctx, http.MethodPost, "v0/projects", body, &resp)
	return resp, err
}

func (c *Client) GetProject(ctx context.Context, id string) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodGet, c.projectPath(id, ""), nil, &resp)
	return resp, err
}

// InitializeWorkflow creates the five lifecycle phases of a project.
func (c *Client) InitializeWorkflow(ctx context.Context, projectID string) ([]Phase, error) {
	var resp []Phase
	err := c.do(ctx, http.MethodPost, c.projectPath(projectID, "workflow/init"), nil, &resp)
	return resp, err
}

func (c *Client) ProjectWorkflow(ctx context.Context, projectID string) ([]PhaseSummary, error) {
	var resp []PhaseSummary
	err := c.do(ctx, http.MethodGet, c.projectPath(projectID, "workflow"), nil, &resp)
	return resp, err
}

// SetPhaseStatus sets a phase status. Any status may follow any other.
func (c *Client) SetPhaseStatus(ctx context.Context, phaseID, status string) (Phase, error) {
	var resp Phase
	err := c.do(ctx, http.MethodPatch, "v0/phases/"+url.PathEscape(phaseID), map[string]any{"status": status}, &resp)
	return resp, err
}

// CreateTask adds a catalog task to a phase.
func (c *Client) CreateTask(ctx context.Context, phaseID, taskType, title string) (Task, error) {
	body := map[string]any{
		"task_type": taskType,
		"title":     title,
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, "v0/phases/"+url.PathEscape(phaseID)+"/tasks", body, &resp)
	return resp, err
}

func (c *Client) SetTaskStatus(ctx context.Context, taskID, status string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPatch, "v0/tasks/"+url.PathEscape(taskID), map[string]any{"status": status}, &resp)
	return resp, err
}

// InitializeQualityGates creates the five gates with seeded checklists.
func (c *Client) InitializeQualityGates(ctx context.Context, projectID string) ([]QualityGate, error) {
	var resp []QualityGate
	err := c.do(ctx, http.MethodPost, c.projectPath(projectID, "quality-gates/init"), nil, &resp)
	return resp, err
}

// QualityGates lists a project's gates in gate order.
func (c *Client) QualityGates(ctx context.Context, projectID string) ([]QualityGate, error) {
	var resp []QualityGate
	err := c.do(ctx, http.MethodGet, c.projectPath(projectID, "quality-gates"), nil, &resp)
	return resp, err
}

// GateUpdate is a partial gate update. Deliverables, when non-nil, replaces
// the whole checklist.
type GateUpdate struct {
	Status       string                 `json:"status,omitempty"`
	Deliverables map[string]Deliverable `json:"deliverables,omitempty"`
	Notes        *string                `json:"notes,omitempty"`
}

func (c *Client) UpdateQualityGate(ctx context.Context, gateID string, update GateUpdate) (QualityGate, error) {
	var resp QualityGate
	err := c.do(ctx, http.MethodPatch, "v0/quality-gates/"+url.PathEscape(gateID), update, &resp)
	return resp, err
}

// SetDeliverable updates a single checklist entry.
func (c *Client) SetDeliverable(ctx context.Context, gateID, key string, completed bool, link string) (QualityGate, error) {
	body := map[string]any{"completed": completed}
	if link != "" {
		body["link"] = link
	}
	var resp QualityGate
	endpoint := fmt.Sprintf("v0/quality-gates/%s/deliverables/%s", url.PathEscape(gateID), url.PathEscape(key))
	err := c.do(ctx, http.MethodPut, endpoint, body, &resp)
	return resp, err
}

func (c *Client) WorkflowMetrics(ctx context.Context) (WorkflowMetrics, error) {
	var resp WorkflowMetrics
	err := c.do(ctx, http.MethodGet, "v0/workflow/metrics", nil, &resp)
	return resp, err
}

func (c *Client) CreateGoal(ctx context.Context, title string) (Goal, error) {
	var resp Goal
	err := c.do(ctx, http.MethodPost, "v0/goals", map[string]any{"title": title}, &resp)
	return resp, err
}

func (c *Client) CreateObjective(ctx context.Context, goalID, title string) (Objective, error) {
	var resp Objective
	err := c.do(ctx, http.MethodPost, "v0/goals/"+url.PathEscape(goalID)+"/objectives", map[string]any{"title": title}, &resp)
	return resp, err
}

// GetObjective returns the objective with its key results and progress.
func (c *Client) GetObjective(ctx context.Context, id string) (Objective, error) {
	var resp Objective
	err := c.do(ctx, http.MethodGet, "v0/objectives/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

func (c *Client) CreateKeyResult(ctx context.Context, objectiveID, title string, start, target, current float64) (KeyResult, error) {
	body := map[string]any{
		"title":         title,
		"start_value":   start,
		"target_value":  target,
		"current_value": current,
	}
	var resp KeyResult
	err := c.do(ctx, http.MethodPost, "v0/objectives/"+url.PathEscape(objectiveID)+"/key-results", body, &resp)
	return resp, err
}

// RecordKeyResult updates the current value of a key result.
func (c *Client) RecordKeyResult(ctx context.Context, id string, current float64) (KeyResult, error) {
	var resp KeyResult
	err := c.do(ctx, http.MethodPatch, "v0/key-results/"+url.PathEscape(id), map[string]any{"current_value": current}, &resp)
	return resp, err
}

// EventsPage returns a paginated event listing, newest first.
func (c *Client) EventsPage(ctx context.Context, projectID string, limit int, cursor string) (PaginatedEvents, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := c.projectPath(projectID, "events")
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	case c.UserID != "":
		req.Header.Set("X-User-Id", c.UserID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) projectPath(projectID, p string) string {
	project := url.PathEscape(projectID)
	if p == "" {
		return "v0/projects/" + project
	}
	return fmt.Sprintf("v0/projects/%s/%s", project, strings.TrimLeft(p, "/"))
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
