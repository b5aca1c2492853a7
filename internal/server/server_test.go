package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phasegate/internal/db"
	"phasegate/internal/domain"
	"phasegate/internal/engine"
	"phasegate/internal/engine/auth"
	"phasegate/internal/migrate"
)

const testSecret = "test-secret"

var asUser = map[string]string{"X-User-Id": "tester"}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, migrate.Migrate(conn))
	e := engine.New(conn, nil)
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v0",
		Auth: AuthConfig{
			Token:           auth.TokenConfig{Secret: testSecret, Issuer: "phasegate", Audience: "phasegate", TTL: time.Hour},
			DevLogin:        true,
			SSOSharedSecret: "bridge",
			AllowUserHeader: true,
		},
	})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		srv.Close()
		conn.Close()
	})
	return srv
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader = bytes.NewReader(nil)
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func createProject(t *testing.T, srv *httptest.Server, id string) {
	t.Helper()
	res, data := doJSON(t, http.MethodPost, srv.URL+"/v0/projects", map[string]any{"id": id, "name": "Project " + id}, asUser)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
}

func TestHealthIsPublic(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, http.MethodGet, srv.URL+"/v0/health", nil, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(data))
}

func TestRequiresAuthentication(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, http.MethodGet, srv.URL+"/v0/projects", nil, nil)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "unauthorized", decode[errorEnvelope](t, data).Error.Code)

	res, _ = doJSON(t, http.MethodGet, srv.URL+"/v0/projects", nil, map[string]string{"Authorization": "Bearer nope"})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestInitializeWorkflowOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	createProject(t, srv, "proj-1")

	res, data := doJSON(t, http.MethodPost, srv.URL+"/v0/projects/proj-1/workflow/init", nil, asUser)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	phases := decode[[]domain.WorkflowPhase](t, data)
	require.Len(t, phases, 5)
	for i, ph := range phases {
		assert.Equal(t, domain.PhaseTypes[i], ph.PhaseType)
		assert.Equal(t, domain.PhaseNotStarted, ph.Status)
	}

	res, data = doJSON(t, http.MethodPost, srv.URL+"/v0/projects/proj-1/workflow/init", nil, asUser)
	require.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, "already_initialized", decode[errorEnvelope](t, data).Error.Code)

	res, data = doJSON(t, http.MethodPost, srv.URL+"/v0/projects/missing/workflow/init", nil, asUser)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "not_found", decode[errorEnvelope](t, data).Error.Code)
}

func TestPhaseAndTaskUpdates(t *testing.T) {
	srv := newTestServer(t)
	createProject(t, srv, "proj-1")
	_, data := doJSON(t, http.MethodPost, srv.URL+"/v0/projects/proj-1/workflow/init", nil, asUser)
	phases := decode[[]domain.WorkflowPhase](t, data)
	planning := phases[0]

	res, data := doJSON(t, http.MethodPatch, srv.URL+"/v0/phases/"+planning.ID, map[string]any{"status": "completed", "notes": "done"}, asUser)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	updated := decode[domain.WorkflowPhase](t, data)
	assert.Equal(t, domain.PhaseCompleted, updated.Status)
	assert.Equal(t, "done", updated.Notes)

	res, data = doJSON(t, http.MethodPatch, srv.URL+"/v0/phases/"+planning.ID, map[string]any{"status": "finished"}, asUser)
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode, string(data))
	assert.Equal(t, "validation_rejected", decode[errorEnvelope](t, data).Error.Code)

	res, data = doJSON(t, http.MethodPost, srv.URL+"/v0/phases/"+planning.ID+"/tasks", map[string]any{
		"task_type": "threat_modeling",
		"title":     "Model threats",
	}, asUser)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	task := decode[domain.WorkflowTask](t, data)
	assert.Equal(t, domain.TaskTodo, task.Status)

	res, data = doJSON(t, http.MethodPatch, srv.URL+"/v0/tasks/"+task.ID, map[string]any{"status": "completed"}, asUser)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	task = decode[domain.WorkflowTask](t, data)
	assert.Equal(t, domain.TaskCompleted, task.Status)
	assert.NotNil(t, task.CompletedAt)

	res, data = doJSON(t, http.MethodPost, srv.URL+"/v0/phases/"+planning.ID+"/tasks", map[string]any{
		"task_type": "coffee_break",
		"title":     "Nope",
	}, asUser)
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode, string(data))
	env := decode[errorEnvelope](t, data)
	assert.Equal(t, "validation_rejected", env.Error.Code)
	assert.Equal(t, "task_type", env.Error.Details["field"])

	res, data = doJSON(t, http.MethodGet, srv.URL+"/v0/projects/proj-1/workflow", nil, asUser)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	summary := decode[[]engine.PhaseSummary](t, data)
	require.Len(t, summary, 5)
	assert.Equal(t, 100, summary[0].Progress)
	assert.Equal(t, 1, summary[0].TaskTotal)
	assert.Equal(t, 1, summary[0].TaskCounts[domain.TaskCompleted])
}

func TestQualityGatesOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	createProject(t, srv, "proj-1")

	res, data := doJSON(t, http.MethodPost, srv.URL+"/v0/projects/proj-1/quality-gates/init", nil, asUser)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))

	res, data = doJSON(t, http.MethodGet, srv.URL+"/v0/projects/proj-1/quality-gates", nil, asUser)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	gates := decode[[]engine.GateView](t, data)
	require.Len(t, gates, 5)
	for i, g := range gates {
		assert.Equal(t, domain.GatePhases[i], g.Phase)
		assert.False(t, g.DeliverablesCompleted)
	}
	uat := gates[2]
	require.Equal(t, domain.GateUAT, uat.Phase)
	assert.Equal(t, []string{"uat_acceptance_test_plan"}, uat.MissingDeliverables)

	// deliverables sent as a JSON string holding the object
	res, data = doJSON(t, http.MethodPatch, srv.URL+"/v0/quality-gates/"+uat.ID, map[string]any{
		"status":       "in_progress",
		"deliverables": `{"uat_acceptance_test_plan":{"completed":true,"link":"https://docs.example/uat"}}`,
	}, asUser)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	view := decode[engine.GateView](t, data)
	assert.True(t, view.DeliverablesCompleted)
	assert.Equal(t, domain.GateInProgress, view.Status)
	assert.Empty(t, view.MissingDeliverables)

	res, data = doJSON(t, http.MethodPatch, srv.URL+"/v0/quality-gates/"+uat.ID, map[string]any{
		"deliverables": "not json",
	}, asUser)
	require.Equal(t, http.StatusBadRequest, res.StatusCode, string(data))
	assert.Equal(t, "invalid_payload", decode[errorEnvelope](t, data).Error.Code)

	res, data = doJSON(t, http.MethodGet, srv.URL+"/v0/quality-gates/"+uat.ID, nil, asUser)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, decode[engine.GateView](t, data).DeliverablesCompleted, "failed update must not change the gate")

	qa := gates[1]
	res, data = doJSON(t, http.MethodPut, srv.URL+"/v0/quality-gates/"+qa.ID+"/deliverables/qa_ttp", map[string]any{
		"completed": true,
		"link":      "https://docs.example/ttp",
	}, asUser)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	view = decode[engine.GateView](t, data)
	assert.Equal(t, domain.Deliverable{Completed: true, Link: "https://docs.example/ttp"}, view.Deliverables["qa_ttp"])
	assert.Equal(t, []string{"qa_architecture_patterns_spec", "qa_integration_document"}, view.MissingDeliverables)
}

func TestWorkflowMetricsAndObjectiveOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	for _, id := range []string{"a", "b"} {
		createProject(t, srv, id)
		_, data := doJSON(t, http.MethodPost, srv.URL+"/v0/projects/"+id+"/workflow/init", nil, asUser)
		phases := decode[[]domain.WorkflowPhase](t, data)
		status := "completed"
		if id == "b" {
			status = "in_progress"
		}
		res, body := doJSON(t, http.MethodPatch, srv.URL+"/v0/phases/"+phases[0].ID, map[string]any{"status": status}, asUser)
		require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	}

	res, data := doJSON(t, http.MethodGet, srv.URL+"/v0/workflow/metrics", nil, asUser)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Equal(t, WorkflowMetricsResponse{Planning: 75}, decode[WorkflowMetricsResponse](t, data))

	res, data = doJSON(t, http.MethodPost, srv.URL+"/v0/goals", map[string]any{"title": "Grow"}, asUser)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	goal := decode[domain.StrategicGoal](t, data)
	res, data = doJSON(t, http.MethodPost, srv.URL+"/v0/goals/"+goal.ID+"/objectives", map[string]any{"title": "Ship"}, asUser)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	obj := decode[domain.Objective](t, data)

	for _, kr := range []map[string]any{
		{"title": "a", "start_value": 0, "target_value": 10, "current_value": 0},
		{"title": "b", "start_value": 0, "target_value": 10, "current_value": 5},
		{"title": "c", "start_value": 0, "target_value": 10, "current_value": 10},
	} {
		res, data = doJSON(t, http.MethodPost, srv.URL+"/v0/objectives/"+obj.ID+"/key-results", kr, asUser)
		require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	}

	res, data = doJSON(t, http.MethodGet, srv.URL+"/v0/objectives/"+obj.ID, nil, asUser)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	view := decode[engine.ObjectiveView](t, data)
	assert.Equal(t, 50, view.Progress)
	require.Len(t, view.KeyResults, 3)
}

func TestDevLoginAndAPIKeys(t *testing.T) {
	srv := newTestServer(t)

	res, data := doJSON(t, http.MethodPost, srv.URL+"/v0/auth/dev/login", map[string]any{"email": "dev@example.com"}, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	tok := decode[TokenResponse](t, data)
	require.NotEmpty(t, tok.Token)
	bearer := map[string]string{"Authorization": "Bearer " + tok.Token}

	res, data = doJSON(t, http.MethodGet, srv.URL+"/v0/me", nil, bearer)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	me := decode[MeResponse](t, data)
	assert.Equal(t, tok.User.ID, me.UserID)
	assert.Equal(t, "jwt", me.Source)

	res, data = doJSON(t, http.MethodPost, srv.URL+"/v0/me/api-keys", map[string]any{"name": "ci"}, bearer)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	key := decode[APIKeyResponse](t, data)
	require.NotEmpty(t, key.Key)

	res, data = doJSON(t, http.MethodGet, srv.URL+"/v0/me", nil, map[string]string{"X-Api-Key": key.Key})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Equal(t, "api_key", decode[MeResponse](t, data).Source)

	res, data = doJSON(t, http.MethodGet, srv.URL+"/v0/me/api-keys", nil, bearer)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	keys := decode[[]APIKeyResponse](t, data)
	require.Len(t, keys, 1)
	assert.Empty(t, keys[0].Key)
}

func TestSSOCallback(t *testing.T) {
	srv := newTestServer(t)
	identity := map[string]any{"external_id": "ext-1", "provider": "okta", "email": "ada@example.com", "name": "Ada"}

	res, _ := doJSON(t, http.MethodPost, srv.URL+"/v0/auth/sso/callback", identity, map[string]string{"X-SSO-Secret": "wrong"})
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, data := doJSON(t, http.MethodPost, srv.URL+"/v0/auth/sso/callback", identity, map[string]string{"X-SSO-Secret": "bridge"})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	first := decode[TokenResponse](t, data)
	assert.Equal(t, "created", first.Outcome)

	res, data = doJSON(t, http.MethodPost, srv.URL+"/v0/auth/sso/callback", identity, map[string]string{"X-SSO-Secret": "bridge"})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	second := decode[TokenResponse](t, data)
	assert.Equal(t, "matched", second.Outcome)
	assert.Equal(t, first.User.ID, second.User.ID)
}

func TestEventsPagination(t *testing.T) {
	srv := newTestServer(t)
	createProject(t, srv, "proj-1")
	doJSON(t, http.MethodPost, srv.URL+"/v0/projects/proj-1/workflow/init", nil, asUser)
	doJSON(t, http.MethodPost, srv.URL+"/v0/projects/proj-1/quality-gates/init", nil, asUser)

	res, data := doJSON(t, http.MethodGet, srv.URL+"/v0/projects/proj-1/events?limit=2", nil, asUser)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	page := decode[paginatedEvents](t, data)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "quality_gates.initialized", page.Items[0].Type)
	assert.Equal(t, "workflow.initialized", page.Items[1].Type)
	require.NotEmpty(t, page.NextCursor)

	res, data = doJSON(t, http.MethodGet, srv.URL+"/v0/projects/proj-1/events?limit=2&cursor="+page.NextCursor, nil, asUser)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	page = decode[paginatedEvents](t, data)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "project.created", page.Items[0].Type)
	assert.Empty(t, page.NextCursor)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, http.MethodGet, srv.URL+"/v0/health", nil, nil)
	res, data := doJSON(t, http.MethodGet, srv.URL+"/metrics", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(data), "phasegate_http_requests_total")
}
