package phasegatesdk_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phasegate/internal/db"
	"phasegate/internal/engine"
	"phasegate/internal/migrate"
	"phasegate/internal/server"
	phasegatesdk "phasegate/sdk/go"
)

func newClient(t *testing.T) *phasegatesdk.Client {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, migrate.Migrate(conn))
	handler, err := server.New(server.Config{
		Engine:   engine.New(conn, nil),
		BasePath: "/v0",
		Auth:     server.AuthConfig{AllowUserHeader: true},
	})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		srv.Close()
		conn.Close()
	})
	c := phasegatesdk.New(srv.URL)
	c.UserID = "sdk-tester"
	return c
}

func TestLifecycleThroughSDK(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	p, err := c.CreateProject(ctx, "proj-1", "Checkout")
	require.NoError(t, err)
	assert.Equal(t, "planning", p.Status)

	phases, err := c.InitializeWorkflow(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, phases, 5)

	_, err = c.InitializeWorkflow(ctx, p.ID)
	require.Error(t, err)
	assert.True(t, phasegatesdk.IsCode(err, "already_initialized"))

	_, err = c.SetPhaseStatus(ctx, phases[3].ID, "in_progress")
	require.NoError(t, err)
	task, err := c.CreateTask(ctx, phases[3].ID, "unit_testing", "Cover engine")
	require.NoError(t, err)
	task, err = c.SetTaskStatus(ctx, task.ID, "completed")
	require.NoError(t, err)
	assert.NotEmpty(t, task.CompletedAt)

	metrics, err := c.WorkflowMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, phasegatesdk.WorkflowMetrics{Testing: 50}, metrics)

	summary, err := c.ProjectWorkflow(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, summary, 5)
	assert.Equal(t, 1, summary[3].TaskCounts["completed"])
}

func TestQualityGatesThroughSDK(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)
	p, err := c.CreateProject(ctx, "proj-1", "Checkout")
	require.NoError(t, err)

	gates, err := c.InitializeQualityGates(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, gates, 5)
	env := gates[4]
	require.Equal(t, "environment_record", env.Phase)

	updated, err := c.UpdateQualityGate(ctx, env.ID, phasegatesdk.GateUpdate{
		Status: "completed",
		Deliverables: map[string]phasegatesdk.Deliverable{
			"environment_record_dvsrs": {Completed: true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "completed", updated.Status)
	assert.False(t, updated.DeliverablesCompleted, "status does not imply checklist completion")
	assert.Equal(t, []string{"environment_record_urs_records"}, updated.MissingDeliverables)

	updated, err = c.SetDeliverable(ctx, env.ID, "environment_record_urs_records", true, "https://docs.example/urs")
	require.NoError(t, err)
	assert.True(t, updated.DeliverablesCompleted)

	page, err := c.EventsPage(ctx, p.ID, 10, "")
	require.NoError(t, err)
	require.NotEmpty(t, page.Items)
	assert.Equal(t, "quality_gate.updated", page.Items[0].Type)
}

func TestObjectiveProgressThroughSDK(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)
	goal, err := c.CreateGoal(ctx, "Grow")
	require.NoError(t, err)
	obj, err := c.CreateObjective(ctx, goal.ID, "Reduce churn")
	require.NoError(t, err)

	kr, err := c.CreateKeyResult(ctx, obj.ID, "NPS", 20, 40, 20)
	require.NoError(t, err)
	assert.Equal(t, 0.0, kr.Progress)

	kr, err = c.RecordKeyResult(ctx, kr.ID, 30)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, kr.Progress, 1e-9)

	view, err := c.GetObjective(ctx, obj.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, view.Progress)

	_, err = c.GetObjective(ctx, "missing")
	assert.True(t, phasegatesdk.IsCode(err, "not_found"))
}
