package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phasegate/internal/domain"
	"phasegate/internal/engine"
)

func TestInitializeQualityGatesTwice(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "proj-1")

	gates, err := env.Engine.InitializeQualityGates(env.Ctx, "proj-1", "tester")
	require.NoError(t, err)
	require.Len(t, gates, 5)
	for i, g := range gates {
		assert.Equal(t, domain.GatePhases[i], g.Phase)
		assert.Equal(t, domain.GateNotStarted, g.Status)
		assert.Equal(t, domain.SeedDeliverables(g.Phase), g.Deliverables)
	}

	_, err = env.Engine.InitializeQualityGates(env.Ctx, "proj-1", "tester")
	require.ErrorIs(t, err, engine.ErrAlreadyInitialized)

	listed, err := env.Engine.GetProjectQualityGates(env.Ctx, "proj-1")
	require.NoError(t, err)
	assert.Len(t, listed, 5)
}

func TestGetProjectQualityGatesFixedOrder(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "proj-1")

	// store in reverse order, bypassing the engine
	for i := len(domain.GatePhases) - 1; i >= 0; i-- {
		phase := domain.GatePhases[i]
		require.NoError(t, env.Engine.Repo.InsertGate(env.Ctx, nil, domain.QualityGate{
			ID:           "gate-" + string(phase),
			ProjectID:    "proj-1",
			Phase:        phase,
			Status:       domain.GateNotStarted,
			Deliverables: domain.SeedDeliverables(phase),
			CreatedAt:    "2024-01-01T00:00:00Z",
			UpdatedAt:    "2024-01-01T00:00:00Z",
		}))
	}

	gates, err := env.Engine.GetProjectQualityGates(env.Ctx, "proj-1")
	require.NoError(t, err)
	var got []domain.GatePhase
	for _, g := range gates {
		got = append(got, g.Phase)
	}
	assert.Equal(t, domain.GatePhases, got)

	_, err = env.Engine.GetProjectQualityGates(env.Ctx, "missing")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestUpdateQualityGateDeliverables(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "proj-1")
	gates, err := env.Engine.InitializeQualityGates(env.Ctx, "proj-1", "tester")
	require.NoError(t, err)
	uat := gates[2]
	require.Equal(t, domain.GateUAT, uat.Phase)

	payload := []byte(`{"uat_acceptance_test_plan":{"completed":true,"link":"https://wiki/uat"},"extra":{"completed":false,"link":""}}`)
	g, err := env.Engine.UpdateQualityGate(env.Ctx, engine.GateUpdateOptions{ID: uat.ID, Deliverables: payload})
	require.NoError(t, err)
	assert.True(t, domain.IsDeliverableCompleted(g))
	assert.Equal(t, domain.GateNotStarted, g.Status, "status untouched when not provided")

	view := engine.NewGateView(g)
	assert.True(t, view.DeliverablesCompleted)
	assert.Empty(t, view.MissingDeliverables)

	// status and checklist are independent signals
	g, err = env.Engine.UpdateQualityGate(env.Ctx, engine.GateUpdateOptions{ID: gates[0].ID, Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, domain.GateCompleted, g.Status)
	assert.False(t, domain.IsDeliverableCompleted(g))
}

func TestUpdateQualityGateStringPayload(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "proj-1")
	gates, err := env.Engine.InitializeQualityGates(env.Ctx, "proj-1", "tester")
	require.NoError(t, err)

	payload := []byte(`"{\"building_phase_design_inputs\":{\"completed\":true,\"link\":\"a\"},\"building_phase_trace\":{\"completed\":true,\"link\":\"b\"}}"`)
	g, err := env.Engine.UpdateQualityGate(env.Ctx, engine.GateUpdateOptions{ID: gates[0].ID, Deliverables: payload})
	require.NoError(t, err)
	assert.True(t, domain.IsDeliverableCompleted(g))
}

func TestUpdateQualityGateInvalidPayloadLeavesGate(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "proj-1")
	gates, err := env.Engine.InitializeQualityGates(env.Ctx, "proj-1", "tester")
	require.NoError(t, err)
	qa := gates[1]

	for _, raw := range []string{`{not json`, `[1,2]`, `"plain text"`, `null`, `{"qa_ttp": 5}`, ` `} {
		_, err := env.Engine.UpdateQualityGate(env.Ctx, engine.GateUpdateOptions{ID: qa.ID, Status: "blocked", Deliverables: []byte(raw)})
		assert.ErrorIs(t, err, engine.ErrInvalidPayload, raw)
	}

	after, err := env.Engine.GetQualityGate(env.Ctx, qa.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GateNotStarted, after.Status)
	assert.Equal(t, qa.Deliverables, after.Deliverables)
}

func TestUpdateQualityGateNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.UpdateQualityGate(env.Ctx, engine.GateUpdateOptions{ID: "nope", Status: "blocked"})
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestSetDeliverable(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "proj-1")
	gates, err := env.Engine.InitializeQualityGates(env.Ctx, "proj-1", "tester")
	require.NoError(t, err)
	sqa := gates[3]

	yes := true
	link := "https://ci/report"
	g, err := env.Engine.SetDeliverable(env.Ctx, sqa.ID, "sqa_sqct_test_reports", &yes, &link, "tester")
	require.NoError(t, err)
	assert.Equal(t, domain.Deliverable{Completed: true, Link: link}, g.Deliverables["sqa_sqct_test_reports"])
	assert.Equal(t, domain.Deliverable{}, g.Deliverables["sqa_sqct_gxp"])
	assert.Equal(t, []string{"sqa_sqct_test_case", "sqa_sqct_gxp"}, engine.NewGateView(g).MissingDeliverables)
}
