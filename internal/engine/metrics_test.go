package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phasegate/internal/domain"
	"phasegate/internal/engine"
)

func TestGetWorkflowMetricsAcrossProjects(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "proj-a")
	env.project(t, "proj-b")

	a, err := env.Engine.InitializeWorkflow(env.Ctx, "proj-a", "tester")
	require.NoError(t, err)
	b, err := env.Engine.InitializeWorkflow(env.Ctx, "proj-b", "tester")
	require.NoError(t, err)

	_, err = env.Engine.SetPhaseStatus(env.Ctx, phaseByType(t, a, domain.PhaseArchitecture).ID, "completed", "tester")
	require.NoError(t, err)
	_, err = env.Engine.SetPhaseStatus(env.Ctx, phaseByType(t, b, domain.PhaseArchitecture).ID, "in_progress", "tester")
	require.NoError(t, err)
	_, err = env.Engine.SetPhaseStatus(env.Ctx, phaseByType(t, b, domain.PhaseDeployment).ID, "on_hold", "tester")
	require.NoError(t, err)

	got, err := env.Engine.GetWorkflowMetrics(env.Ctx)
	require.NoError(t, err)
	assert.Equal(t, 75, got[domain.PhaseArchitecture])
	assert.Equal(t, 0, got[domain.PhaseDeployment])
	assert.Len(t, got, 5)
}

func TestGetWorkflowMetricsEmpty(t *testing.T) {
	env := newTestEnv(t)
	got, err := env.Engine.GetWorkflowMetrics(env.Ctx)
	require.NoError(t, err)
	for _, pt := range domain.PhaseTypes {
		assert.Equal(t, 0, got[pt])
	}
}

func TestObjectiveProgressThroughEngine(t *testing.T) {
	env := newTestEnv(t)
	goal, err := env.Engine.CreateGoal(env.Ctx, "Ship safely", "", "tester")
	require.NoError(t, err)
	obj, err := env.Engine.CreateObjective(env.Ctx, goal.ID, "Raise coverage", "", "tester")
	require.NoError(t, err)

	view, err := env.Engine.GetObjective(env.Ctx, obj.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, view.Progress)
	assert.Empty(t, view.KeyResults)

	for _, current := range []float64{0, 5, 10} {
		c := current
		_, err := env.Engine.CreateKeyResult(env.Ctx, engine.KeyResultCreateOptions{
			ObjectiveID: obj.ID, Title: "kr", MetricType: "percentage", StartValue: 0, TargetValue: 10, CurrentValue: &c,
		})
		require.NoError(t, err)
	}
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Name: "linked", ObjectiveID: obj.ID})
	require.NoError(t, err)

	view, err = env.Engine.GetObjective(env.Ctx, obj.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, view.Progress)
	require.Len(t, view.KeyResults, 3)
	require.Len(t, view.Projects, 1)
	assert.Equal(t, p.ID, view.Projects[0].ID)

	overshoot := 15.0
	kr, err := env.Engine.UpdateKeyResult(env.Ctx, engine.KeyResultUpdateOptions{ID: view.KeyResults[0].ID, CurrentValue: &overshoot})
	require.NoError(t, err)
	krView, err := env.Engine.GetKeyResult(env.Ctx, kr.ID)
	require.NoError(t, err)
	assert.InDelta(t, 150, krView.Progress, 1e-9)

	_, err = env.Engine.CreateKeyResult(env.Ctx, engine.KeyResultCreateOptions{ObjectiveID: obj.ID, Title: "bad", MetricType: "euros", TargetValue: 1})
	var ve engine.ValidationError
	assert.ErrorAs(t, err, &ve)

	// deleting the goal cascades; the project survives unlinked
	require.NoError(t, env.Engine.DeleteGoal(env.Ctx, goal.ID, "tester"))
	_, err = env.Engine.GetObjective(env.Ctx, obj.ID)
	assert.ErrorIs(t, err, engine.ErrNotFound)
	p, err = env.Engine.GetProject(env.Ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, p.ObjectiveID)
}
