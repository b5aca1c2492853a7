package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phasegate/internal/db"
	"phasegate/internal/domain"
	"phasegate/internal/engine"
	"phasegate/internal/migrate"
	"phasegate/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	eng := engine.New(conn, nil)
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func (env testEnv) project(t *testing.T, id string) domain.Project {
	t.Helper()
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{ID: id, Name: "Project " + id, ActorID: "tester"})
	require.NoError(t, err)
	return p
}

func phaseByType(t *testing.T, phases []domain.WorkflowPhase, pt domain.PhaseType) domain.WorkflowPhase {
	t.Helper()
	for _, ph := range phases {
		if ph.PhaseType == pt {
			return ph
		}
	}
	t.Fatalf("phase %s not found", pt)
	return domain.WorkflowPhase{}
}

func TestInitializeWorkflow(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "proj-1")

	phases, err := env.Engine.InitializeWorkflow(env.Ctx, "proj-1", "tester")
	require.NoError(t, err)
	require.Len(t, phases, 5)
	for i, ph := range phases {
		assert.Equal(t, domain.PhaseTypes[i], ph.PhaseType)
		assert.Equal(t, domain.PhaseNotStarted, ph.Status)
	}

	// advance one phase, then re-init must fail without touching anything
	_, err = env.Engine.SetPhaseStatus(env.Ctx, phases[0].ID, "in_progress", "tester")
	require.NoError(t, err)
	_, err = env.Engine.InitializeWorkflow(env.Ctx, "proj-1", "tester")
	require.ErrorIs(t, err, engine.ErrAlreadyInitialized)

	after, err := env.Engine.ListPhases(env.Ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, after, 5)
	assert.Equal(t, domain.PhaseInProgress, after[0].Status)
	assert.Equal(t, phases[0].ID, after[0].ID)
}

func TestInitializeWorkflowUnknownProject(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.InitializeWorkflow(env.Ctx, "missing", "tester")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestInitializeWorkflowPartialExisting(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "proj-1")
	_, err := env.Engine.CreatePhase(env.Ctx, engine.PhaseCreateOptions{ProjectID: "proj-1", PhaseType: "testing"})
	require.NoError(t, err)

	_, err = env.Engine.InitializeWorkflow(env.Ctx, "proj-1", "tester")
	require.ErrorIs(t, err, engine.ErrAlreadyInitialized)
	phases, err := env.Engine.ListPhases(env.Ctx, "proj-1")
	require.NoError(t, err)
	assert.Len(t, phases, 1)
}

func TestConcurrentInitializeCreatesOneSet(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "proj-1")

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.Engine.InitializeQualityGates(env.Ctx, "proj-1", "tester")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.LessOrEqual(t, succeeded, 1)
	gates, err := env.Engine.GetProjectQualityGates(env.Ctx, "proj-1")
	require.NoError(t, err)
	if succeeded == 1 {
		assert.Len(t, gates, 5)
	} else {
		assert.Empty(t, gates)
	}
}

func TestCreatePhaseRejectsDuplicatePair(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "proj-1")
	_, err := env.Engine.CreatePhase(env.Ctx, engine.PhaseCreateOptions{ProjectID: "proj-1", PhaseType: "planning", StartDate: "2024-02-01"})
	require.NoError(t, err)
	_, err = env.Engine.CreatePhase(env.Ctx, engine.PhaseCreateOptions{ProjectID: "proj-1", PhaseType: "planning"})
	assert.ErrorIs(t, err, engine.ErrDuplicatePhase)

	env.project(t, "proj-2")
	_, err = env.Engine.CreatePhase(env.Ctx, engine.PhaseCreateOptions{ProjectID: "proj-2", PhaseType: "planning"})
	assert.NoError(t, err)
}

func TestPhaseStatusIsUnrestricted(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "proj-1")
	phases, err := env.Engine.InitializeWorkflow(env.Ctx, "proj-1", "tester")
	require.NoError(t, err)
	id := phases[2].ID

	for _, from := range domain.PhaseStatuses {
		for _, to := range domain.PhaseStatuses {
			_, err := env.Engine.SetPhaseStatus(env.Ctx, id, string(from), "tester")
			require.NoError(t, err)
			ph, err := env.Engine.SetPhaseStatus(env.Ctx, id, string(to), "tester")
			require.NoError(t, err, "%s -> %s", from, to)
			assert.Equal(t, to, ph.Status)
		}
	}
}

func TestPhaseStatusNotDerivedFromTasks(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "proj-1")
	phases, err := env.Engine.InitializeWorkflow(env.Ctx, "proj-1", "tester")
	require.NoError(t, err)
	planning := phaseByType(t, phases, domain.PhasePlanning)

	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{PhaseID: planning.ID, TaskType: "threat_modeling", Title: "STRIDE pass"})
	require.NoError(t, err)
	_, err = env.Engine.SetTaskStatus(env.Ctx, task.ID, "completed", "tester")
	require.NoError(t, err)

	ph, err := env.Engine.GetPhase(env.Ctx, planning.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseNotStarted, ph.Status)
}

func TestUpdatePhasePartial(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "proj-1")
	phases, err := env.Engine.InitializeWorkflow(env.Ctx, "proj-1", "tester")
	require.NoError(t, err)

	start := "2024-03-01"
	ph, err := env.Engine.UpdatePhase(env.Ctx, engine.PhaseUpdateOptions{ID: phases[0].ID, StartDate: &start})
	require.NoError(t, err)
	require.NotNil(t, ph.StartDate)
	assert.Equal(t, start, *ph.StartDate)
	assert.Equal(t, domain.PhaseNotStarted, ph.Status)

	bad := "March"
	_, err = env.Engine.UpdatePhase(env.Ctx, engine.PhaseUpdateOptions{ID: phases[0].ID, EndDate: &bad})
	var ve engine.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = env.Engine.UpdatePhase(env.Ctx, engine.PhaseUpdateOptions{ID: "nope", Status: "completed"})
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestTaskLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "proj-1")
	phases, err := env.Engine.InitializeWorkflow(env.Ctx, "proj-1", "tester")
	require.NoError(t, err)
	impl := phaseByType(t, phases, domain.PhaseImplementation)

	// type/phase mismatch is the caller's business
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		PhaseID:      impl.ID,
		TaskType:     "penetration_testing",
		Title:        "pentest",
		Priority:     "high",
		Deliverables: map[string]any{"report": "s3://bucket/report.pdf"},
	})
	require.NoError(t, err)
	assert.Equal(t, "proj-1", task.ProjectID)
	assert.Equal(t, domain.TaskTodo, task.Status)
	assert.Nil(t, task.CompletedAt)

	task, err = env.Engine.SetTaskStatus(env.Ctx, task.ID, "completed", "tester")
	require.NoError(t, err)
	require.NotNil(t, task.CompletedAt)

	task, err = env.Engine.SetTaskStatus(env.Ctx, task.ID, "todo", "tester")
	require.NoError(t, err)
	assert.Nil(t, task.CompletedAt)

	got, err := env.Engine.GetTask(env.Ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/report.pdf", got.Deliverables["report"])
	assert.Equal(t, domain.PriorityHigh, got.Priority)

	assignee := "dev-1"
	_, err = env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{ID: task.ID, AssigneeID: &assignee, Status: "blocked"})
	require.NoError(t, err)
	listed, err := env.Engine.ListTasks(env.Ctx, repo.TaskFilters{ProjectID: "proj-1", AssigneeID: "dev-1", Status: "blocked"})
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, env.Engine.DeleteTask(env.Ctx, task.ID, "tester"))
	_, err = env.Engine.GetTask(env.Ctx, task.ID)
	assert.ErrorIs(t, err, engine.ErrNotFound)
	_, err = env.Engine.GetPhase(env.Ctx, impl.ID)
	assert.NoError(t, err, "deleting a task leaves its phase")
}

func TestDeletePhaseCascadesToTasks(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "proj-1")
	phases, err := env.Engine.InitializeWorkflow(env.Ctx, "proj-1", "tester")
	require.NoError(t, err)
	testPhase := phaseByType(t, phases, domain.PhaseTesting)
	deploy := phaseByType(t, phases, domain.PhaseDeployment)

	var ids []string
	for _, tt := range []string{"test_planning", "regression_testing"} {
		task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{PhaseID: testPhase.ID, TaskType: tt, Title: tt})
		require.NoError(t, err)
		ids = append(ids, task.ID)
	}
	keep, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{PhaseID: deploy.ID, TaskType: "handover", Title: "handover"})
	require.NoError(t, err)

	require.NoError(t, env.Engine.DeletePhase(env.Ctx, testPhase.ID, "tester"))
	for _, id := range ids {
		_, err := env.Engine.GetTask(env.Ctx, id)
		assert.ErrorIs(t, err, engine.ErrNotFound)
	}
	_, err = env.Engine.GetTask(env.Ctx, keep.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, env.Engine.DeletePhase(env.Ctx, testPhase.ID, "tester"), engine.ErrNotFound)
}

func TestValidationRejectsUnknownEnums(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "proj-1")
	phases, err := env.Engine.InitializeWorkflow(env.Ctx, "proj-1", "tester")
	require.NoError(t, err)

	cases := map[string]error{}
	_, cases["phase status"] = env.Engine.SetPhaseStatus(env.Ctx, phases[0].ID, "done", "tester")
	_, cases["phase type"] = env.Engine.CreatePhase(env.Ctx, engine.PhaseCreateOptions{ProjectID: "proj-1", PhaseType: "release"})
	_, cases["task type"] = env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{PhaseID: phases[0].ID, TaskType: "coffee", Title: "x"})
	_, cases["task priority"] = env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{PhaseID: phases[0].ID, TaskType: "handover", Title: "x", Priority: "urgent"})
	_, cases["project status"] = env.Engine.UpdateProject(env.Ctx, engine.ProjectUpdateOptions{ID: "proj-1", Status: "active"})
	for name, err := range cases {
		var ve engine.ValidationError
		assert.True(t, errors.As(err, &ve), "%s: got %v", name, err)
	}

	ph, err := env.Engine.GetPhase(env.Ctx, phases[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseNotStarted, ph.Status)
}

func TestProjectWorkflowSummary(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "proj-1")
	phases, err := env.Engine.InitializeWorkflow(env.Ctx, "proj-1", "tester")
	require.NoError(t, err)
	_, err = env.Engine.SetPhaseStatus(env.Ctx, phases[0].ID, "completed", "tester")
	require.NoError(t, err)
	_, err = env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{PhaseID: phases[0].ID, TaskType: "scope_definition", Title: "scope", Status: "in_review"})
	require.NoError(t, err)

	summary, err := env.Engine.ProjectWorkflow(env.Ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, summary, 5)
	assert.Equal(t, 100, summary[0].Progress)
	assert.Equal(t, 1, summary[0].TaskTotal)
	assert.Equal(t, 1, summary[0].TaskCounts[domain.TaskInReview])
	assert.Equal(t, 0, summary[1].Progress)
}
