package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeAll(phase GatePhase) map[string]Deliverable {
	out := SeedDeliverables(phase)
	for k := range out {
		out[k] = Deliverable{Completed: true, Link: "https://docs.example/" + k}
	}
	return out
}

func TestIsDeliverableCompletedPerGatePhase(t *testing.T) {
	for _, phase := range GatePhases {
		t.Run(string(phase), func(t *testing.T) {
			gate := QualityGate{Phase: phase, Deliverables: SeedDeliverables(phase)}
			assert.False(t, IsDeliverableCompleted(gate), "seeded gate must be incomplete")

			gate.Deliverables = completeAll(phase)
			assert.True(t, IsDeliverableCompleted(gate))

			gate.Deliverables["unrelated_extra"] = Deliverable{Completed: false}
			assert.True(t, IsDeliverableCompleted(gate), "extra keys must not matter")

			for _, key := range RequiredDeliverables(phase) {
				partial := completeAll(phase)
				delete(partial, key)
				assert.False(t, IsDeliverableCompleted(QualityGate{Phase: phase, Deliverables: partial}), "missing %s", key)

				partial = completeAll(phase)
				partial[key] = Deliverable{Completed: false, Link: "x"}
				assert.False(t, IsDeliverableCompleted(QualityGate{Phase: phase, Deliverables: partial}), "incomplete %s", key)
			}
		})
	}
}

func TestIsDeliverableCompletedIgnoresStatus(t *testing.T) {
	gate := QualityGate{Phase: GateUAT, Status: GateCompleted, Deliverables: SeedDeliverables(GateUAT)}
	assert.False(t, IsDeliverableCompleted(gate))

	gate = QualityGate{Phase: GateUAT, Status: GateNotStarted, Deliverables: completeAll(GateUAT)}
	assert.True(t, IsDeliverableCompleted(gate))
}

func TestIsDeliverableCompletedNilMap(t *testing.T) {
	assert.False(t, IsDeliverableCompleted(QualityGate{Phase: GateQA}))
	assert.Equal(t, RequiredDeliverables(GateQA), MissingDeliverables(GateQA, nil))
}

func TestSeedDeliverablesMatchesChecklist(t *testing.T) {
	seed := SeedDeliverables(GateSQASQCT)
	require.Len(t, seed, 3)
	for _, k := range []string{"sqa_sqct_test_case", "sqa_sqct_test_reports", "sqa_sqct_gxp"} {
		assert.Equal(t, Deliverable{}, seed[k])
	}
}

func TestTaskCatalog(t *testing.T) {
	all := TaskTypes()
	require.Len(t, all, 50)
	seen := map[TaskType]bool{}
	for _, tt := range all {
		assert.False(t, seen[tt], "duplicate %s", tt)
		seen[tt] = true
	}
	for _, p := range PhaseTypes {
		assert.Len(t, TaskTypesFor(p), 10)
	}
	phase, ok := PhaseOf(TaskThreatModeling)
	require.True(t, ok)
	assert.Equal(t, PhasePlanning, phase)
	assert.False(t, TaskType("coffee_break").Valid())
}

func TestEnumOrder(t *testing.T) {
	assert.Equal(t, []string{"planning", "architecture", "implementation", "testing", "deployment"}, EnumValues(PhaseTypes))
	assert.Equal(t, []string{"building_phase", "qa", "uat", "sqa_sqct", "environment_record"}, EnumValues(GatePhases))
	assert.Equal(t, 2, GateIndex(GateUAT))
	assert.Equal(t, -1, PhaseIndex("release"))
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Threat Modeling", DisplayName(TaskThreatModeling))
	assert.Equal(t, "SQA / SQCT", DisplayName(GateSQASQCT))
	assert.Equal(t, "Environment Record", DisplayName(GateEnvironmentRecord))
	assert.Equal(t, "green", StatusColor(string(TaskCompleted)))
	assert.Equal(t, "gray", StatusColor(string(PhaseNotStarted)))
	assert.True(t, IsProjectActive(Project{Status: ProjectInProgress}))
	assert.False(t, IsProjectActive(Project{Status: ProjectOnHold}))
}
