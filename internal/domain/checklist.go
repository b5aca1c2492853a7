package domain

import "slices"

var requiredDeliverables = map[GatePhase][]string{
	GateBuildingPhase:     {"building_phase_design_inputs", "building_phase_trace"},
	GateQA:                {"qa_architecture_patterns_spec", "qa_integration_document", "qa_ttp"},
	GateUAT:               {"uat_acceptance_test_plan"},
	GateSQASQCT:           {"sqa_sqct_test_case", "sqa_sqct_test_reports", "sqa_sqct_gxp"},
	GateEnvironmentRecord: {"environment_record_dvsrs", "environment_record_urs_records"},
}

// RequiredDeliverables returns the checklist keys a gate of the given phase
// must have completed. Unknown phases have no requirements.
func RequiredDeliverables(phase GatePhase) []string {
	return slices.Clone(requiredDeliverables[phase])
}

// SeedDeliverables builds the initial checklist for a new gate.
func SeedDeliverables(phase GatePhase) map[string]Deliverable {
	keys := requiredDeliverables[phase]
	out := make(map[string]Deliverable, len(keys))
	for _, k := range keys {
		out[k] = Deliverable{Completed: false, Link: ""}
	}
	return out
}

// MissingDeliverables lists required keys that are absent or not completed,
// in checklist order.
func MissingDeliverables(phase GatePhase, deliverables map[string]Deliverable) []string {
	var missing []string
	for _, k := range requiredDeliverables[phase] {
		d, ok := deliverables[k]
		if !ok || !d.Completed {
			missing = append(missing, k)
		}
	}
	return missing
}

// IsDeliverableCompleted reports whether every required deliverable of the
// gate's phase is present and completed. It ignores gate.Status.
func IsDeliverableCompleted(gate QualityGate) bool {
	return len(MissingDeliverables(gate.Phase, gate.Deliverables)) == 0
}
