package domain

import "strings"

var displayOverrides = map[string]string{
	string(GateQA):                "QA",
	string(GateUAT):               "UAT",
	string(GateSQASQCT):           "SQA / SQCT",
	string(TaskAPIDesign):         "API Design",
	string(TaskAPIImplementation): "API Implementation",
	string(TaskCICDPipeline):      "CI/CD Pipeline",
	string(TaskUXDesign):          "UX Design",
}

// DisplayName turns an enum value such as "threat_modeling" into
// "Threat Modeling".
func DisplayName[T ~string](v T) string {
	if name, ok := displayOverrides[string(v)]; ok {
		return name
	}
	words := strings.Split(string(v), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// StatusColor maps any status value to a badge color used by the CLI.
func StatusColor(status string) string {
	switch status {
	case "completed":
		return "green"
	case "in_progress", "in_review":
		return "blue"
	case "blocked", "cancelled":
		return "red"
	case "on_hold":
		return "yellow"
	default:
		return "gray"
	}
}

// IsProjectActive is true while work on the project is expected to move.
func IsProjectActive(p Project) bool {
	return p.Status == ProjectPlanning || p.Status == ProjectInProgress
}
