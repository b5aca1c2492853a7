package domain

import "slices"

type ProjectStatus string

const (
	ProjectPlanning   ProjectStatus = "planning"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectOnHold     ProjectStatus = "on_hold"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectCancelled  ProjectStatus = "cancelled"
)

var ProjectStatuses = []ProjectStatus{ProjectPlanning, ProjectInProgress, ProjectOnHold, ProjectCompleted, ProjectCancelled}

// PhaseType is one of the five lifecycle stages of a project.
type PhaseType string

const (
	PhasePlanning       PhaseType = "planning"
	PhaseArchitecture   PhaseType = "architecture"
	PhaseImplementation PhaseType = "implementation"
	PhaseTesting        PhaseType = "testing"
	PhaseDeployment     PhaseType = "deployment"
)

// PhaseTypes is the lifecycle order. Anything that lists or buckets phases
// iterates this slice, never a map.
var PhaseTypes = []PhaseType{PhasePlanning, PhaseArchitecture, PhaseImplementation, PhaseTesting, PhaseDeployment}

type PhaseStatus string

const (
	PhaseNotStarted PhaseStatus = "not_started"
	PhaseInProgress PhaseStatus = "in_progress"
	PhaseCompleted  PhaseStatus = "completed"
	PhaseOnHold     PhaseStatus = "on_hold"
)

var PhaseStatuses = []PhaseStatus{PhaseNotStarted, PhaseInProgress, PhaseCompleted, PhaseOnHold}

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskInReview   TaskStatus = "in_review"
	TaskCompleted  TaskStatus = "completed"
	TaskBlocked    TaskStatus = "blocked"
)

var TaskStatuses = []TaskStatus{TaskTodo, TaskInProgress, TaskInReview, TaskCompleted, TaskBlocked}

type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityMedium   TaskPriority = "medium"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

var TaskPriorities = []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// GatePhase is one of the five quality-process checkpoints. Gate phases are
// independent of lifecycle phases.
type GatePhase string

const (
	GateBuildingPhase     GatePhase = "building_phase"
	GateQA                GatePhase = "qa"
	GateUAT               GatePhase = "uat"
	GateSQASQCT           GatePhase = "sqa_sqct"
	GateEnvironmentRecord GatePhase = "environment_record"
)

// GatePhases is the fixed gate order used for creation and listing.
var GatePhases = []GatePhase{GateBuildingPhase, GateQA, GateUAT, GateSQASQCT, GateEnvironmentRecord}

type GateStatus string

const (
	GateNotStarted GateStatus = "not_started"
	GateInProgress GateStatus = "in_progress"
	GateCompleted  GateStatus = "completed"
	GateBlocked    GateStatus = "blocked"
)

var GateStatuses = []GateStatus{GateNotStarted, GateInProgress, GateCompleted, GateBlocked}

// MetricType tags a key result. It is descriptive only.
type MetricType string

const (
	MetricNumber     MetricType = "number"
	MetricPercentage MetricType = "percentage"
	MetricCurrency   MetricType = "currency"
)

var MetricTypes = []MetricType{MetricNumber, MetricPercentage, MetricCurrency}

func (s ProjectStatus) Valid() bool { return slices.Contains(ProjectStatuses, s) }
func (p PhaseType) Valid() bool     { return slices.Contains(PhaseTypes, p) }
func (s PhaseStatus) Valid() bool   { return slices.Contains(PhaseStatuses, s) }
func (s TaskStatus) Valid() bool    { return slices.Contains(TaskStatuses, s) }
func (p TaskPriority) Valid() bool  { return slices.Contains(TaskPriorities, p) }
func (g GatePhase) Valid() bool     { return slices.Contains(GatePhases, g) }
func (s GateStatus) Valid() bool    { return slices.Contains(GateStatuses, s) }
func (m MetricType) Valid() bool    { return slices.Contains(MetricTypes, m) }

// PhaseIndex returns the lifecycle position of p, or -1 when p is unknown.
func PhaseIndex(p PhaseType) int { return slices.Index(PhaseTypes, p) }

// GateIndex returns the position of g in the gate order, or -1.
func GateIndex(g GatePhase) int { return slices.Index(GatePhases, g) }

// EnumValues renders an enum slice as strings, e.g. for huma enum tags and
// CLI help text.
func EnumValues[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
