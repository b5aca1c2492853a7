package domain

import "slices"

// TaskType names a deliverable-producing activity. Each type belongs
// conceptually to one lifecycle phase; the engine does not enforce that a
// task's type matches its parent phase.
type TaskType string

const (
	// planning
	TaskRequirementsGathering TaskType = "requirements_gathering"
	TaskStakeholderAnalysis   TaskType = "stakeholder_analysis"
	TaskScopeDefinition       TaskType = "scope_definition"
	TaskRiskAssessment        TaskType = "risk_assessment"
	TaskThreatModeling        TaskType = "threat_modeling"
	TaskFeasibilityStudy      TaskType = "feasibility_study"
	TaskProjectCharter        TaskType = "project_charter"
	TaskResourcePlanning      TaskType = "resource_planning"
	TaskTimelineEstimation    TaskType = "timeline_estimation"
	TaskBudgetPlanning        TaskType = "budget_planning"

	// architecture
	TaskSystemDesign           TaskType = "system_design"
	TaskArchitectureReview     TaskType = "architecture_review"
	TaskDataModeling           TaskType = "data_modeling"
	TaskAPIDesign              TaskType = "api_design"
	TaskSecurityArchitecture   TaskType = "security_architecture"
	TaskInfrastructureDesign   TaskType = "infrastructure_design"
	TaskTechnologySelection    TaskType = "technology_selection"
	TaskIntegrationDesign      TaskType = "integration_design"
	TaskUXDesign               TaskType = "ux_design"
	TaskArchitecturePatternDoc TaskType = "architecture_patterns_spec"

	// implementation
	TaskFeatureDevelopment   TaskType = "feature_development"
	TaskCodeReview           TaskType = "code_review"
	TaskUnitTesting          TaskType = "unit_testing"
	TaskRefactoring          TaskType = "refactoring"
	TaskBugFixing            TaskType = "bug_fixing"
	TaskDatabaseMigration    TaskType = "database_migration"
	TaskAPIImplementation    TaskType = "api_implementation"
	TaskTechnicalDocs        TaskType = "technical_documentation"
	TaskDependencyManagement TaskType = "dependency_management"
	TaskStaticAnalysis       TaskType = "static_analysis"

	// testing
	TaskTestPlanning          TaskType = "test_planning"
	TaskIntegrationTesting    TaskType = "integration_testing"
	TaskSystemTesting         TaskType = "system_testing"
	TaskPerformanceTesting    TaskType = "performance_testing"
	TaskSecurityTesting       TaskType = "security_testing"
	TaskUserAcceptanceTesting TaskType = "user_acceptance_testing"
	TaskRegressionTesting     TaskType = "regression_testing"
	TaskTestAutomation        TaskType = "test_automation"
	TaskPenetrationTesting    TaskType = "penetration_testing"
	TaskAccessibilityTesting  TaskType = "accessibility_testing"

	// deployment
	TaskReleasePlanning      TaskType = "release_planning"
	TaskEnvironmentSetup     TaskType = "environment_setup"
	TaskCICDPipeline         TaskType = "ci_cd_pipeline"
	TaskDeploymentExecution  TaskType = "deployment_execution"
	TaskSmokeTesting         TaskType = "smoke_testing"
	TaskMonitoringSetup      TaskType = "monitoring_setup"
	TaskRollbackPlanning     TaskType = "rollback_planning"
	TaskProductionValidation TaskType = "production_validation"
	TaskHandover             TaskType = "handover"
	TaskPostDeploymentReview TaskType = "post_deployment_review"
)

var taskTypesByPhase = map[PhaseType][]TaskType{
	PhasePlanning: {
		TaskRequirementsGathering, TaskStakeholderAnalysis, TaskScopeDefinition, TaskRiskAssessment, TaskThreatModeling,
		TaskFeasibilityStudy, TaskProjectCharter, TaskResourcePlanning, TaskTimelineEstimation, TaskBudgetPlanning,
	},
	PhaseArchitecture: {
		TaskSystemDesign, TaskArchitectureReview, TaskDataModeling, TaskAPIDesign, TaskSecurityArchitecture,
		TaskInfrastructureDesign, TaskTechnologySelection, TaskIntegrationDesign, TaskUXDesign, TaskArchitecturePatternDoc,
	},
	PhaseImplementation: {
		TaskFeatureDevelopment, TaskCodeReview, TaskUnitTesting, TaskRefactoring, TaskBugFixing,
		TaskDatabaseMigration, TaskAPIImplementation, TaskTechnicalDocs, TaskDependencyManagement, TaskStaticAnalysis,
	},
	PhaseTesting: {
		TaskTestPlanning, TaskIntegrationTesting, TaskSystemTesting, TaskPerformanceTesting, TaskSecurityTesting,
		TaskUserAcceptanceTesting, TaskRegressionTesting, TaskTestAutomation, TaskPenetrationTesting, TaskAccessibilityTesting,
	},
	PhaseDeployment: {
		TaskReleasePlanning, TaskEnvironmentSetup, TaskCICDPipeline, TaskDeploymentExecution, TaskSmokeTesting,
		TaskMonitoringSetup, TaskRollbackPlanning, TaskProductionValidation, TaskHandover, TaskPostDeploymentReview,
	},
}

// TaskTypes lists the whole catalog grouped in lifecycle order.
func TaskTypes() []TaskType {
	var out []TaskType
	for _, p := range PhaseTypes {
		out = append(out, taskTypesByPhase[p]...)
	}
	return out
}

// TaskTypesFor returns the catalog entries that belong to phase p.
func TaskTypesFor(p PhaseType) []TaskType {
	return slices.Clone(taskTypesByPhase[p])
}

// PhaseOf reports the lifecycle phase a task type belongs to.
func PhaseOf(t TaskType) (PhaseType, bool) {
	for _, p := range PhaseTypes {
		if slices.Contains(taskTypesByPhase[p], t) {
			return p, true
		}
	}
	return "", false
}

func (t TaskType) Valid() bool {
	_, ok := PhaseOf(t)
	return ok
}
