package engine

import (
	"context"

	"phasegate/internal/domain"
	"phasegate/internal/progress"
)

// GetWorkflowMetrics averages the three-point phase progress per phase type
// across every project and publishes the result as gauges.
func (e Engine) GetWorkflowMetrics(ctx context.Context) (map[domain.PhaseType]int, error) {
	phases, err := e.Repo.ListPhases(ctx, nil, "")
	if err != nil {
		return nil, err
	}
	out := progress.WorkflowMetrics(phases)
	if e.Metrics != nil {
		for pt, v := range out {
			e.Metrics.SetPhaseProgress(string(pt), v)
		}
	}
	return out, nil
}
