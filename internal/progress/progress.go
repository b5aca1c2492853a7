// Package progress holds the numeric rollups derived from workflow and
// objective state. Everything here is a pure function of its inputs.
package progress

import (
	"math"

	"phasegate/internal/domain"
)

// Phase is the three-point proxy used for workflow metrics.
func Phase(status domain.PhaseStatus) int {
	switch status {
	case domain.PhaseCompleted:
		return 100
	case domain.PhaseInProgress:
		return 50
	default:
		return 0
	}
}

// WorkflowMetrics buckets phases by type and averages their Phase value.
// Every phase type is present in the result; empty buckets report 0.
func WorkflowMetrics(phases []domain.WorkflowPhase) map[domain.PhaseType]int {
	sums := make(map[domain.PhaseType]int, len(domain.PhaseTypes))
	counts := make(map[domain.PhaseType]int, len(domain.PhaseTypes))
	for _, p := range phases {
		sums[p.PhaseType] += Phase(p.Status)
		counts[p.PhaseType]++
	}
	out := make(map[domain.PhaseType]int, len(domain.PhaseTypes))
	for _, pt := range domain.PhaseTypes {
		if counts[pt] == 0 {
			out[pt] = 0
			continue
		}
		out[pt] = int(math.Round(float64(sums[pt]) / float64(counts[pt])))
	}
	return out
}

// KeyResult interpolates current between start and target as a percentage.
// The result is floored at 0 but may exceed 100. A zero-width range yields 0.
func KeyResult(kr domain.KeyResult) float64 {
	span := kr.TargetValue - kr.StartValue
	if span == 0 {
		return 0
	}
	return math.Max(0, (kr.CurrentValue-kr.StartValue)/span*100)
}

// Objective is the rounded mean of its key results' progress, 0 when there
// are none.
func Objective(krs []domain.KeyResult) int {
	if len(krs) == 0 {
		return 0
	}
	var sum float64
	for _, kr := range krs {
		sum += KeyResult(kr)
	}
	return int(math.Round(sum / float64(len(krs))))
}
