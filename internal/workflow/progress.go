package workflow

import (
	"math"
	"time"
)

// ProgressCeiling is the highest estimate reported before the analysis resolves.
const ProgressCeiling = 95.0

// DefaultProgressTimeConstant sets how quickly the estimate approaches the ceiling.
const DefaultProgressTimeConstant = 3 * time.Second

// ProgressEstimator derives a cosmetic completion percentage from elapsed time.
// The estimate is non-decreasing in elapsed and never exceeds ProgressCeiling;
// only real resolution reports 100.
type ProgressEstimator struct {
	TimeConstant time.Duration
}

// Estimate returns the percentage for the given elapsed time.
func (p ProgressEstimator) Estimate(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	tau := p.TimeConstant
	if tau <= 0 {
		tau = DefaultProgressTimeConstant
	}
	v := ProgressCeiling * (1 - math.Exp(-elapsed.Seconds()/tau.Seconds()))
	return math.Min(v, ProgressCeiling)
}
