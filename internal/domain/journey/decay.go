package journey

import (
	"math"
	"time"

	"github.com/okian/salescore/internal/domain/model"
)

// Default decay constants.
const (
	defaultMaxDecay     = 0.30
	defaultDecayHorizon = 30 * 24 * time.Hour
)

// Decay describes how stale estimates lose value. The reduction grows
// linearly with time since the last record and saturates at Max after Horizon.
type Decay struct {
	Max     float64
	Horizon time.Duration
}

// DefaultDecay returns a 30% maximum decay reached after 30 days.
func DefaultDecay() Decay {
	return Decay{Max: defaultMaxDecay, Horizon: defaultDecayHorizon}
}

// Factor returns the multiplier applied after elapsed time.
func (d Decay) Factor(elapsed time.Duration) float64 {
	if elapsed <= 0 || d.Max <= 0 || d.Horizon <= 0 {
		return 1
	}
	frac := float64(elapsed) / float64(d.Horizon)
	return 1 - math.Min(d.Max, d.Max*frac)
}

// ProbabilityAt evaluates a journey's probability at time at. It has no side
// effects and never increases as at moves forward. A journey with no records
// reports DefaultPrior. Purchase records do not decay.
func ProbabilityAt(j Journey, at time.Time, d Decay) float64 {
	last, ok := j.Last()
	if !ok {
		return DefaultPrior
	}
	if last.Stage == model.StagePurchase {
		return last.Probability
	}
	return last.Probability * d.Factor(at.Sub(last.Timestamp))
}
