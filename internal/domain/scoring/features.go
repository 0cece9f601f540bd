package scoring

import (
	"math"
	"sort"

	"github.com/okian/salescore/internal/domain/personality"
	"github.com/okian/salescore/internal/domain/signals"
)

// NeutralFeature is the value assumed for a feature missing from a vector.
const NeutralFeature = 0.5

// impactSpan is the net conversion impact, in points, that maps to the ends
// of the signal_impact range.
const impactSpan = 30.0

// FeatureVector maps feature names to values in [0,1].
type FeatureVector map[string]float64

// Get returns the value for name bounded to [0,1], or NeutralFeature when it
// is absent or NaN.
func (v FeatureVector) Get(name string) float64 {
	f, ok := v[name]
	if !ok || math.IsNaN(f) {
		return NeutralFeature
	}
	return clamp01(f)
}

// Names returns the populated feature names in lexical order.
func (v FeatureVector) Names() []string {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildFeatures normalizes classifier, aggregator and context output into a
// feature vector. Signal and personality features are always observed, so an
// empty request scores zero intensity and zero synergy. Only optional context
// scores are left unset for the model to read as NeutralFeature.
// synergyCeiling is the largest synergy total the catalog can produce.
func BuildFeatures(est personality.Estimate, agg signals.Aggregated, cc CustomerContext, synergyCeiling float64) FeatureVector {
	fv := FeatureVector{
		FeatureSignalIntensity:       0,
		FeatureSignalImpact:          clamp01(NeutralFeature + agg.NetImpact()/(2*impactSpan)),
		FeatureSynergy:               0,
		FeaturePersonalityClarity:    clamp01(est.Gap()),
		FeaturePersonalityConfidence: clamp01(est.Confidence / 100),
	}
	if agg.IntensityCap > 0 {
		fv[FeatureSignalIntensity] = clamp01(agg.Intensity / agg.IntensityCap)
	}
	if synergyCeiling > 0 {
		fv[FeatureSynergy] = clamp01(agg.SynergyBonus() / synergyCeiling)
	}

	fv[FeatureContextCompleteness] = clamp01(cc.CompletenessFraction())
	if cc.DemographicFit != nil {
		fv[FeatureDemographicFit] = clamp01(*cc.DemographicFit / maxContextScore)
	}
	if cc.MarketConditions != nil {
		fv[FeatureMarketConditions] = clamp01(*cc.MarketConditions / maxContextScore)
	}

	return fv
}

// clamp01 bounds v to [0,1]. NaN maps to zero.
func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
