package scoring

import (
	"math"
	"strings"

	"github.com/okian/salescore/internal/domain/model"
	"github.com/okian/salescore/internal/domain/signals"
)

// ModifierKind says how a modifier combines with the running score.
type ModifierKind string

// Modifier kinds. Regression and clamp are only produced by the model itself.
const (
	KindAdditive       ModifierKind = "additive"
	KindMultiplicative ModifierKind = "multiplicative"
	KindRegression     ModifierKind = "regression"
	KindClamp          ModifierKind = "clamp"
)

// Modifier names produced by DeriveModifiers and Model.Score.
const (
	ModifierAffordability         = "affordability"
	ModifierInfrastructureAnxiety = "infrastructure_anxiety"
	ModifierCompetitorPriceGap    = "competitor_price_gap"
	ModifierConfidenceRegression  = "confidence_regression"
	ModifierClamp                 = "probability_clamp"
)

// Modifier is a named adjustment. Additive values are in probability points;
// multiplicative values are factors applied to the running score.
type Modifier struct {
	Name  string       `json:"name"`
	Kind  ModifierKind `json:"kind"`
	Value float64      `json:"value"`
}

// Validate checks a caller-supplied modifier.
func (m Modifier) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return NewValidationError("modifier.name", "must not be empty")
	}
	if math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
		return NewValidationError("modifier."+m.Name, "value must be finite")
	}
	switch m.Kind {
	case KindAdditive:
		if math.Abs(m.Value) > maxContextScore {
			return NewValidationError("modifier."+m.Name, "additive value %v outside [-100,100]", m.Value)
		}
	case KindMultiplicative:
		if m.Value <= 0 {
			return NewValidationError("modifier."+m.Name, "multiplicative factor must be positive")
		}
	default:
		return NewValidationError("modifier."+m.Name, "unknown kind %q", m.Kind)
	}
	return nil
}

// ModifierConfig holds the thresholds used by DeriveModifiers.
type ModifierConfig struct {
	// AffordabilityThreshold is the payment-to-income ratio above which the
	// flat AffordabilityPenalty applies.
	AffordabilityThreshold float64
	AffordabilityPenalty   float64
	// ChargingDensityThreshold is the regional density score below which
	// infrastructure concerns cost InfrastructurePenalty points.
	ChargingDensityThreshold float64
	InfrastructurePenalty    float64
	// PriceGapRate converts each percent of competitor price advantage to
	// points, bounded by MaxPriceGapPenalty.
	PriceGapRate       float64
	MaxPriceGapPenalty float64
}

// DefaultModifierConfig returns the default thresholds.
func DefaultModifierConfig() ModifierConfig {
	return ModifierConfig{
		AffordabilityThreshold:   0.15,
		AffordabilityPenalty:     12,
		ChargingDensityThreshold: 40,
		InfrastructurePenalty:    5,
		PriceGapRate:             0.5,
		MaxPriceGapPenalty:       8,
	}
}

// DeriveModifiers builds the context penalties in a fixed order. Market
// modifiers from collaborators are appended after them, in their given order.
func DeriveModifiers(cc CustomerContext, agg signals.Aggregated, cfg ModifierConfig, market []Modifier) []Modifier {
	var mods []Modifier

	if ratio, ok := cc.PaymentRatio(); ok && ratio > cfg.AffordabilityThreshold {
		mods = append(mods, Modifier{
			Name:  ModifierAffordability,
			Kind:  KindAdditive,
			Value: -cfg.AffordabilityPenalty,
		})
	}

	if agg.HasCategory(model.CategoryInfrastructure) && cc.ChargingDensity != nil &&
		*cc.ChargingDensity < cfg.ChargingDensityThreshold {
		mods = append(mods, Modifier{
			Name:  ModifierInfrastructureAnxiety,
			Kind:  KindAdditive,
			Value: -cfg.InfrastructurePenalty,
		})
	}

	if cc.CompetitorPriceGap > 0 {
		mods = append(mods, Modifier{
			Name:  ModifierCompetitorPriceGap,
			Kind:  KindAdditive,
			Value: -math.Min(cfg.MaxPriceGapPenalty, cc.CompetitorPriceGap*cfg.PriceGapRate),
		})
	}

	return append(mods, market...)
}
