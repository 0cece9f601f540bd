package scoring

import (
	"math"
	"strings"
)

// Income bands accepted in CustomerContext.IncomeBand.
const (
	IncomeLow         = "low"
	IncomeMiddle      = "middle"
	IncomeUpperMiddle = "upper_middle"
	IncomeHigh        = "high"
)

// Region types accepted in CustomerContext.RegionType.
const (
	RegionUrban    = "urban"
	RegionSuburban = "suburban"
	RegionRural    = "rural"
)

const maxContextScore = 100.0

// CustomerContext carries demographic and market inputs supplied by external
// collaborators. Every field is optional; nil scores are treated as unknown.
type CustomerContext struct {
	IncomeBand     string  `json:"income_band,omitempty"`
	RegionType     string  `json:"region_type,omitempty"`
	MonthlyIncome  float64 `json:"monthly_income,omitempty"`
	MonthlyPayment float64 `json:"monthly_payment,omitempty"`

	// Scores in [0,100], computed outside the core.
	Completeness     *float64 `json:"completeness,omitempty"`
	DemographicFit   *float64 `json:"demographic_fit,omitempty"`
	MarketConditions *float64 `json:"market_conditions,omitempty"`
	ChargingDensity  *float64 `json:"charging_density,omitempty"`

	// CompetitorPriceGap is how much cheaper, in percent, the competing offer
	// is. Negative means ours is cheaper.
	CompetitorPriceGap float64 `json:"competitor_price_gap,omitempty"`
}

// Validate checks enumerations and ranges. It returns a *ValidationError
// wrapping ErrValidation for the first invalid field.
func (c CustomerContext) Validate() error {
	switch strings.ToLower(c.IncomeBand) {
	case "", IncomeLow, IncomeMiddle, IncomeUpperMiddle, IncomeHigh:
	default:
		return NewValidationError("income_band", "unknown value %q", c.IncomeBand)
	}
	switch strings.ToLower(c.RegionType) {
	case "", RegionUrban, RegionSuburban, RegionRural:
	default:
		return NewValidationError("region_type", "unknown value %q", c.RegionType)
	}

	if c.MonthlyIncome < 0 || math.IsNaN(c.MonthlyIncome) {
		return NewValidationError("monthly_income", "must be non-negative")
	}
	if c.MonthlyPayment < 0 || math.IsNaN(c.MonthlyPayment) {
		return NewValidationError("monthly_payment", "must be non-negative")
	}
	if math.IsNaN(c.CompetitorPriceGap) || math.Abs(c.CompetitorPriceGap) > maxContextScore {
		return NewValidationError("competitor_price_gap", "must be within [-100,100]")
	}

	scores := []struct {
		name  string
		value *float64
	}{
		{"completeness", c.Completeness},
		{"demographic_fit", c.DemographicFit},
		{"market_conditions", c.MarketConditions},
		{"charging_density", c.ChargingDensity},
	}
	for _, s := range scores {
		if s.value == nil {
			continue
		}
		if math.IsNaN(*s.value) || *s.value < 0 || *s.value > maxContextScore {
			return NewValidationError(s.name, "%v outside [0,100]", *s.value)
		}
	}
	return nil
}

// PaymentRatio returns monthly payment over monthly income, or false when
// either is unknown.
func (c CustomerContext) PaymentRatio() (float64, bool) {
	if c.MonthlyIncome <= 0 || c.MonthlyPayment <= 0 {
		return 0, false
	}
	return c.MonthlyPayment / c.MonthlyIncome, true
}

// CompletenessFraction returns the completeness score in [0,1]. When the
// collaborator did not supply one it is derived from the populated fields.
func (c CustomerContext) CompletenessFraction() float64 {
	if c.Completeness != nil {
		return *c.Completeness / maxContextScore
	}
	fields := []bool{
		c.IncomeBand != "",
		c.RegionType != "",
		c.MonthlyIncome > 0,
		c.MonthlyPayment > 0,
		c.DemographicFit != nil,
		c.MarketConditions != nil,
	}
	set := 0
	for _, ok := range fields {
		if ok {
			set++
		}
	}
	return float64(set) / float64(len(fields))
}
