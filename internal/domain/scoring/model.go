// Package scoring computes calibrated purchase probabilities from feature
// vectors, coefficient tables and named modifiers.
package scoring

import (
	"math"
	"sort"
)

// Default model configuration constants.
const (
	defaultClampMin  = 15.0
	defaultClampMax  = 92.0
	defaultNeutral   = 50.0
	defaultMinShrink = 0.5

	probabilityScale = 100.0
)

// Confidence blend weights and the resolved-signal saturation scale.
const (
	signalEvidenceShare = 0.45
	completenessShare   = 0.35
	personalityShare    = 0.20
	signalScale         = 3.0
)

// Evidence summarizes how much the model knows about a request.
type Evidence struct {
	ResolvedSignals   int `json:"resolved_signals"`
	UnresolvedSignals int `json:"unresolved_signals"`
	// Completeness and Personality are fractions in [0,1].
	Completeness float64 `json:"completeness"`
	Personality  float64 `json:"personality"`
}

// Input is everything Score needs for one request.
type Input struct {
	Features     FeatureVector
	Coefficients Coefficients
	Modifiers    []Modifier
	Evidence     Evidence
}

// Contribution explains one feature's share of the raw score.
type Contribution struct {
	Feature      string  `json:"feature"`
	Value        float64 `json:"value"`
	Coefficient  float64 `json:"coefficient"`
	Contribution float64 `json:"contribution"`
}

// AppliedModifier records a modifier together with the change it made.
type AppliedModifier struct {
	Name  string       `json:"name"`
	Kind  ModifierKind `json:"kind"`
	Value float64      `json:"value"`
	Delta float64      `json:"delta"`
}

// Result is the output of one scoring invocation.
type Result struct {
	RawScore              float64           `json:"raw_score"`
	CalibratedProbability float64           `json:"calibrated_probability"`
	Confidence            float64           `json:"confidence"`
	Contributions         []Contribution    `json:"feature_contributions"`
	AppliedModifiers      []AppliedModifier `json:"applied_modifiers"`
	CoefficientsVersion   string            `json:"coefficients_version"`
}

// HasModifier reports whether a modifier with the given name was applied.
func (r Result) HasModifier(name string) bool {
	for _, m := range r.AppliedModifiers {
		if m.Name == name {
			return true
		}
	}
	return false
}

// Model is a linear calibration over a coefficient table. It keeps no state
// between calls and is safe for concurrent use.
type Model struct {
	clampMin  float64
	clampMax  float64
	neutral   float64
	minShrink float64
}

// NewModel creates a model with configuration options.
func NewModel(opts ...Option) *Model {
	m := &Model{
		clampMin:  defaultClampMin,
		clampMax:  defaultClampMax,
		neutral:   defaultNeutral,
		minShrink: defaultMinShrink,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// ClampBounds returns the configured probability band.
func (m *Model) ClampBounds() (float64, float64) { return m.clampMin, m.clampMax }

// Score runs the calibration pipeline: weighted sum, ordered modifiers,
// regression toward neutral by confidence, then the clamp. Feature values are
// read through FeatureVector.Get and invalid modifiers are skipped, so the
// result always lies inside the clamp band.
func (m *Model) Score(in Input) Result {
	res := Result{
		CoefficientsVersion: in.Coefficients.Version,
		Confidence:          Confidence(in.Evidence),
	}

	for _, name := range in.Coefficients.Features() {
		value := in.Features.Get(name)
		coef := in.Coefficients.Weights[name]
		c := value * coef * probabilityScale
		res.RawScore += c
		res.Contributions = append(res.Contributions, Contribution{
			Feature:      name,
			Value:        value,
			Coefficient:  coef,
			Contribution: c,
		})
	}
	sort.SliceStable(res.Contributions, func(i, j int) bool {
		a, b := math.Abs(res.Contributions[i].Contribution), math.Abs(res.Contributions[j].Contribution)
		if a != b {
			return a > b
		}
		return res.Contributions[i].Feature < res.Contributions[j].Feature
	})

	p := res.RawScore
	for _, mod := range in.Modifiers {
		if mod.Validate() != nil {
			continue
		}
		before := p
		switch mod.Kind {
		case KindAdditive:
			p += mod.Value
		case KindMultiplicative:
			p *= mod.Value
		}
		res.AppliedModifiers = append(res.AppliedModifiers, AppliedModifier{
			Name:  mod.Name,
			Kind:  mod.Kind,
			Value: mod.Value,
			Delta: p - before,
		})
	}

	shrink := m.minShrink + (1-m.minShrink)*res.Confidence/probabilityScale
	regressed := m.neutral + (p-m.neutral)*shrink
	if regressed != p {
		res.AppliedModifiers = append(res.AppliedModifiers, AppliedModifier{
			Name:  ModifierConfidenceRegression,
			Kind:  KindRegression,
			Value: shrink,
			Delta: regressed - p,
		})
	}
	p = regressed
	if math.IsNaN(p) {
		p = m.neutral
	}

	clamped := math.Max(m.clampMin, math.Min(m.clampMax, p))
	if clamped != p {
		res.AppliedModifiers = append(res.AppliedModifiers, AppliedModifier{
			Name:  ModifierClamp,
			Kind:  KindClamp,
			Value: clamped,
			Delta: clamped - p,
		})
	}
	res.CalibratedProbability = clamped

	return res
}

// Confidence estimates how much to trust a score, in [0,100]. It grows with
// resolved signals, context completeness and personality agreement, and is
// not folded into the probability clamp.
func Confidence(e Evidence) float64 {
	signal := 0.0
	if r := float64(e.ResolvedSignals); r > 0 {
		u := math.Max(0, float64(e.UnresolvedSignals))
		signal = (1 - math.Exp(-r/signalScale)) * r / (r + u)
	}
	c := signalEvidenceShare*signal +
		completenessShare*clamp01(e.Completeness) +
		personalityShare*clamp01(e.Personality)
	return math.Max(0, math.Min(probabilityScale, c*probabilityScale))
}
