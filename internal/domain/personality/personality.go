// Package personality turns trait tokens derived from customer signals into a
// fuzzy membership over the four personality dimensions.
package personality

import (
	"math"

	"github.com/okian/salescore/internal/domain/catalog"
	"github.com/okian/salescore/internal/domain/model"
)

// Default classifier configuration constants.
const (
	defaultPerTokenWeight     = 0.2
	defaultPurityThreshold    = 0.35
	defaultClosenessThreshold = 0.15
	defaultMinPureEvidence    = 3
	defaultTokenGranularity   = 30.0

	// resonanceThreshold is the minimum resonance for a signal to emit tokens
	// for a dimension.
	resonanceThreshold = 0.5

	confidenceFloor   = 10.0
	evidenceScale     = 4.0
	evidenceShare     = 0.6
	separationShare   = 0.4
	maxConfidence     = 100.0
	fallbackDimension = model.Analytical
)

// Estimate is the classifier output. It is a value: a later classification
// produces a new Estimate rather than editing an old one.
type Estimate struct {
	Membership map[model.Dimension]float64 `json:"membership"`
	Dominant   model.Dimension             `json:"dominant"`
	Secondary  model.Dimension             `json:"secondary,omitempty"`
	Confidence float64                     `json:"confidence"`
	IsPureType bool                        `json:"is_pure_type"`
	IsHybrid   bool                        `json:"is_hybrid"`
	TokenCount int                         `json:"token_count"`
}

// HasSecondary reports whether a secondary dimension was identified.
func (e Estimate) HasSecondary() bool { return e.Secondary != "" }

// Gap returns the membership distance between the dominant dimension and the
// strongest other dimension.
func (e Estimate) Gap() float64 {
	runnerUp := 0.0
	for _, d := range model.Dimensions() {
		if d == e.Dominant {
			continue
		}
		runnerUp = math.Max(runnerUp, e.Membership[d])
	}
	return e.Membership[e.Dominant] - runnerUp
}

// Classifier computes fuzzy personality estimates. It holds only immutable
// configuration and is safe for concurrent use.
type Classifier struct {
	perTokenWeight     float64
	purityThreshold    float64
	closenessThreshold float64
	minPureEvidence    int
	tokenGranularity   float64
}

// NewClassifier creates a classifier with configuration options.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		perTokenWeight:     defaultPerTokenWeight,
		purityThreshold:    defaultPurityThreshold,
		closenessThreshold: defaultClosenessThreshold,
		minPureEvidence:    defaultMinPureEvidence,
		tokenGranularity:   defaultTokenGranularity,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Classify converts a multiset of trait tokens into an Estimate. Membership is
// a bounded sum: repeated tokens saturate at 1 instead of growing without bound.
// With no tokens the fallback dimension is returned at the confidence floor.
func (c *Classifier) Classify(traits []model.Dimension) Estimate {
	counts := make(map[model.Dimension]int, len(model.Dimensions()))
	total := 0
	for _, t := range traits {
		if t.Valid() {
			counts[t]++
			total++
		}
	}

	membership := make(map[model.Dimension]float64, len(model.Dimensions()))
	for _, d := range model.Dimensions() {
		membership[d] = math.Min(1, float64(counts[d])*c.perTokenWeight)
	}

	if total == 0 {
		return Estimate{
			Membership: membership,
			Dominant:   fallbackDimension,
			Confidence: confidenceFloor,
		}
	}

	dominant, runnerUp := rank(membership)
	gap := membership[dominant] - membership[runnerUp]

	est := Estimate{
		Membership: membership,
		Dominant:   dominant,
		TokenCount: total,
	}
	if membership[runnerUp] > 0 && gap < c.closenessThreshold {
		est.Secondary = runnerUp
		est.IsHybrid = true
	}
	if gap > c.purityThreshold && total >= c.minPureEvidence {
		est.IsPureType = true
	}

	evidence := 1 - math.Exp(-float64(total)/evidenceScale)
	separation := math.Min(1, gap/c.purityThreshold)
	est.Confidence = math.Min(maxConfidence,
		confidenceFloor+(maxConfidence-confidenceFloor)*evidence*(evidenceShare+separationShare*separation))

	return est
}

// rank returns the highest and second-highest dimensions. Exact ties resolve by
// the fixed order of model.Dimensions.
func rank(membership map[model.Dimension]float64) (model.Dimension, model.Dimension) {
	dims := model.Dimensions()
	first, second := dims[0], dims[1]
	if membership[second] > membership[first] {
		first, second = second, first
	}
	for _, d := range dims[2:] {
		switch {
		case membership[d] > membership[first]:
			first, second = d, first
		case membership[d] > membership[second]:
			second = d
		}
	}
	return first, second
}

// TraitsFromSignals emits trait tokens for resolved signals: each dimension the
// signal resonates with (weight >= 0.5) receives one token per granularity
// step of base strength, at least one.
func (c *Classifier) TraitsFromSignals(defs []catalog.SignalDefinition) []model.Dimension {
	var tokens []model.Dimension
	for _, def := range defs {
		n := int(def.BaseStrength / c.tokenGranularity)
		if n < 1 {
			n = 1
		}
		for _, d := range model.Dimensions() {
			if def.Resonance[d] < resonanceThreshold {
				continue
			}
			for i := 0; i < n; i++ {
				tokens = append(tokens, d)
			}
		}
	}
	return tokens
}

// TraitsFromTone maps an observed tone to a single token, or none when the
// catalog does not declare the tone.
func TraitsFromTone(c *catalog.Catalog, tone string) []model.Dimension {
	if tone == "" || c == nil {
		return nil
	}
	if d, ok := c.ToneDimension(tone); ok {
		return []model.Dimension{d}
	}
	return nil
}
