// Package catalog holds the read-only signal catalog that maps a selected
// customer signal to its category, strength, personality resonance and
// conversion impact.
//
// A Catalog is built once (Load or Default) and is immutable afterwards, so it
// can be shared by every concurrent scoring request without locking.
package catalog

import (
	"maps"
	"strings"

	"github.com/okian/salescore/internal/domain/model"
)

// Default catalog constants.
const (
	maxBaseStrength = 100
	// minReverseMatchLen guards the "catalog text contains input" direction so
	// that one- or two-letter inputs do not match the first entry containing them.
	minReverseMatchLen = 3
)

// SignalDefinition describes a single catalog signal.
type SignalDefinition struct {
	ID               string                      `json:"id"`
	Text             string                      `json:"text"`
	Category         model.Category              `json:"category"`
	BaseStrength     float64                     `json:"base_strength"`
	Resonance        map[model.Dimension]float64 `json:"resonance"`
	ConversionImpact float64                     `json:"conversion_impact"`
	IntentLevel      model.IntentLevel           `json:"intent_level"`
}

// clone returns a copy whose resonance map is not shared with the catalog.
func (d SignalDefinition) clone() SignalDefinition {
	d.Resonance = maps.Clone(d.Resonance)
	return d
}

// Catalog is an immutable lookup table of signal definitions.
type Catalog struct {
	version    string
	signals    []SignalDefinition
	byID       map[string]int
	byText     map[string]int
	lowerTexts []string
	synergies  map[model.CategoryPair]float64
	tones      map[string]model.Dimension
}

// Version returns the catalog document version.
func (c *Catalog) Version() string { return c.version }

// Len returns the number of signals in the catalog.
func (c *Catalog) Len() int { return len(c.signals) }

// Signals returns a copy of every definition in catalog order.
func (c *Catalog) Signals() []SignalDefinition {
	out := make([]SignalDefinition, len(c.signals))
	for i, d := range c.signals {
		out[i] = d.clone()
	}
	return out
}

// Lookup returns the definition with the given id.
func (c *Catalog) Lookup(id string) (SignalDefinition, bool) {
	i, ok := c.byID[id]
	if !ok {
		return SignalDefinition{}, false
	}
	return c.signals[i].clone(), true
}

// Resolve maps a selected signal text to a catalog definition. An exact match
// on id or text wins; otherwise the first definition (in catalog order) whose
// text contains the input, or is contained by it, case-insensitively.
func (c *Catalog) Resolve(text string) (SignalDefinition, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return SignalDefinition{}, false
	}
	if i, ok := c.byID[trimmed]; ok {
		return c.signals[i].clone(), true
	}
	if i, ok := c.byText[trimmed]; ok {
		return c.signals[i].clone(), true
	}

	needle := strings.ToLower(trimmed)
	for i, hay := range c.lowerTexts {
		if strings.Contains(needle, hay) {
			return c.signals[i].clone(), true
		}
		if len(needle) >= minReverseMatchLen && strings.Contains(hay, needle) {
			return c.signals[i].clone(), true
		}
	}
	return SignalDefinition{}, false
}

// Synergy returns the declared bonus for an unordered category pair.
func (c *Catalog) Synergy(a, b model.Category) (float64, bool) {
	if a == b {
		return 0, false
	}
	bonus, ok := c.synergies[model.NewCategoryPair(a, b)]
	return bonus, ok
}

// MaxSynergyTotal returns the sum of every declared synergy bonus, the upper
// bound of what a single request can accumulate.
func (c *Catalog) MaxSynergyTotal() float64 {
	total := 0.0
	for _, b := range c.synergies {
		total += b
	}
	return total
}

// ToneDimension maps an observed conversational tone to a personality dimension.
func (c *Catalog) ToneDimension(tone string) (model.Dimension, bool) {
	d, ok := c.tones[strings.ToLower(strings.TrimSpace(tone))]
	return d, ok
}

// HasTone reports whether the tone is declared in the catalog.
func (c *Catalog) HasTone(tone string) bool {
	_, ok := c.ToneDimension(tone)
	return ok
}
