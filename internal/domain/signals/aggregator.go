// Package signals resolves selected customer signals against the catalog,
// sums their intensity and detects category-pair synergies.
package signals

import (
	"math"
	"sort"

	"github.com/okian/salescore/internal/domain/catalog"
	"github.com/okian/salescore/internal/domain/model"
)

// Default aggregator configuration constants.
const (
	defaultIntensityCap = 250.0
)

// Resolved pairs a catalog definition with the input text that matched it.
type Resolved struct {
	Signal      catalog.SignalDefinition `json:"signal"`
	MatchedText string                   `json:"matched_text"`
}

// Synergy is a category-pair bonus detected in one request.
type Synergy struct {
	Pair      model.CategoryPair `json:"pair"`
	Bonus     float64            `json:"bonus"`
	SignalIDs [2]string          `json:"signal_ids"`
}

// Aggregated is the aggregator output for one request.
type Aggregated struct {
	Resolved          []Resolved       `json:"resolved"`
	Intensity         float64          `json:"intensity"`
	IntensityCap      float64          `json:"intensity_cap"`
	Synergies         []Synergy        `json:"synergies"`
	CategoriesPresent []model.Category `json:"categories_present"`
	// Unresolved lists inputs with no catalog match. They are excluded from
	// scoring and only feed the confidence estimate.
	Unresolved []string `json:"unresolved,omitempty"`
}

// Definitions returns the resolved catalog definitions in input order.
func (a Aggregated) Definitions() []catalog.SignalDefinition {
	out := make([]catalog.SignalDefinition, len(a.Resolved))
	for i, r := range a.Resolved {
		out[i] = r.Signal
	}
	return out
}

// NetImpact sums the conversion impact of every resolved signal.
func (a Aggregated) NetImpact() float64 {
	total := 0.0
	for _, r := range a.Resolved {
		total += r.Signal.ConversionImpact
	}
	return total
}

// SynergyBonus sums the bonuses of every detected synergy.
func (a Aggregated) SynergyBonus() float64 {
	total := 0.0
	for _, s := range a.Synergies {
		total += s.Bonus
	}
	return total
}

// HasCategory reports whether any resolved signal belongs to c.
func (a Aggregated) HasCategory(c model.Category) bool {
	for _, present := range a.CategoriesPresent {
		if present == c {
			return true
		}
	}
	return false
}

// SynergyFor returns the synergy recorded for the pair, if any.
func (a Aggregated) SynergyFor(x, y model.Category) (Synergy, bool) {
	pair := model.NewCategoryPair(x, y)
	for _, s := range a.Synergies {
		if s.Pair == pair {
			return s, true
		}
	}
	return Synergy{}, false
}

// Aggregator resolves signal texts against an immutable catalog. It is safe
// for concurrent use.
type Aggregator struct {
	catalog      *catalog.Catalog
	intensityCap float64
}

// NewAggregator creates an aggregator over the given catalog.
func NewAggregator(c *catalog.Catalog, opts ...Option) *Aggregator {
	a := &Aggregator{
		catalog:      c,
		intensityCap: defaultIntensityCap,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// IntensityCap returns the configured intensity cap.
func (a *Aggregator) IntensityCap() float64 { return a.intensityCap }

// Aggregate resolves texts, sums intensity and detects synergies. A signal
// selected more than once is counted once, at its first position.
func (a *Aggregator) Aggregate(texts []string) Aggregated {
	out := Aggregated{IntensityCap: a.intensityCap}
	seen := make(map[string]struct{}, len(texts))
	categories := make(map[model.Category]struct{})

	sum := 0.0
	for _, text := range texts {
		def, ok := a.catalog.Resolve(text)
		if !ok {
			out.Unresolved = append(out.Unresolved, text)
			continue
		}
		if _, dup := seen[def.ID]; dup {
			continue
		}
		seen[def.ID] = struct{}{}
		categories[def.Category] = struct{}{}
		out.Resolved = append(out.Resolved, Resolved{Signal: def, MatchedText: text})
		sum += def.BaseStrength
	}
	out.Intensity = math.Min(a.intensityCap, sum)
	out.Synergies = a.detectSynergies(out.Resolved)

	out.CategoriesPresent = make([]model.Category, 0, len(categories))
	for c := range categories {
		out.CategoriesPresent = append(out.CategoriesPresent, c)
	}
	sort.Slice(out.CategoriesPresent, func(i, j int) bool {
		return out.CategoriesPresent[i] < out.CategoriesPresent[j]
	})

	return out
}

// detectSynergies walks unordered pairs in input order and keeps the first
// pair seen for each distinct category combination.
func (a *Aggregator) detectSynergies(resolved []Resolved) []Synergy {
	var found []Synergy
	recorded := make(map[model.CategoryPair]struct{})
	for i := 0; i < len(resolved); i++ {
		for j := i + 1; j < len(resolved); j++ {
			x, y := resolved[i].Signal, resolved[j].Signal
			if x.Category == y.Category {
				continue
			}
			pair := model.NewCategoryPair(x.Category, y.Category)
			if _, done := recorded[pair]; done {
				continue
			}
			bonus, ok := a.catalog.Synergy(x.Category, y.Category)
			if !ok {
				continue
			}
			recorded[pair] = struct{}{}
			found = append(found, Synergy{
				Pair:      pair,
				Bonus:     bonus,
				SignalIDs: [2]string{x.ID, y.ID},
			})
		}
	}
	return found
}
