package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/salescore/internal/domain/model"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

// Synergy declares the bonus applied when two categories co-occur.
type Synergy struct {
	Pair  model.CategoryPair
	Bonus float64
}

// document mirrors the YAML catalog layout.
type document struct {
	Version   string            `koanf:"version"`
	Signals   []signalEntry     `koanf:"signals"`
	Synergies []synergyEntry    `koanf:"synergies"`
	Tones     map[string]string `koanf:"tones"`
}

type signalEntry struct {
	ID               string             `koanf:"id"`
	Text             string             `koanf:"text"`
	Category         string             `koanf:"category"`
	BaseStrength     float64            `koanf:"base_strength"`
	Resonance        map[string]float64 `koanf:"resonance"`
	ConversionImpact float64            `koanf:"conversion_impact"`
	IntentLevel      string             `koanf:"intent_level"`
}

type synergyEntry struct {
	Categories []string `koanf:"categories"`
	Bonus      float64  `koanf:"bonus"`
}

// rawProvider feeds an in-memory document to koanf.
type rawProvider []byte

func (r rawProvider) ReadBytes() ([]byte, error) { return r, nil }

func (r rawProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("raw provider does not support Read")
}

// Load reads and validates a YAML catalog from path.
func Load(_ context.Context, path string) (*Catalog, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrInitialization, path, err)
	}
	return fromKoanf(k)
}

// Parse builds a catalog from YAML bytes.
func Parse(_ context.Context, data []byte) (*Catalog, error) {
	k := koanf.New(".")
	if err := k.Load(rawProvider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrInitialization, err)
	}
	return fromKoanf(k)
}

// Default returns the catalog embedded in the binary.
func Default(ctx context.Context) (*Catalog, error) {
	return Parse(ctx, defaultCatalogYAML)
}

func fromKoanf(k *koanf.Koanf) (*Catalog, error) {
	var doc document
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInitialization, err)
	}

	defs := make([]SignalDefinition, 0, len(doc.Signals))
	for _, s := range doc.Signals {
		res := make(map[model.Dimension]float64, len(s.Resonance))
		for name, w := range s.Resonance {
			d, err := model.ParseDimension(name)
			if err != nil {
				return nil, fmt.Errorf("%w: signal %q: %v", ErrInitialization, s.ID, err)
			}
			res[d] = w
		}
		defs = append(defs, SignalDefinition{
			ID:               strings.TrimSpace(s.ID),
			Text:             strings.TrimSpace(s.Text),
			Category:         normalizeCategory(s.Category),
			BaseStrength:     s.BaseStrength,
			Resonance:        res,
			ConversionImpact: s.ConversionImpact,
			IntentLevel:      model.IntentLevel(strings.ToLower(strings.TrimSpace(s.IntentLevel))),
		})
	}

	synergies := make([]Synergy, 0, len(doc.Synergies))
	for _, s := range doc.Synergies {
		if len(s.Categories) != 2 {
			return nil, fmt.Errorf("%w: synergy needs exactly two categories, got %v", ErrInitialization, s.Categories)
		}
		synergies = append(synergies, Synergy{
			Pair:  model.NewCategoryPair(normalizeCategory(s.Categories[0]), normalizeCategory(s.Categories[1])),
			Bonus: s.Bonus,
		})
	}

	tones := make(map[string]model.Dimension, len(doc.Tones))
	for tone, name := range doc.Tones {
		d, err := model.ParseDimension(name)
		if err != nil {
			return nil, fmt.Errorf("%w: tone %q: %v", ErrInitialization, tone, err)
		}
		tones[tone] = d
	}

	return New(doc.Version, defs, synergies, tones)
}

// New validates the definitions and builds an immutable catalog. The inputs
// are copied; later changes by the caller do not affect the catalog.
func New(version string, defs []SignalDefinition, synergies []Synergy, tones map[string]model.Dimension) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: catalog has no signals", ErrInitialization)
	}

	c := &Catalog{
		version:    version,
		signals:    make([]SignalDefinition, 0, len(defs)),
		byID:       make(map[string]int, len(defs)),
		byText:     make(map[string]int, len(defs)),
		lowerTexts: make([]string, 0, len(defs)),
		synergies:  make(map[model.CategoryPair]float64, len(synergies)),
		tones:      make(map[string]model.Dimension, len(tones)),
	}

	for _, d := range defs {
		if err := validateDefinition(d); err != nil {
			return nil, err
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate signal id %q", ErrInitialization, d.ID)
		}
		if d.Text == "" {
			d.Text = d.ID
		}
		idx := len(c.signals)
		c.signals = append(c.signals, d.clone())
		c.byID[d.ID] = idx
		if _, seen := c.byText[d.Text]; !seen {
			c.byText[d.Text] = idx
		}
		c.lowerTexts = append(c.lowerTexts, strings.ToLower(d.Text))
	}

	for _, s := range synergies {
		if s.Pair.First == "" || s.Pair.Second == "" || s.Pair.First == s.Pair.Second {
			return nil, fmt.Errorf("%w: synergy %q must name two distinct categories", ErrInitialization, s.Pair.Key())
		}
		if s.Bonus < 0 {
			return nil, fmt.Errorf("%w: synergy %q has negative bonus", ErrInitialization, s.Pair.Key())
		}
		pair := model.NewCategoryPair(s.Pair.First, s.Pair.Second)
		if _, dup := c.synergies[pair]; dup {
			return nil, fmt.Errorf("%w: duplicate synergy %q", ErrInitialization, pair.Key())
		}
		c.synergies[pair] = s.Bonus
	}

	for tone, d := range tones {
		if _, err := model.ParseDimension(string(d)); err != nil {
			return nil, fmt.Errorf("%w: tone %q: %v", ErrInitialization, tone, err)
		}
		c.tones[strings.ToLower(strings.TrimSpace(tone))] = d
	}

	return c, nil
}

func validateDefinition(d SignalDefinition) error {
	switch {
	case d.ID == "":
		return fmt.Errorf("%w: signal with empty id", ErrInitialization)
	case d.Category == "":
		return fmt.Errorf("%w: signal %q has no category", ErrInitialization, d.ID)
	case d.BaseStrength < 0 || d.BaseStrength > maxBaseStrength:
		return fmt.Errorf("%w: signal %q base strength %.1f outside [0,%d]", ErrInitialization, d.ID, d.BaseStrength, maxBaseStrength)
	}
	if d.IntentLevel != "" && d.IntentLevel.Rank() < 0 {
		return fmt.Errorf("%w: signal %q has unknown intent level %q", ErrInitialization, d.ID, d.IntentLevel)
	}
	for dim, w := range d.Resonance {
		if _, err := model.ParseDimension(string(dim)); err != nil {
			return fmt.Errorf("%w: signal %q: %v", ErrInitialization, d.ID, err)
		}
		if w < 0 || w > 1 {
			return fmt.Errorf("%w: signal %q resonance %s=%.2f outside [0,1]", ErrInitialization, d.ID, dim, w)
		}
	}
	return nil
}

func normalizeCategory(name string) model.Category {
	return model.Category(strings.ToLower(strings.TrimSpace(name)))
}
