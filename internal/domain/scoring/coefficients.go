package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Feature names understood by BuildFeatures.
const (
	FeatureSignalIntensity       = "signal_intensity"
	FeatureSignalImpact          = "signal_impact"
	FeatureSynergy               = "synergy"
	FeaturePersonalityClarity    = "personality_clarity"
	FeaturePersonalityConfidence = "personality_confidence"
	FeatureContextCompleteness   = "context_completeness"
	FeatureDemographicFit        = "demographic_fit"
	FeatureMarketConditions      = "market_conditions"
)

const (
	defaultCoefficientsVersion = "ev-2025.1"
	maxAbsWeight               = 1.0
)

// Coefficients is a versioned feature-to-weight table. Tuning the model means
// editing this table, not the code.
type Coefficients struct {
	Version string             `json:"version" koanf:"version"`
	Weights map[string]float64 `json:"weights" koanf:"weights"`
}

// DefaultCoefficients returns the built-in table. Weights sum to one, so a
// vector of neutral features scores exactly 50.
func DefaultCoefficients() Coefficients {
	return Coefficients{
		Version: defaultCoefficientsVersion,
		Weights: map[string]float64{
			FeatureSignalIntensity:       0.20,
			FeatureSignalImpact:          0.20,
			FeatureSynergy:               0.10,
			FeaturePersonalityClarity:    0.10,
			FeaturePersonalityConfidence: 0.05,
			FeatureContextCompleteness:   0.10,
			FeatureDemographicFit:        0.15,
			FeatureMarketConditions:      0.10,
		},
	}
}

// NewCoefficients validates and copies a coefficient table.
func NewCoefficients(version string, weights map[string]float64) (Coefficients, error) {
	if strings.TrimSpace(version) == "" {
		return Coefficients{}, fmt.Errorf("%w: missing version", ErrInitialization)
	}
	if len(weights) == 0 {
		return Coefficients{}, fmt.Errorf("%w: no weights declared", ErrInitialization)
	}

	out := Coefficients{Version: version, Weights: make(map[string]float64, len(weights))}
	for name, w := range weights {
		name = strings.TrimSpace(name)
		if name == "" {
			return Coefficients{}, fmt.Errorf("%w: empty feature name", ErrInitialization)
		}
		if math.IsNaN(w) || math.Abs(w) > maxAbsWeight {
			return Coefficients{}, fmt.Errorf("%w: weight %s=%v outside [-1,1]", ErrInitialization, name, w)
		}
		out.Weights[name] = w
	}
	return out, nil
}

// Features returns the declared feature names in lexical order.
func (c Coefficients) Features() []string {
	names := make([]string, 0, len(c.Weights))
	for name := range c.Weights {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadCoefficients reads a YAML coefficient table from path.
func LoadCoefficients(_ context.Context, path string) (Coefficients, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Coefficients{}, fmt.Errorf("%w: read %s: %v", ErrInitialization, path, err)
	}

	version := k.String("version")
	raw := k.Cut("weights").All()
	weights := make(map[string]float64, len(raw))
	for name, v := range raw {
		f, ok := toFloat(v)
		if !ok {
			return Coefficients{}, fmt.Errorf("%w: weight %s is not a number", ErrInitialization, name)
		}
		weights[name] = f
	}
	return NewCoefficients(version, weights)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
