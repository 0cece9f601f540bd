package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/salescore/internal/domain/catalog"
	"github.com/okian/salescore/internal/domain/journey"
	"github.com/okian/salescore/internal/domain/model"
	"github.com/okian/salescore/internal/domain/personality"
	"github.com/okian/salescore/internal/domain/scoring"
	"github.com/okian/salescore/internal/domain/signals"
	"github.com/okian/salescore/pkg/logger"
	"github.com/okian/salescore/pkg/metrics"
)

// AnalyzeRequest is one scoring request.
type AnalyzeRequest struct {
	// CustomerID is optional. When set, the result is appended to the
	// customer's journey as an initial_analysis record.
	CustomerID string `json:"customer_id,omitempty"`
	// RecordID makes the journey append idempotent across resubmissions.
	RecordID        string                  `json:"record_id,omitempty"`
	Signals         []string                `json:"signals"`
	Tone            string                  `json:"tone,omitempty"`
	Context         scoring.CustomerContext `json:"context"`
	MarketModifiers []scoring.Modifier      `json:"market_modifiers,omitempty"`
}

// Analysis is the full output of Analyze.
type Analysis struct {
	Score       scoring.Result        `json:"score"`
	Personality personality.Estimate  `json:"personality"`
	Signals     signals.Aggregated    `json:"signals"`
	Features    scoring.FeatureVector `json:"features"`
	Journey     *journey.Appended     `json:"journey,omitempty"`
}

// Analyze validates the request, classifies personality and aggregates
// signals concurrently, scores the result and optionally records it on the
// customer's journey.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (Analysis, error) {
	start := time.Now()

	c, err := s.components()
	if err != nil {
		return Analysis{}, err
	}
	if err := validateRequest(c, req); err != nil {
		var verr *scoring.ValidationError
		if errors.As(err, &verr) {
			metrics.RecordValidationError(verr.Field)
		}
		return Analysis{}, err
	}

	var (
		agg signals.Aggregated
		est personality.Estimate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		agg = c.aggregator.Aggregate(req.Signals)
		return gctx.Err()
	})
	g.Go(func() error {
		traits := c.classifier.TraitsFromSignals(resolveDistinct(c, req.Signals))
		traits = append(traits, personality.TraitsFromTone(c.catalog, req.Tone)...)
		est = c.classifier.Classify(traits)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return Analysis{}, fmt.Errorf("analyze: %w", err)
	}

	features := scoring.BuildFeatures(est, agg, req.Context, c.catalog.MaxSynergyTotal())
	mods := scoring.DeriveModifiers(req.Context, agg, c.modifiers, req.MarketModifiers)
	result := c.model.Score(scoring.Input{
		Features:     features,
		Coefficients: c.coefficients,
		Modifiers:    mods,
		Evidence: scoring.Evidence{
			ResolvedSignals:   len(agg.Resolved),
			UnresolvedSignals: len(agg.Unresolved),
			Completeness:      req.Context.CompletenessFraction(),
			Personality:       est.Confidence / 100,
		},
	})

	out := Analysis{Score: result, Personality: est, Signals: agg, Features: features}

	if id := strings.TrimSpace(req.CustomerID); id != "" {
		observation := result.CalibratedProbability / 100
		appended, err := s.appendRecord(ctx, c, id, journey.Record{
			ID:       req.RecordID,
			Stage:    model.StageInitialAnalysis,
			Evidence: journey.Evidence{Observation: &observation, Note: result.CoefficientsVersion},
		})
		if err != nil {
			return Analysis{}, err
		}
		out.Journey = &appended
	}

	metrics.RecordAnalysis(result.CalibratedProbability, result.Confidence,
		float64(time.Since(start).Microseconds())/1000, string(est.Dominant))
	metrics.RecordUnresolvedSignals(len(agg.Unresolved))
	for _, syn := range agg.Synergies {
		metrics.RecordSynergy(syn.Pair.Key())
	}

	s.logger.Debug(ctx, "analysis complete",
		logger.String("customer_id", req.CustomerID),
		logger.Float64("probability", result.CalibratedProbability),
		logger.Float64("confidence", result.Confidence),
		logger.String("dominant", string(est.Dominant)),
		logger.Int("resolved", len(agg.Resolved)),
		logger.Int("unresolved", len(agg.Unresolved)),
	)
	return out, nil
}

func validateRequest(c *components, req AnalyzeRequest) error {
	if err := req.Context.Validate(); err != nil {
		return err
	}
	if req.Tone != "" && !c.catalog.HasTone(req.Tone) {
		return scoring.NewValidationError("tone", "unknown value %q", req.Tone)
	}
	for _, m := range req.MarketModifiers {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// resolveDistinct resolves signal texts to definitions, keeping the first
// occurrence of each signal.
func resolveDistinct(c *components, texts []string) []catalog.SignalDefinition {
	seen := make(map[string]struct{}, len(texts))
	out := make([]catalog.SignalDefinition, 0, len(texts))
	for _, text := range texts {
		def, ok := c.catalog.Resolve(text)
		if !ok {
			continue
		}
		if _, dup := seen[def.ID]; dup {
			continue
		}
		seen[def.ID] = struct{}{}
		out = append(out, def)
	}
	return out
}
