package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/okian/salescore/internal/domain/journey"
	"github.com/okian/salescore/pkg/logger"
	"github.com/okian/salescore/pkg/metrics"
)

// JourneyStatus is a journey together with its probability at a point in time.
type JourneyStatus struct {
	Journey journey.Journey `json:"journey"`
	// CurrentProbability is the decayed probability at EvaluatedAt.
	CurrentProbability float64   `json:"current_probability"`
	EvaluatedAt        time.Time `json:"evaluated_at"`
}

// AppendStage records a stage observation on the customer's journey.
func (s *Service) AppendStage(ctx context.Context, customerID string, rec journey.Record) (journey.Appended, error) {
	c, err := s.components()
	if err != nil {
		return journey.Appended{}, err
	}
	return s.appendRecord(ctx, c, customerID, rec)
}

func (s *Service) appendRecord(ctx context.Context, c *components, customerID string, rec journey.Record) (journey.Appended, error) {
	appended, err := c.tracker.Append(ctx, customerID, rec)
	if err != nil {
		if reason := rejectionReason(err); reason != "" {
			metrics.RecordJourneyRejection(reason)
			s.logger.Debug(ctx, "journey record rejected",
				logger.String("customer_id", customerID),
				logger.String("stage", string(rec.Stage)),
				logger.String("reason", reason))
		} else {
			metrics.RecordErrorByComponent("journey", "append")
			s.logger.Error(ctx, "journey append failed",
				logger.String("customer_id", customerID),
				logger.Error(err))
		}
		return journey.Appended{}, err
	}

	if appended.Duplicate {
		metrics.RecordJourneyDuplicate()
	} else {
		metrics.RecordJourneyAppend(string(appended.Record.Stage))
	}
	return appended, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, journey.ErrStageRegression):
		return "stage_regression"
	case errors.Is(err, journey.ErrOutOfOrder):
		return "out_of_order"
	case errors.Is(err, journey.ErrInvalidEvidence):
		return "invalid_evidence"
	case errors.Is(err, journey.ErrInvalidRecord):
		return "invalid_record"
	default:
		return ""
	}
}

// Journey returns the stored journey and its current decayed probability.
func (s *Service) Journey(ctx context.Context, customerID string) (JourneyStatus, error) {
	c, err := s.components()
	if err != nil {
		return JourneyStatus{}, err
	}
	j, err := c.tracker.Journey(ctx, strings.TrimSpace(customerID))
	if err != nil {
		return JourneyStatus{}, err
	}
	now := s.clock()
	return JourneyStatus{
		Journey:            j,
		CurrentProbability: journey.ProbabilityAt(j, now, c.tracker.Decay()),
		EvaluatedAt:        now.UTC(),
	}, nil
}

// CurrentProbability returns the customer's decayed journey probability.
func (s *Service) CurrentProbability(ctx context.Context, customerID string) (float64, error) {
	c, err := s.components()
	if err != nil {
		return 0, err
	}
	return c.tracker.CurrentProbability(ctx, strings.TrimSpace(customerID))
}

// ResetJourney starts a new empty session for the customer.
func (s *Service) ResetJourney(ctx context.Context, customerID string) (journey.Journey, error) {
	c, err := s.components()
	if err != nil {
		return journey.Journey{}, err
	}
	j, err := c.tracker.Reset(ctx, customerID)
	if err != nil {
		return journey.Journey{}, err
	}
	metrics.RecordJourneyReset()
	return j, nil
}
