package journey

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/salescore/internal/domain/model"
)

// DefaultPrior is the probability of a journey with no records.
const DefaultPrior = 0.5

// Stage delta constants.
const (
	maxConversationDelta  = 0.25
	testDriveBookedDelta  = 0.10
	highExcitementDelta   = 0.15
	mediumExcitementDelta = 0.05
	lowExcitementDelta    = -0.10
	minExcitement         = 1
	maxExcitement         = 10
	highExcitementFloor   = 8
	mediumExcitementFloor = 5
	// observationWeight is the share of the gap to a new analysis applied
	// when the journey already holds evidence.
	observationWeight = 0.5
)

// Conversation outcome tags accepted on post_conversation records.
const (
	OutcomePositiveResponse    = "positive_response"
	OutcomeObjectionResolved   = "objection_resolved"
	OutcomeRequestedQuote      = "requested_quote"
	OutcomePriceObjection      = "price_objection"
	OutcomeNeedsTime           = "needs_time"
	OutcomeCompetitorMentioned = "competitor_mentioned"
	OutcomeNotInterested       = "not_interested"
)

var outcomeDeltas = map[string]float64{
	OutcomePositiveResponse:    0.08,
	OutcomeObjectionResolved:   0.06,
	OutcomeRequestedQuote:      0.10,
	OutcomePriceObjection:      -0.06,
	OutcomeNeedsTime:           -0.04,
	OutcomeCompetitorMentioned: -0.05,
	OutcomeNotInterested:       -0.20,
}

// OutcomeDelta returns the delta for a conversation outcome tag.
func OutcomeDelta(tag string) (float64, bool) {
	d, ok := outcomeDeltas[strings.ToLower(strings.TrimSpace(tag))]
	return d, ok
}

// ValidateEvidence checks the evidence fields the stage reads.
func ValidateEvidence(stage model.Stage, ev Evidence) error {
	switch stage {
	case model.StageInitialAnalysis:
		if ev.Observation != nil {
			o := *ev.Observation
			if math.IsNaN(o) || o < 0 || o > 1 {
				return fmt.Errorf("%w: observation %v outside [0,1]", ErrInvalidEvidence, o)
			}
		}
	case model.StagePostConversation:
		for _, tag := range ev.OutcomeTags {
			if _, ok := OutcomeDelta(tag); !ok {
				return fmt.Errorf("%w: unknown outcome tag %q", ErrInvalidEvidence, tag)
			}
		}
	case model.StagePostTestDrive:
		if ev.Excitement < minExcitement || ev.Excitement > maxExcitement {
			return fmt.Errorf("%w: excitement %d outside [%d,%d]", ErrInvalidEvidence, ev.Excitement, minExcitement, maxExcitement)
		}
	case model.StageTestDriveBooked, model.StagePurchase:
	default:
		return fmt.Errorf("%w: unknown stage %q", ErrInvalidRecord, stage)
	}
	return nil
}

// StageDelta returns the additive adjustment a record makes to prior.
// hasPrior is false for the first record of a journey. Evidence must have
// passed ValidateEvidence.
func StageDelta(stage model.Stage, prior float64, hasPrior bool, ev Evidence) float64 {
	switch stage {
	case model.StageInitialAnalysis:
		if ev.Observation == nil {
			return 0
		}
		gap := *ev.Observation - prior
		if hasPrior {
			return gap * observationWeight
		}
		return gap
	case model.StagePostConversation:
		sum := 0.0
		for _, tag := range ev.OutcomeTags {
			d, _ := OutcomeDelta(tag)
			sum += d
		}
		return math.Max(-maxConversationDelta, math.Min(maxConversationDelta, sum))
	case model.StageTestDriveBooked:
		return testDriveBookedDelta
	case model.StagePostTestDrive:
		switch {
		case ev.Excitement >= highExcitementFloor:
			return highExcitementDelta
		case ev.Excitement >= mediumExcitementFloor:
			return mediumExcitementDelta
		default:
			return lowExcitementDelta
		}
	case model.StagePurchase:
		return 1 - prior
	default:
		return 0
	}
}

// Blend applies delta to prior, bounded to [0,1].
func Blend(prior, delta float64) float64 {
	return math.Max(0, math.Min(1, prior+delta))
}
