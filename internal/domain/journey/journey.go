// Package journey tracks per-customer progress through the sales pipeline and
// evolves the purchase probability as stage evidence arrives.
package journey

import (
	"context"
	"time"

	"github.com/okian/salescore/internal/domain/model"
)

// Evidence is the stage-specific payload of a record. Only the fields
// relevant to the record's stage are read.
type Evidence struct {
	// Observation is the model probability, as a fraction, for initial_analysis.
	Observation *float64 `json:"observation,omitempty"`
	// OutcomeTags are conversation outcomes for post_conversation.
	OutcomeTags []string `json:"outcome_tags,omitempty"`
	// Excitement is the 1..10 rating for post_test_drive.
	Excitement int    `json:"excitement,omitempty"`
	Note       string `json:"note,omitempty"`
}

// Record is one append-only entry of a journey.
type Record struct {
	ID          string      `json:"id"`
	Stage       model.Stage `json:"stage"`
	Timestamp   time.Time   `json:"timestamp"`
	Probability float64     `json:"probability"`
	Delta       float64     `json:"delta"`
	Evidence    Evidence    `json:"evidence"`
}

// Journey is a customer's ordered record history within one session.
type Journey struct {
	CustomerID string    `json:"customer_id"`
	SessionID  string    `json:"session_id"`
	StartedAt  time.Time `json:"started_at"`
	Records    []Record  `json:"records"`
}

// Len returns the number of records.
func (j Journey) Len() int { return len(j.Records) }

// Last returns the most recent record.
func (j Journey) Last() (Record, bool) {
	if len(j.Records) == 0 {
		return Record{}, false
	}
	return j.Records[len(j.Records)-1], true
}

// HasRecord reports whether a record with id exists in the journey.
func (j Journey) HasRecord(id string) bool {
	for _, r := range j.Records {
		if r.ID == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (j Journey) Clone() Journey {
	out := j
	out.Records = make([]Record, len(j.Records))
	for i, r := range j.Records {
		out.Records[i] = r.clone()
	}
	return out
}

func (r Record) clone() Record {
	out := r
	if r.Evidence.Observation != nil {
		v := *r.Evidence.Observation
		out.Evidence.Observation = &v
	}
	if r.Evidence.OutcomeTags != nil {
		out.Evidence.OutcomeTags = append([]string(nil), r.Evidence.OutcomeTags...)
	}
	return out
}

// Store persists journeys. Implementations must make Append a
// compare-and-append: it succeeds only when the stored journey still has
// expectedLen records, and returns ErrConflict otherwise.
type Store interface {
	// Load returns the journey for customerID, or ErrNotFound.
	Load(ctx context.Context, customerID string) (Journey, error)
	// Append adds rec when the stored journey has expectedLen records. When no
	// journey exists and expectedLen is zero, one is created with sessionID.
	Append(ctx context.Context, customerID, sessionID string, expectedLen int, rec Record) (Journey, error)
	// Reset replaces any journey for customerID with an empty one under sessionID.
	Reset(ctx context.Context, customerID, sessionID string, at time.Time) (Journey, error)
	// Count returns the number of stored journeys.
	Count(ctx context.Context) (int, error)
}
