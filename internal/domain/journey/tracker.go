package journey

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/salescore/internal/domain/dedupe"
	"github.com/okian/salescore/internal/domain/model"
	"github.com/okian/salescore/pkg/logger"
)

// Default tracker configuration constants.
const (
	defaultLockStripes = 64
	defaultMaxRetries  = 3
	defaultDedupeSize  = 10000
)

// Appended describes the outcome of Tracker.Append.
type Appended struct {
	Journey Journey `json:"journey"`
	Record  Record  `json:"record"`
	// Duplicate is true when the record was already stored and nothing changed.
	Duplicate bool `json:"duplicate"`
	// Attempts counts store compare-and-append calls, including the successful one.
	Attempts int `json:"attempts"`
}

// Tracker evolves per-customer journeys. Appends for one customer are
// serialized in process by a striped lock and across processes by the
// store's compare-and-append.
type Tracker struct {
	store      Store
	decay      Decay
	now        func() time.Time
	deduper    dedupe.Deduper
	stripes    int
	maxRetries int
	logger     logger.Logger

	locks []sync.Mutex
}

// NewTracker creates a tracker over store.
func NewTracker(store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:      store,
		decay:      DefaultDecay(),
		now:        time.Now,
		stripes:    defaultLockStripes,
		maxRetries: defaultMaxRetries,
		logger:     logger.Nop(),
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.deduper == nil {
		t.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(defaultDedupeSize))
	}
	t.locks = make([]sync.Mutex, t.stripes)
	t.logger = t.logger.Named("journey")

	return t
}

// Decay returns the configured decay parameters.
func (t *Tracker) Decay() Decay { return t.decay }

func (t *Tracker) lockFor(customerID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(customerID))
	return &t.locks[h.Sum32()%uint32(len(t.locks))]
}

// Append validates rec against the customer's journey and stores it with the
// blended probability. An empty ID or zero timestamp is filled in, and filled
// timestamps always follow the last record. Submitting a record ID already
// present in the current session returns the stored journey unchanged.
func (t *Tracker) Append(ctx context.Context, customerID string, rec Record) (Appended, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return Appended{}, fmt.Errorf("%w: missing customer id", ErrInvalidRecord)
	}
	if !rec.Stage.Valid() {
		return Appended{}, fmt.Errorf("%w: unknown stage %q", ErrInvalidRecord, rec.Stage)
	}
	if err := ValidateEvidence(rec.Stage, rec.Evidence); err != nil {
		return Appended{}, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	assigned := rec.Timestamp.IsZero()
	rec.Timestamp = rec.Timestamp.UTC()

	mu := t.lockFor(customerID)
	mu.Lock()
	defer mu.Unlock()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return Appended{}, fmt.Errorf("append cancelled: %w", err)
		}

		j, err := t.store.Load(ctx, customerID)
		switch {
		case errors.Is(err, ErrNotFound):
			j = Journey{CustomerID: customerID, SessionID: uuid.NewString(), StartedAt: rec.Timestamp}
		case err != nil:
			return Appended{}, fmt.Errorf("load journey: %w", err)
		}

		key := dedupe.Key(customerID, j.SessionID, rec.ID)
		cached := t.deduper.SeenAndRecord(ctx, key)
		if cached || j.HasRecord(rec.ID) {
			if stored, ok := findRecord(j, rec.ID); ok {
				t.logger.Debug(ctx, "duplicate record ignored",
					logger.String("customer_id", customerID),
					logger.String("record_id", rec.ID),
					logger.Bool("cache_hit", cached))
				return Appended{Journey: j, Record: stored, Duplicate: true, Attempts: attempt - 1}, nil
			}
		}

		if assigned {
			rec.Timestamp = t.stamp(j)
		}

		next, err := t.evolve(j, rec)
		if err != nil {
			t.deduper.Unrecord(ctx, key)
			return Appended{}, err
		}

		stored, err := t.store.Append(ctx, customerID, j.SessionID, j.Len(), next)
		if err == nil {
			return Appended{Journey: stored, Record: next, Attempts: attempt}, nil
		}
		t.deduper.Unrecord(ctx, key)
		if !errors.Is(err, ErrConflict) || attempt > t.maxRetries {
			return Appended{}, fmt.Errorf("append journey record: %w", err)
		}
		t.logger.Warn(ctx, "journey changed concurrently, retrying",
			logger.String("customer_id", customerID),
			logger.Int("attempt", attempt))
	}
}

// stamp returns the current time, moved just past the last record when the
// clock has not advanced since it was written.
func (t *Tracker) stamp(j Journey) time.Time {
	now := t.now().UTC()
	if last, ok := j.Last(); ok && !now.After(last.Timestamp) {
		return last.Timestamp.Add(time.Nanosecond)
	}
	return now
}

// evolve checks ordering and computes the stored form of rec.
func (t *Tracker) evolve(j Journey, rec Record) (Record, error) {
	prior := DefaultPrior
	last, hasPrior := j.Last()
	if hasPrior {
		if rec.Stage.Index() < last.Stage.Index() {
			return Record{}, fmt.Errorf("%w: %s after %s", ErrStageRegression, rec.Stage, last.Stage)
		}
		if !rec.Timestamp.After(last.Timestamp) {
			return Record{}, fmt.Errorf("%w: %s is not after %s", ErrOutOfOrder,
				rec.Timestamp.Format(time.RFC3339Nano), last.Timestamp.Format(time.RFC3339Nano))
		}
		prior = last.Probability
	}

	rec.Delta = StageDelta(rec.Stage, prior, hasPrior, rec.Evidence)
	rec.Probability = Blend(prior, rec.Delta)
	if rec.Stage == model.StagePurchase {
		rec.Probability = 1
	}
	return rec.clone(), nil
}

func findRecord(j Journey, id string) (Record, bool) {
	for _, r := range j.Records {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

// CurrentProbability returns the decayed probability of the customer's
// journey at the current time. It never modifies stored history.
func (t *Tracker) CurrentProbability(ctx context.Context, customerID string) (float64, error) {
	j, err := t.store.Load(ctx, customerID)
	if err != nil {
		return 0, err
	}
	return ProbabilityAt(j, t.now(), t.decay), nil
}

// Journey returns the customer's stored journey.
func (t *Tracker) Journey(ctx context.Context, customerID string) (Journey, error) {
	return t.store.Load(ctx, customerID)
}

// Reset starts a new, empty session for the customer. It is the only way a
// customer's journey can return to an earlier stage.
func (t *Tracker) Reset(ctx context.Context, customerID string) (Journey, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return Journey{}, fmt.Errorf("%w: missing customer id", ErrInvalidRecord)
	}

	mu := t.lockFor(customerID)
	mu.Lock()
	defer mu.Unlock()

	j, err := t.store.Reset(ctx, customerID, uuid.NewString(), t.now().UTC())
	if err != nil {
		return Journey{}, fmt.Errorf("reset journey: %w", err)
	}
	t.logger.Info(ctx, "journey reset",
		logger.String("customer_id", customerID),
		logger.String("session_id", j.SessionID))
	return j, nil
}

// Count returns the number of stored journeys.
func (t *Tracker) Count(ctx context.Context) (int, error) {
	return t.store.Count(ctx)
}
