// Package service wires the scoring pipeline and the journey tracker into the
// operations exposed by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/salescore/internal/adapters/repository"
	"github.com/okian/salescore/internal/domain/catalog"
	"github.com/okian/salescore/internal/domain/dedupe"
	"github.com/okian/salescore/internal/domain/journey"
	"github.com/okian/salescore/internal/domain/personality"
	"github.com/okian/salescore/internal/domain/scoring"
	"github.com/okian/salescore/internal/domain/signals"
	"github.com/okian/salescore/pkg/logger"
	"github.com/okian/salescore/pkg/metrics"
)

// Service implements the API dependencies for scoring and journey tracking.
type Service struct {
	mu sync.RWMutex

	// Core components, built by Start.
	catalog      *catalog.Catalog
	coefficients scoring.Coefficients
	classifier   *personality.Classifier
	aggregator   *signals.Aggregator
	model        *scoring.Model
	tracker      *journey.Tracker
	store        journey.Store
	closer       func() error

	// Configuration
	catalogPath      string
	coefficientsPath string
	storeConfig      repository.Config
	injectedStore    journey.Store
	modifierConfig   scoring.ModifierConfig
	clampMin         float64
	clampMax         float64
	intensityCap     float64
	decay            journey.Decay
	dedupeSize       int
	lockStripes      int
	maxRetries       int
	clock            func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithCatalogPath loads the signal catalog from a YAML file instead of the
// built-in one.
func WithCatalogPath(path string) Option {
	return func(s *Service) {
		s.catalogPath = path
	}
}

// WithCoefficientsPath loads the coefficient table from a YAML file instead
// of the built-in one.
func WithCoefficientsPath(path string) Option {
	return func(s *Service) {
		s.coefficientsPath = path
	}
}

// WithStoreConfig selects the journey store backend opened by Start.
func WithStoreConfig(cfg repository.Config) Option {
	return func(s *Service) {
		s.storeConfig = cfg
	}
}

// WithStore uses an existing journey store. The service does not close it.
func WithStore(store journey.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.injectedStore = store
		}
	}
}

// WithClampBounds sets the calibrated probability bounds, in percent.
func WithClampBounds(lower, upper float64) Option {
	return func(s *Service) {
		if lower >= 0 && upper <= 100 && lower < upper {
			s.clampMin, s.clampMax = lower, upper
		}
	}
}

// WithAffordability sets the payment-to-income threshold and its penalty.
func WithAffordability(threshold, penalty float64) Option {
	return func(s *Service) {
		if threshold > 0 && penalty >= 0 {
			s.modifierConfig.AffordabilityThreshold = threshold
			s.modifierConfig.AffordabilityPenalty = penalty
		}
	}
}

// WithIntensityCap bounds the summed strength of resolved signals.
func WithIntensityCap(limit float64) Option {
	return func(s *Service) {
		if limit > 0 {
			s.intensityCap = limit
		}
	}
}

// WithDecay sets the journey time-decay parameters.
func WithDecay(d journey.Decay) Option {
	return func(s *Service) {
		s.decay = d
	}
}

// WithDedupeSize sets the size of the record deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.dedupeSize = size
		}
	}
}

// WithLockStripes sets the number of per-customer append locks.
func WithLockStripes(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.lockStripes = n
		}
	}
}

// WithMaxRetries bounds retries of conflicting journey appends.
func WithMaxRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithClock sets the time source for journey records and decay.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.clock = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storeConfig:    repository.Config{Backend: repository.BackendMemory},
		modifierConfig: scoring.DefaultModifierConfig(),
		clampMin:       15,
		clampMax:       92,
		intensityCap:   250,
		decay:          journey.DefaultDecay(),
		dedupeSize:     10_000,
		lockStripes:    64,
		maxRetries:     3,
		clock:          time.Now,
		logger:         nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start loads the catalog and coefficient table, opens the journey store and
// builds the scoring components. Any failure is returned and leaves the
// service stopped.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting salescore service...")

	cat, err := s.loadCatalog(ctx)
	if err != nil {
		return err
	}
	coeffs, err := s.loadCoefficients(ctx)
	if err != nil {
		return err
	}

	store, closer, err := s.openStore(ctx)
	if err != nil {
		return err
	}

	s.catalog = cat
	s.coefficients = coeffs
	s.store = store
	s.closer = closer
	s.classifier = personality.NewClassifier()
	s.aggregator = signals.NewAggregator(cat, signals.WithIntensityCap(s.intensityCap))
	s.model = scoring.NewModel(scoring.WithClampBounds(s.clampMin, s.clampMax))
	s.tracker = journey.NewTracker(store,
		journey.WithDecay(s.decay),
		journey.WithClock(s.clock),
		journey.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))),
		journey.WithLockStripes(s.lockStripes),
		journey.WithMaxRetries(s.maxRetries),
		journey.WithLogger(s.logger),
	)

	s.started = true
	s.logger.Info(ctx, "salescore service started",
		logger.String("catalogVersion", cat.Version()),
		logger.Int("catalogSignals", cat.Len()),
		logger.String("coefficientsVersion", coeffs.Version),
		logger.String("storeBackend", s.backendName()),
	)

	return nil
}

func (s *Service) loadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	if s.catalogPath == "" {
		return catalog.Default(ctx)
	}
	cat, err := catalog.Load(ctx, s.catalogPath)
	if err != nil {
		metrics.RecordErrorByComponent("catalog", "load")
		return nil, fmt.Errorf("load catalog %s: %w", s.catalogPath, err)
	}
	return cat, nil
}

func (s *Service) loadCoefficients(ctx context.Context) (scoring.Coefficients, error) {
	if s.coefficientsPath == "" {
		return scoring.DefaultCoefficients(), nil
	}
	coeffs, err := scoring.LoadCoefficients(ctx, s.coefficientsPath)
	if err != nil {
		metrics.RecordErrorByComponent("coefficients", "load")
		return scoring.Coefficients{}, fmt.Errorf("load coefficients %s: %w", s.coefficientsPath, err)
	}
	return coeffs, nil
}

func (s *Service) openStore(ctx context.Context) (journey.Store, func() error, error) {
	if s.injectedStore != nil {
		return s.injectedStore, nil, nil
	}
	store, err := repository.Open(ctx, s.storeConfig, repository.WithLogger(s.logger.Named("repository")))
	if err != nil {
		metrics.RecordErrorByComponent("repository", "open")
		return nil, nil, fmt.Errorf("open %s journey store: %w", s.backendName(), err)
	}
	return store, store.Close, nil
}

func (s *Service) backendName() string {
	if s.injectedStore != nil {
		return "injected"
	}
	if s.storeConfig.Backend == "" {
		return repository.BackendMemory
	}
	return s.storeConfig.Backend
}

// Stop releases the journey store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping salescore service...")

	if s.closer != nil {
		if err := s.closer(); err != nil {
			s.logger.Warn(context.Background(), "failed to close journey store", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(context.Background(), "salescore service stopped")
}

// components returns the started components, or ErrNotStarted.
func (s *Service) components() (*components, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return &components{
		catalog:      s.catalog,
		coefficients: s.coefficients,
		classifier:   s.classifier,
		aggregator:   s.aggregator,
		model:        s.model,
		tracker:      s.tracker,
		modifiers:    s.modifierConfig,
	}, nil
}

type components struct {
	catalog      *catalog.Catalog
	coefficients scoring.Coefficients
	classifier   *personality.Classifier
	aggregator   *signals.Aggregator
	model        *scoring.Model
	tracker      *journey.Tracker
	modifiers    scoring.ModifierConfig
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"storeBackend": s.backendName(),
		"clampMin":     s.clampMin,
		"clampMax":     s.clampMax,
	}

	if s.started {
		stats["catalogVersion"] = s.catalog.Version()
		stats["catalogSignals"] = s.catalog.Len()
		stats["coefficientsVersion"] = s.coefficients.Version

		if n, err := s.tracker.Count(ctx); err == nil {
			stats["journeys"] = n
			metrics.UpdateJourneysTotal(n)
		} else {
			s.logger.Warn(ctx, "failed to count journeys", logger.Error(err))
		}
	}

	return stats
}
