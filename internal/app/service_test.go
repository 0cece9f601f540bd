package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/salescore/internal/adapters/repository"
	service "github.com/okian/salescore/internal/app"
	"github.com/okian/salescore/internal/domain/catalog"
	"github.com/okian/salescore/internal/domain/journey"
	"github.com/okian/salescore/internal/domain/model"
	"github.com/okian/salescore/internal/domain/scoring"
	"github.com/okian/salescore/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func ptr(v float64) *float64 { return &v }

func startedService(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	svc := service.New(opts...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	return svc
}

func TestService_Start(t *testing.T) {
	Convey("Given a new service", t, func() {
		ctx := context.Background()

		Convey("When it has not been started", func() {
			svc := service.New()
			_, err := svc.Analyze(ctx, service.AnalyzeRequest{})

			Convey("Then requests are refused", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(svc.GetStats(ctx)["started"], ShouldEqual, false)
			})
		})

		Convey("When starting with defaults", func() {
			svc := service.New()
			defer svc.Stop()
			err := svc.Start(ctx)

			Convey("Then the built-in catalog and coefficients are loaded", func() {
				So(err, ShouldBeNil)
				stats := svc.GetStats(ctx)
				So(stats["started"], ShouldEqual, true)
				So(stats["coefficientsVersion"], ShouldEqual, scoring.DefaultCoefficients().Version)
				So(stats["catalogSignals"], ShouldBeGreaterThan, 0)
				So(stats["journeys"], ShouldEqual, 0)
				So(stats["storeBackend"], ShouldEqual, "memory")
			})
		})

		Convey("When the catalog file is invalid", func() {
			path := filepath.Join(t.TempDir(), "catalog.yaml")
			So(os.WriteFile(path, []byte("version: x\nsignals:\n  - id: a\n    base_strength: 300\n"), 0o600), ShouldBeNil)
			svc := service.New(service.WithCatalogPath(path))
			err := svc.Start(ctx)

			Convey("Then start fails with an initialization error", func() {
				So(errors.Is(err, catalog.ErrInitialization), ShouldBeTrue)
				So(svc.GetStats(ctx)["started"], ShouldEqual, false)
			})
		})

		Convey("When the coefficients file is missing", func() {
			svc := service.New(service.WithCoefficientsPath("/non/existent/coefficients.yaml"))
			err := svc.Start(ctx)
			So(err, ShouldNotBeNil)
		})

		Convey("When the store backend is unknown", func() {
			svc := service.New(service.WithStoreConfig(repository.Config{Backend: "cassandra"}))
			err := svc.Start(ctx)
			So(errors.Is(err, repository.ErrUnknownBackend), ShouldBeTrue)
		})

		Convey("When the store backend is sqlite", func() {
			svc := service.New(service.WithStoreConfig(repository.Config{
				Backend:    repository.BackendSQLite,
				SQLitePath: filepath.Join(t.TempDir(), "journeys.db"),
			}))
			So(svc.Start(ctx), ShouldBeNil)
			_, err := svc.Analyze(ctx, service.AnalyzeRequest{CustomerID: "c-1", Signals: []string{"financing_question"}})
			So(err, ShouldBeNil)
			svc.Stop()

			Convey("Then the service stops cleanly", func() {
				So(svc.GetStats(ctx)["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Analyze(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := startedService(t)
		defer svc.Stop()

		Convey("When analyzing financing and competitor signals", func() {
			out, err := svc.Analyze(ctx, service.AnalyzeRequest{
				Signals: []string{"financing_question", "competitor_quote", "not in the catalog"},
				Tone:    "skeptical",
				Context: scoring.CustomerContext{IncomeBand: "middle", RegionType: "urban", DemographicFit: ptr(70)},
			})

			Convey("Then the pipeline output is complete and bounded", func() {
				So(err, ShouldBeNil)
				So(out.Signals.Resolved, ShouldHaveLength, 2)
				So(out.Signals.Unresolved, ShouldResemble, []string{"not in the catalog"})
				So(out.Signals.Synergies, ShouldHaveLength, 1)
				So(out.Signals.Synergies[0].Bonus, ShouldEqual, 12.0)
				So(out.Score.CalibratedProbability, ShouldBeBetweenOrEqual, 15.0, 92.0)
				So(out.Score.Confidence, ShouldBeBetweenOrEqual, 0.0, 100.0)
				So(out.Score.CoefficientsVersion, ShouldEqual, scoring.DefaultCoefficients().Version)
				So(out.Personality.Dominant, ShouldEqual, model.Analytical)
				So(out.Features.Get(scoring.FeatureSynergy), ShouldBeGreaterThan, 0.0)
				So(out.Journey, ShouldBeNil)
			})

			Convey("Then repeating the request yields the same score", func() {
				again, err := svc.Analyze(ctx, service.AnalyzeRequest{
					Signals: []string{"financing_question", "competitor_quote", "not in the catalog"},
					Tone:    "skeptical",
					Context: scoring.CustomerContext{IncomeBand: "middle", RegionType: "urban", DemographicFit: ptr(70)},
				})
				So(err, ShouldBeNil)
				So(again.Score, ShouldResemble, out.Score)
			})
		})

		Convey("When the context is invalid", func() {
			_, err := svc.Analyze(ctx, service.AnalyzeRequest{Context: scoring.CustomerContext{IncomeBand: "astronomical"}})

			Convey("Then a validation error names the field", func() {
				var verr *scoring.ValidationError
				So(errors.As(err, &verr), ShouldBeTrue)
				So(verr.Field, ShouldEqual, "income_band")
				So(errors.Is(err, scoring.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When the tone is unknown", func() {
			_, err := svc.Analyze(ctx, service.AnalyzeRequest{Tone: "sarcastic"})
			So(errors.Is(err, scoring.ErrValidation), ShouldBeTrue)
		})

		Convey("When a market modifier is malformed", func() {
			_, err := svc.Analyze(ctx, service.AnalyzeRequest{
				MarketModifiers: []scoring.Modifier{{Name: "tax_credit", Kind: "exponential", Value: 2}},
			})
			So(errors.Is(err, scoring.ErrValidation), ShouldBeTrue)
		})

		Convey("When an urgency signal is added to an empty request", func() {
			empty, err := svc.Analyze(ctx, service.AnalyzeRequest{})
			So(err, ShouldBeNil)
			urgent, err := svc.Analyze(ctx, service.AnalyzeRequest{Signals: []string{"needs_car_this_month"}})
			So(err, ShouldBeNil)

			Convey("Then the probability rises", func() {
				So(empty.Features.Get(scoring.FeatureSynergy), ShouldEqual, 0.0)
				So(urgent.Score.RawScore, ShouldBeGreaterThan, empty.Score.RawScore)
				So(urgent.Score.CalibratedProbability, ShouldBeGreaterThan, empty.Score.CalibratedProbability)
			})
		})

		Convey("When a market modifier is supplied", func() {
			base, err := svc.Analyze(ctx, service.AnalyzeRequest{Signals: []string{"range_question"}})
			So(err, ShouldBeNil)
			boosted, err := svc.Analyze(ctx, service.AnalyzeRequest{
				Signals:         []string{"range_question"},
				MarketModifiers: []scoring.Modifier{{Name: "tax_credit", Kind: scoring.KindAdditive, Value: 5}},
			})
			So(err, ShouldBeNil)

			Convey("Then it is applied and recorded", func() {
				So(boosted.Score.HasModifier("tax_credit"), ShouldBeTrue)
				So(boosted.Score.CalibratedProbability, ShouldBeGreaterThan, base.Score.CalibratedProbability)
			})
		})
	})
}

func TestService_Journey(t *testing.T) {
	Convey("Given a started service with a controllable clock", t, func() {
		ctx := context.Background()
		var mu sync.Mutex
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		clock := func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}
		advance := func(d time.Duration) {
			mu.Lock()
			now = now.Add(d)
			mu.Unlock()
		}
		svc := startedService(t, service.WithClock(clock), service.WithStore(repository.NewMemoryStore()))
		defer svc.Stop()

		Convey("When an analysis is recorded for a customer", func() {
			out, err := svc.Analyze(ctx, service.AnalyzeRequest{
				CustomerID: "cust-1",
				RecordID:   "analysis-1",
				Signals:    []string{"needs_car_this_month", "brand_excitement"},
			})
			So(err, ShouldBeNil)

			Convey("Then an initial_analysis record carries the calibrated probability", func() {
				So(out.Journey, ShouldNotBeNil)
				So(out.Journey.Record.Stage, ShouldEqual, model.StageInitialAnalysis)
				So(out.Journey.Record.Probability, ShouldAlmostEqual, out.Score.CalibratedProbability/100)
			})

			Convey("Then resubmitting the same record is idempotent", func() {
				again, err := svc.Analyze(ctx, service.AnalyzeRequest{
					CustomerID: "cust-1",
					RecordID:   "analysis-1",
					Signals:    []string{"needs_car_this_month", "brand_excitement"},
				})
				So(err, ShouldBeNil)
				So(again.Journey.Duplicate, ShouldBeTrue)
				status, err := svc.Journey(ctx, "cust-1")
				So(err, ShouldBeNil)
				So(status.Journey.Len(), ShouldEqual, 1)
			})

			Convey("And an excited test drive follows", func() {
				advance(2 * time.Hour)
				drive, err := svc.AppendStage(ctx, "cust-1", journey.Record{
					Stage:    model.StagePostTestDrive,
					Evidence: journey.Evidence{Excitement: 9},
				})
				So(err, ShouldBeNil)

				Convey("Then the current probability exceeds the initial estimate", func() {
					p, err := svc.CurrentProbability(ctx, "cust-1")
					So(err, ShouldBeNil)
					So(p, ShouldBeGreaterThan, out.Journey.Record.Probability)
					So(drive.Journey.Len(), ShouldEqual, 2)
				})

				Convey("Then a later analysis without reset is a stage regression", func() {
					advance(time.Hour)
					_, err := svc.Analyze(ctx, service.AnalyzeRequest{CustomerID: "cust-1", Signals: []string{"range_question"}})
					So(errors.Is(err, journey.ErrStageRegression), ShouldBeTrue)
				})

				Convey("Then the probability decays while nothing happens", func() {
					before, err := svc.Journey(ctx, "cust-1")
					So(err, ShouldBeNil)
					advance(20 * 24 * time.Hour)
					after, err := svc.Journey(ctx, "cust-1")
					So(err, ShouldBeNil)
					So(after.CurrentProbability, ShouldBeLessThan, before.CurrentProbability)
				})

				Convey("Then a reset starts a new session", func() {
					advance(time.Hour)
					j, err := svc.ResetJourney(ctx, "cust-1")
					So(err, ShouldBeNil)
					So(j.Len(), ShouldEqual, 0)

					advance(time.Hour)
					_, err = svc.Analyze(ctx, service.AnalyzeRequest{CustomerID: "cust-1", Signals: []string{"range_question"}})
					So(err, ShouldBeNil)
					So(svc.GetStats(ctx)["journeys"], ShouldEqual, 1)
				})
			})
		})

		Convey("When the customer is unknown", func() {
			_, err := svc.Journey(ctx, "ghost")
			So(errors.Is(err, journey.ErrNotFound), ShouldBeTrue)
			_, err = svc.CurrentProbability(ctx, "ghost")
			So(errors.Is(err, journey.ErrNotFound), ShouldBeTrue)
		})

		Convey("When stage evidence is invalid", func() {
			_, err := svc.AppendStage(ctx, "cust-2", journey.Record{Stage: model.StagePostTestDrive})
			So(errors.Is(err, journey.ErrInvalidEvidence), ShouldBeTrue)
		})
	})
}
