package metrics

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it is registered under the salescore namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.analyses.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "salescore_engine_analyses_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("scoring"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metric names and labels follow them", func() {
				manager.journeyConflicts.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var names []string
				for _, f := range families {
					names = append(names, f.GetName())
					if f.GetName() == "test_scoring_journey_conflicts_total" {
						So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
					}
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "test_scoring_journey_conflicts_total")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording an analysis", func() {
			before := testutil.ToFloat64(globalManager.analyses)
			RecordAnalysis(63.5, 71, 2.4, "driver")

			Convey("Then counters and histograms move", func() {
				So(testutil.ToFloat64(globalManager.analyses), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.dominantPersona.WithLabelValues("driver")), ShouldBeGreaterThanOrEqualTo, 1.0)
			})
		})

		Convey("When recording unresolved signals", func() {
			before := testutil.ToFloat64(globalManager.unresolvedSignals)
			RecordUnresolvedSignals(3)
			RecordUnresolvedSignals(0)

			Convey("Then only positive counts are added", func() {
				So(testutil.ToFloat64(globalManager.unresolvedSignals), ShouldEqual, before+3)
			})
		})

		Convey("When recording journey metrics", func() {
			before := testutil.ToFloat64(globalManager.journeyAppends.WithLabelValues("post_test_drive"))
			RecordJourneyAppend("post_test_drive")
			RecordJourneyRejection("stage_regression")
			RecordJourneyConflict()
			RecordJourneyDuplicate()
			RecordJourneyReset()
			UpdateJourneysTotal(7)

			Convey("Then they are reflected", func() {
				So(testutil.ToFloat64(globalManager.journeyAppends.WithLabelValues("post_test_drive")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.journeysTotal), ShouldEqual, 7.0)
			})
		})

		Convey("When recording remaining metrics", func() {
			So(func() {
				RecordSynergy("competitive+financial")
				RecordValidationError("income_band")
				RecordStoreLatency("memory", "append", 0.2)
				RecordHTTPRequest("/analyze", "POST", "200")
				RecordHTTPRequestDuration("/analyze", "POST", "200", 3.1)
				RecordErrorByComponent("journey", "conflict")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		before := testutil.ToFloat64(globalManager.journeyConflicts)
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				RecordJourneyConflict()
				RecordJourneyAppend("post_conversation")
			}()
		}
		wg.Wait()

		Convey("Then no increments are lost", func() {
			So(testutil.ToFloat64(globalManager.journeyConflicts), ShouldEqual, before+20)
		})
	})
}
