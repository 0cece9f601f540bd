package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/salescore/internal/adapters/http/api"
	service "github.com/okian/salescore/internal/app"
	"github.com/okian/salescore/internal/domain/journey"
	"github.com/okian/salescore/pkg/logger"
)

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats(context.Context) map[string]interface{} {
	return m.stats
}

// failingDeps returns err from every operation.
type failingDeps struct {
	err error
}

func (f failingDeps) Analyze(context.Context, service.AnalyzeRequest) (service.Analysis, error) {
	return service.Analysis{}, f.err
}

func (f failingDeps) AppendStage(context.Context, string, journey.Record) (journey.Appended, error) {
	return journey.Appended{}, f.err
}

func (f failingDeps) Journey(context.Context, string) (service.JourneyStatus, error) {
	return service.JourneyStatus{}, f.err
}

func (f failingDeps) ResetJourney(context.Context, string) (journey.Journey, error) {
	return journey.Journey{}, f.err
}

func newMux(t *testing.T) (*http.ServeMux, *service.Service) {
	t.Helper()
	svc := service.New(service.WithLogger(logger.Nop()))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(mux)
	return mux, svc
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux, svc := newMux(t)
		defer svc.Stop()

		Convey("When probing health and stats", func() {
			health := do(mux, http.MethodGet, "/healthz", "")
			stats := do(mux, http.MethodGet, "/stats", "")

			Convey("Then both respond", func() {
				So(health.Code, ShouldEqual, http.StatusOK)
				So(health.Body.String(), ShouldContainSubstring, "salescore_")
				So(stats.Code, ShouldEqual, http.StatusOK)
				So(decode(stats)["started"], ShouldEqual, true)
			})
		})

		Convey("When an unknown path is requested", func() {
			So(do(mux, http.MethodGet, "/leaderboard", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the wrong method is used", func() {
			So(do(mux, http.MethodGet, "/analyze", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestAnalyzeHandler(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux, svc := newMux(t)
		defer svc.Stop()

		Convey("When posting a valid analysis", func() {
			w := do(mux, http.MethodPost, "/analyze", `{
				"customer_id": "cust-1",
				"signals": ["financing_question", "competitor_quote"],
				"tone": "formal",
				"context": {"income_band": "middle", "monthly_income": 8000, "monthly_payment": 600}
			}`)

			Convey("Then the score, personality and journey are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				score := body["score"].(map[string]interface{})
				So(score["calibrated_probability"], ShouldBeBetweenOrEqual, 15.0, 92.0)
				So(score["feature_contributions"], ShouldNotBeEmpty)
				So(body["personality"].(map[string]interface{})["dominant"], ShouldNotBeEmpty)
				So(body["journey"], ShouldNotBeNil)
			})
		})

		Convey("When the body is malformed", func() {
			w := do(mux, http.MethodPost, "/analyze", `{"signals": [`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "bad_request")
		})

		Convey("When the body has unknown fields", func() {
			w := do(mux, http.MethodPost, "/analyze", `{"signalz": []}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the context fails validation", func() {
			w := do(mux, http.MethodPost, "/analyze", `{"signals": [], "context": {"region_type": "orbital"}}`)

			Convey("Then the invalid field is reported", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["field"], ShouldEqual, "region_type")
			})
		})
	})
}

func TestJourneysHandler(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux, svc := newMux(t)
		defer svc.Stop()

		Convey("When a journey is built stage by stage", func() {
			first := do(mux, http.MethodPost, "/journeys/cust-9/stages",
				`{"record_id": "r1", "stage": "initial_analysis", "timestamp": "2025-01-01T10:00:00Z", "observation": 0.55}`)
			second := do(mux, http.MethodPost, "/journeys/cust-9/stages",
				`{"record_id": "r2", "stage": "post_test_drive", "timestamp": "2025-01-02T10:00:00Z", "excitement": 9}`)
			dup := do(mux, http.MethodPost, "/journeys/cust-9/stages",
				`{"record_id": "r2", "stage": "post_test_drive", "timestamp": "2025-01-02T10:00:00Z", "excitement": 9}`)

			Convey("Then appends are created and the duplicate is acknowledged", func() {
				So(first.Code, ShouldEqual, http.StatusCreated)
				So(second.Code, ShouldEqual, http.StatusCreated)
				So(dup.Code, ShouldEqual, http.StatusOK)
				So(decode(dup)["duplicate"], ShouldEqual, true)

				got := do(mux, http.MethodGet, "/journeys/cust-9", "")
				So(got.Code, ShouldEqual, http.StatusOK)
				body := decode(got)
				So(body["journey"].(map[string]interface{})["records"], ShouldHaveLength, 2)
				So(body["current_probability"], ShouldBeLessThanOrEqualTo, 0.7)
			})

			Convey("Then an earlier stage conflicts", func() {
				w := do(mux, http.MethodPost, "/journeys/cust-9/stages",
					`{"stage": "post_conversation", "timestamp": "2025-01-03T10:00:00Z"}`)
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decode(w)["code"], ShouldEqual, "stage_regression")
			})

			Convey("Then an older timestamp conflicts", func() {
				w := do(mux, http.MethodPost, "/journeys/cust-9/stages",
					`{"stage": "purchase", "timestamp": "2024-12-31T10:00:00Z"}`)
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decode(w)["code"], ShouldEqual, "out_of_order")
			})

			Convey("Then a reset clears the session", func() {
				w := do(mux, http.MethodPost, "/journeys/cust-9/reset", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["records"], ShouldBeEmpty)
			})
		})

		Convey("When the journey does not exist", func() {
			So(do(mux, http.MethodGet, "/journeys/nobody", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the stage request is invalid", func() {
			So(do(mux, http.MethodPost, "/journeys/c/stages", `{}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/journeys/c/stages", `{"stage": "purchase", "timestamp": "yesterday"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/journeys/c/stages", `{"stage": "post_test_drive", "excitement": 42}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/journeys/c/stages", `{"stage": "negotiation"}`).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestErrorMapping(t *testing.T) {
	Convey("Given dependencies that fail", t, func() {
		build := func(err error) *http.ServeMux {
			mux := http.NewServeMux()
			api.NewServer(failingDeps{err: err}, &mockStatsProvider{stats: map[string]interface{}{}}).Register(mux)
			return mux
		}

		Convey("When the service is not started", func() {
			w := do(build(service.ErrNotStarted), http.MethodPost, "/analyze", `{"signals": []}`)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When the store reports a conflict", func() {
			w := do(build(journey.ErrConflict), http.MethodPost, "/journeys/c/stages", `{"stage": "purchase"}`)
			So(w.Code, ShouldEqual, http.StatusConflict)
		})

		Convey("When an unexpected error occurs", func() {
			w := do(build(errors.New("disk on fire")), http.MethodPost, "/journeys/c/reset", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(decode(w)["code"], ShouldEqual, "internal_error")
		})
	})
}
