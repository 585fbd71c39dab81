package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveFetch(t *testing.T) {
	okBefore := testutil.ToFloat64(FetchesTotal.WithLabelValues("current", OutcomeOK))
	errBefore := testutil.ToFloat64(FetchesTotal.WithLabelValues("current", OutcomeError))

	ObserveFetch("current", true, 20*time.Millisecond)
	ObserveFetch("current", false, 5*time.Millisecond)
	ObserveFetch("current", true, time.Millisecond)

	if got := testutil.ToFloat64(FetchesTotal.WithLabelValues("current", OutcomeOK)) - okBefore; got != 2 {
		t.Errorf("ok fetches = %v; want 2", got)
	}
	if got := testutil.ToFloat64(FetchesTotal.WithLabelValues("current", OutcomeError)) - errBefore; got != 1 {
		t.Errorf("error fetches = %v; want 1", got)
	}
}

func TestHandler_ExposesFetchMetrics(t *testing.T) {
	ObserveFetch("forecast", true, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	for _, name := range []string{
		"cloudpico_forecast_fetches_total",
		"cloudpico_forecast_fetch_duration_seconds",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
