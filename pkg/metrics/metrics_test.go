package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockcast/backend/internal/contracts"
)

func TestRecordRun(t *testing.T) {
	r := New()

	r.RecordRun("success", 2*time.Second)
	r.RecordRun("success", time.Second)
	r.RecordRun("not_found", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("not_found")))
}

func TestObserveModel(t *testing.T) {
	r := New()

	r.ObserveModel(contracts.ModelLSTM, contracts.ModelMetrics{MAE: 1.5, Accuracy: 0.97})
	r.ObserveModel(contracts.ModelLSTM, contracts.ModelMetrics{MAE: 1.2, Accuracy: 0.98})

	assert.Equal(t, 1.2, testutil.ToFloat64(r.modelMAE.WithLabelValues("lstm")), "gauge keeps the latest run")
	assert.Equal(t, 0.98, testutil.ToFloat64(r.modelAccuracy.WithLabelValues("lstm")))
}

func TestObserveUpstream(t *testing.T) {
	r := New()

	r.ObserveUpstream("query1.finance.yahoo.com", 200, 30*time.Millisecond)
	r.ObserveUpstream("query1.finance.yahoo.com", 0, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.upstreamRequests.WithLabelValues("query1.finance.yahoo.com", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.upstreamRequests.WithLabelValues("query1.finance.yahoo.com", "error")))
}

func TestMiddleware_RouteTemplate(t *testing.T) {
	r := New()

	router := mux.NewRouter()
	router.HandleFunc("/graph/{name}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	router.Use(r.Middleware)

	for _, name := range []string{"a.png", "b.png"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graph/"+name, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("/graph/{name}", "GET", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.httpInFlight.WithLabelValues("/graph/{name}")))
}

func TestHandler_Exposition(t *testing.T) {
	r := New()
	r.ObserveStage("fetch", 120*time.Millisecond)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `stockcast_pipeline_stage_duration_seconds_count{stage="fetch"} 1`))
	assert.Contains(t, string(body), "go_goroutines")
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(201))
	assert.Equal(t, "4xx", statusClass(400))
	assert.Equal(t, "5xx", statusClass(503))
}
