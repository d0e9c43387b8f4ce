package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/stockcast/backend/internal/contracts"
)

const namespace = "stockcast"

// Recorder implements forecast.Metrics and the HTTP/upstream hooks using Prometheus.
// 레지스트리는 Recorder마다 별도 (테스트에서 중복 등록 방지)
type Recorder struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	modelMAE      *prometheus.GaugeVec
	modelAccuracy *prometheus.GaugeVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight *prometheus.GaugeVec

	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
}

// New creates a recorder with its own registry, including Go runtime and process collectors
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_stage_duration_seconds",
				Help:      "Duration of forecast pipeline stages",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forecast_runs_total",
				Help:      "Forecast requests by outcome",
			},
			[]string{"status"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "forecast_run_duration_seconds",
				Help:      "End-to-end forecast request duration",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{"status"},
		),
		modelMAE: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "model_mae",
				Help:      "Test split MAE of the latest run per model (price units)",
			},
			[]string{"model"},
		),
		modelAccuracy: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "model_accuracy_ratio",
				Help:      "1 - MAE/max(actual) of the latest run per model",
			},
			[]string{"model"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"route", "method", "class"},
		),
		httpInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "http_in_flight_requests",
				Help: "Current number of in-flight HTTP requests",
			},
			[]string{"route"},
		),
		upstreamRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Requests to market data upstreams",
			},
			[]string{"host", "status"},
		),
		upstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Upstream request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"host"},
		),
	}
}

// Registry exposes the underlying registry (tests, custom collectors)
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the /metrics endpoint
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ObserveStage records how long a pipeline stage took
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveModel records the latest diagnostics of a model path
func (r *Recorder) ObserveModel(model contracts.ModelID, m contracts.ModelMetrics) {
	r.modelMAE.WithLabelValues(string(model)).Set(m.MAE)
	r.modelAccuracy.WithLabelValues(string(model)).Set(m.Accuracy)
}

// RecordRun counts a finished forecast request
func (r *Recorder) RecordRun(status string, d time.Duration) {
	r.runsTotal.WithLabelValues(status).Inc()
	r.runDuration.WithLabelValues(status).Observe(d.Seconds())
}

// ObserveUpstream matches httputil.Observer; status 0 means transport error
func (r *Recorder) ObserveUpstream(host string, status int, d time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	r.upstreamRequests.WithLabelValues(host, label).Inc()
	r.upstreamDuration.WithLabelValues(host).Observe(d.Seconds())
}
