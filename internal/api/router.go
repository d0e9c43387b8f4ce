package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/stockcast/backend/internal/api/handlers"
	"github.com/wonny/stockcast/backend/pkg/logger"
)

// HealthCheck reports one optional dependency (database, redis)
type HealthCheck func(ctx context.Context) error

// Handlers bundles the endpoint handlers and optional infrastructure
type Handlers struct {
	Predict *handlers.PredictHandler
	Stock   *handlers.StockHandler
	Graph   *handlers.GraphHandler
	History *handlers.HistoryHandler

	// Metrics is optional: /metrics and request metrics are skipped when nil
	Metrics MetricsProvider
	Health  map[string]HealthCheck
}

// MetricsProvider is satisfied by metrics.Recorder
type MetricsProvider interface {
	Handler() http.Handler
	Middleware(next http.Handler) http.Handler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler(h.Health)).Methods("GET")
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics.Handler()).Methods("GET")
	}

	// Forecast endpoints (경로는 기존 프론트엔드와 호환)
	r.HandleFunc("/predict", h.Predict.Predict).Methods("POST")
	r.HandleFunc("/ws/predict", h.Predict.Stream).Methods("GET")
	r.HandleFunc("/stock-info", h.Stock.StockInfo).Methods("POST")
	r.HandleFunc("/graph/{name}", h.Graph.Serve).Methods("GET")

	// API
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/forecasts/{symbol}", h.History.List).Methods("GET")

	// Apply middleware
	r.Use(recoveryMiddleware(log))
	if h.Metrics != nil {
		r.Use(h.Metrics.Middleware)
	}
	r.Use(loggingMiddleware(log))

	// CORS는 라우트 매칭 전에 적용 (preflight OPTIONS)
	return corsMiddleware(r)
}

// healthCheckHandler returns server health status
func healthCheckHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := "ok"
		code := http.StatusOK
		components := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				components[name] = err.Error()
				status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			components[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":     status,
			"service":    "stockcast-api",
			"components": components,
		})
	}
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware allows any origin (the browser frontend runs on another port)
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
