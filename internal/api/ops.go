// Package api exposes the operational HTTP surface: health, Prometheus
// metrics, and a JSON view of the engine's own counters.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/phrazzld/scry-batch/internal/batch"
)

// EngineStats is the slice of the engine the ops surface needs.
type EngineStats interface {
	Metrics() batch.MetricsSnapshot
	ResetMetrics()
	Breaker() batch.BreakerStats
}

// OpsHandler serves the operational endpoints.
type OpsHandler struct {
	engine EngineStats
	logger *slog.Logger
}

// NewOpsHandler creates an OpsHandler for the given engine.
func NewOpsHandler(engine EngineStats, logger *slog.Logger) *OpsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpsHandler{
		engine: engine,
		logger: logger.With("component", "ops_handler"),
	}
}

// NewRouter assembles the ops router: health check, Prometheus scrape
// endpoint for the given registry, and the engine's JSON metrics.
func NewRouter(handler *OpsHandler, registry *prometheus.Registry) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handler.Health)
	r.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Route("/internal/engine", func(r chi.Router) {
		r.Get("/metrics", handler.EngineMetrics)
		r.Post("/metrics/reset", handler.ResetMetrics)
	})

	return r
}

// engineMetricsResponse is the JSON body of GET /internal/engine/metrics.
type engineMetricsResponse struct {
	Metrics        batch.MetricsSnapshot `json:"metrics"`
	CircuitBreaker batch.BreakerStats    `json:"circuit_breaker"`
}

// Health responds 200 while the process is up.
func (h *OpsHandler) Health(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// EngineMetrics returns a snapshot of the engine metrics and breaker state.
func (h *OpsHandler) EngineMetrics(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, http.StatusOK, engineMetricsResponse{
		Metrics:        h.engine.Metrics(),
		CircuitBreaker: h.engine.Breaker(),
	})
}

// ResetMetrics zeroes the engine metrics. Circuit-breaker state is not
// touched.
func (h *OpsHandler) ResetMetrics(w http.ResponseWriter, _ *http.Request) {
	h.engine.ResetMetrics()
	h.logger.Info("engine metrics reset via ops endpoint")
	w.WriteHeader(http.StatusNoContent)
}

func (h *OpsHandler) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
