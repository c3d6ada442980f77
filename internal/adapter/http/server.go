// Package http exposes the oracle's REST surface plus health, readiness,
// and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/northlakelabs/weather-oracle/internal/accuracy"
	"github.com/northlakelabs/weather-oracle/internal/domain"
	"github.com/northlakelabs/weather-oracle/internal/service"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Oracle is the service surface the HTTP layer serves.
type Oracle interface {
	Cities() domain.StationDirectory
	Predict(ctx context.Context, city string) (service.Prediction, error)
	PredictAll(ctx context.Context) map[string]service.Prediction
	Accuracy(ctx context.Context) (accuracy.Stats, error)
}

// Server exposes prediction, accuracy, health, readiness, and metrics routes.
type Server struct {
	httpServer *http.Server
	oracle     Oracle
	logger     *slog.Logger
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(addr string, oracle Oracle, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		oracle: oracle,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /cities", s.handleCities)
	mux.HandleFunc("GET /predict/all", s.handlePredictAll)
	mux.HandleFunc("GET /predict/{city}", s.handlePredict)
	mux.HandleFunc("GET /accuracy", s.handleAccuracy)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleCities(w http.ResponseWriter, _ *http.Request) {
	stations := s.oracle.Cities()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(stations),
		"cities": stations,
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	city := r.PathValue("city")

	prediction, err := s.oracle.Predict(r.Context(), city)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownCity):
			writeError(w, http.StatusNotFound, err)
		case errors.Is(err, service.ErrForecastUnavailable):
			writeError(w, http.StatusServiceUnavailable, err)
		default:
			s.logger.Error("prediction failed", "city", city, "error", err)
			writeError(w, http.StatusInternalServerError, errors.New("internal error"))
		}
		return
	}

	writeJSON(w, http.StatusOK, prediction)
}

func (s *Server) handlePredictAll(w http.ResponseWriter, r *http.Request) {
	predictions := s.oracle.PredictAll(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"count":       len(predictions),
		"predictions": predictions,
	})
}

func (s *Server) handleAccuracy(w http.ResponseWriter, r *http.Request) {
	stats, err := s.oracle.Accuracy(r.Context())
	if err != nil {
		s.logger.Error("accuracy aggregation failed", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
