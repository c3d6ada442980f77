// Package service orchestrates the prediction path: fetch collaborator
// data, calibrate, derive intervals, and log to the ledger.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/northlakelabs/weather-oracle/internal/accuracy"
	"github.com/northlakelabs/weather-oracle/internal/calibration"
	"github.com/northlakelabs/weather-oracle/internal/domain"
	"github.com/northlakelabs/weather-oracle/internal/ledger"
	"github.com/northlakelabs/weather-oracle/internal/observability"
	"github.com/northlakelabs/weather-oracle/internal/resolution"
)

// ModelName identifies the calibration model in API responses.
const ModelName = "Gaussian NWS-calibrated v1.0"

var (
	// ErrUnknownCity is returned for cities outside the station directory.
	ErrUnknownCity = errors.New("unknown city")

	// ErrForecastUnavailable is returned when the forecast collaborator has
	// no high temperature for a city. The condition is transient.
	ErrForecastUnavailable = errors.New("forecast unavailable")
)

// ObservationSummary is the conditions block echoed with a prediction.
type ObservationSummary struct {
	Humidity     *float64  `json:"humidity"`
	WindSpeedKMH *float64  `json:"wind_speed_kmh"`
	Description  string    `json:"description"`
	Timestamp    time.Time `json:"timestamp"`
}

// Prediction is a served calibrated prediction for one city.
type Prediction struct {
	Timestamp           time.Time                    `json:"timestamp"`
	City                string                       `json:"city"`
	Station             string                       `json:"station"`
	Model               string                       `json:"model"`
	CurrentTempF        *float64                     `json:"current_temp_f"`
	ForecastHighF       float64                      `json:"forecast_high_f"`
	ForecastLowF        *float64                     `json:"forecast_low_f"`
	Result              domain.CalibrationResult     `json:"prediction"`
	ConfidenceIntervals domain.ConfidenceIntervalSet `json:"confidence_intervals"`
	Observation         *ObservationSummary          `json:"observation"`
}

// Service exposes the oracle's operations to the transport layer.
type Service struct {
	stations     domain.StationDirectory
	forecasts    domain.ForecastSource
	observations domain.ObservationSource
	engine       *calibration.Engine
	ledger       *ledger.Ledger
	resolver     *resolution.Resolver
	clock        clockwork.Clock
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// New creates a Service. A nil clock uses wall time.
func New(
	stations domain.StationDirectory,
	forecasts domain.ForecastSource,
	observations domain.ObservationSource,
	engine *calibration.Engine,
	l *ledger.Ledger,
	resolver *resolution.Resolver,
	clock clockwork.Clock,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		stations:     stations,
		forecasts:    forecasts,
		observations: observations,
		engine:       engine,
		ledger:       l,
		resolver:     resolver,
		clock:        clock,
		logger:       logger,
		metrics:      metrics,
	}
}

// CheckReadiness reports whether the service can serve predictions.
func (s *Service) CheckReadiness(_ context.Context) error {
	if len(s.stations) == 0 {
		return errors.New("no stations configured")
	}
	if s.ledger == nil {
		return errors.New("ledger not open")
	}
	return nil
}

// Cities returns the station directory for discovery endpoints.
func (s *Service) Cities() domain.StationDirectory {
	return s.stations
}

// Predict serves a calibrated prediction for one city and logs it to the
// ledger. The latest observation is best-effort: if it cannot be fetched the
// prediction degrades to forecast-only calibration. A missing forecast high
// is fatal for the request but transient.
func (s *Service) Predict(ctx context.Context, city string) (Prediction, error) {
	profile, ok := s.stations.Lookup(city)
	if !ok {
		return Prediction{}, fmt.Errorf("%w: %s", ErrUnknownCity, city)
	}

	forecast, obs := s.fetchCollaborators(ctx, city, profile)

	if forecast.High == nil {
		s.metrics.PredictionErrors.WithLabelValues(city, "forecast").Inc()
		return Prediction{}, fmt.Errorf("%w: %s", ErrForecastUnavailable, city)
	}

	var currentTempF *float64
	if obs != nil {
		currentTempF = obs.TempF
	}

	result := s.engine.Calibrate(city, *forecast.High, currentTempF, nil)

	ci, err := calibration.ConfidenceIntervals(result.Mu, result.Sigma)
	if err != nil {
		// Cannot happen for the fixed levels unless the model itself is
		// broken; surface loudly rather than serve wrong numbers.
		return Prediction{}, fmt.Errorf("derive confidence intervals for %s: %w", city, err)
	}

	if err := s.ledger.Log(city, *forecast.High, result.Mu, result.Sigma, ci); err != nil {
		// The prediction is still valid; losing one accuracy record is
		// preferable to failing the request, but it must be loud.
		s.metrics.PredictionErrors.WithLabelValues(city, "ledger").Inc()
		s.logger.Error("failed to log prediction to ledger", "city", city, "error", err)
	}

	s.metrics.PredictionsServed.WithLabelValues(city).Inc()

	p := Prediction{
		Timestamp:           s.clock.Now().UTC(),
		City:                city,
		Station:             profile.DisplayName,
		Model:               ModelName,
		CurrentTempF:        currentTempF,
		ForecastHighF:       *forecast.High,
		ForecastLowF:        forecast.Low,
		Result:              result,
		ConfidenceIntervals: ci,
	}
	if obs != nil {
		p.Observation = &ObservationSummary{
			Humidity:     obs.Humidity,
			WindSpeedKMH: obs.WindSpeedKMH,
			Description:  obs.Description,
			Timestamp:    obs.Timestamp,
		}
	}
	return p, nil
}

// PredictAll fans out over every configured city concurrently. Cities whose
// collaborators fail are skipped; the rest are returned, so a partial NWS
// outage degrades the response instead of failing it.
func (s *Service) PredictAll(ctx context.Context) map[string]Prediction {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]Prediction)
	)

	for _, city := range s.stations.Cities() {
		wg.Add(1)
		go func() {
			defer wg.Done()

			p, err := s.Predict(ctx, city)
			if err != nil {
				s.logger.Warn("prediction failed for city", "city", city, "error", err)
				return
			}

			mu.Lock()
			results[city] = p
			mu.Unlock()
		}()
	}

	wg.Wait()
	return results
}

// Resolve triggers a resolution pass and returns the full ledger.
func (s *Service) Resolve(ctx context.Context) ([]domain.PredictionRecord, error) {
	return s.resolver.Resolve(ctx)
}

// Accuracy resolves any newly eligible records, then aggregates the ledger
// into summary statistics.
func (s *Service) Accuracy(ctx context.Context) (accuracy.Stats, error) {
	records, err := s.resolver.Resolve(ctx)
	if err != nil {
		return accuracy.Stats{}, fmt.Errorf("resolve before aggregation: %w", err)
	}
	return accuracy.Aggregate(records), nil
}

// fetchCollaborators fetches the forecast and latest observation
// concurrently. The observation is optional and failures leave it nil.
func (s *Service) fetchCollaborators(ctx context.Context, city string, profile domain.StationProfile) (domain.Forecast, *domain.Observation) {
	var (
		wg       sync.WaitGroup
		forecast domain.Forecast
		obs      *domain.Observation
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		f, err := s.forecasts.Forecast(ctx, profile)
		if err != nil {
			s.logger.Warn("forecast fetch failed", "city", city, "error", err)
			return
		}
		forecast = f
	}()
	go func() {
		defer wg.Done()
		o, err := s.observations.Latest(ctx, profile.StationID)
		if err != nil {
			s.metrics.PredictionErrors.WithLabelValues(city, "observation").Inc()
			s.logger.Warn("observation fetch failed", "city", city, "error", err)
			return
		}
		o.City = city
		obs = &o
	}()
	wg.Wait()

	return forecast, obs
}
