package domain

import (
	"context"
	"time"
)

// ForecastSource supplies the point forecast for a city. Implementations are
// external collaborators (e.g. the NWS API) and may fail transiently; callers
// treat failures as recoverable and retry on the next attempt.
type ForecastSource interface {
	Forecast(ctx context.Context, profile StationProfile) (Forecast, error)
}

// ObservationSource supplies live and historical station readings.
type ObservationSource interface {
	// Latest returns the most recent observation for a station.
	Latest(ctx context.Context, stationID string) (Observation, error)

	// Readings returns all temperature readings for a station inside the
	// [from, to) UTC window. Calls are idempotent and safe to retry.
	Readings(ctx context.Context, stationID string, from, to time.Time) ([]Reading, error)
}
