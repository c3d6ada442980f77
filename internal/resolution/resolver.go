// Package resolution matches elapsed predictions against realized daily
// highs and fills in error and coverage fields on the ledger.
package resolution

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/northlakelabs/weather-oracle/internal/domain"
	"github.com/northlakelabs/weather-oracle/internal/ledger"
	"github.com/northlakelabs/weather-oracle/internal/observability"
)

// OutcomePublisher receives newly resolved records, e.g. for a downstream
// Kafka topic. Publishing is best-effort: failures are logged, never fatal.
type OutcomePublisher interface {
	PublishOutcomes(ctx context.Context, records []domain.PredictionRecord) error
}

// Resolver walks unresolved past-dated ledger records and resolves them
// against a day's worth of station readings.
type Resolver struct {
	ledger       *ledger.Ledger
	observations domain.ObservationSource
	stations     domain.StationDirectory
	publisher    OutcomePublisher
	clock        clockwork.Clock
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// New creates a Resolver. publisher may be nil when outcome publishing is
// disabled; a nil clock uses wall time.
func New(
	l *ledger.Ledger,
	observations domain.ObservationSource,
	stations domain.StationDirectory,
	publisher OutcomePublisher,
	clock clockwork.Clock,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Resolver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Resolver{
		ledger:       l,
		observations: observations,
		stations:     stations,
		publisher:    publisher,
		clock:        clock,
		logger:       logger,
		metrics:      metrics,
	}
}

// outcome is a computed resolution for one record, keyed by record ID when
// applied back to the ledger.
type outcome struct {
	actualHigh float64
	errF       float64
	within80   bool
	within95   bool
}

// Resolve resolves every eligible record and returns the full ledger
// contents afterward. A record is eligible once its UTC day has fully
// elapsed; records whose observation fetch fails or yields no readings stay
// unresolved and are retried on the next invocation. Observation fetches run
// outside the ledger lock, so concurrent prediction logging is not blocked
// on network I/O.
func (r *Resolver) Resolve(ctx context.Context) ([]domain.PredictionRecord, error) {
	r.metrics.ResolutionRuns.Inc()
	now := r.clock.Now().UTC()

	outcomes := make(map[string]outcome)
	for _, rec := range r.ledger.LoadAll() {
		if rec.Resolved {
			continue
		}

		start, end, err := domain.DayWindow(rec.Date)
		if err != nil {
			r.logger.Warn("ledger record has malformed date", "city", rec.City, "date", rec.Date, "error", err)
			continue
		}
		if now.Before(end) {
			// Day not over yet; leave untouched.
			continue
		}

		profile, ok := r.stations.Lookup(rec.City)
		if !ok {
			r.logger.Warn("no station configured for ledger record", "city", rec.City, "date", rec.Date)
			continue
		}

		readings, err := r.observations.Readings(ctx, profile.StationID, start, end)
		if err != nil {
			r.logger.Warn("observation fetch failed, will retry next pass",
				"city", rec.City, "date", rec.Date, "station", profile.StationID, "error", err)
			continue
		}

		high, ok := dayMax(readings)
		if !ok {
			r.logger.Debug("no valid readings for day yet", "city", rec.City, "date", rec.Date)
			continue
		}

		outcomes[rec.ID] = outcome{
			actualHigh: high,
			errF:       round1(high - rec.PredictedMean),
			within80:   rec.CI80.Contains(high),
			within95:   rec.CI95.Contains(high),
		}
	}

	var resolved []domain.PredictionRecord
	if len(outcomes) > 0 {
		err := r.ledger.Update(func(records []domain.PredictionRecord) bool {
			for i := range records {
				o, ok := outcomes[records[i].ID]
				if !ok || records[i].Resolved {
					continue
				}
				actual, errF := o.actualHigh, o.errF
				w80, w95 := o.within80, o.within95
				records[i].ActualHigh = &actual
				records[i].Resolved = true
				records[i].Error = &errF
				records[i].Within80 = &w80
				records[i].Within95 = &w95
				resolved = append(resolved, records[i])
			}
			return len(resolved) > 0
		})
		if err != nil {
			return nil, err
		}
	}

	if len(resolved) > 0 {
		r.metrics.RecordsResolved.Add(float64(len(resolved)))
		r.logger.Info("resolution pass complete", "resolved", len(resolved))
		r.publish(ctx, resolved)
	}

	return r.ledger.LoadAll(), nil
}

func (r *Resolver) publish(ctx context.Context, resolved []domain.PredictionRecord) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.PublishOutcomes(ctx, resolved); err != nil {
		r.logger.Warn("outcome publish failed", "records", len(resolved), "error", err)
		return
	}
	r.metrics.OutcomesPublished.Add(float64(len(resolved)))
}

// dayMax returns the highest temperature among the readings in Fahrenheit,
// converting Celsius-tagged values first. Returns false when no valid
// reading exists.
func dayMax(readings []domain.Reading) (float64, bool) {
	high := math.Inf(-1)
	found := false
	for _, reading := range readings {
		if math.IsNaN(reading.Value) {
			continue
		}
		value := reading.Value
		if strings.Contains(reading.Unit, "degC") {
			value = domain.CToF(value)
		}
		if value > high {
			high = value
		}
		found = true
	}
	if !found {
		return 0, false
	}
	return round1(high), true
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
