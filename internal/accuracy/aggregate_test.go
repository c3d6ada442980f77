package accuracy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northlakelabs/weather-oracle/internal/domain"
)

func resolvedRecord(city, date string, errF float64, within80, within95 bool) domain.PredictionRecord {
	return domain.PredictionRecord{
		City:     city,
		Date:     date,
		Resolved: true,
		Error:    &errF,
		Within80: &within80,
		Within95: &within95,
	}
}

func TestAggregate(t *testing.T) {
	t.Run("no resolved records reports counts only", func(t *testing.T) {
		records := []domain.PredictionRecord{
			{City: "NYC", Date: "2026-08-30"},
			{City: "Denver", Date: "2026-08-30"},
		}

		stats := Aggregate(records)

		assert.Equal(t, 2, stats.TotalPredictions)
		assert.Equal(t, 0, stats.Resolved)
		assert.Equal(t, 2, stats.Unresolved)
		assert.NotEmpty(t, stats.Message)
		assert.Nil(t, stats.Overall)
		assert.Empty(t, stats.PerCity)
	})

	t.Run("error statistics over two resolutions", func(t *testing.T) {
		records := []domain.PredictionRecord{
			resolvedRecord("NYC", "2026-08-28", 1.0, true, true),
			resolvedRecord("NYC", "2026-08-29", -3.0, false, true),
		}

		stats := Aggregate(records)
		require.NotNil(t, stats.Overall)

		assert.Equal(t, 2.0, stats.Overall.MAE)
		assert.Equal(t, -1.0, stats.Overall.Bias)
		assert.InDelta(t, 2.24, stats.Overall.RMSE, 0.005)
		assert.Equal(t, 50.0, stats.Overall.Within80Pct)
		assert.Equal(t, 100.0, stats.Overall.Within95Pct)
	})

	t.Run("per-city breakdown omits cities with nothing resolved", func(t *testing.T) {
		records := []domain.PredictionRecord{
			resolvedRecord("NYC", "2026-08-28", 1.5, true, true),
			resolvedRecord("Denver", "2026-08-28", -2.5, true, true),
			{City: "Miami", Date: "2026-08-30"}, // unresolved
		}

		stats := Aggregate(records)

		require.Len(t, stats.PerCity, 2)
		assert.Contains(t, stats.PerCity, "NYC")
		assert.Contains(t, stats.PerCity, "Denver")
		assert.NotContains(t, stats.PerCity, "Miami")

		assert.Equal(t, 1.5, stats.PerCity["NYC"].MAE)
		assert.Equal(t, -2.5, stats.PerCity["Denver"].Bias)
	})

	t.Run("tracking window spans earliest to latest resolved date", func(t *testing.T) {
		records := []domain.PredictionRecord{
			resolvedRecord("NYC", "2026-08-20", 0.5, true, true),
			resolvedRecord("NYC", "2026-08-25", 0.5, true, true),
			resolvedRecord("Denver", "2026-08-15", 0.5, true, true),
			{City: "NYC", Date: "2026-08-30"}, // unresolved, ignored
		}

		stats := Aggregate(records)

		assert.Equal(t, "2026-08-15", stats.TrackingSince)
		assert.Equal(t, "2026-08-25", stats.LastResolved)
	})

	t.Run("empty ledger", func(t *testing.T) {
		stats := Aggregate(nil)
		assert.Zero(t, stats.TotalPredictions)
		assert.NotEmpty(t, stats.Message)
	})
}
