package ledger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northlakelabs/weather-oracle/internal/domain"
	"github.com/northlakelabs/weather-oracle/internal/observability"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCI() domain.ConfidenceIntervalSet {
	return domain.ConfidenceIntervalSet{
		"50%": {Low: 78.6, High: 80.8},
		"80%": {Low: 77.7, High: 81.7},
		"95%": {Low: 76.6, High: 82.8},
	}
}

func openTestLedger(t *testing.T, clock clockwork.Clock) (*Ledger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.json")
	l, err := Open(path, clock, testLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	return l, path
}

func TestOpen(t *testing.T) {
	t.Run("missing file starts empty", func(t *testing.T) {
		l, _ := openTestLedger(t, clockwork.NewFakeClock())
		assert.Empty(t, l.LoadAll())
	})

	t.Run("corrupt file is a hard failure", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ledger.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

		_, err := Open(path, clockwork.NewFakeClock(), testLogger(), observability.NewMetricsForTesting())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCorruptStore)
	})

	t.Run("removes stale temp file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "ledger.json")
		require.NoError(t, os.WriteFile(path+".tmp", []byte("partial"), 0o644))

		_, err := Open(path, clockwork.NewFakeClock(), testLogger(), observability.NewMetricsForTesting())
		require.NoError(t, err)
		assert.NoFileExists(t, path+".tmp")
	})
}

func TestLog(t *testing.T) {
	t.Run("logs one record per city and day", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC))
		l, _ := openTestLedger(t, clock)

		require.NoError(t, l.Log("NYC", 80, 79.7, 1.56, testCI()))
		require.NoError(t, l.Log("NYC", 81, 80.2, 1.40, testCI()))

		records := l.LoadAll()
		require.Len(t, records, 1)

		rec := records[0]
		assert.Equal(t, "NYC", rec.City)
		assert.Equal(t, "2026-08-30", rec.Date)
		assert.Equal(t, 80.0, rec.ForecastHigh, "first write wins the dedup")
		assert.Equal(t, 79.7, rec.PredictedMean)
		assert.Equal(t, 1.56, rec.PredictedSigma)
		assert.Equal(t, domain.Interval{Low: 77.7, High: 81.7}, rec.CI80)
		assert.Equal(t, domain.Interval{Low: 76.6, High: 82.8}, rec.CI95)
		assert.False(t, rec.Resolved)
		assert.Nil(t, rec.ActualHigh)
		assert.NotEmpty(t, rec.ID)
	})

	t.Run("different cities on the same day coexist", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		l, _ := openTestLedger(t, clock)

		require.NoError(t, l.Log("NYC", 80, 79.7, 1.56, testCI()))
		require.NoError(t, l.Log("Denver", 91, 90.5, 2.5, testCI()))

		assert.Len(t, l.LoadAll(), 2)
	})

	t.Run("same city on a new day gets a new record", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 29, 23, 0, 0, 0, time.UTC))
		l, _ := openTestLedger(t, clock)

		require.NoError(t, l.Log("NYC", 80, 79.7, 1.56, testCI()))
		clock.Advance(2 * time.Hour) // crosses the UTC day boundary
		require.NoError(t, l.Log("NYC", 78, 77.9, 2.1, testCI()))

		records := l.LoadAll()
		require.Len(t, records, 2)
		assert.NotEqual(t, records[0].Date, records[1].Date)
	})

	t.Run("prunes records older than ninety days", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))
		l, _ := openTestLedger(t, clock)

		require.NoError(t, l.Log("NYC", 40, 39.8, 3.0, testCI()))
		clock.Advance(91 * 24 * time.Hour)
		require.NoError(t, l.Log("NYC", 70, 69.5, 2.8, testCI()))

		records := l.LoadAll()
		require.Len(t, records, 1)
		assert.Equal(t, "2026-04-11", records[0].Date)
	})

	t.Run("concurrent writes for distinct cities lose nothing", func(t *testing.T) {
		l, _ := openTestLedger(t, clockwork.NewFakeClock())
		cities := []string{"NYC", "Chicago", "Miami", "Austin", "Denver", "Houston", "Philadelphia"}

		var wg sync.WaitGroup
		for _, city := range cities {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, l.Log(city, 80, 79.7, 1.56, testCI()))
			}()
		}
		wg.Wait()

		assert.Len(t, l.LoadAll(), len(cities))
	})
}

func TestPersistence(t *testing.T) {
	t.Run("records survive reopen", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC))
		l, path := openTestLedger(t, clock)
		require.NoError(t, l.Log("NYC", 80, 79.7, 1.56, testCI()))

		reopened, err := Open(path, clock, testLogger(), observability.NewMetricsForTesting())
		require.NoError(t, err)

		records := reopened.LoadAll()
		require.Len(t, records, 1)
		assert.Equal(t, "NYC", records[0].City)
		assert.Equal(t, 79.7, records[0].PredictedMean)
	})

	t.Run("update persists only on change", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		l, path := openTestLedger(t, clock)
		require.NoError(t, l.Log("NYC", 80, 79.7, 1.56, testCI()))

		before, err := os.ReadFile(path)
		require.NoError(t, err)

		require.NoError(t, l.Update(func(records []domain.PredictionRecord) bool {
			return false
		}))
		after, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, before, after)

		actual := 82.4
		require.NoError(t, l.Update(func(records []domain.PredictionRecord) bool {
			records[0].Resolved = true
			records[0].ActualHigh = &actual
			return true
		}))

		reopened, err := Open(path, clock, testLogger(), observability.NewMetricsForTesting())
		require.NoError(t, err)
		records := reopened.LoadAll()
		require.Len(t, records, 1)
		assert.True(t, records[0].Resolved)
		require.NotNil(t, records[0].ActualHigh)
		assert.Equal(t, 82.4, *records[0].ActualHigh)
	})
}
