// Package ledger owns the durable collection of prediction records. It is
// the sole writer of the backing store: both the prediction path and the
// resolution engine mutate records through its operations, which serialize
// every load-mutate-persist cycle behind a single mutex.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/northlakelabs/weather-oracle/internal/domain"
	"github.com/northlakelabs/weather-oracle/internal/observability"
)

// ErrCorruptStore is returned when the ledger file exists but cannot be
// parsed. A missing file is a recoverable cold start; a corrupt one is not,
// since silently starting empty would discard accuracy history.
var ErrCorruptStore = errors.New("ledger store is corrupt")

// retentionDays bounds how far back the ledger keeps records. Eviction
// happens as a side effect of the next write, not proactively.
const retentionDays = 90

// Ledger is a file-backed, deduplicated store of one PredictionRecord per
// (city, UTC date) pair.
type Ledger struct {
	path    string
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	records []domain.PredictionRecord
}

// Open loads the ledger from path. A missing file starts an empty ledger;
// an unparseable file returns ErrCorruptStore and requires operator
// intervention rather than silent data loss.
func Open(path string, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) (*Ledger, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	l := &Ledger{
		path:    path,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}

	// Remove any half-written temp file left by a crash mid-persist.
	if _, err := os.Stat(path + ".tmp"); err == nil {
		_ = os.Remove(path + ".tmp")
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("ledger file not found, starting empty", "path", path)
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	if err := json.Unmarshal(data, &l.records); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrCorruptStore, path, err)
	}

	logger.Info("ledger loaded", "path", path, "records", len(l.records))
	metrics.LedgerRecords.Set(float64(len(l.records)))
	return l, nil
}

// Log appends an unresolved record for (city, today) unless one already
// exists, prunes records past retention, and persists. Calling it twice for
// the same city on the same UTC day leaves exactly one record.
func (l *Ledger) Log(city string, forecastHigh, mu, sigma float64, ci domain.ConfidenceIntervalSet) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now().UTC()
	today := domain.Today(l.clock)

	exists := false
	for i := range l.records {
		if l.records[i].City == city && l.records[i].Date == today {
			exists = true
			break
		}
	}

	if !exists {
		l.records = append(l.records, domain.PredictionRecord{
			ID:             uuid.New().String(),
			City:           city,
			Date:           today,
			CreatedAt:      now,
			ForecastHigh:   forecastHigh,
			PredictedMean:  mu,
			PredictedSigma: sigma,
			CI80:           ci["80%"],
			CI95:           ci["95%"],
		})
	}

	l.prune(today)

	if err := l.persist(); err != nil {
		return err
	}

	if !exists {
		l.logger.Debug("prediction logged", "city", city, "date", today, "mu", mu, "sigma", sigma)
	}
	return nil
}

// LoadAll returns a snapshot of the current ledger contents.
func (l *Ledger) LoadAll() []domain.PredictionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.PredictionRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Update runs fn over the ledger contents under the write lock. fn mutates
// records in place and reports whether anything changed; the ledger persists
// only on change. fn must not block on I/O.
func (l *Ledger) Update(fn func(records []domain.PredictionRecord) bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !fn(l.records) {
		return nil
	}
	return l.persist()
}

// prune drops records whose date fell outside the rolling retention window.
// Caller must hold l.mu.
func (l *Ledger) prune(today string) {
	cutoff := l.clock.Now().UTC().AddDate(0, 0, -retentionDays).Format(domain.DateLayout)

	kept := l.records[:0]
	dropped := 0
	for _, rec := range l.records {
		// ISO dates compare correctly as strings.
		if rec.Date >= cutoff {
			kept = append(kept, rec)
		} else {
			dropped++
		}
	}
	l.records = kept

	if dropped > 0 {
		l.logger.Info("pruned expired ledger records", "dropped", dropped, "cutoff", cutoff, "today", today)
	}
}

// persist writes the full record set atomically: marshal, write to a temp
// file, rename over the real one. Caller must hold l.mu.
func (l *Ledger) persist() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	data, err := json.MarshalIndent(l.records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename ledger: %w", err)
	}

	l.metrics.LedgerRecords.Set(float64(len(l.records)))
	return nil
}
