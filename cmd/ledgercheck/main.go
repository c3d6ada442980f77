// Command ledgercheck performs offline integrity checks on a prediction
// ledger file: parseability, per-record schema constraints, dedup and
// retention invariants, and internal consistency of resolved outcomes. Run
// it against a production ledger before restoring or migrating it.
//
// Usage:
//
//	go run ./cmd/ledgercheck -ledger data/predictions.json
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/northlakelabs/weather-oracle/internal/domain"
	"github.com/northlakelabs/weather-oracle/internal/ledger"
	"github.com/northlakelabs/weather-oracle/internal/observability"
)

const retentionDays = 90

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	path := flag.String("ledger", "data/predictions.json", "path to the ledger file")
	flag.Parse()

	if code := run(*path); code != 0 {
		os.Exit(code)
	}
}

func run(path string) int {
	fmt.Println("=== Prediction Ledger Integrity Check ===")
	fmt.Println()

	logger := observability.NewLogger("error", "text")
	store, err := ledger.Open(path, nil, logger, observability.NewMetricsForTesting())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open ledger: %v\n", err)
		return 1
	}
	records := store.LoadAll()

	phases := []*phase{
		validateSchema(records),
		validateUniqueness(records),
		validateRetention(records, time.Now().UTC()),
		validateResolutionConsistency(records),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-44s %s\n", p.name, status)
	}

	var resolved int
	for i := range records {
		if records[i].Resolved {
			resolved++
		}
	}
	fmt.Println()
	fmt.Printf("Records: %d total, %d resolved, %d pending\n", len(records), resolved, len(records)-resolved)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nLedger is consistent.")
		return 0
	}
	fmt.Println("\nIntegrity check FAILED.")
	return 1
}

// validateSchema checks per-record field constraints.
func validateSchema(records []domain.PredictionRecord) *phase {
	p := &phase{name: "Phase 1: Record Schema"}
	stations := domain.DefaultStations()

	for i := range records {
		r := &records[i]
		id := r.ID
		if id == "" {
			p.errorf("record %d: missing ID", i)
			id = fmt.Sprintf("#%d", i)
		} else if _, err := uuid.Parse(id); err != nil {
			p.errorf("record %d: ID %q is not a UUID", i, id)
		}

		if _, ok := stations.Lookup(r.City); !ok {
			p.errorf("ID %s: unknown city %q", id, r.City)
		}
		if _, err := time.Parse(domain.DateLayout, r.Date); err != nil {
			p.errorf("ID %s: malformed date %q", id, r.Date)
		}
		if r.CreatedAt.IsZero() {
			p.errorf("ID %s: createdAt is zero", id)
		}
		if r.PredictedSigma <= 0 {
			p.errorf("ID %s: predictedSigma %g is not positive", id, r.PredictedSigma)
		}
		if r.CI80.Low >= r.CI80.High {
			p.errorf("ID %s: ci80 is inverted (%g >= %g)", id, r.CI80.Low, r.CI80.High)
		}
		if r.CI95.Low > r.CI80.Low || r.CI95.High < r.CI80.High {
			p.errorf("ID %s: ci95 does not contain ci80", id)
		}
	}
	return p
}

// validateUniqueness checks the one-record-per-city-per-day invariant.
func validateUniqueness(records []domain.PredictionRecord) *phase {
	p := &phase{name: "Phase 2: City/Date Uniqueness"}

	seen := map[string]string{}
	for i := range records {
		key := records[i].City + "|" + records[i].Date
		if prev, dup := seen[key]; dup {
			p.errorf("duplicate record for %s on %s (IDs %s, %s)", records[i].City, records[i].Date, prev, records[i].ID)
			continue
		}
		seen[key] = records[i].ID
	}
	return p
}

// validateRetention checks that no record predates the retention window.
func validateRetention(records []domain.PredictionRecord, now time.Time) *phase {
	p := &phase{name: "Phase 3: Retention Window"}

	cutoff := now.AddDate(0, 0, -retentionDays).Format(domain.DateLayout)
	for i := range records {
		if records[i].Date < cutoff {
			p.errorf("ID %s: date %s predates retention cutoff %s", records[i].ID, records[i].Date, cutoff)
		}
	}
	return p
}

// validateResolutionConsistency re-derives each resolved record's outcome
// fields and checks unresolved records carry none.
func validateResolutionConsistency(records []domain.PredictionRecord) *phase {
	p := &phase{name: "Phase 4: Resolution Consistency"}

	for i := range records {
		r := &records[i]
		if !r.Resolved {
			if r.ActualHigh != nil || r.Error != nil || r.Within80 != nil || r.Within95 != nil {
				p.errorf("ID %s: unresolved record carries outcome fields", r.ID)
			}
			continue
		}

		if r.ActualHigh == nil || r.Error == nil || r.Within80 == nil || r.Within95 == nil {
			p.errorf("ID %s: resolved record is missing outcome fields", r.ID)
			continue
		}

		expectedErr := math.Round((*r.ActualHigh-r.PredictedMean)*10) / 10
		if math.Abs(expectedErr-*r.Error) > 1e-9 {
			p.errorf("ID %s: error %g does not match actual-mean %g", r.ID, *r.Error, expectedErr)
		}
		if got, want := *r.Within80, r.CI80.Contains(*r.ActualHigh); got != want {
			p.errorf("ID %s: within80=%v but ci80 containment is %v", r.ID, got, want)
		}
		if got, want := *r.Within95, r.CI95.Contains(*r.ActualHigh); got != want {
			p.errorf("ID %s: within95=%v but ci95 containment is %v", r.ID, got, want)
		}
	}
	return p
}
