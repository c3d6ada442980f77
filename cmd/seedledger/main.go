// Command seedledger generates a synthetic prediction ledger so the accuracy
// endpoints have history to aggregate during local development. It drives the
// real calibration engine and ledger code so the output file is structurally
// identical to one produced in production.
//
// Usage:
//
//	go run ./cmd/seedledger -out data/predictions.json -days 30 -seed 1
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/northlakelabs/weather-oracle/internal/calibration"
	"github.com/northlakelabs/weather-oracle/internal/domain"
	"github.com/northlakelabs/weather-oracle/internal/ledger"
	"github.com/northlakelabs/weather-oracle/internal/observability"
)

// seedBaseHighs are plausible late-summer daily highs per city, used as the
// center of the synthetic forecast distribution.
var seedBaseHighs = map[string]float64{
	"NYC":          82,
	"Chicago":      80,
	"Miami":        90,
	"Austin":       97,
	"Denver":       88,
	"Houston":      95,
	"Philadelphia": 84,
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/predictions.json", "output path for the ledger file")
	days := flag.Int("days", 30, "number of days of history to generate")
	seed := flag.Int64("seed", 1, "random seed for reproducible output")
	flag.Parse()

	if *days < 1 || *days > 90 {
		return fmt.Errorf("-days must be between 1 and 90")
	}

	rng := rand.New(rand.NewSource(*seed))
	logger := observability.NewLogger("warn", "text")
	metrics := observability.NewMetricsForTesting()

	// Start the fake clock at 18:00 UTC on the first seeded day and walk it
	// forward one day at a time so the ledger's own dating and pruning apply.
	today := time.Now().UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(*days - 1)).Add(18 * time.Hour)
	clock := clockwork.NewFakeClockAt(start)

	store, err := ledger.Open(*out, clock, logger, metrics)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}

	engine := calibration.NewEngine(calibration.DefaultSigmaTable(), clock)
	stations := domain.DefaultStations()

	var logged, resolved int
	for d := 0; d < *days; d++ {
		date := domain.Today(clock)

		for _, city := range stations.Cities() {
			forecastHigh := float64(int(seedBaseHighs[city] + rng.NormFloat64()*4))
			current := forecastHigh - 2 + rng.NormFloat64()*2

			result := engine.Calibrate(city, forecastHigh, &current, nil)
			ci, err := calibration.ConfidenceIntervals(result.Mu, result.Sigma)
			if err != nil {
				return fmt.Errorf("confidence intervals for %s: %w", city, err)
			}
			if err := store.Log(city, forecastHigh, result.Mu, result.Sigma, ci); err != nil {
				return fmt.Errorf("log %s %s: %w", city, date, err)
			}
			logged++
		}

		// Every day except the last has fully elapsed; resolve it with a
		// synthetic observed high drawn around the predicted mean.
		if d < *days-1 {
			n, err := resolveDay(store, date, rng)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", date, err)
			}
			resolved += n
		}

		clock.Advance(24 * time.Hour)
	}

	fmt.Printf("wrote %s: %d predictions, %d resolved\n", *out, logged, resolved)
	return nil
}

// resolveDay marks one date's records resolved, mirroring the shape the
// resolution pass produces.
func resolveDay(store *ledger.Ledger, date string, rng *rand.Rand) (int, error) {
	var n int
	err := store.Update(func(records []domain.PredictionRecord) bool {
		for i := range records {
			if records[i].Date != date || records[i].Resolved {
				continue
			}
			actual := round1(records[i].PredictedMean + rng.NormFloat64()*records[i].PredictedSigma)
			errF := round1(actual - records[i].PredictedMean)
			w80 := records[i].CI80.Contains(actual)
			w95 := records[i].CI95.Contains(actual)

			records[i].ActualHigh = &actual
			records[i].Resolved = true
			records[i].Error = &errF
			records[i].Within80 = &w80
			records[i].Within95 = &w95
			n++
		}
		return n > 0
	})
	return n, err
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
