// Package accuracy reduces resolved ledger records into forecast-error
// summary statistics.
package accuracy

import (
	"math"

	"github.com/northlakelabs/weather-oracle/internal/domain"
)

// ErrorStats summarizes prediction error over a set of resolved records.
type ErrorStats struct {
	Resolved    int     `json:"resolved"`
	MAE         float64 `json:"mae"`
	RMSE        float64 `json:"rmse"`
	Bias        float64 `json:"bias"`
	Within80Pct float64 `json:"within80Pct"`
	Within95Pct float64 `json:"within95Pct"`
}

// Stats is the full accuracy report: overall and per-city error statistics
// plus tracking-window metadata.
type Stats struct {
	TotalPredictions int    `json:"totalPredictions"`
	Resolved         int    `json:"resolved"`
	Unresolved       int    `json:"unresolved"`
	Message          string `json:"message,omitempty"`

	Overall *ErrorStats           `json:"overall,omitempty"`
	PerCity map[string]ErrorStats `json:"perCity,omitempty"`

	TrackingSince string `json:"trackingSince,omitempty"`
	LastResolved  string `json:"lastResolved,omitempty"`
}

// Aggregate computes MAE, RMSE, bias, and interval coverage over the
// resolved subset of records, overall and per city. Cities with no resolved
// records are omitted from the per-city breakdown. Aggregate is pure: it
// never mutates the ledger.
func Aggregate(records []domain.PredictionRecord) Stats {
	stats := Stats{TotalPredictions: len(records)}

	var resolved []domain.PredictionRecord
	for _, rec := range records {
		if rec.Resolved {
			resolved = append(resolved, rec)
		}
	}
	stats.Resolved = len(resolved)
	stats.Unresolved = len(records) - len(resolved)

	if len(resolved) == 0 {
		stats.Message = "no predictions resolved yet; accuracy statistics appear once a tracked day completes"
		return stats
	}

	overall := reduce(resolved)
	stats.Overall = &overall

	stats.PerCity = make(map[string]ErrorStats)
	byCity := make(map[string][]domain.PredictionRecord)
	for _, rec := range resolved {
		byCity[rec.City] = append(byCity[rec.City], rec)
	}
	for city, cityRecords := range byCity {
		stats.PerCity[city] = reduce(cityRecords)
	}

	earliest, latest := resolved[0].Date, resolved[0].Date
	for _, rec := range resolved[1:] {
		if rec.Date < earliest {
			earliest = rec.Date
		}
		if rec.Date > latest {
			latest = rec.Date
		}
	}
	stats.TrackingSince = earliest
	stats.LastResolved = latest

	return stats
}

// reduce computes error statistics over records that are all resolved.
func reduce(records []domain.PredictionRecord) ErrorStats {
	var sumAbs, sumSq, sum float64
	var in80, in95 int

	for _, rec := range records {
		e := 0.0
		if rec.Error != nil {
			e = *rec.Error
		}
		sumAbs += math.Abs(e)
		sumSq += e * e
		sum += e
		if rec.Within80 != nil && *rec.Within80 {
			in80++
		}
		if rec.Within95 != nil && *rec.Within95 {
			in95++
		}
	}

	n := float64(len(records))
	return ErrorStats{
		Resolved:    len(records),
		MAE:         round2(sumAbs / n),
		RMSE:        round2(math.Sqrt(sumSq / n)),
		Bias:        round2(sum / n),
		Within80Pct: round1(100 * float64(in80) / n),
		Within95Pct: round1(100 * float64(in95) / n),
	}
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }
func round2(x float64) float64 { return math.Round(x*100) / 100 }
