package calibration

import (
	"fmt"

	"github.com/northlakelabs/weather-oracle/internal/domain"
)

// confidenceLevels are the interval widths reported alongside every
// calibrated prediction.
var confidenceLevels = []struct {
	name  string
	level float64
}{
	{"50%", 0.50},
	{"80%", 0.80},
	{"95%", 0.95},
}

// ConfidenceIntervals derives symmetric 50/80/95% intervals from a fitted
// mean and sigma, bounds rounded to one decimal place. Fails only if the
// quantile approximation is handed an out-of-domain probability, which
// cannot happen for the fixed levels here unless sigma is NaN.
func ConfidenceIntervals(mu, sigma float64) (domain.ConfidenceIntervalSet, error) {
	set := make(domain.ConfidenceIntervalSet, len(confidenceLevels))
	for _, cl := range confidenceLevels {
		tail := (1 - cl.level) / 2

		low, err := NormalQuantile(tail, mu, sigma)
		if err != nil {
			return nil, fmt.Errorf("interval %s lower bound: %w", cl.name, err)
		}
		high, err := NormalQuantile(1-tail, mu, sigma)
		if err != nil {
			return nil, fmt.Errorf("interval %s upper bound: %w", cl.name, err)
		}

		set[cl.name] = domain.Interval{
			Low:  roundTo(low, 1),
			High: roundTo(high, 1),
		}
	}
	return set, nil
}
