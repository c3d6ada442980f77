package calibration

import (
	"fmt"
	"math"

	"github.com/jonboulle/clockwork"

	"github.com/northlakelabs/weather-oracle/internal/domain"
)

const (
	// forecastWindowHours is the length of the half-day window over which a
	// daily-high forecast plays out.
	forecastWindowHours = 12.0

	// sigmaFloor keeps the model from collapsing to near-certainty; the
	// realized high can still drift by observation noise alone.
	sigmaFloor = 0.5

	bracketCount = 6
	bracketWidth = 2.0
	bracketSpan  = 4.0 // half-width of the closed bracket range around center

	minBracketProb = 0.001
	maxBracketProb = 0.999
)

// Engine fits a Gaussian model to a day's high temperature from a point
// forecast, historical error sigma, and an optional live reading.
type Engine struct {
	sigmas SigmaTable
	clock  clockwork.Clock
}

// NewEngine creates a calibration engine. A nil clock uses wall time.
func NewEngine(sigmas SigmaTable, clock clockwork.Clock) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Engine{sigmas: sigmas, clock: clock}
}

// Calibrate produces the adjusted Gaussian model and bracket probabilities
// for a city's forecast high. currentTempF is the latest live reading if one
// exists; hoursRemaining overrides the time-of-day default when set.
func (e *Engine) Calibrate(city string, forecastHigh float64, currentTempF, hoursRemaining *float64) domain.CalibrationResult {
	now := e.clock.Now().UTC()

	baseSigma := e.sigmas.Lookup(city, int(now.Month()))

	var hours float64
	if hoursRemaining != nil {
		hours = *hoursRemaining
	} else {
		hours = defaultHoursRemaining(now.Hour(), now.Minute())
	}

	sigma := adjustedSigma(baseSigma, hours, currentTempF, forecastHigh)
	mu := adjustedMean(forecastHigh, currentTempF, hours)
	brackets := priceBrackets(mu, sigma, forecastHigh, currentTempF)

	return domain.CalibrationResult{
		Mu:       roundTo(mu, 2),
		Sigma:    roundTo(sigma, 2),
		Brackets: brackets,
	}
}

// defaultHoursRemaining derives hours left in the forecast window from the
// UTC time of day: mornings count down to noon, afternoons to midnight, both
// clamped to [0, 12].
func defaultHoursRemaining(hour, minute int) float64 {
	hourUTC := float64(hour) + float64(minute)/60.0
	var remaining float64
	if hourUTC >= 12 {
		remaining = math.Max(0, 24.0-hourUTC)
	} else {
		remaining = math.Max(0, 12.0-hourUTC)
	}
	return math.Min(forecastWindowHours, remaining)
}

// adjustedSigma shrinks the historical error sigma as the day progresses and
// further once a live reading already confirms or exceeds the forecast.
// Never returns less than the 0.5 floor.
func adjustedSigma(baseSigma, hoursRemaining float64, currentTempF *float64, forecastHigh float64) float64 {
	fractionRemaining := math.Max(0.05, math.Min(1.0, hoursRemaining/forecastWindowHours))
	adjusted := baseSigma * math.Sqrt(fractionRemaining)

	if currentTempF != nil {
		overshoot := *currentTempF - forecastHigh
		if overshoot > 0 {
			adjusted *= math.Max(0.3, 1.0-overshoot/(baseSigma*2))
		}
	}

	return math.Max(sigmaFloor, adjusted)
}

// adjustedMean pulls the forecast high toward the live reading. Once the
// reading meets the forecast the high is effectively locked in, with a small
// residual-upside buffer; late in the day a still-cooler reading drags the
// mean down harder than an early one.
func adjustedMean(forecastHigh float64, currentTempF *float64, hoursRemaining float64) float64 {
	if currentTempF == nil {
		return forecastHigh
	}
	current := *currentTempF
	fractionElapsed := 1.0 - math.Max(0, math.Min(1.0, hoursRemaining/forecastWindowHours))

	if current >= forecastHigh {
		buffer := math.Max(0, forecastHigh-current) * (1 - fractionElapsed)
		return current + buffer*0.5 + 0.5
	}
	if fractionElapsed > 0.7 {
		weight := math.Min(0.8, fractionElapsed)
		return current*weight + forecastHigh*(1-weight)
	}
	return forecastHigh - (forecastHigh-current)*fractionElapsed*0.3
}

// generateBrackets lays out six contiguous ranges spanning (-inf, +inf):
// an open-below tail, four 2°F bins covering [center-4, center+4], and an
// open-above tail. The center is the forecast high rounded to the nearest
// even integer, ties rounding up.
func generateBrackets(forecastHigh float64) [bracketCount][2]float64 {
	center := math.Round(forecastHigh)
	if math.Mod(center, 2) != 0 {
		center++
	}
	bottom := center - bracketSpan
	top := center + bracketSpan

	var bounds [bracketCount][2]float64
	bounds[0] = [2]float64{math.Inf(-1), bottom}
	for i := 0; i < 4; i++ {
		bounds[i+1] = [2]float64{bottom + float64(i)*bracketWidth, bottom + float64(i+1)*bracketWidth}
	}
	bounds[bracketCount-1] = [2]float64{top, math.Inf(1)}
	return bounds
}

// priceBrackets assigns CDF-mass probabilities to each bracket, rules out
// ranges already exceeded by the live reading, and normalizes to sum to 1.
func priceBrackets(mu, sigma, forecastHigh float64, currentTempF *float64) []domain.Bracket {
	bounds := generateBrackets(forecastHigh)

	results := make([]domain.Bracket, 0, bracketCount)
	total := 0.0
	for _, b := range bounds {
		lo, hi := b[0], b[1]

		var prob float64
		switch {
		case math.IsInf(lo, -1):
			prob = NormalCDF(hi, mu, sigma)
		case math.IsInf(hi, 1):
			prob = 1.0 - NormalCDF(lo, mu, sigma)
		default:
			prob = NormalCDF(hi, mu, sigma) - NormalCDF(lo, mu, sigma)
		}
		prob = math.Max(minBracketProb, math.Min(maxBracketProb, prob))

		// A finite upper bound at or below the observed temperature is
		// already ruled out: the day's high cannot land there anymore.
		if currentTempF != nil && !math.IsInf(hi, 1) && hi <= *currentTempF {
			prob = minBracketProb
		}

		results = append(results, domain.Bracket{
			Label:       bracketLabel(lo, hi),
			Low:         finiteOrNil(lo),
			High:        finiteOrNil(hi),
			Probability: prob,
		})
		total += prob
	}

	for i := range results {
		results[i].Probability = roundTo(results[i].Probability/total, 4)
	}
	return results
}

func bracketLabel(lo, hi float64) string {
	switch {
	case math.IsInf(lo, -1):
		return fmt.Sprintf("Below %.0f°F", hi)
	case math.IsInf(hi, 1):
		return fmt.Sprintf("%.0f°F or above", lo)
	default:
		return fmt.Sprintf("%.0f-%.0f°F", lo, hi)
	}
}

func finiteOrNil(v float64) *float64 {
	if math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func roundTo(x float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(x*pow) / pow
}
