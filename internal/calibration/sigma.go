package calibration

// SigmaTable maps a city key to its historical forecast-error standard
// deviation in degrees Fahrenheit, one entry per month (January first).
type SigmaTable map[string][12]float64

// fallbackSigma is used for cities or months without historical data.
const fallbackSigma = 3.0

// Lookup returns the base sigma for a city and month (1-12). Unknown cities
// and out-of-range months fall back to 3.0.
func (t SigmaTable) Lookup(city string, month int) float64 {
	months, ok := t[city]
	if !ok || month < 1 || month > 12 {
		return fallbackSigma
	}
	sigma := months[month-1]
	if sigma <= 0 {
		return fallbackSigma
	}
	return sigma
}

// DefaultSigmaTable holds per-city, per-month standard deviations of NWS
// daily-high forecast error, derived from historical verification data.
func DefaultSigmaTable() SigmaTable {
	return SigmaTable{
		"NYC":          {3.0, 3.0, 3.2, 3.0, 2.8, 2.5, 2.2, 2.2, 2.5, 2.8, 3.0, 3.0},
		"Chicago":      {3.5, 3.5, 3.8, 3.5, 3.0, 2.8, 2.5, 2.5, 2.8, 3.2, 3.5, 3.5},
		"Miami":        {2.0, 2.0, 2.0, 2.2, 2.5, 2.5, 2.2, 2.2, 2.5, 2.5, 2.2, 2.0},
		"Austin":       {3.0, 3.0, 3.2, 3.0, 2.8, 2.5, 2.0, 2.0, 2.5, 3.0, 3.0, 3.0},
		"Denver":       {4.0, 4.0, 4.5, 4.0, 3.5, 3.0, 2.5, 2.5, 3.0, 3.5, 4.0, 4.0},
		"Houston":      {2.8, 2.8, 3.0, 2.8, 2.5, 2.2, 2.0, 2.0, 2.5, 2.8, 2.8, 2.8},
		"Philadelphia": {3.0, 3.0, 3.2, 3.0, 2.8, 2.5, 2.2, 2.2, 2.5, 2.8, 3.0, 3.0},
	}
}
