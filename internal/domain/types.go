package domain

import (
	"time"
)

// DateLayout is the calendar-day format used for ledger keys and record dates.
// All day boundaries in this service are UTC calendar days.
const DateLayout = "2006-01-02"

// Bracket is a labeled temperature sub-range with the probability that the
// day's realized high falls inside it. Exactly one bracket per result has a
// nil Low (open below) and exactly one has a nil High (open above).
type Bracket struct {
	Label       string   `json:"label"`
	Low         *float64 `json:"low"`
	High        *float64 `json:"high"`
	Probability float64  `json:"probability"`
}

// CalibrationResult is the fitted Gaussian model for a day's high temperature
// plus its discretized bracket probabilities. Mu and Sigma are rounded to two
// decimal places; Sigma is never below 0.5.
type CalibrationResult struct {
	Mu       float64   `json:"mu"`
	Sigma    float64   `json:"sigma"`
	Brackets []Bracket `json:"brackets"`
}

// Interval is a closed temperature range in degrees Fahrenheit.
type Interval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Contains reports whether v falls inside the interval, bounds inclusive.
func (i Interval) Contains(v float64) bool {
	return v >= i.Low && v <= i.High
}

// ConfidenceIntervalSet maps a level name ("50%", "80%", "95%") to the
// interval derived from the fitted mean and sigma.
type ConfidenceIntervalSet map[string]Interval

// PredictionRecord is one ledger entry: the model served for a (city, date)
// pair, later resolved against the realized daily high. At most one record
// exists per (city, date); dedup is enforced at write time by the ledger.
type PredictionRecord struct {
	ID             string    `json:"id"`
	City           string    `json:"city"`
	Date           string    `json:"date"` // UTC calendar day, YYYY-MM-DD
	CreatedAt      time.Time `json:"createdAt"`
	ForecastHigh   float64   `json:"forecastHigh"`
	PredictedMean  float64   `json:"predictedMean"`
	PredictedSigma float64   `json:"predictedSigma"`
	CI80           Interval  `json:"ci80"`
	CI95           Interval  `json:"ci95"`

	// Resolution fields, filled exactly once when the record's date has
	// fully elapsed and ground truth is available.
	ActualHigh *float64 `json:"actualHigh"`
	Resolved   bool     `json:"resolved"`
	Error      *float64 `json:"error"`
	Within80   *bool    `json:"within80"`
	Within95   *bool    `json:"within95"`
}

// Reading is a single temperature observation from a station.
type Reading struct {
	Timestamp time.Time
	Value     float64
	Unit      string // e.g. "wmoUnit:degC" or "wmoUnit:degF"
}

// Forecast is a point forecast for a city's day: the expected high and low
// in degrees Fahrenheit. Either value may be absent.
type Forecast struct {
	High *float64
	Low  *float64
}

// Observation is the latest conditions snapshot for a station.
type Observation struct {
	Station      string    `json:"station"`
	City         string    `json:"city"`
	Timestamp    time.Time `json:"timestamp"`
	TempF        *float64  `json:"temp_f"`
	TempC        *float64  `json:"temp_c"`
	Humidity     *float64  `json:"humidity"`
	WindSpeedKMH *float64  `json:"wind_speed_kmh"`
	Description  string    `json:"description"`
}

// CToF converts a Celsius temperature to Fahrenheit.
func CToF(c float64) float64 {
	return c*9.0/5.0 + 32.0
}
