package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Today returns the current UTC calendar date in DateLayout form. All ledger
// keys and resolution eligibility checks use this same day boundary.
func Today(clock clockwork.Clock) string {
	return clock.Now().UTC().Format(DateLayout)
}

// DayWindow returns the [start, end) UTC bounds of a DateLayout calendar day.
func DayWindow(date string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(DateLayout, date, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.Add(24 * time.Hour), nil
}
