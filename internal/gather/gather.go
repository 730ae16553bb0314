// Package gather acquires market data from external providers and lands it in
// the local cache directory.
package gather

import (
	"context"
	"time"
)

// Downloader fetches flat files of aggregate bars for single trading days and
// returns the local path of the cached CSV.
type Downloader interface {
	// DayFile fetches the daily-aggregates flat file for the given date.
	DayFile(ctx context.Context, date time.Time) (string, error)
	// MinuteFile fetches the minute-aggregates flat file for the given date.
	MinuteFile(ctx context.Context, date time.Time) (string, error)
}

// DateRange represents a time range for data fetching.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Days returns every calendar day in the range, inclusive. Weekends and
// holidays are not filtered; a downloader reports missing files per day.
func (r DateRange) Days() []time.Time {
	var days []time.Time
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
