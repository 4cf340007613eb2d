package timezone

import (
	"strings"
	"time"
)

// the main page rolls over at midnight UTC, every date the bots
// compute has to line up with that regardless of the host's zone
var Location = time.UTC

func Now() time.Time {
	return time.Now().In(Location)
}

// Midnight truncates t to the start of its day in Location.
func Midnight(t time.Time) time.Time {
	t = t.In(Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Location)
}

// NextDay returns midnight of the day after t.
func NextDay(t time.Time) time.Time {
	return Midnight(t).AddDate(0, 0, 1)
}

// FormatDay renders a day the way on-wiki subpages are named,
// ex. "February 5, 2020" (no leading zero on the day).
func FormatDay(t time.Time) string {
	return t.In(Location).Format("January 2, 2006")
}

// FormatTimestamp renders t as an API timestamp (ISO 8601, second precision).
func FormatTimestamp(t time.Time) string {
	return t.In(Location).Format("2006-01-02T15:04:05Z")
}

// ParseTimestamp parses an API timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return t.In(Location), nil
}
