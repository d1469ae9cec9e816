package tracking

import (
	"fmt"
	"math"
	"time"
)

// =============================================================================
// CALENDAR HELPERS - Date truncation and period bounds
// =============================================================================

// DateOf truncates an instant to its calendar date (midnight, same location).
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// MonthRange returns [start, end) of a calendar month in the given location.
func MonthRange(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// DayRange returns [start, end) of the calendar day containing t.
func DayRange(t time.Time) (time.Time, time.Time) {
	start := DateOf(t)
	return start, start.AddDate(0, 0, 1)
}

// ISOWeekKey returns a sortable "2025-W03" style key for grouping by ISO week.
func ISOWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// =============================================================================
// MINUTE ARITHMETIC - The clock engine's rounding rules
// =============================================================================

// RoundMinutes rounds a duration to whole minutes (half up).
// Used for net session durations: round((end-start)/60000).
func RoundMinutes(d time.Duration) int {
	return int(math.Round(d.Minutes()))
}

// FloorMinutes truncates a duration to whole minutes.
// Used for completed pause spans: floor((now-pauseStart)/60000).
func FloorMinutes(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}
