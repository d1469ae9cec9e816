/*
report.go - Daily and ISO-week report variants

PURPOSE:
  Same classification as the monthly summary, aggregated per day or per
  ISO week. Reports additionally track first check-in / last check-out
  and per-category minute sums; they are read-only and unpriced beyond
  category attribution.
*/
package payroll

import (
	"context"
	"sort"
	"time"

	"github.com/Bazdi/zeiterfassung1337-sub000/tracking"
)

// CategoryRegular is the bucket key for unsurcharged time.
// Surcharged time is keyed by the matching rate's code.
const CategoryRegular = "regular"

// =============================================================================
// REPORT TYPES
// =============================================================================

// PeriodReport aggregates one day or one ISO week.
type PeriodReport struct {
	Key             string // "2025-03-10" for days, "2025-W11" for weeks
	Entries         int
	NetMinutes      int
	PauseMinutes    int
	FirstCheckIn    *time.Time
	LastCheckOut    *time.Time
	CategoryMinutes map[string]int
}

// =============================================================================
// REPORT COMPUTATION
// =============================================================================

// DailyReport aggregates closed intervals per calendar day in [from, to).
func (c *Calculator) DailyReport(ctx context.Context, actor tracking.Actor, userID tracking.UserID, from, to time.Time) ([]PeriodReport, error) {
	return c.report(ctx, actor, userID, from, to, func(local time.Time) string {
		return local.Format("2006-01-02")
	})
}

// WeeklyReport aggregates closed intervals per ISO week in [from, to).
func (c *Calculator) WeeklyReport(ctx context.Context, actor tracking.Actor, userID tracking.UserID, from, to time.Time) ([]PeriodReport, error) {
	return c.report(ctx, actor, userID, from, to, tracking.ISOWeekKey)
}

func (c *Calculator) report(ctx context.Context, actor tracking.Actor, userID tracking.UserID, from, to time.Time, keyFn func(time.Time) string) ([]PeriodReport, error) {
	if err := tracking.Authorize(actor, userID); err != nil {
		return nil, err
	}

	intervals, err := c.store.IntervalsInRange(ctx, userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]*PeriodReport)
	for i := range intervals {
		iv := &intervals[i]
		if iv.DurationMinutes == nil {
			continue
		}
		local := iv.Start.In(c.loc)
		key := keyFn(local)

		rep, ok := byKey[key]
		if !ok {
			rep = &PeriodReport{Key: key, CategoryMinutes: make(map[string]int)}
			byKey[key] = rep
		}

		rep.Entries++
		rep.NetMinutes += *iv.DurationMinutes
		rep.PauseMinutes += iv.PauseTotalMinutes
		if rep.FirstCheckIn == nil || iv.Start.Before(*rep.FirstCheckIn) {
			start := iv.Start
			rep.FirstCheckIn = &start
		}
		if iv.End != nil && (rep.LastCheckOut == nil || iv.End.After(*rep.LastCheckOut)) {
			end := *iv.End
			rep.LastCheckOut = &end
		}

		category := CategoryRegular
		surcharge, err := c.catalog.ResolveSurcharge(ctx, iv.Start)
		if err != nil {
			return nil, err
		}
		if surcharge != nil {
			category = surcharge.Code
		}
		rep.CategoryMinutes[category] += *iv.DurationMinutes
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	reports := make([]PeriodReport, 0, len(keys))
	for _, k := range keys {
		reports = append(reports, *byKey[k])
	}
	return reports, nil
}
