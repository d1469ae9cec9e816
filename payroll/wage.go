/*
wage.go - Monthly wage summary computation

PURPOSE:
  Aggregates a user's closed work intervals for one month, classifies each
  into regular or surcharge buckets via the catalog's precedence chain,
  adds frozen absence amounts and the monthly bonus, and applies the flat
  illustrative tax percentage.

CLASSIFICATION:
  An interval is classified by the weekday/hour of its START instant.
  hours = duration_minutes / 60, fractional, no rounding at this stage.
  Surcharge earnings = hours * baseRate * multiplier.

DELIBERATE DECISIONS:
  - Absence amounts are NOT recomputed here; they were frozen at creation
    against the rate then in effect.
  - The monthly bonus is added once per month, not per interval.
  - netEarnings = grossEarnings * (1 - taxRate) with a fixed illustrative
    rate (0.30 default). This is explicitly not a tax engine.

SEE ALSO:
  - catalog.go: ResolveSurcharge precedence
  - report.go: Daily and ISO-week variants
*/
package payroll

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Bazdi/zeiterfassung1337-sub000/tracking"
)

// DefaultTaxRate is the flat illustrative percentage applied to gross
// earnings. Not a real tax computation.
var DefaultTaxRate = decimal.NewFromFloat(0.30)

var sixty = decimal.NewFromInt(60)

// =============================================================================
// SUMMARY TYPES
// =============================================================================

// Bucket accumulates hours and earnings for one pay category.
type Bucket struct {
	Hours    decimal.Decimal
	Earnings decimal.Decimal
	Entries  int
}

func (b *Bucket) add(hours, earnings decimal.Decimal) {
	b.Hours = b.Hours.Add(hours)
	b.Earnings = b.Earnings.Add(earnings)
	b.Entries++
}

// MonthlySummary is the structured result of a monthly wage computation.
type MonthlySummary struct {
	UserID tracking.UserID
	Year   int
	Month  time.Month

	RegularWork   Bucket
	SurchargeWork Bucket            // all surcharge classes combined
	Surcharges    map[string]Bucket // keyed by rate code
	Absences      Bucket
	MonthlyBonus  Bucket

	TotalHours    decimal.Decimal
	GrossEarnings decimal.Decimal
	NetEarnings   decimal.Decimal
	TaxRate       decimal.Decimal
}

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator prices work intervals and absences into wage summaries.
type Calculator struct {
	store   tracking.Store
	catalog *Catalog
	taxRate decimal.Decimal
	loc     *time.Location
}

// NewCalculator creates a wage calculator. loc determines the month
// boundaries (nil = UTC). A negative taxRate falls back to DefaultTaxRate;
// zero is honored as a genuine 0% configuration.
func NewCalculator(store tracking.Store, catalog *Catalog, taxRate decimal.Decimal, loc *time.Location) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	if taxRate.IsNegative() {
		taxRate = DefaultTaxRate
	}
	return &Calculator{store: store, catalog: catalog, taxRate: taxRate, loc: loc}
}

// ComputeMonthlySummary aggregates one user-month.
// Fails with a configuration error if no base rate is set up: earnings
// cannot be priced without it. Read-only; safe to run concurrently.
func (c *Calculator) ComputeMonthlySummary(ctx context.Context, actor tracking.Actor, userID tracking.UserID, year int, month time.Month) (*MonthlySummary, error) {
	if err := tracking.Authorize(actor, userID); err != nil {
		return nil, err
	}

	base, err := c.catalog.BaseRate(ctx)
	if err != nil {
		return nil, err
	}
	baseHourly := *base.HourlyRate

	from, to := tracking.MonthRange(year, month, c.loc)
	intervals, err := c.store.IntervalsInRange(ctx, userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}

	sum := &MonthlySummary{
		UserID:     userID,
		Year:       year,
		Month:      month,
		Surcharges: make(map[string]Bucket),
		TaxRate:    c.taxRate,
	}

	for i := range intervals {
		iv := &intervals[i]
		if iv.DurationMinutes == nil {
			continue // open sessions are not priced
		}
		hours := decimal.NewFromInt(int64(*iv.DurationMinutes)).Div(sixty)

		surcharge, err := c.catalog.ResolveSurcharge(ctx, iv.Start)
		if err != nil {
			return nil, err
		}
		if surcharge != nil {
			earnings := hours.Mul(baseHourly).Mul(*surcharge.Multiplier)
			sum.SurchargeWork.add(hours, earnings)
			bucket := sum.Surcharges[surcharge.Code]
			bucket.add(hours, earnings)
			sum.Surcharges[surcharge.Code] = bucket
		} else {
			sum.RegularWork.add(hours, hours.Mul(baseHourly))
		}
	}

	// Absences: stored hours and frozen amounts, never recomputed.
	absences, err := c.store.AbsencesInRange(ctx, userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	for _, ab := range absences {
		sum.Absences.add(ab.Hours, ab.Amount)
	}

	// Monthly bonus: once per month, unconditionally when configured.
	bonus, err := c.store.GetRateByCode(ctx, CodeMonthlyBonus)
	if err != nil {
		return nil, err
	}
	if bonus != nil && bonus.FixedAmount != nil {
		hours := decimal.Zero
		if bonus.FixedHours != nil {
			hours = *bonus.FixedHours
		}
		sum.MonthlyBonus.add(hours, *bonus.FixedAmount)
	}

	sum.TotalHours = sum.RegularWork.Hours.
		Add(sum.SurchargeWork.Hours).
		Add(sum.Absences.Hours).
		Add(sum.MonthlyBonus.Hours)
	sum.GrossEarnings = sum.RegularWork.Earnings.
		Add(sum.SurchargeWork.Earnings).
		Add(sum.Absences.Earnings).
		Add(sum.MonthlyBonus.Earnings)
	sum.NetEarnings = sum.GrossEarnings.Mul(decimal.NewFromInt(1).Sub(c.taxRate))

	return sum, nil
}
