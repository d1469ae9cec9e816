/*
defaults.go - Seed rate set for dev and demo databases

PURPOSE:
  Provides the canonical rule set used by a fresh installation: a base
  hourly rate, the night/Saturday/Sunday/holiday surcharges, and the
  fixed-rate entries for sick days, vacation days and the monthly bonus.
*/
package payroll

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Bazdi/zeiterfassung1337-sub000/tracking"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// DefaultRates returns the seed rate set.
func DefaultRates() []tracking.Rate {
	weekdays := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	return []tracking.Rate{
		{
			ID: "rate-base", Code: "base", Label: "Base hourly rate",
			HourlyRate: dec("18.50"), AppliesTo: tracking.ClassManual,
			IsBaseRate: true, Priority: 0,
		},
		{
			ID: "rate-night", Code: "night", Label: "Night surcharge (Mon-Fri from 21:00)",
			Multiplier: dec("1.25"), AppliesTo: tracking.ClassNight,
			Window:   &tracking.TimeWindow{Days: weekdays, StartHour: 21, EndHour: 24},
			Priority: 10,
		},
		{
			ID: "rate-saturday", Code: "saturday", Label: "Saturday afternoon surcharge",
			Multiplier: dec("1.20"), AppliesTo: tracking.ClassWeekend,
			Window:   &tracking.TimeWindow{Days: []time.Weekday{time.Saturday}, StartHour: 13, EndHour: 24},
			Priority: 20,
		},
		{
			ID: "rate-sunday", Code: "sunday", Label: "Sunday surcharge",
			Multiplier: dec("1.50"), AppliesTo: tracking.ClassWeekend,
			Window:   &tracking.TimeWindow{Days: []time.Weekday{time.Sunday}, StartHour: 0, EndHour: 24},
			Priority: 30,
		},
		{
			ID: "rate-holiday", Code: "holiday", Label: "Holiday surcharge",
			Multiplier: dec("2.00"), AppliesTo: tracking.ClassHoliday,
			Priority: 40,
		},
		{
			ID: "rate-sick", Code: CodeSick, Label: "Sick day (fixed)",
			AppliesTo:   tracking.ClassSick,
			FixedAmount: dec("148.00"), FixedHours: dec("8"),
			Priority: 50,
		},
		{
			ID: "rate-vacation", Code: CodeVacation, Label: "Vacation day (fixed)",
			AppliesTo:   tracking.ClassVacation,
			FixedAmount: dec("148.00"), FixedHours: dec("8"),
			Priority: 60,
		},
		{
			ID: "rate-bonus", Code: CodeMonthlyBonus, Label: "Monthly bonus (fixed)",
			AppliesTo:   tracking.ClassManual,
			FixedAmount: dec("100.00"), FixedHours: dec("0"),
			Priority: 70,
		},
	}
}

// SeedDefaultRates inserts the default rate set into an empty catalog.
// Existing codes are left untouched.
func SeedDefaultRates(ctx context.Context, store tracking.TxStore) error {
	return store.WithTx(ctx, func(s tracking.Store) error {
		for _, r := range DefaultRates() {
			existing, err := s.GetRateByCode(ctx, r.Code)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			now := time.Now().UTC()
			r.CreatedAt = now
			r.UpdatedAt = now
			if err := s.CreateRate(ctx, r); err != nil {
				return err
			}
		}
		return nil
	})
}
