package payroll_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bazdi/zeiterfassung1337-sub000/payroll"
	"github.com/Bazdi/zeiterfassung1337-sub000/store/memory"
	"github.com/Bazdi/zeiterfassung1337-sub000/tracking"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const testRegion = "default"

var admin = tracking.Actor{UserID: "boss", Role: tracking.RoleAdmin}

func newTestCatalog(t *testing.T) (*payroll.Catalog, *payroll.Calendar, *memory.Store) {
	t.Helper()
	store := memory.New()
	require.NoError(t, payroll.SeedDefaultRates(context.Background(), store))

	calendar := payroll.NewCalendar(store)
	catalog := payroll.NewCatalog(store, calendar, testRegion, time.UTC)
	return catalog, calendar, store
}

// at builds a March 2025 instant. March 10 2025 is a Monday.
func at(day, hour int) time.Time {
	return time.Date(2025, time.March, day, hour, 0, 0, 0, time.UTC)
}

// =============================================================================
// SURCHARGE PRECEDENCE
// =============================================================================

func TestCatalog_WeekdayDaytime_NoSurcharge(t *testing.T) {
	// GIVEN: The default rate set
	// WHEN: Resolving a Tuesday 10:00
	// THEN: Regular time, no surcharge

	catalog, _, _ := newTestCatalog(t)

	r, err := catalog.ResolveSurcharge(context.Background(), at(11, 10))
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestCatalog_WeekdayNight_NightSurcharge(t *testing.T) {
	// GIVEN: Night window Mon-Fri from 21:00
	// WHEN: Resolving Tuesday 22:00 and Tuesday 21:00 sharp
	// THEN: Night surcharge applies; 20:59 does not

	catalog, _, _ := newTestCatalog(t)
	ctx := context.Background()

	r, err := catalog.ResolveSurcharge(ctx, at(11, 22))
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "night", r.Code)

	r, err = catalog.ResolveSurcharge(ctx, at(11, 21))
	require.NoError(t, err)
	require.NotNil(t, r, "window start hour is inclusive")

	r, err = catalog.ResolveSurcharge(ctx, time.Date(2025, time.March, 11, 20, 59, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestCatalog_SaturdayAfternoon_Surcharge(t *testing.T) {
	// GIVEN: Saturday window from 13:00
	// WHEN: Resolving Saturday 14:00 vs Saturday 10:00
	// THEN: Afternoon is surcharged, the morning is regular

	catalog, _, _ := newTestCatalog(t)
	ctx := context.Background()

	r, err := catalog.ResolveSurcharge(ctx, at(15, 14)) // Sat
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "saturday", r.Code)

	r, err = catalog.ResolveSurcharge(ctx, at(15, 10))
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestCatalog_Sunday_AnyHour(t *testing.T) {
	// GIVEN: A Sunday rate
	// WHEN: Resolving Sunday 03:00 and Sunday 22:00
	// THEN: Sunday surcharge both times; Sunday night is Sunday, not night

	catalog, _, _ := newTestCatalog(t)
	ctx := context.Background()

	r, err := catalog.ResolveSurcharge(ctx, at(16, 3)) // Sun
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "sunday", r.Code)

	r, err = catalog.ResolveSurcharge(ctx, at(16, 22))
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "sunday", r.Code, "Sunday outranks the night window")
}

func TestCatalog_Holiday_OutranksEverything(t *testing.T) {
	// GIVEN: March 16 2025 (a Sunday) is a holiday
	// WHEN: Resolving any hour on that day
	// THEN: Holiday surcharge wins over Sunday and night

	catalog, calendar, _ := newTestCatalog(t)
	ctx := context.Background()

	_, err := calendar.Create(ctx, admin, at(16, 0), testRegion, "Some Holiday")
	require.NoError(t, err)

	for _, hour := range []int{3, 10, 22} {
		r, err := catalog.ResolveSurcharge(ctx, at(16, hour))
		require.NoError(t, err)
		require.NotNil(t, r)
		assert.Equal(t, "holiday", r.Code)
	}
}

func TestCatalog_HolidayInOtherRegion_Ignored(t *testing.T) {
	// GIVEN: A holiday recorded for a different region
	// WHEN: Resolving a weekday morning
	// THEN: Regular time; holiday lookups are region-exact

	catalog, calendar, _ := newTestCatalog(t)
	ctx := context.Background()

	_, err := calendar.Create(ctx, admin, at(11, 0), "bavaria", "Regional Holiday")
	require.NoError(t, err)

	r, err := catalog.ResolveSurcharge(ctx, at(11, 10))
	require.NoError(t, err)
	assert.Nil(t, r)
}

// =============================================================================
// BASE RATE
// =============================================================================

func TestCatalog_BaseRate_MissingIsConfigurationError(t *testing.T) {
	// GIVEN: An empty catalog
	// WHEN: Asking for the base rate
	// THEN: Configuration error

	store := memory.New()
	catalog := payroll.NewCatalog(store, payroll.NewCalendar(store), testRegion, time.UTC)

	_, err := catalog.BaseRate(context.Background())
	assert.True(t, tracking.IsConfiguration(err))
	var missing *tracking.MissingBaseRateError
	assert.ErrorAs(t, err, &missing)
}

func TestCatalog_SecondBaseRate_Rejected(t *testing.T) {
	// GIVEN: A base rate exists
	// WHEN: Creating another rate flagged as base rate
	// THEN: Conflict with DuplicateBaseRateError, nothing written

	catalog, _, store := newTestCatalog(t)
	ctx := context.Background()

	hourly := decimal.RequireFromString("20.00")
	_, err := catalog.CreateRate(ctx, admin, tracking.Rate{
		Code:       "base2",
		AppliesTo:  tracking.ClassManual,
		HourlyRate: &hourly,
		IsBaseRate: true,
	})
	assert.True(t, tracking.IsConflict(err))
	var dup *tracking.DuplicateBaseRateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "base", dup.ExistingCode)

	got, err := store.GetRateByCode(ctx, "base2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCatalog_UpdateBaseRateAmount_Allowed(t *testing.T) {
	// GIVEN: The existing base rate
	// WHEN: Updating only its hourly amount
	// THEN: Succeeds; the uniqueness check skips the rate itself

	catalog, _, store := newTestCatalog(t)
	ctx := context.Background()

	base, err := store.BaseRate(ctx)
	require.NoError(t, err)
	require.NotNil(t, base)

	hourly := decimal.RequireFromString("19.75")
	base.HourlyRate = &hourly
	updated, err := catalog.UpdateRate(ctx, admin, *base)
	require.NoError(t, err)
	assert.True(t, updated.HourlyRate.Equal(hourly))
}

func TestCatalog_RateMutations_RequireAdmin(t *testing.T) {
	// GIVEN: A plain user
	// WHEN: Creating, updating or deleting rates
	// THEN: Forbidden

	catalog, _, store := newTestCatalog(t)
	ctx := context.Background()
	plain := tracking.Actor{UserID: "emp-1", Role: tracking.RoleUser}

	_, err := catalog.CreateRate(ctx, plain, tracking.Rate{Code: "x", AppliesTo: tracking.ClassNight})
	assert.True(t, tracking.IsAuthorization(err))

	base, err := store.BaseRate(ctx)
	require.NoError(t, err)
	_, err = catalog.UpdateRate(ctx, plain, *base)
	assert.True(t, tracking.IsAuthorization(err))

	err = catalog.DeleteRate(ctx, plain, base.ID)
	assert.True(t, tracking.IsAuthorization(err))
}

func TestCatalog_FindFixedRate_MissingCode(t *testing.T) {
	// GIVEN: The default rate set
	// WHEN: Asking for a fixed rate that is not configured
	// THEN: Configuration error naming the code

	catalog, _, _ := newTestCatalog(t)

	_, err := catalog.FindFixedRate(context.Background(), "jubilee")
	assert.True(t, tracking.IsConfiguration(err))
	var missing *tracking.MissingFixedRateError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "jubilee", missing.Code)
}
