package payroll_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bazdi/zeiterfassung1337-sub000/payroll"
	"github.com/Bazdi/zeiterfassung1337-sub000/store/memory"
	"github.com/Bazdi/zeiterfassung1337-sub000/tracking"
)

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

func TestCalendar_IsHoliday_ExactDate(t *testing.T) {
	// GIVEN: A holiday on March 16
	// WHEN: Checking March 16 (any hour) and March 17
	// THEN: Only March 16 is a holiday

	store := memory.New()
	calendar := payroll.NewCalendar(store)
	ctx := context.Background()

	_, err := calendar.Create(ctx, admin, at(16, 0), testRegion, "Some Holiday")
	require.NoError(t, err)

	got, err := calendar.IsHoliday(ctx, at(16, 15), testRegion)
	require.NoError(t, err)
	assert.True(t, got, "the time component must be ignored")

	got, err = calendar.IsHoliday(ctx, at(17, 0), testRegion)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestCalendar_DuplicateDateRegion_Rejected(t *testing.T) {
	// GIVEN: A holiday for (March 16, default)
	// WHEN: Creating the same (date, region) again
	// THEN: Conflict; a different region is fine

	store := memory.New()
	calendar := payroll.NewCalendar(store)
	ctx := context.Background()

	_, err := calendar.Create(ctx, admin, at(16, 0), testRegion, "Some Holiday")
	require.NoError(t, err)

	_, err = calendar.Create(ctx, admin, at(16, 0), testRegion, "Same Day Again")
	assert.True(t, tracking.IsConflict(err))
	var dup *tracking.DuplicateHolidayError
	assert.ErrorAs(t, err, &dup)

	_, err = calendar.Create(ctx, admin, at(16, 0), "bavaria", "Regional Twin")
	assert.NoError(t, err)
}

func TestCalendar_ListForMonth_Ordered(t *testing.T) {
	// GIVEN: Holidays on March 20 and March 5
	// WHEN: Listing March
	// THEN: Returned in date order, April stays empty

	store := memory.New()
	calendar := payroll.NewCalendar(store)
	ctx := context.Background()

	_, err := calendar.Create(ctx, admin, at(20, 0), testRegion, "Later")
	require.NoError(t, err)
	_, err = calendar.Create(ctx, admin, at(5, 0), testRegion, "Earlier")
	require.NoError(t, err)

	holidays, err := calendar.ListForMonth(ctx, 2025, time.March, testRegion)
	require.NoError(t, err)
	require.Len(t, holidays, 2)
	assert.Equal(t, "Earlier", holidays[0].Name)
	assert.Equal(t, "Later", holidays[1].Name)

	holidays, err = calendar.ListForMonth(ctx, 2025, time.April, testRegion)
	require.NoError(t, err)
	assert.Empty(t, holidays)
}

func TestCalendar_Mutations_RequireAdmin(t *testing.T) {
	// GIVEN: A plain user
	// WHEN: Creating or deleting holidays
	// THEN: Forbidden

	store := memory.New()
	calendar := payroll.NewCalendar(store)
	ctx := context.Background()
	plain := tracking.Actor{UserID: "emp-1", Role: tracking.RoleUser}

	_, err := calendar.Create(ctx, plain, at(16, 0), testRegion, "Nope")
	assert.True(t, tracking.IsAuthorization(err))

	err = calendar.Delete(ctx, plain, "some-id")
	assert.True(t, tracking.IsAuthorization(err))
}
