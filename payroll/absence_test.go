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

func newTestAbsences(t *testing.T) (*payroll.Absences, *payroll.Catalog, *memory.Store) {
	t.Helper()
	catalog, _, store := newTestCatalog(t)
	return payroll.NewAbsences(store, catalog), catalog, store
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	return decimal.RequireFromString(s)
}

// =============================================================================
// AMOUNT SNAPSHOTS
// =============================================================================

func TestAbsences_FullDay_UsesFixedAmount(t *testing.T) {
	// GIVEN: Sick rate 148.00 for 8 hours
	// WHEN: Recording a full 8-hour sick day
	// THEN: Amount is 148.00

	absences, _, _ := newTestAbsences(t)

	ab, err := absences.Create(context.Background(), user("emp-1"), "emp-1",
		at(12, 0), tracking.AbsenceSick, dec(t, "8"), "flu")
	require.NoError(t, err)
	assert.True(t, ab.Amount.Equal(dec(t, "148.00")), "got %s", ab.Amount)
}

func TestAbsences_PartialDay_Prorated(t *testing.T) {
	// GIVEN: Sick rate 148.00 for 8 hours
	// WHEN: Recording 4 hours
	// THEN: Amount is 74

	absences, _, _ := newTestAbsences(t)

	ab, err := absences.Create(context.Background(), user("emp-1"), "emp-1",
		at(12, 0), tracking.AbsenceSick, dec(t, "4"), "")
	require.NoError(t, err)
	assert.True(t, ab.Amount.Equal(dec(t, "74")), "got %s", ab.Amount)
}

func TestAbsences_AmountFrozenAgainstRateChanges(t *testing.T) {
	// GIVEN: A recorded sick day at 148.00
	// WHEN: The sick rate is later changed to 200.00
	// THEN: The stored amount stays 148.00 (audit stability)

	absences, catalog, store := newTestAbsences(t)
	ctx := context.Background()

	ab, err := absences.Create(ctx, user("emp-1"), "emp-1",
		at(12, 0), tracking.AbsenceSick, dec(t, "8"), "")
	require.NoError(t, err)

	sick, err := store.GetRateByCode(ctx, payroll.CodeSick)
	require.NoError(t, err)
	newAmount := dec(t, "200.00")
	sick.FixedAmount = &newAmount
	_, err = catalog.UpdateRate(ctx, admin, *sick)
	require.NoError(t, err)

	stored, err := store.AbsencesInRange(ctx, "emp-1", at(1, 0), at(31, 0))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, ab.ID, stored[0].ID)
	assert.True(t, stored[0].Amount.Equal(dec(t, "148.00")), "got %s", stored[0].Amount)
}

// =============================================================================
// INVARIANTS
// =============================================================================

func TestAbsences_DuplicateTypePerDay_Rejected(t *testing.T) {
	// GIVEN: A sick day on March 12
	// WHEN: Recording sick again on March 12, and vacation on March 12
	// THEN: Second sick conflicts; vacation (different type) is allowed

	absences, _, _ := newTestAbsences(t)
	ctx := context.Background()

	_, err := absences.Create(ctx, user("emp-1"), "emp-1", at(12, 0), tracking.AbsenceSick, dec(t, "8"), "")
	require.NoError(t, err)

	_, err = absences.Create(ctx, user("emp-1"), "emp-1", at(12, 0), tracking.AbsenceSick, dec(t, "8"), "")
	assert.True(t, tracking.IsConflict(err))
	var dup *tracking.DuplicateAbsenceError
	assert.ErrorAs(t, err, &dup)

	_, err = absences.Create(ctx, user("emp-1"), "emp-1", at(12, 0), tracking.AbsenceVacation, dec(t, "8"), "")
	assert.NoError(t, err)
}

func TestAbsences_NonPositiveHours_Rejected(t *testing.T) {
	absences, _, _ := newTestAbsences(t)
	ctx := context.Background()

	_, err := absences.Create(ctx, user("emp-1"), "emp-1", at(12, 0), tracking.AbsenceSick, decimal.Zero, "")
	assert.True(t, tracking.IsValidation(err))

	_, err = absences.Create(ctx, user("emp-1"), "emp-1", at(12, 0), tracking.AbsenceSick, dec(t, "-1"), "")
	assert.True(t, tracking.IsValidation(err))
}

func TestAbsences_UnknownType_Rejected(t *testing.T) {
	absences, _, _ := newTestAbsences(t)

	_, err := absences.Create(context.Background(), user("emp-1"), "emp-1",
		at(12, 0), tracking.AbsenceType("SABBATICAL"), dec(t, "8"), "")
	assert.True(t, tracking.IsValidation(err))
}

func TestAbsences_MissingFixedRate_ConfigurationError(t *testing.T) {
	// GIVEN: A catalog without fixed rates
	// WHEN: Recording a sick day
	// THEN: Configuration error, nothing stored

	store := memory.New()
	catalog := payroll.NewCatalog(store, payroll.NewCalendar(store), testRegion, time.UTC)
	absences := payroll.NewAbsences(store, catalog)
	ctx := context.Background()

	_, err := absences.Create(ctx, user("emp-1"), "emp-1", at(12, 0), tracking.AbsenceSick, dec(t, "8"), "")
	assert.True(t, tracking.IsConfiguration(err))

	stored, err := store.AbsencesInRange(ctx, "emp-1", at(1, 0), at(31, 0))
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestAbsences_DeleteChecksStoredOwner(t *testing.T) {
	// GIVEN: An absence recorded for emp-1
	// WHEN: Plain user emp-2 tries to delete it by ID
	// THEN: Authorization error against the stored owner, record survives;
	//       the owner can still delete it

	absences, _, store := newTestAbsences(t)
	ctx := context.Background()

	ab, err := absences.Create(ctx, user("emp-1"), "emp-1", at(12, 0), tracking.AbsenceSick, dec(t, "8"), "")
	require.NoError(t, err)

	err = absences.Delete(ctx, user("emp-2"), ab.ID)
	assert.True(t, tracking.IsAuthorization(err))

	stored, err := store.GetAbsence(ctx, ab.ID)
	require.NoError(t, err)
	require.NotNil(t, stored, "foreign delete must not remove the record")

	require.NoError(t, absences.Delete(ctx, user("emp-1"), ab.ID))
	stored, err = store.GetAbsence(ctx, ab.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestAbsences_AdminMayDeleteForeignAbsence(t *testing.T) {
	absences, _, store := newTestAbsences(t)
	ctx := context.Background()

	ab, err := absences.Create(ctx, user("emp-1"), "emp-1", at(12, 0), tracking.AbsenceSick, dec(t, "8"), "")
	require.NoError(t, err)

	require.NoError(t, absences.Delete(ctx, admin, ab.ID))
	stored, err := store.GetAbsence(ctx, ab.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestAbsences_DeleteMissing_NotFound(t *testing.T) {
	absences, _, _ := newTestAbsences(t)

	err := absences.Delete(context.Background(), user("emp-1"), "no-such-absence")
	assert.True(t, tracking.IsNotFound(err))
}

func TestAbsences_ForeignUser_Forbidden(t *testing.T) {
	absences, _, _ := newTestAbsences(t)

	_, err := absences.Create(context.Background(), user("emp-1"), "emp-2",
		at(12, 0), tracking.AbsenceSick, dec(t, "8"), "")
	assert.True(t, tracking.IsAuthorization(err))
}

func user(id string) tracking.Actor {
	return tracking.Actor{UserID: tracking.UserID(id), Role: tracking.RoleUser}
}
