package actions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timekiosk/timekiosk/internal/store"
)

func TestCreateEmployee_ValidatesInput(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   EmployeeInput
	}{
		{"missing id", EmployeeInput{Name: "Ada", PIN: "1234"}},
		{"missing name", EmployeeInput{ID: "e1", PIN: "1234"}},
		{"pin too short", EmployeeInput{ID: "e1", Name: "Ada", PIN: "12"}},
		{"pin not numeric", EmployeeInput{ID: "e1", Name: "Ada", PIN: "abcd"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ts.CreateEmployee(ctx, tc.in)
			assert.Error(t, err)
		})
	}
}

func TestCreateEmployee_DuplicateID(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()
	ts.addEmployee(t, "e1", "Ada")

	_, err := ts.CreateEmployee(ctx, EmployeeInput{ID: "e1", Name: "Imposter", PIN: "9999"})
	assert.True(t, store.IsDuplicateKey(err))
}

func TestUpdateEmployee_PreservesArchivedFlag(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()
	ts.addEmployee(t, "e1", "Ada")
	require.NoError(t, ts.SetArchived(ctx, "e1", true))

	updated, err := ts.UpdateEmployee(ctx, EmployeeInput{ID: "e1", Name: "Ada L.", PIN: "1234"})
	require.NoError(t, err)
	assert.True(t, updated.Archived)
	assert.Equal(t, "Ada L.", updated.Name)
}

func TestSetArchived_HidesFromLookups(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()
	ts.addEmployee(t, "e1", "Ada")

	matches, err := ts.FindByPIN(ctx, "1234")
	require.NoError(t, err)
	require.Len(t, matches, 1)

	require.NoError(t, ts.SetArchived(ctx, "e1", true))

	matches, err = ts.FindByPIN(ctx, "1234")
	require.NoError(t, err)
	assert.Empty(t, matches)
	_, err = ts.FindByBadge(ctx, "e1")
	assert.True(t, store.IsNotFound(err))

	// Unarchive restores visibility with history intact.
	require.NoError(t, ts.SetArchived(ctx, "e1", false))
	emp, err := ts.FindByBadge(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", emp.Name)
}

func TestFindByPIN_SharedPINReturnsAll(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()
	ts.addEmployee(t, "e1", "Ada")
	ts.addEmployee(t, "e2", "Grace")

	matches, err := ts.FindByPIN(ctx, "1234")
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestDeleteEmployee_RemovesTheirRecords(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()
	ts.addEmployee(t, "e1", "Ada")
	ts.addEmployee(t, "e2", "Grace")

	for _, id := range []string{"e1", "e2"} {
		_, err := ts.ClockIn(ctx, id, "")
		require.NoError(t, err)
		ts.advance(8 * time.Hour)
		_, err = ts.ClockOut(ctx, id)
		require.NoError(t, err)
	}

	require.NoError(t, ts.DeleteEmployee(ctx, "e1"))

	_, err := ts.FindByBadge(ctx, "e1")
	assert.True(t, store.IsNotFound(err))
	records, err := ts.TimeRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "e2", records[0].EmployeeID)
}

func TestRenameEmployeeID_CascadesOverRecords(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()
	ts.addEmployee(t, "HQ-001", "Ada")

	for day := 0; day < 3; day++ {
		_, err := ts.ClockIn(ctx, "HQ-001", "")
		require.NoError(t, err)
		ts.advance(8 * time.Hour)
		_, err = ts.ClockOut(ctx, "HQ-001")
		require.NoError(t, err)
		ts.advance(16 * time.Hour)
	}

	require.NoError(t, ts.RenameEmployeeID(ctx, "HQ-001", "HQ-099"))

	// The badge follows the new id.
	_, err := ts.FindByBadge(ctx, "HQ-001")
	assert.True(t, store.IsNotFound(err))
	emp, err := ts.FindByBadge(ctx, "HQ-099")
	require.NoError(t, err)
	assert.Equal(t, "Ada", emp.Name)

	// Every record followed, so history queries by the new id are whole.
	records, err := ts.TimeRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, rec := range records {
		assert.Equal(t, "HQ-099", rec.EmployeeID)
	}
}

func TestRenameEmployeeID_RejectsEmptyAndTaken(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()
	ts.addEmployee(t, "a", "Ada")
	ts.addEmployee(t, "b", "Grace")

	assert.Error(t, ts.RenameEmployeeID(ctx, "a", ""))
	assert.True(t, store.IsDuplicateKey(ts.RenameEmployeeID(ctx, "a", "b")))
}
