package actions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timekiosk/timekiosk/internal/model"
)

func TestReplaceLocations_DiffsAgainstStored(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()

	err := ts.ReplaceLocations(ctx, []model.Location{
		{ID: "plant", Name: "Plant"},
		{ID: "office", Name: "Office"},
	})
	require.NoError(t, err)

	// Replace: one kept, one renamed, one dropped, one added.
	err = ts.ReplaceLocations(ctx, []model.Location{
		{ID: "plant", Name: "Plant"},
		{ID: "office", Name: "Head Office"},
		{ID: "depot", Name: "Depot"},
	})
	require.NoError(t, err)

	locations, err := ts.Locations(ctx)
	require.NoError(t, err)
	byID := map[string]model.Location{}
	for _, loc := range locations {
		byID[loc.ID] = loc
	}
	assert.Len(t, locations, 3)
	assert.Equal(t, "Head Office", byID["office"].Name)
	assert.Equal(t, "Depot", byID["depot"].Name)

	err = ts.ReplaceLocations(ctx, []model.Location{{ID: "plant", Name: "Plant"}})
	require.NoError(t, err)
	locations, err = ts.Locations(ctx)
	require.NoError(t, err)
	assert.Len(t, locations, 1)
}

func TestReplaceLocations_UnchangedEntriesKeepTheirRevision(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()

	require.NoError(t, ts.ReplaceLocations(ctx, []model.Location{{ID: "plant", Name: "Plant"}}))
	before, err := ts.Store().Get(ctx, model.CollectionLocations, "plant")
	require.NoError(t, err)

	// Re-submitting the identical list must not churn revisions, or every
	// admin save would replicate the whole catalog again.
	require.NoError(t, ts.ReplaceLocations(ctx, []model.Location{{ID: "plant", Name: "Plant"}}))
	after, err := ts.Store().Get(ctx, model.CollectionLocations, "plant")
	require.NoError(t, err)
	assert.Equal(t, before.Rev, after.Rev)
}

func TestReplaceDepartments_DeletionDoesNotCascade(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()

	require.NoError(t, ts.ReplaceDepartments(ctx, []model.Department{{ID: "assembly", Name: "Assembly"}}))
	_, err := ts.CreateEmployee(ctx, EmployeeInput{
		ID: "e1", Name: "Ada", PIN: "1234", DepartmentID: "assembly",
	})
	require.NoError(t, err)

	require.NoError(t, ts.ReplaceDepartments(ctx, nil))

	// The employee keeps the dangling reference.
	emp, err := ts.FindByBadge(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "assembly", emp.DepartmentID)
}

func TestReplaceLocations_RejectsMissingFields(t *testing.T) {
	ts := newTestService(t)

	err := ts.ReplaceLocations(context.Background(), []model.Location{{ID: "", Name: "X"}})
	assert.Error(t, err)
}
