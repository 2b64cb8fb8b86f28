package actions

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/timekiosk/timekiosk/internal/model"
	"github.com/timekiosk/timekiosk/internal/store"
)

// testBase is a Monday morning in local time.
var testBase = time.Date(2025, 3, 3, 9, 0, 0, 0, time.Local)

// testService is a service over a temp store with a controllable clock.
type testService struct {
	*Service
	current time.Time
}

func newTestService(t *testing.T) *testService {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "kiosk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ts := &testService{Service: NewService(st, nil), current: testBase}
	ts.Service.now = func() time.Time { return ts.current }
	return ts
}

// advance moves the service clock forward.
func (ts *testService) advance(d time.Duration) {
	ts.current = ts.current.Add(d)
}

// addEmployee creates a minimal employee directly.
func (ts *testService) addEmployee(t *testing.T, id, name string) model.Employee {
	t.Helper()
	emp, err := ts.CreateEmployee(context.Background(), EmployeeInput{
		ID:   id,
		Name: name,
		PIN:  "1234",
	})
	require.NoError(t, err)
	return emp
}
