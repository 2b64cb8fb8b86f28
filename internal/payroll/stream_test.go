package payroll

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timekiosk/timekiosk/internal/model"
)

func TestAccumulator_FridayStraddlesThreshold(t *testing.T) {
	// 38h Mon through Thu, then a 5h Friday record: the Friday record is
	// split 2h regular / 3h overtime, week ends at regular=40h overtime=3h.
	emp := model.Employee{ID: "E2", Name: "Bob", PIN: "5678"}
	acc := NewAccumulator(1, []model.Employee{emp})

	var reg, ot time.Duration
	for day := 0; day < 4; day++ {
		s := acc.Add(punch("E2", at(day, 7, 0), at(day, 16, 30))) // 9h30m each
		reg += s.Regular
		ot += s.Overtime
	}
	require.Equal(t, 38*time.Hour, reg)
	require.Equal(t, time.Duration(0), ot)

	friday := acc.Add(punch("E2", at(4, 7, 0), at(4, 12, 0)))
	assert.Equal(t, 2*time.Hour, friday.Regular)
	assert.Equal(t, 3*time.Hour, friday.Overtime)

	assert.Equal(t, 40*time.Hour, reg+friday.Regular)
	assert.Equal(t, 3*time.Hour, ot+friday.Overtime)
}

func TestAccumulator_EntirelyOvertimeOnceOverThreshold(t *testing.T) {
	emp := model.Employee{ID: "E1", Name: "Alice", PIN: "1234"}
	acc := NewAccumulator(1, []model.Employee{emp})

	for day := 0; day < 5; day++ {
		acc.Add(punch("E1", at(day, 7, 0), at(day, 15, 0))) // 8h x5 = 40h
	}

	s := acc.Add(punch("E1", at(5, 7, 0), at(5, 9, 0)))
	assert.Equal(t, time.Duration(0), s.Regular)
	assert.Equal(t, 2*time.Hour, s.Overtime)
}

func TestAccumulator_SeparatesEmployeesAndWeeks(t *testing.T) {
	emps := []model.Employee{
		{ID: "E1", Name: "Alice", PIN: "1234"},
		{ID: "E2", Name: "Bob", PIN: "5678"},
	}
	acc := NewAccumulator(1, emps)

	// 41h for E1 in week one, 41h for E2 in week two: both cross the
	// threshold independently.
	for day := 0; day < 5; day++ {
		acc.Add(punch("E1", at(day, 7, 0), at(day, 15, 12)))   // 8h12m
		acc.Add(punch("E2", at(day+7, 7, 0), at(day+7, 15, 12)))
	}

	require.Equal(t, 41*time.Hour, acc.weeks["E1|2025-01-06"])
	require.Equal(t, 41*time.Hour, acc.weeks["E2|2025-01-13"])
}

func TestSummarize_AgreesWithWholeWeekMethod(t *testing.T) {
	// The streaming split and the whole-week aggregate must land on the
	// same totals for the same input, regardless of insertion order.
	emps := []model.Employee{
		{ID: "E1", Name: "Alice", PIN: "1234", AutoDeductLunch: true},
		{ID: "E2", Name: "Bob", PIN: "5678"},
	}

	rng := rand.New(rand.NewSource(42))
	var records []model.TimeRecord
	for day := 0; day < 14; day++ {
		for _, emp := range emps {
			if rng.Intn(5) == 0 {
				continue // day off
			}
			start := at(day, 6+rng.Intn(3), rng.Intn(60))
			worked := time.Duration(6+rng.Intn(5)) * time.Hour
			records = append(records, punch(emp.ID, start, start.Add(worked)))
		}
	}

	// Shuffle to prove order independence of the final totals.
	rng.Shuffle(len(records), func(i, j int) { records[i], records[j] = records[j], records[i] })

	summaries := Summarize(emps, records, 0)

	for _, emp := range emps {
		var wantReg, wantOT time.Duration
		for _, w := range WeekTotals(emp, records, 0) {
			wantReg += w.Regular
			wantOT += w.Overtime
		}

		sum := summaries[emp.ID]
		require.NotNil(t, sum, "missing summary for %s", emp.ID)
		assert.Equal(t, wantReg, sum.Regular, "regular mismatch for %s", emp.ID)
		assert.Equal(t, wantOT, sum.Overtime, "overtime mismatch for %s", emp.ID)
	}
}

func TestSummarize_LunchDeductionChargedOnce(t *testing.T) {
	// Two short records crossing 8h on the same day: the second record
	// absorbs the single 30m deduction.
	emp := model.Employee{ID: "E1", Name: "Alice", PIN: "1234", AutoDeductLunch: true}
	records := []model.TimeRecord{
		punch("E1", at(0, 6, 0), at(0, 11, 0)),  // 5h
		punch("E1", at(0, 12, 0), at(0, 17, 0)), // 5h, day hits 10h here
	}

	summaries := Summarize([]model.Employee{emp}, records, 0)
	sum := summaries["E1"]
	require.NotNil(t, sum)
	assert.Equal(t, 9*time.Hour+30*time.Minute, sum.Regular+sum.Overtime)
}

func TestSummarize_DaysWorked(t *testing.T) {
	emp := model.Employee{ID: "E1", Name: "Alice", PIN: "1234"}
	records := []model.TimeRecord{
		punch("E1", at(0, 7, 0), at(0, 11, 0)),
		punch("E1", at(0, 12, 0), at(0, 16, 0)), // same day
		punch("E1", at(1, 7, 0), at(1, 15, 0)),
	}

	summaries := Summarize([]model.Employee{emp}, records, 0)
	require.NotNil(t, summaries["E1"])
	assert.Equal(t, 2, summaries["E1"].DaysWorked)
}
