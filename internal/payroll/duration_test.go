package payroll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timekiosk/timekiosk/internal/model"
)

func TestRecordDuration_Basic(t *testing.T) {
	r := punch("E1", at(0, 7, 0), at(0, 15, 30))
	assert.Equal(t, 8*time.Hour+30*time.Minute, RecordDuration(r))
}

func TestRecordDuration_OpenRecordIsZero(t *testing.T) {
	r := openPunch("E1", at(0, 7, 0))
	assert.Equal(t, time.Duration(0), RecordDuration(r))
}

func TestRecordDuration_ClockOutBeforeClockIn(t *testing.T) {
	// Clock skew or a bad manual edit: reported as invalid, never negative.
	r := punch("E1", at(0, 15, 0), at(0, 7, 0))
	assert.True(t, Invalid(r))
	assert.Equal(t, time.Duration(0), RecordDuration(r))
}

func TestRecordDuration_SubtractsClosedBreaks(t *testing.T) {
	r := punch("E1", at(0, 7, 0), at(0, 16, 0))
	r = withBreak(r, at(0, 11, 0), at(0, 11, 30))
	r = withBreak(r, at(0, 14, 0), at(0, 14, 15))

	assert.Equal(t, 8*time.Hour+15*time.Minute, RecordDuration(r))
}

func TestRecordDuration_OpenBreakDoesNotSubtract(t *testing.T) {
	r := punch("E1", at(0, 7, 0), at(0, 15, 0))
	r = withOpenBreak(r, at(0, 12, 0))

	assert.Equal(t, 8*time.Hour, RecordDuration(r))
}

func TestRecordDuration_BreaksExceedingShiftClampToZero(t *testing.T) {
	r := punch("E1", at(0, 7, 0), at(0, 7, 30))
	r = withBreak(r, at(0, 7, 0), at(0, 9, 0))

	assert.Equal(t, time.Duration(0), RecordDuration(r))
}

func TestDailyTotals_LunchDeduction(t *testing.T) {
	emp := model.Employee{ID: "E1", Name: "Alice", PIN: "1234", AutoDeductLunch: true}

	tests := []struct {
		name      string
		worked    time.Duration
		wantTotal time.Duration
		deducted  bool
	}{
		{"under threshold", 7 * time.Hour, 7 * time.Hour, false},
		{"exactly eight hours", 8 * time.Hour, 8 * time.Hour, false},
		{"just over threshold", 8*time.Hour + time.Minute, 7*time.Hour + 31*time.Minute, true},
		{"well over threshold", 10 * time.Hour, 9*time.Hour + 30*time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := at(0, 7, 0)
			r := punch("E1", in, in.Add(tt.worked))

			totals := DailyTotals(emp, []model.TimeRecord{r})
			require.Len(t, totals, 1)
			assert.Equal(t, tt.wantTotal, totals[0].Total)
			assert.Equal(t, tt.deducted, totals[0].LunchDeducted)
		})
	}
}

func TestDailyTotals_DeductionOncePerDayAcrossRecords(t *testing.T) {
	// Two punches of 5h each on the same day: one deduction, not two.
	emp := model.Employee{ID: "E1", Name: "Alice", PIN: "1234", AutoDeductLunch: true}
	records := []model.TimeRecord{
		punch("E1", at(0, 6, 0), at(0, 11, 0)),
		punch("E1", at(0, 12, 0), at(0, 17, 0)),
	}

	totals := DailyTotals(emp, records)
	require.Len(t, totals, 1)
	assert.Equal(t, 9*time.Hour+30*time.Minute, totals[0].Total)
	assert.True(t, totals[0].LunchDeducted)
}

func TestDailyTotals_NoDeductionWithoutFlag(t *testing.T) {
	emp := model.Employee{ID: "E1", Name: "Alice", PIN: "1234", AutoDeductLunch: false}
	r := punch("E1", at(0, 7, 0), at(0, 17, 0))

	totals := DailyTotals(emp, []model.TimeRecord{r})
	require.Len(t, totals, 1)
	assert.Equal(t, 10*time.Hour, totals[0].Total)
	assert.False(t, totals[0].LunchDeducted)
}

func TestDailyTotals_IgnoresOtherEmployees(t *testing.T) {
	emp := model.Employee{ID: "E1", Name: "Alice", PIN: "1234"}
	records := []model.TimeRecord{
		punch("E1", at(0, 7, 0), at(0, 12, 0)),
		punch("E2", at(0, 7, 0), at(0, 19, 0)),
	}

	totals := DailyTotals(emp, records)
	require.Len(t, totals, 1)
	assert.Equal(t, 5*time.Hour, totals[0].Total)
}

func TestWeekTotals_RegularPlusOvertimeIdentity(t *testing.T) {
	emp := model.Employee{ID: "E1", Name: "Alice", PIN: "1234"}

	// Five 9-hour days: 45h total, 40 regular, 5 overtime.
	var records []model.TimeRecord
	for day := 0; day < 5; day++ {
		records = append(records, punch("E1", at(day, 7, 0), at(day, 16, 0)))
	}

	weeks := WeekTotals(emp, records, 1)
	require.Len(t, weeks, 1)

	w := weeks[0]
	assert.Equal(t, 45*time.Hour, w.Total)
	assert.Equal(t, 40*time.Hour, w.Regular)
	assert.Equal(t, 5*time.Hour, w.Overtime)
	assert.Equal(t, w.Total, w.Regular+w.Overtime)
}

func TestWeekTotals_UnderThresholdAllRegular(t *testing.T) {
	emp := model.Employee{ID: "E1", Name: "Alice", PIN: "1234"}
	records := []model.TimeRecord{punch("E1", at(0, 7, 0), at(0, 15, 0))}

	weeks := WeekTotals(emp, records, 1)
	require.Len(t, weeks, 1)
	assert.Equal(t, 8*time.Hour, weeks[0].Regular)
	assert.Equal(t, time.Duration(0), weeks[0].Overtime)
}

func TestWeekTotals_WeekStartDaySplitsBuckets(t *testing.T) {
	emp := model.Employee{ID: "E1", Name: "Alice", PIN: "1234"}

	// Sunday and Monday punches: one week with Sunday anchor, two with Monday.
	records := []model.TimeRecord{
		punch("E1", at(-1, 8, 0), at(-1, 16, 0)), // Sun 2025-01-05
		punch("E1", at(0, 8, 0), at(0, 16, 0)),   // Mon 2025-01-06
	}

	require.Len(t, WeekTotals(emp, records, 0), 1)
	require.Len(t, WeekTotals(emp, records, 1), 2)
}

func TestWeekTotals_LunchScenario(t *testing.T) {
	// Employee with autoDeductLunch clocks 07:00 to 15:36 (8h36m).
	// Daily total after deduction: 8h06m; sole record of the week.
	emp := model.Employee{ID: "E1", Name: "Alice", PIN: "1234", AutoDeductLunch: true}
	records := []model.TimeRecord{punch("E1", at(0, 7, 0), at(0, 15, 36))}

	weeks := WeekTotals(emp, records, 0)
	require.Len(t, weeks, 1)
	assert.Equal(t, 8*time.Hour+6*time.Minute, weeks[0].Total)
	assert.Equal(t, 8*time.Hour+6*time.Minute, weeks[0].Regular)
	assert.Equal(t, time.Duration(0), weeks[0].Overtime)
}
