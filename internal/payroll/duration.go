package payroll

import (
	"sort"
	"time"

	"github.com/timekiosk/timekiosk/internal/model"
)

// Fixed policy constants. The 40-hour threshold is a property of the
// system, not a per-employee setting.
const (
	WeeklyOvertimeThreshold = 40 * time.Hour
	LunchThreshold          = 8 * time.Hour
	LunchDeduction          = 30 * time.Minute
)

// dateKey formats a midnight for use as a map key. Keying maps on
// time.Time directly is unreliable: two equal instants parsed from
// different documents may carry distinct *time.Location values.
const dateKey = "2006-01-02"

// Invalid reports whether a closed record has a clock-out before its
// clock-in (clock skew or a bad manual edit). Invalid records count as
// zero everywhere; a negative duration is never propagated.
func Invalid(r model.TimeRecord) bool {
	return r.ClockOut != nil && r.ClockOut.Before(r.ClockIn)
}

// RecordDuration returns the completed worked duration of a record:
// clockOut minus clockIn, minus the sum of closed break intervals.
//
// Open records contribute zero. They are "active" and excluded from
// aggregation until closed. Open breaks do not subtract. The result is
// clamped at zero.
func RecordDuration(r model.TimeRecord) time.Duration {
	if r.ClockOut == nil {
		return 0
	}
	d := r.ClockOut.Sub(r.ClockIn)
	if d < 0 {
		return 0
	}
	d -= closedBreakTotal(r.Breaks, -1)
	if d < 0 {
		return 0
	}
	return d
}

// closedBreakTotal sums closed break intervals, skipping index skip
// (pass -1 to include all). Negative intervals are ignored.
func closedBreakTotal(breaks []model.BreakInterval, skip int) time.Duration {
	var total time.Duration
	for i, b := range breaks {
		if i == skip || b.End == nil {
			continue
		}
		if d := b.End.Sub(b.Start); d > 0 {
			total += d
		}
	}
	return total
}

// DayTotal is one employee-day of work after the lunch rule.
type DayTotal struct {
	Day           time.Time
	Raw           time.Duration // sum of record durations, pre-deduction
	Total         time.Duration // Raw minus lunch deduction, floored at zero
	LunchDeducted bool
}

// WeekTotal is one employee-week split at the overtime threshold.
// Regular + Overtime always equals Total.
type WeekTotal struct {
	WeekStart time.Time
	Total     time.Duration
	Regular   time.Duration
	Overtime  time.Duration
}

// DailyTotals groups an employee's records by the calendar day of their
// clock-in and applies the lunch auto-deduction: if the employee has
// AutoDeductLunch and the day's raw total exceeds eight hours, thirty
// minutes come off that day. The deduction is applied once per day,
// never per record.
//
// Results are sorted by day. Input order does not matter.
func DailyTotals(emp model.Employee, records []model.TimeRecord) []DayTotal {
	days := make(map[string]*DayTotal)
	for _, r := range records {
		if r.EmployeeID != emp.ID {
			continue
		}
		day := Day(r.ClockIn)
		key := day.Format(dateKey)
		dt, ok := days[key]
		if !ok {
			dt = &DayTotal{Day: day}
			days[key] = dt
		}
		dt.Raw += RecordDuration(r)
	}

	totals := make([]DayTotal, 0, len(days))
	for _, dt := range days {
		dt.Total = dt.Raw
		if emp.AutoDeductLunch && dt.Raw > LunchThreshold {
			dt.Total = dt.Raw - LunchDeduction
			if dt.Total < 0 {
				dt.Total = 0
			}
			dt.LunchDeducted = true
		}
		totals = append(totals, *dt)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Day.Before(totals[j].Day) })
	return totals
}

// WeekTotals buckets an employee's lunch-adjusted daily totals into weeks
// anchored at weekStartDay and splits each week at the 40-hour threshold.
//
// Associative over the record set: any interleaving of the same records
// produces identical totals.
func WeekTotals(emp model.Employee, records []model.TimeRecord, weekStartDay int) []WeekTotal {
	weeks := make(map[string]*WeekTotal)
	for _, dt := range DailyTotals(emp, records) {
		start := WeekStart(dt.Day, weekStartDay)
		key := start.Format(dateKey)
		wt, ok := weeks[key]
		if !ok {
			wt = &WeekTotal{WeekStart: start}
			weeks[key] = wt
		}
		wt.Total += dt.Total
	}

	out := make([]WeekTotal, 0, len(weeks))
	for _, wt := range weeks {
		wt.Regular = min(wt.Total, WeeklyOvertimeThreshold)
		wt.Overtime = max(0, wt.Total-WeeklyOvertimeThreshold)
		out = append(out, *wt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStart.Before(out[j].WeekStart) })
	return out
}
