package payroll

import (
	"sort"
	"time"

	"github.com/timekiosk/timekiosk/internal/model"
)

// Split is one record's share of regular and overtime work.
type Split struct {
	Regular  time.Duration
	Overtime time.Duration
}

// Accumulator assigns each record its own regular/overtime share while
// streaming over records sorted by clock-in. A record that pushes its
// employee-week across the 40-hour threshold is itself split between the
// two buckets.
//
// The lunch deduction is charged to the record that pushes its day past
// eight hours, which keeps the accumulated weekly totals identical to the
// whole-week method regardless of how records interleave across employees.
type Accumulator struct {
	weekStartDay int
	lunch        map[string]bool // employee id -> AutoDeductLunch
	weeks        map[string]time.Duration
	days         map[string]time.Duration
	deducted     map[string]bool
}

// NewAccumulator prepares a streaming pass. The employee list supplies
// the per-employee lunch flags; unknown employee ids get no deduction.
func NewAccumulator(weekStartDay int, employees []model.Employee) *Accumulator {
	lunch := make(map[string]bool, len(employees))
	for _, e := range employees {
		lunch[e.ID] = e.AutoDeductLunch
	}
	return &Accumulator{
		weekStartDay: weekStartDay,
		lunch:        lunch,
		weeks:        make(map[string]time.Duration),
		days:         make(map[string]time.Duration),
		deducted:     make(map[string]bool),
	}
}

// Add folds one record into the running totals and returns its split.
// Callers must feed records in ascending clock-in order for per-record
// splits to be meaningful; the final totals do not depend on order.
func (a *Accumulator) Add(r model.TimeRecord) Split {
	d := RecordDuration(r)

	// Lunch: charge the day's one-time deduction to whichever record
	// crosses the eight hour mark. The contribution may go negative when
	// a short record triggers the deduction; that keeps day and week
	// totals exact.
	if a.lunch[r.EmployeeID] {
		dayKey := r.EmployeeID + "|" + Day(r.ClockIn).Format(dateKey)
		before := a.days[dayKey]
		a.days[dayKey] = before + d
		if !a.deducted[dayKey] && before+d > LunchThreshold {
			d -= LunchDeduction
			a.deducted[dayKey] = true
		}
	}

	weekKey := r.EmployeeID + "|" + WeekStart(r.ClockIn, a.weekStartDay).Format(dateKey)
	before := a.weeks[weekKey]
	after := before + d
	a.weeks[weekKey] = after

	switch {
	case before >= WeeklyOvertimeThreshold:
		return Split{Overtime: d}
	case after > WeeklyOvertimeThreshold:
		return Split{
			Regular:  WeeklyOvertimeThreshold - before,
			Overtime: after - WeeklyOvertimeThreshold,
		}
	default:
		return Split{Regular: d}
	}
}

// EmployeeSummary totals one employee's splits across a report range.
type EmployeeSummary struct {
	EmployeeID string
	Regular    time.Duration
	Overtime   time.Duration
	DaysWorked int
	Records    []RecordSplit
}

// RecordSplit pairs a record with its streaming split.
type RecordSplit struct {
	Record model.TimeRecord
	Split  Split
}

// Summarize runs the streaming pass over a record set and groups the
// results per employee. Records are sorted by clock-in internally, so
// callers may pass them in any order.
func Summarize(employees []model.Employee, records []model.TimeRecord, weekStartDay int) map[string]*EmployeeSummary {
	sorted := make([]model.TimeRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ClockIn.Before(sorted[j].ClockIn) })

	acc := NewAccumulator(weekStartDay, employees)
	out := make(map[string]*EmployeeSummary)
	days := make(map[string]bool)

	for _, r := range sorted {
		split := acc.Add(r)
		sum, ok := out[r.EmployeeID]
		if !ok {
			sum = &EmployeeSummary{EmployeeID: r.EmployeeID}
			out[r.EmployeeID] = sum
		}
		sum.Regular += split.Regular
		sum.Overtime += split.Overtime
		sum.Records = append(sum.Records, RecordSplit{Record: r, Split: split})

		dayKey := r.EmployeeID + "|" + Day(r.ClockIn).Format(dateKey)
		if !days[dayKey] {
			days[dayKey] = true
			sum.DaysWorked++
		}
	}
	return out
}
