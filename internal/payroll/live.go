package payroll

import (
	"time"

	"github.com/timekiosk/timekiosk/internal/model"
)

// LiveWorked returns the duration to display for an employee who is
// currently clocked in.
//
// While working: now minus clockIn minus all closed breaks. While on an
// open break the figure freezes at the value it had when the break
// started, so time on break never counts as worked. For a closed record
// this is simply RecordDuration.
func LiveWorked(r model.TimeRecord, now time.Time) time.Duration {
	if r.ClockOut != nil {
		return RecordDuration(r)
	}

	if open := r.OpenBreak(); open >= 0 {
		d := r.Breaks[open].Start.Sub(r.ClockIn) - closedBreakTotal(r.Breaks, open)
		if d < 0 {
			return 0
		}
		return d
	}

	d := now.Sub(r.ClockIn) - closedBreakTotal(r.Breaks, -1)
	if d < 0 {
		return 0
	}
	return d
}
