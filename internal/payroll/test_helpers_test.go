package payroll

import (
	"fmt"
	"time"

	"github.com/timekiosk/timekiosk/internal/model"
)

var testZone = time.FixedZone("EST", -5*60*60)

// at builds a timestamp on a given day offset (days after Mon 2025-01-06)
// at hour:min in the test zone.
func at(dayOffset, hour, min int) time.Time {
	base := time.Date(2025, time.January, 6, 0, 0, 0, 0, testZone)
	return base.AddDate(0, 0, dayOffset).Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
}

// punch builds a closed record for emp spanning in..out.
func punch(emp string, in, out time.Time) model.TimeRecord {
	return model.TimeRecord{
		ID:         fmt.Sprintf("rec-%s-%d", emp, in.Unix()),
		EmployeeID: emp,
		LocationID: "LOC01",
		ClockIn:    in,
		ClockOut:   &out,
	}
}

// openPunch builds a record that is still clocked in.
func openPunch(emp string, in time.Time) model.TimeRecord {
	return model.TimeRecord{
		ID:         fmt.Sprintf("rec-%s-%d", emp, in.Unix()),
		EmployeeID: emp,
		LocationID: "LOC01",
		ClockIn:    in,
	}
}

// withBreak appends a closed break to a record.
func withBreak(r model.TimeRecord, start, end time.Time) model.TimeRecord {
	r.Breaks = append(r.Breaks, model.BreakInterval{Start: start, End: &end})
	return r
}

// withOpenBreak appends an ongoing break to a record.
func withOpenBreak(r model.TimeRecord, start time.Time) model.TimeRecord {
	r.Breaks = append(r.Breaks, model.BreakInterval{Start: start})
	return r
}
