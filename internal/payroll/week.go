package payroll

import "time"

// Day truncates t to local midnight. Day boundaries are calendar days in
// the record's own zone, not UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// WeekStart returns the midnight that begins the week containing t.
// startDay follows time.Weekday numbering: 0 = Sunday .. 6 = Saturday.
//
// Idempotent: WeekStart(WeekStart(t, s), s) == WeekStart(t, s), and the
// result is never more than six days before t.
func WeekStart(t time.Time, startDay int) time.Time {
	d := Day(t)
	diff := int(d.Weekday()) - startDay
	if diff < 0 {
		diff += 7
	}
	// AddDate keeps midnight across DST transitions, unlike Add(-24h*n).
	return d.AddDate(0, 0, -diff)
}
