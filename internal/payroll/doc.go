// Package payroll turns raw time records into worked-duration figures.
//
// Everything here is pure: no store access, no wall clock except where a
// "now" is passed in explicitly. Results are independent of the order in
// which records arrived on a device, which is what lets replicated devices
// agree on payroll totals without coordinating.
//
// Two computation paths exist and must agree on totals:
//   - whole-week aggregation (DailyTotals + WeekTotals), used by timecards
//   - streaming per-record splitting (Accumulator), used by reports that
//     need each record's own regular/overtime share
package payroll
