package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/timekiosk/timekiosk/internal/actions"
	"github.com/timekiosk/timekiosk/internal/model"
	"github.com/timekiosk/timekiosk/internal/payroll"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	From     string
	To       string
	Employee string
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a timecard report",
		Long: `Render a timecard report over a date range: days worked, regular and
overtime hours per employee, computed with the same rules the kiosk
shows live.

Example:
  timekiosk report --from 2025-01-06 --to 2025-01-19
  timekiosk report --from 2025-01-06 --to 2025-01-19 --employee HQ-001 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "start date, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.To, "to", "", "end date, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Employee, "employee", "", "limit to one employee id")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func runReport(ctx context.Context, opts *ReportOptions, out io.Writer) error {
	from, err := time.ParseInLocation("2006-01-02", opts.From, time.Local)
	if err != nil {
		return WrapExitError(ExitCommandError, "parse --from", err)
	}
	to, err := time.ParseInLocation("2006-01-02", opts.To, time.Local)
	if err != nil {
		return WrapExitError(ExitCommandError, "parse --to", err)
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	logger := newLogger(opts.RootOptions, cfg)
	defer logger.Sync()

	st, err := openDeviceStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	svc := actions.NewService(st, logger)
	employees, err := svc.Employees(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "load employees", err)
	}
	records, err := svc.TimeRecords(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "load time records", err)
	}
	settings, err := svc.Settings(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "load settings", err)
	}

	report := BuildReport(employees, records, settings.WeekStartDay, from, to, opts.Employee)
	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: out}
		return formatter.Success(report)
	}
	return RenderText(out, report)
}

// Report is the rendered timecard summary.
type Report struct {
	From string      `json:"from"`
	To   string      `json:"to"`
	Rows []ReportRow `json:"rows"`
}

// ReportRow is one employee's line.
type ReportRow struct {
	EmployeeID string `json:"employeeId"`
	Name       string `json:"name"`
	DaysWorked int    `json:"daysWorked"`
	Regular    string `json:"regular"`
	Overtime   string `json:"overtime"`
	Total      string `json:"total"`
}

// BuildReport runs the payroll pass over the records inside [from, to]
// and shapes the result for rendering. employeeID, when non-empty,
// limits the report to one employee.
func BuildReport(employees []model.Employee, records []model.TimeRecord, weekStartDay int, from, to time.Time, employeeID string) Report {
	end := to.AddDate(0, 0, 1)
	inRange := make([]model.TimeRecord, 0, len(records))
	for _, r := range records {
		if r.ClockIn.Before(from) || !r.ClockIn.Before(end) {
			continue
		}
		if employeeID != "" && r.EmployeeID != employeeID {
			continue
		}
		inRange = append(inRange, r)
	}

	summaries := payroll.Summarize(employees, inRange, weekStartDay)

	names := make(map[string]string, len(employees))
	for _, e := range employees {
		names[e.ID] = e.Name
	}

	report := Report{
		From: from.Format("2006-01-02"),
		To:   to.Format("2006-01-02"),
	}
	for id, sum := range summaries {
		name := names[id]
		if name == "" {
			// Replicated records can reference an employee this device has
			// not pulled yet.
			name = "-"
		}
		report.Rows = append(report.Rows, ReportRow{
			EmployeeID: id,
			Name:       name,
			DaysWorked: sum.DaysWorked,
			Regular:    fmtDuration(sum.Regular),
			Overtime:   fmtDuration(sum.Overtime),
			Total:      fmtDuration(sum.Regular + sum.Overtime),
		})
	}
	sort.Slice(report.Rows, func(i, j int) bool {
		if report.Rows[i].Name != report.Rows[j].Name {
			return report.Rows[i].Name < report.Rows[j].Name
		}
		return report.Rows[i].EmployeeID < report.Rows[j].EmployeeID
	})
	return report
}

// RenderText writes the fixed-width text rendering.
func RenderText(w io.Writer, report Report) error {
	if _, err := fmt.Fprintf(w, "Timecard %s to %s\n\n", report.From, report.To); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%-22s %-10s %5s %9s %9s %9s\n",
		"EMPLOYEE", "ID", "DAYS", "REGULAR", "OVERTIME", "TOTAL"); err != nil {
		return err
	}
	for _, row := range report.Rows {
		if _, err := fmt.Fprintf(w, "%-22s %-10s %5d %9s %9s %9s\n",
			row.Name, row.EmployeeID, row.DaysWorked, row.Regular, row.Overtime, row.Total); err != nil {
			return err
		}
	}
	if len(report.Rows) == 0 {
		if _, err := fmt.Fprintln(w, "(no records in range)"); err != nil {
			return err
		}
	}
	return nil
}

// fmtDuration renders a duration as H:MM.
func fmtDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	return fmt.Sprintf("%d:%02d", h, m)
}
