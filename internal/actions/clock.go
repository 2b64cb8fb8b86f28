package actions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/timekiosk/timekiosk/internal/model"
)

// ClockIn opens a new time record for an employee. At most one record may
// be open per employee; a second clock-in is rejected, not stacked.
// Archived employees cannot punch.
func (s *Service) ClockIn(ctx context.Context, employeeID, locationID string) (model.TimeRecord, error) {
	emp, err := s.activeEmployee(ctx, employeeID)
	if err != nil {
		return model.TimeRecord{}, err
	}
	open, err := s.openRecord(ctx, employeeID)
	if err != nil {
		return model.TimeRecord{}, err
	}
	if open != nil {
		return model.TimeRecord{}, ErrAlreadyClockedIn
	}

	if locationID == "" {
		locationID = emp.LocationID
	}
	rec := model.TimeRecord{
		ID:         uuid.NewString(),
		EmployeeID: employeeID,
		LocationID: locationID,
		ClockIn:    s.now(),
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return model.TimeRecord{}, fmt.Errorf("encode time record: %w", err)
	}
	if _, err := s.store.Insert(ctx, model.CollectionTimeRecords, body); err != nil {
		return model.TimeRecord{}, err
	}
	s.log.Info("clock in",
		zap.String("employee", employeeID),
		zap.String("record", rec.ID))
	return rec, nil
}

// ClockOut closes the employee's open time record. An open break is
// closed at the same instant: walking out while on break ends both.
func (s *Service) ClockOut(ctx context.Context, employeeID string) (model.TimeRecord, error) {
	if _, err := s.activeEmployee(ctx, employeeID); err != nil {
		return model.TimeRecord{}, err
	}
	open, err := s.openRecord(ctx, employeeID)
	if err != nil {
		return model.TimeRecord{}, err
	}
	if open == nil {
		return model.TimeRecord{}, ErrNotClockedIn
	}

	now := s.now()
	if i := open.OpenBreak(); i >= 0 {
		end := now
		open.Breaks[i].End = &end
	}
	open.ClockOut = &now
	if err := s.upsertRecord(ctx, *open); err != nil {
		return model.TimeRecord{}, err
	}
	s.log.Info("clock out",
		zap.String("employee", employeeID),
		zap.String("record", open.ID))
	return *open, nil
}

// StartBreak opens a break on the employee's open record. Starting a
// break while one is already open is a no-op, which keeps a double-tap on
// the kiosk harmless.
func (s *Service) StartBreak(ctx context.Context, employeeID string) (model.TimeRecord, error) {
	if _, err := s.activeEmployee(ctx, employeeID); err != nil {
		return model.TimeRecord{}, err
	}
	open, err := s.openRecord(ctx, employeeID)
	if err != nil {
		return model.TimeRecord{}, err
	}
	if open == nil {
		return model.TimeRecord{}, ErrNotClockedIn
	}
	if open.OpenBreak() >= 0 {
		return *open, nil
	}

	open.Breaks = append(open.Breaks, model.BreakInterval{Start: s.now()})
	if err := s.upsertRecord(ctx, *open); err != nil {
		return model.TimeRecord{}, err
	}
	s.log.Info("break started",
		zap.String("employee", employeeID),
		zap.String("record", open.ID))
	return *open, nil
}

// EndBreak closes the open break. No open break is a no-op.
func (s *Service) EndBreak(ctx context.Context, employeeID string) (model.TimeRecord, error) {
	if _, err := s.activeEmployee(ctx, employeeID); err != nil {
		return model.TimeRecord{}, err
	}
	open, err := s.openRecord(ctx, employeeID)
	if err != nil {
		return model.TimeRecord{}, err
	}
	if open == nil {
		return model.TimeRecord{}, ErrNotClockedIn
	}
	i := open.OpenBreak()
	if i < 0 {
		return *open, nil
	}

	end := s.now()
	open.Breaks[i].End = &end
	if err := s.upsertRecord(ctx, *open); err != nil {
		return model.TimeRecord{}, err
	}
	s.log.Info("break ended",
		zap.String("employee", employeeID),
		zap.String("record", open.ID))
	return *open, nil
}

// OpenRecord returns the employee's open time record, or nil if they are
// clocked out. Used by the kiosk to decide which buttons to show.
func (s *Service) OpenRecord(ctx context.Context, employeeID string) (*model.TimeRecord, error) {
	return s.openRecord(ctx, employeeID)
}

// openRecord finds the most recent open record for an employee. The
// clock flows keep at most one open, but replication can momentarily
// merge in a second; latest clock-in wins so the flows stay coherent.
func (s *Service) openRecord(ctx context.Context, employeeID string) (*model.TimeRecord, error) {
	records, err := s.timeRecords(ctx)
	if err != nil {
		return nil, err
	}
	var latest *model.TimeRecord
	for i := range records {
		rec := &records[i]
		if rec.EmployeeID != employeeID || !rec.Open() {
			continue
		}
		if latest == nil || rec.ClockIn.After(latest.ClockIn) {
			latest = rec
		}
	}
	return latest, nil
}

// activeEmployee loads an employee and rejects archived ones.
func (s *Service) activeEmployee(ctx context.Context, id string) (model.Employee, error) {
	emp, err := s.employee(ctx, id)
	if err != nil {
		return model.Employee{}, err
	}
	if emp.Archived {
		return model.Employee{}, fmt.Errorf("employee %s is archived", id)
	}
	return emp, nil
}
