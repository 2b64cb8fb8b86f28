package actions

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/timekiosk/timekiosk/internal/model"
	"github.com/timekiosk/timekiosk/internal/store"
)

// EmployeeInput is the admin payload for creating or updating an
// employee. The id doubles as the badge payload, so it is required and
// chosen by the admin, not generated.
type EmployeeInput struct {
	ID              string `validate:"required,max=100"`
	Name            string `validate:"required,max=200"`
	PIN             string `validate:"required,numeric,len=4"`
	ImageURL        string `validate:"omitempty,max=2000"`
	AutoDeductLunch bool
	LocationID      string
	DepartmentID    string
	IsTemp          bool
	TempAgency      string
}

func (in EmployeeInput) toModel(archived bool) model.Employee {
	return model.Employee{
		ID:              in.ID,
		Name:            in.Name,
		PIN:             in.PIN,
		ImageURL:        in.ImageURL,
		Archived:        archived,
		AutoDeductLunch: in.AutoDeductLunch,
		LocationID:      in.LocationID,
		DepartmentID:    in.DepartmentID,
		IsTemp:          in.IsTemp,
		TempAgency:      in.TempAgency,
	}
}

// CreateEmployee adds a new employee. Duplicate ids are rejected, since
// two badges must never resolve to the same payload.
func (s *Service) CreateEmployee(ctx context.Context, in EmployeeInput) (model.Employee, error) {
	if err := s.validate.Struct(in); err != nil {
		return model.Employee{}, fmt.Errorf("invalid employee: %w", err)
	}
	emp := in.toModel(false)
	body, err := json.Marshal(emp)
	if err != nil {
		return model.Employee{}, fmt.Errorf("encode employee: %w", err)
	}
	if _, err := s.store.Insert(ctx, model.CollectionEmployees, body); err != nil {
		return model.Employee{}, err
	}
	s.log.Info("employee created", zap.String("employee", emp.ID))
	return emp, nil
}

// UpdateEmployee replaces an employee's editable fields, preserving the
// archived flag.
func (s *Service) UpdateEmployee(ctx context.Context, in EmployeeInput) (model.Employee, error) {
	if err := s.validate.Struct(in); err != nil {
		return model.Employee{}, fmt.Errorf("invalid employee: %w", err)
	}
	current, err := s.employee(ctx, in.ID)
	if err != nil {
		return model.Employee{}, err
	}
	emp := in.toModel(current.Archived)
	body, err := json.Marshal(emp)
	if err != nil {
		return model.Employee{}, fmt.Errorf("encode employee: %w", err)
	}
	if _, err := s.store.Upsert(ctx, model.CollectionEmployees, body); err != nil {
		return model.Employee{}, err
	}
	return emp, nil
}

// SetArchived archives or unarchives an employee. Archiving keeps the
// record and its punch history but hides the employee from every kiosk
// lookup.
func (s *Service) SetArchived(ctx context.Context, id string, archived bool) error {
	_, err := s.store.Patch(ctx, model.CollectionEmployees, id, map[string]any{"archived": archived})
	if err != nil {
		return err
	}
	s.log.Info("employee archive flag changed",
		zap.String("employee", id),
		zap.Bool("archived", archived))
	return nil
}

// DeleteEmployee permanently removes an employee and every time record
// they own. Archive is the recoverable path; this one is for records
// created by mistake.
func (s *Service) DeleteEmployee(ctx context.Context, id string) error {
	if _, err := s.employee(ctx, id); err != nil {
		return err
	}
	records, err := s.timeRecords(ctx)
	if err != nil {
		return err
	}
	removed := 0
	for _, rec := range records {
		if rec.EmployeeID != id {
			continue
		}
		if err := s.store.Remove(ctx, model.CollectionTimeRecords, rec.ID); err != nil {
			return err
		}
		removed++
	}
	if err := s.store.Remove(ctx, model.CollectionEmployees, id); err != nil {
		return err
	}
	s.log.Info("employee deleted",
		zap.String("employee", id),
		zap.Int("records_removed", removed))
	return nil
}

// RenameEmployeeID changes an employee's id (their badge payload) and
// rewrites every time record that references the old id, atomically.
func (s *Service) RenameEmployeeID(ctx context.Context, oldID, newID string) error {
	if newID == "" {
		return fmt.Errorf("invalid employee: new id must not be empty")
	}
	return s.store.RenameID(ctx, model.CollectionEmployees, oldID, newID,
		store.RenameRef{Collection: model.CollectionTimeRecords, Field: "employeeId"})
}
