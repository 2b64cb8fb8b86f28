package actions

import (
	"context"

	"github.com/timekiosk/timekiosk/internal/model"
	"github.com/timekiosk/timekiosk/internal/store"
)

// FindByPIN returns every active employee with the given PIN. PINs are
// not unique: when several match, the kiosk shows the list and the user
// picks themselves.
func (s *Service) FindByPIN(ctx context.Context, pin string) ([]model.Employee, error) {
	emps, err := s.employees(ctx)
	if err != nil {
		return nil, err
	}
	matches := []model.Employee{}
	for _, emp := range emps {
		if emp.Archived || emp.PIN != pin {
			continue
		}
		matches = append(matches, emp)
	}
	return matches, nil
}

// FindByBadge resolves a scanned badge. The badge payload is the
// employee id. Archived employees scan as not found.
func (s *Service) FindByBadge(ctx context.Context, badge string) (model.Employee, error) {
	emp, err := s.employee(ctx, badge)
	if err != nil {
		return model.Employee{}, err
	}
	if emp.Archived {
		return model.Employee{}, &store.Error{
			Code:       store.ErrCodeNotFound,
			Collection: model.CollectionEmployees,
			ID:         badge,
			Message:    "employee is archived",
		}
	}
	return emp, nil
}
