// Package actions is the application's only mutation path. Every kiosk
// and admin operation goes through a Service method, which validates
// input, enforces the punch invariants, and writes through the store.
// Nothing else in the process writes documents directly.
package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/timekiosk/timekiosk/internal/model"
	"github.com/timekiosk/timekiosk/internal/store"
)

// Punch-flow errors. These are user-visible conditions, not faults: the
// kiosk renders them as prompts ("you are already clocked in").
var (
	ErrAlreadyClockedIn = errors.New("employee already has an open time record")
	ErrNotClockedIn     = errors.New("employee has no open time record")
)

// Service executes application actions against a device store.
type Service struct {
	store    *store.Store
	log      *zap.Logger
	validate *validator.Validate

	// now is replaced in tests to pin punch timestamps.
	now func() time.Time
}

// NewService wires a service over an open store.
func NewService(st *store.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    st,
		log:      logger,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Store exposes the underlying store for subscription and replication
// wiring. Mutations still belong to the service.
func (s *Service) Store() *store.Store {
	return s.store
}

// employee loads one employee, tombstones excluded.
func (s *Service) employee(ctx context.Context, id string) (model.Employee, error) {
	doc, err := s.store.Get(ctx, model.CollectionEmployees, id)
	if err != nil {
		return model.Employee{}, err
	}
	var emp model.Employee
	if err := json.Unmarshal(doc.Body, &emp); err != nil {
		return model.Employee{}, fmt.Errorf("decode employee %s: %w", id, err)
	}
	return emp, nil
}

// employees loads all live employees.
func (s *Service) employees(ctx context.Context) ([]model.Employee, error) {
	docs, err := s.store.List(ctx, model.CollectionEmployees)
	if err != nil {
		return nil, err
	}
	out := make([]model.Employee, 0, len(docs))
	for _, doc := range docs {
		var emp model.Employee
		if err := json.Unmarshal(doc.Body, &emp); err != nil {
			return nil, fmt.Errorf("decode employee %s: %w", doc.ID, err)
		}
		out = append(out, emp)
	}
	return out, nil
}

// timeRecords loads all live time records.
func (s *Service) timeRecords(ctx context.Context) ([]model.TimeRecord, error) {
	docs, err := s.store.List(ctx, model.CollectionTimeRecords)
	if err != nil {
		return nil, err
	}
	out := make([]model.TimeRecord, 0, len(docs))
	for _, doc := range docs {
		var rec model.TimeRecord
		if err := json.Unmarshal(doc.Body, &rec); err != nil {
			return nil, fmt.Errorf("decode time record %s: %w", doc.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// TimeRecords returns every live time record, for reporting.
func (s *Service) TimeRecords(ctx context.Context) ([]model.TimeRecord, error) {
	return s.timeRecords(ctx)
}

// Employees returns every live employee, archived included, for admin
// listings and reporting.
func (s *Service) Employees(ctx context.Context) ([]model.Employee, error) {
	return s.employees(ctx)
}

// upsertRecord writes a full time record back through the store.
func (s *Service) upsertRecord(ctx context.Context, rec model.TimeRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode time record %s: %w", rec.ID, err)
	}
	if _, err := s.store.Upsert(ctx, model.CollectionTimeRecords, body); err != nil {
		return err
	}
	return nil
}
