package actions

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/timekiosk/timekiosk/internal/model"
	"github.com/timekiosk/timekiosk/internal/store"
)

//go:embed seed.yaml
var seedYAML []byte

// seedData mirrors seed.yaml.
type seedData struct {
	Settings struct {
		WeekStartDay int `yaml:"weekStartDay"`
	} `yaml:"settings"`
	Locations []struct {
		ID           string `yaml:"id"`
		Name         string `yaml:"name"`
		Abbreviation string `yaml:"abbreviation"`
	} `yaml:"locations"`
	Departments []struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"departments"`
	Employees []struct {
		ID              string `yaml:"id"`
		Name            string `yaml:"name"`
		PIN             string `yaml:"pin"`
		AutoDeductLunch bool   `yaml:"autoDeductLunch"`
		LocationID      string `yaml:"locationId"`
		DepartmentID    string `yaml:"departmentId"`
		IsTemp          bool   `yaml:"isTemp"`
		TempAgency      string `yaml:"tempAgency"`
	} `yaml:"employees"`
}

// seedHistoryDays is how far back the synthetic punch history reaches.
const seedHistoryDays = 30

// SeedIfEmpty populates a brand new store with the embedded demo
// dataset: locations, departments, employees, default settings, and a
// month of weekday shift records. The check is count-based, so a store
// that already has employees (its own or replicated ones) is never
// touched. Returns whether seeding happened.
func (s *Service) SeedIfEmpty(ctx context.Context) (bool, error) {
	n, err := s.store.Count(ctx, model.CollectionEmployees)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	var data seedData
	if err := yaml.Unmarshal(seedYAML, &data); err != nil {
		return false, fmt.Errorf("parse seed data: %w", err)
	}

	for _, l := range data.Locations {
		if err := s.seedInsert(ctx, model.CollectionLocations, model.Location{
			ID: l.ID, Name: l.Name, Abbreviation: l.Abbreviation,
		}); err != nil {
			return false, err
		}
	}
	for _, d := range data.Departments {
		if err := s.seedInsert(ctx, model.CollectionDepartments, model.Department{
			ID: d.ID, Name: d.Name,
		}); err != nil {
			return false, err
		}
	}

	employees := make([]model.Employee, 0, len(data.Employees))
	for _, e := range data.Employees {
		emp := model.Employee{
			ID:              e.ID,
			Name:            e.Name,
			PIN:             e.PIN,
			AutoDeductLunch: e.AutoDeductLunch,
			LocationID:      e.LocationID,
			DepartmentID:    e.DepartmentID,
			IsTemp:          e.IsTemp,
			TempAgency:      e.TempAgency,
		}
		if err := s.seedInsert(ctx, model.CollectionEmployees, emp); err != nil {
			return false, err
		}
		employees = append(employees, emp)
	}

	// Settings are only defaulted, never overwritten: a replicated
	// settings document may already be present even when employees are
	// not.
	if _, err := s.store.Get(ctx, model.CollectionSettings, model.SettingsID); store.IsNotFound(err) {
		settings := model.DefaultSettings()
		settings.WeekStartDay = data.Settings.WeekStartDay
		if err := s.seedInsert(ctx, model.CollectionSettings, settings); err != nil {
			return false, err
		}
	} else if err != nil {
		return false, err
	}

	records, err := s.seedRecords(ctx, employees)
	if err != nil {
		return false, err
	}
	s.log.Info("store seeded",
		zap.Int("employees", len(employees)),
		zap.Int("records", records))
	return true, nil
}

// seedRecords writes a plausible punch history: one shift per employee
// per weekday, morning jitter, a half-hour lunch break.
func (s *Service) seedRecords(ctx context.Context, employees []model.Employee) (int, error) {
	rng := rand.New(rand.NewSource(s.now().UnixNano()))
	today := s.now()

	count := 0
	for back := seedHistoryDays; back >= 1; back-- {
		day := today.AddDate(0, 0, -back)
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		for _, emp := range employees {
			clockIn := time.Date(day.Year(), day.Month(), day.Day(), 8, rng.Intn(15), 0, 0, time.Local)
			clockOut := clockIn.Add(8*time.Hour + 30*time.Minute + time.Duration(rng.Intn(20))*time.Minute)
			lunchStart := time.Date(day.Year(), day.Month(), day.Day(), 12, rng.Intn(30), 0, 0, time.Local)
			lunchEnd := lunchStart.Add(30 * time.Minute)

			rec := model.TimeRecord{
				ID:         uuid.NewString(),
				EmployeeID: emp.ID,
				LocationID: emp.LocationID,
				ClockIn:    clockIn,
				ClockOut:   &clockOut,
				Breaks:     []model.BreakInterval{{Start: lunchStart, End: &lunchEnd}},
			}
			body, err := json.Marshal(rec)
			if err != nil {
				return count, fmt.Errorf("encode seed record: %w", err)
			}
			if _, err := s.store.Insert(ctx, model.CollectionTimeRecords, body); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

func (s *Service) seedInsert(ctx context.Context, collection string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode seed %s: %w", collection, err)
	}
	if _, err := s.store.Insert(ctx, collection, body); err != nil {
		return err
	}
	return nil
}
