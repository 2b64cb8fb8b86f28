// Package model defines the five record kinds stored by the kiosk and the
// collection names shared by the store, replication, and hub.
//
// All timestamps serialize as RFC 3339 strings on the wire and at rest so
// documents stay byte-compatible across devices regardless of platform.
package model

import "time"

// Collection names. These are wire-visible: they appear in replication URLs
// ({base}/{collection}/) and must never change once devices have synced.
const (
	CollectionEmployees   = "employees"
	CollectionTimeRecords = "timerecords"
	CollectionLocations   = "locations"
	CollectionDepartments = "departments"
	CollectionSettings    = "settings"
)

// Collections lists every collection in canonical order. Replication starts
// one stream per entry; teardown cancels them as a unit.
var Collections = []string{
	CollectionEmployees,
	CollectionTimeRecords,
	CollectionLocations,
	CollectionDepartments,
	CollectionSettings,
}

// SettingsID is the primary key of the process-wide settings singleton.
const SettingsID = "GLOBAL_SETTINGS"

// Employee is a kiosk user. The id doubles as the QR badge payload, so
// renaming it requires cascading every TimeRecord that references it
// (see actions.RenameEmployeeID).
type Employee struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	// PIN is a 4-digit code. Not unique: several employees may share one,
	// in which case the kiosk asks the user to pick themselves from a list.
	PIN             string `json:"pin"`
	ImageURL        string `json:"imageUrl,omitempty"`
	Archived        bool   `json:"archived"`
	AutoDeductLunch bool   `json:"autoDeductLunch"`
	LocationID      string `json:"locationId,omitempty"`
	DepartmentID    string `json:"departmentId,omitempty"`
	IsTemp          bool   `json:"isTemp,omitempty"`
	TempAgency      string `json:"tempAgency,omitempty"`
}

// BreakInterval is one break within a TimeRecord. End is nil while the
// break is ongoing; once set it is never cleared.
type BreakInterval struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`
}

// TimeRecord is a single punch: one clock-in, at most one clock-out, and
// any number of breaks in between. A record with no ClockOut is "open",
// meaning the employee is currently clocked in.
type TimeRecord struct {
	ID         string          `json:"id"`
	EmployeeID string          `json:"employeeId"`
	LocationID string          `json:"locationId,omitempty"`
	ClockIn    time.Time       `json:"clockIn"`
	ClockOut   *time.Time      `json:"clockOut,omitempty"`
	Breaks     []BreakInterval `json:"breaks,omitempty"`
}

// Open reports whether the record has no clock-out yet.
func (r *TimeRecord) Open() bool {
	return r.ClockOut == nil
}

// OpenBreak returns the index of the ongoing break, or -1 if none.
// The actions layer guarantees at most one break is open at a time.
func (r *TimeRecord) OpenBreak() int {
	for i := range r.Breaks {
		if r.Breaks[i].End == nil {
			return i
		}
	}
	return -1
}

// Location is a physical site. Deleting one does not cascade: records and
// employees keep a dangling LocationID, and reports render "-" for it.
type Location struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation,omitempty"`
}

// Department mirrors Location's lifecycle, including non-cascading deletes.
type Department struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Settings is the singleton configuration record (id = SettingsID).
// RemoteDBURL drives replication: setting it starts the streams, clearing
// it cancels them.
type Settings struct {
	ID           string `json:"id"`
	LogoURL      string `json:"logoUrl,omitempty"`
	// WeekStartDay anchors week bucketing for all overtime math.
	// 0 = Sunday .. 6 = Saturday.
	WeekStartDay int    `json:"weekStartDay"`
	RemoteDBURL  string `json:"remoteDbUrl,omitempty"`
}

// DefaultSettings returns the settings used before an admin configures
// anything: Sunday week start, no logo, replication disabled.
func DefaultSettings() Settings {
	return Settings{ID: SettingsID, WeekStartDay: 0}
}
