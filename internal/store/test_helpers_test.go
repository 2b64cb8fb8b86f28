package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
)

// createTestStore opens a fresh store under t.TempDir.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kiosk.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// employeeBody builds a minimal valid employee document.
func employeeBody(id, name string) json.RawMessage {
	return mustJSON(map[string]any{"id": id, "name": name, "pin": "1234"})
}

// timeRecordBody builds a closed time record for an employee.
func timeRecordBody(id, employeeID string) json.RawMessage {
	return mustJSON(map[string]any{
		"id":         id,
		"employeeId": employeeID,
		"clockIn":    "2025-01-06T09:00:00Z",
		"clockOut":   "2025-01-06T17:00:00Z",
	})
}

func settingsBody(weekStartDay int) json.RawMessage {
	return mustJSON(map[string]any{"id": "GLOBAL_SETTINGS", "weekStartDay": weekStartDay})
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal test body: %v", err))
	}
	return b
}

// bodyField unmarshals one top-level field out of a document body.
func bodyField(t *testing.T, body json.RawMessage, field string) any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatalf("body is not an object: %v", err)
	}
	return m[field]
}
