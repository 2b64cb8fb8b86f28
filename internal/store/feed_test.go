package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/timekiosk/timekiosk/internal/model"
)

func TestSubscribe_SnapshotFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.Insert(ctx, model.CollectionEmployees, employeeBody("e1", "Ada")); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}

	var snapshots [][]Document
	sub, err := s.Subscribe(ctx, model.CollectionEmployees, nil, func(docs []Document) {
		snapshots = append(snapshots, docs)
	})
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	defer sub.Cancel()

	// The pre-existing state arrives before Subscribe returns.
	if len(snapshots) != 1 {
		t.Fatalf("snapshots after Subscribe = %d, want 1", len(snapshots))
	}
	if len(snapshots[0]) != 1 || snapshots[0][0].ID != "e1" {
		t.Errorf("initial snapshot = %+v, want [e1]", snapshots[0])
	}
}

func TestSubscribe_DeliversEveryCommitInOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	var sizes []int
	sub, err := s.Subscribe(ctx, model.CollectionEmployees, nil, func(docs []Document) {
		sizes = append(sizes, len(docs))
	})
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	defer sub.Cancel()

	if _, err := s.Insert(ctx, model.CollectionEmployees, employeeBody("e1", "Ada")); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	if _, err := s.Insert(ctx, model.CollectionEmployees, employeeBody("e2", "Grace")); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	if err := s.Remove(ctx, model.CollectionEmployees, "e1"); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}

	// Initial empty snapshot, then one snapshot per commit.
	want := []int{0, 1, 2, 1}
	if len(sizes) != len(want) {
		t.Fatalf("snapshot count = %d, want %d", len(sizes), len(want))
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Errorf("snapshot %d size = %d, want %d", i, sizes[i], want[i])
		}
	}
}

func TestSubscribe_PredicateFilters(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	archived := func(doc Document) bool {
		return bodyFieldBool(doc.Body, "archived")
	}

	var latest []Document
	sub, err := s.Subscribe(ctx, model.CollectionEmployees, archived, func(docs []Document) {
		latest = docs
	})
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	defer sub.Cancel()

	if _, err := s.Insert(ctx, model.CollectionEmployees, employeeBody("e1", "Active")); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	if len(latest) != 0 {
		t.Fatalf("non-matching insert leaked into filtered snapshot: %+v", latest)
	}

	if _, err := s.Patch(ctx, model.CollectionEmployees, "e1", map[string]any{"archived": true}); err != nil {
		t.Fatalf("Patch() failed: %v", err)
	}
	if len(latest) != 1 || latest[0].ID != "e1" {
		t.Errorf("filtered snapshot = %+v, want [e1]", latest)
	}
}

func TestSubscribe_CancelStopsDelivery(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	calls := 0
	sub, err := s.Subscribe(ctx, model.CollectionEmployees, nil, func(docs []Document) {
		calls++
	})
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}

	sub.Cancel()
	sub.Cancel() // idempotent

	if _, err := s.Insert(ctx, model.CollectionEmployees, employeeBody("e1", "Ada")); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls after Cancel = %d, want 1 (initial snapshot only)", calls)
	}
}

func TestSubscribe_CollectionsAreIsolated(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	calls := 0
	sub, err := s.Subscribe(ctx, model.CollectionEmployees, nil, func(docs []Document) {
		calls++
	})
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	defer sub.Cancel()

	if _, err := s.Insert(ctx, model.CollectionLocations, mustJSON(map[string]any{"id": "l1", "name": "Plant"})); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (other collection must not notify)", calls)
	}
}

func TestApplyRemote_NotifiesOncePerBatch(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	calls := 0
	sub, err := s.Subscribe(ctx, model.CollectionEmployees, nil, func(docs []Document) {
		calls++
	})
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	defer sub.Cancel()

	batch := []Document{
		{ID: "e1", Rev: "1-aaaaaaaaaaaaaaaa", Body: employeeBody("e1", "Ada")},
		{ID: "e2", Rev: "1-bbbbbbbbbbbbbbbb", Body: employeeBody("e2", "Grace")},
		{ID: "e3", Rev: "1-cccccccccccccccc", Body: employeeBody("e3", "Edsger")},
	}
	if _, err := s.ApplyRemote(ctx, model.CollectionEmployees, batch); err != nil {
		t.Fatalf("ApplyRemote() failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (initial snapshot plus one batch notify)", calls)
	}

	// A batch where every document loses does not notify at all.
	if _, err := s.ApplyRemote(ctx, model.CollectionEmployees, batch); err != nil {
		t.Fatalf("second ApplyRemote() failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls after no-op batch = %d, want 2", calls)
	}
}

func bodyFieldBool(body []byte, field string) bool {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return false
	}
	b, _ := m[field].(bool)
	return b
}
