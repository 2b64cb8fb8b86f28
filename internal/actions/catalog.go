package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/timekiosk/timekiosk/internal/model"
)

// ReplaceLocations makes the stored location list equal to the given
// one: new entries are inserted, changed ones rewritten, absent ones
// tombstoned. Deletions never cascade; employees and records keep a
// dangling locationId and reports render a dash for it.
func (s *Service) ReplaceLocations(ctx context.Context, locations []model.Location) error {
	desired := make(map[string]json.RawMessage, len(locations))
	for _, loc := range locations {
		if loc.ID == "" || loc.Name == "" {
			return fmt.Errorf("invalid location: id and name are required")
		}
		body, err := json.Marshal(loc)
		if err != nil {
			return fmt.Errorf("encode location %s: %w", loc.ID, err)
		}
		desired[loc.ID] = body
	}
	return s.replaceCollection(ctx, model.CollectionLocations, desired)
}

// ReplaceDepartments mirrors ReplaceLocations for departments.
func (s *Service) ReplaceDepartments(ctx context.Context, departments []model.Department) error {
	desired := make(map[string]json.RawMessage, len(departments))
	for _, dept := range departments {
		if dept.ID == "" || dept.Name == "" {
			return fmt.Errorf("invalid department: id and name are required")
		}
		body, err := json.Marshal(dept)
		if err != nil {
			return fmt.Errorf("encode department %s: %w", dept.ID, err)
		}
		desired[dept.ID] = body
	}
	return s.replaceCollection(ctx, model.CollectionDepartments, desired)
}

// Locations returns the live location list.
func (s *Service) Locations(ctx context.Context) ([]model.Location, error) {
	docs, err := s.store.List(ctx, model.CollectionLocations)
	if err != nil {
		return nil, err
	}
	out := make([]model.Location, 0, len(docs))
	for _, doc := range docs {
		var loc model.Location
		if err := json.Unmarshal(doc.Body, &loc); err != nil {
			return nil, fmt.Errorf("decode location %s: %w", doc.ID, err)
		}
		out = append(out, loc)
	}
	return out, nil
}

// Departments returns the live department list.
func (s *Service) Departments(ctx context.Context) ([]model.Department, error) {
	docs, err := s.store.List(ctx, model.CollectionDepartments)
	if err != nil {
		return nil, err
	}
	out := make([]model.Department, 0, len(docs))
	for _, doc := range docs {
		var dept model.Department
		if err := json.Unmarshal(doc.Body, &dept); err != nil {
			return nil, fmt.Errorf("decode department %s: %w", doc.ID, err)
		}
		out = append(out, dept)
	}
	return out, nil
}

// replaceCollection diffs the desired set against the stored one.
// Unchanged documents are left alone so their revisions do not churn
// through replication.
func (s *Service) replaceCollection(ctx context.Context, collection string, desired map[string]json.RawMessage) error {
	current, err := s.store.List(ctx, collection)
	if err != nil {
		return err
	}

	upserts, removes := 0, 0
	seen := make(map[string]bool, len(current))
	for _, doc := range current {
		seen[doc.ID] = true
		body, keep := desired[doc.ID]
		if !keep {
			if err := s.store.Remove(ctx, collection, doc.ID); err != nil {
				return err
			}
			removes++
			continue
		}
		if !bytes.Equal(normalizeJSON(doc.Body), normalizeJSON(body)) {
			if _, err := s.store.Upsert(ctx, collection, body); err != nil {
				return err
			}
			upserts++
		}
	}
	for id, body := range desired {
		if seen[id] {
			continue
		}
		if _, err := s.store.Insert(ctx, collection, body); err != nil {
			return err
		}
		upserts++
	}

	s.log.Info("collection replaced",
		zap.String("collection", collection),
		zap.Int("upserts", upserts),
		zap.Int("removes", removes))
	return nil
}

// normalizeJSON re-marshals a body so key order and whitespace do not
// defeat the equality check.
func normalizeJSON(body json.RawMessage) []byte {
	var v map[string]any
	if err := json.Unmarshal(body, &v); err != nil {
		return body
	}
	out, err := json.Marshal(v)
	if err != nil {
		return body
	}
	return out
}
