package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// RenameRef names a foreign-key field in another collection that must
// follow a renamed document id.
type RenameRef struct {
	Collection string
	Field      string
}

// RenameID changes a document's primary id and rewrites every reference
// to it in one transaction, so no observer ever sees the referencing
// documents pointing at a missing id. The old id is tombstoned and the
// new id inserted, which is how the rename replicates: remote stores
// apply the tombstone and the insert independently and converge on the
// same state.
func (s *Store) RenameID(ctx context.Context, collection, oldID, newID string, refs ...RenameRef) error {
	if oldID == newID {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	oldDoc, ok, err := s.readRow(ctx, collection, oldID)
	if err != nil {
		return err
	}
	if !ok || oldDoc.Deleted {
		return newNotFoundError(collection, oldID)
	}
	existing, ok, err := s.readRow(ctx, collection, newID)
	if err != nil {
		return err
	}
	if ok && !existing.Deleted {
		return newDuplicateKeyError(collection, newID)
	}

	newBody, err := rewriteField(oldDoc.Body, "id", newID)
	if err != nil {
		return newValidationError(collection, oldID, err.Error())
	}
	newRev := NewRev()
	if ok {
		newRev = BumpRev(existing.Rev)
	}

	// The cascade set is read before the transaction opens: the store runs
	// on a single SQLite connection, and a query against s.db while a tx
	// holds that connection would block forever. s.mu keeps the reads and
	// the transaction atomic with respect to other writers.
	type refUpdate struct {
		collection string
		doc        Document
	}
	var updates []refUpdate
	for _, ref := range refs {
		docs, err := s.List(ctx, ref.Collection)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			val, err := fieldString(doc.Body, ref.Field)
			if err != nil {
				return newValidationError(ref.Collection, doc.ID, err.Error())
			}
			if val != oldID {
				continue
			}
			body, err := rewriteField(doc.Body, ref.Field, newID)
			if err != nil {
				return newValidationError(ref.Collection, doc.ID, err.Error())
			}
			updates = append(updates, refUpdate{ref.Collection, Document{ID: doc.ID, Rev: BumpRev(doc.Rev), Body: body}})
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("rename %s/%s: %w", collection, oldID, err)
	}
	defer tx.Rollback()

	if _, err := s.commitOn(ctx, tx, collection, Document{ID: newID, Rev: newRev, Body: newBody}); err != nil {
		return err
	}
	if _, err := s.commitOn(ctx, tx, collection, Document{ID: oldID, Rev: BumpRev(oldDoc.Rev), Deleted: true}); err != nil {
		return err
	}
	for _, u := range updates {
		if _, err := s.commitOn(ctx, tx, u.collection, u.doc); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("rename %s/%s: %w", collection, oldID, err)
	}
	cascaded := len(updates)

	s.log.Info("renamed document id",
		zap.String("collection", collection),
		zap.String("old", oldID),
		zap.String("new", newID),
		zap.Int("cascaded", cascaded))

	s.notifyLocked(ctx, collection)
	for _, ref := range refs {
		s.notifyLocked(ctx, ref.Collection)
	}
	return nil
}

// rewriteField returns body with one top-level string field replaced.
func rewriteField(body json.RawMessage, field, value string) (json.RawMessage, error) {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("stored body is not a JSON object: %w", err)
	}
	fields[field] = value
	return json.Marshal(fields)
}

// fieldString reads a top-level string field, "" if absent or not a
// string.
func fieldString(body json.RawMessage, field string) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", fmt.Errorf("stored body is not a JSON object: %w", err)
	}
	raw, ok := fields[field]
	if !ok {
		return "", nil
	}
	var val string
	if err := json.Unmarshal(raw, &val); err != nil {
		return "", nil
	}
	return val, nil
}
