package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Insert creates a new document. The body must carry its own "id" field.
// Inserting over a live document fails with DUPLICATE_KEY; inserting over
// a tombstone resurrects the id with a bumped revision so the rebirth
// wins replication against the deletion.
func (s *Store) Insert(ctx context.Context, collection string, body json.RawMessage) (Document, error) {
	id, err := extractID(collection, body)
	if err != nil {
		return Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prior, ok, err := s.readRow(ctx, collection, id)
	if err != nil {
		return Document{}, err
	}
	if ok && !prior.Deleted {
		return Document{}, newDuplicateKeyError(collection, id)
	}

	rev := NewRev()
	if ok {
		rev = BumpRev(prior.Rev)
	}
	doc, err := s.commit(ctx, collection, Document{ID: id, Rev: rev, Body: body})
	if err != nil {
		return Document{}, err
	}
	s.notifyLocked(ctx, collection)
	return doc, nil
}

// Patch applies a shallow field merge to a live document and bumps its
// revision. Top-level keys in patch overwrite the stored values; absent
// keys are untouched. The id field is immutable: a patch naming a
// different id is rejected.
func (s *Store) Patch(ctx context.Context, collection, id string, patch map[string]any) (Document, error) {
	if newID, ok := patch["id"].(string); ok && newID != id {
		return Document{}, newValidationError(collection, id, "document id is immutable")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prior, ok, err := s.readRow(ctx, collection, id)
	if err != nil {
		return Document{}, err
	}
	if !ok || prior.Deleted {
		return Document{}, newNotFoundError(collection, id)
	}

	merged, err := mergeBody(prior.Body, patch)
	if err != nil {
		return Document{}, newValidationError(collection, id, err.Error())
	}
	doc, err := s.commit(ctx, collection, Document{ID: id, Rev: BumpRev(prior.Rev), Body: merged})
	if err != nil {
		return Document{}, err
	}
	s.notifyLocked(ctx, collection)
	return doc, nil
}

// Upsert writes the full body, creating the document or replacing it
// wholesale. Unlike Patch, missing fields are dropped, not preserved.
func (s *Store) Upsert(ctx context.Context, collection string, body json.RawMessage) (Document, error) {
	id, err := extractID(collection, body)
	if err != nil {
		return Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prior, ok, err := s.readRow(ctx, collection, id)
	if err != nil {
		return Document{}, err
	}
	rev := NewRev()
	if ok {
		rev = BumpRev(prior.Rev)
	}
	doc, err := s.commit(ctx, collection, Document{ID: id, Rev: rev, Body: body})
	if err != nil {
		return Document{}, err
	}
	s.notifyLocked(ctx, collection)
	return doc, nil
}

// Remove tombstones a document. The tombstone keeps the id and a bumped
// revision but no body, so the deletion replicates like any other write.
// Removing an absent or already-deleted id is a no-op.
func (s *Store) Remove(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior, ok, err := s.readRow(ctx, collection, id)
	if err != nil {
		return err
	}
	if !ok || prior.Deleted {
		return nil
	}

	if _, err := s.commit(ctx, collection, Document{ID: id, Rev: BumpRev(prior.Rev), Deleted: true}); err != nil {
		return err
	}
	s.notifyLocked(ctx, collection)
	return nil
}

// ApplyRemote merges a batch of replicated documents. Each document is
// kept only if its revision wins against the local one under CompareRevs;
// losers are dropped silently, which is what makes concurrent edits
// converge on every device. Winning documents get a fresh local seq so
// downstream replication and the change feed see them as new.
//
// Returns the number of documents applied. Subscribers are notified once
// for the whole batch, not per document.
func (s *Store) ApplyRemote(ctx context.Context, collection string, docs []Document) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := 0
	for _, doc := range docs {
		prior, ok, err := s.readRow(ctx, collection, doc.ID)
		if err != nil {
			return applied, err
		}
		if ok && CompareRevs(doc.Rev, prior.Rev) <= 0 {
			continue
		}
		if _, err := s.commit(ctx, collection, Document{
			ID:      doc.ID,
			Rev:     doc.Rev,
			Deleted: doc.Deleted,
			Body:    doc.Body,
		}); err != nil {
			return applied, err
		}
		applied++
	}

	if applied > 0 {
		s.log.Debug("applied remote batch",
			zap.String("collection", collection),
			zap.Int("applied", applied),
			zap.Int("received", len(docs)))
		s.notifyLocked(ctx, collection)
	}
	return applied, nil
}

// Subscribe registers a live query on a collection. The subscriber
// receives the current matching snapshot before Subscribe returns, then a
// fresh snapshot after every committed write, in commit order. Taking the
// store lock here makes the initial snapshot and the registration atomic:
// no write can slip between them.
func (s *Store) Subscribe(ctx context.Context, collection string, pred Predicate, fn SnapshotFunc) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	sub := s.feed.add(collection, pred, fn)
	fn(filterDocs(docs, pred))
	return sub, nil
}

// execer abstracts *sql.DB and *sql.Tx so single writes and the rename
// transaction share one commit path.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// commit validates, encodes and durably writes one document version,
// stamping it with the next seq. Callers hold s.mu. Tombstones skip the
// codec: they have no body to validate or encrypt.
func (s *Store) commit(ctx context.Context, collection string, doc Document) (Document, error) {
	return s.commitOn(ctx, s.db, collection, doc)
}

func (s *Store) commitOn(ctx context.Context, db execer, collection string, doc Document) (Document, error) {
	var stored []byte
	if !doc.Deleted {
		var err error
		stored, err = s.codec.Encode(collection, doc.Body)
		if err != nil {
			if se, ok := err.(*Error); ok && se.ID == "" {
				se.ID = doc.ID
			}
			return Document{}, err
		}
	}

	doc.Seq = s.clock.next()
	deleted := 0
	if doc.Deleted {
		deleted = 1
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, rev, deleted, body, seq)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			rev = excluded.rev,
			deleted = excluded.deleted,
			body = excluded.body,
			seq = excluded.seq
	`, collection, doc.ID, doc.Rev, deleted, stored, doc.Seq)
	if err != nil {
		return Document{}, fmt.Errorf("commit %s/%s: %w", collection, doc.ID, err)
	}
	return doc, nil
}

// notifyLocked fans the collection's post-commit snapshot out to
// subscribers. Callers hold s.mu, which is what guarantees subscribers
// see snapshots in commit order.
func (s *Store) notifyLocked(ctx context.Context, collection string) {
	docs, err := s.List(ctx, collection)
	if err != nil {
		s.log.Error("change feed snapshot failed",
			zap.String("collection", collection),
			zap.Error(err))
		return
	}
	s.feed.notify(collection, docs)
}

// readRow fetches the raw row for an id, tombstones included, without
// decoding the body. Used by the write path to decide between insert,
// bump and conflict.
func (s *Store) readRow(ctx context.Context, collection, id string) (Document, bool, error) {
	var doc Document
	var deleted int
	var body []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, rev, deleted, body, seq FROM documents
		WHERE collection = ? AND id = ?
	`, collection, id).Scan(&doc.ID, &doc.Rev, &deleted, &body, &doc.Seq)
	if err == sql.ErrNoRows {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, fmt.Errorf("read %s/%s: %w", collection, id, err)
	}
	doc.Deleted = deleted != 0
	if !doc.Deleted {
		plain, err := s.codec.Decode(collection, body)
		if err != nil {
			return Document{}, false, fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
		doc.Body = plain
	}
	return doc, true, nil
}

// extractID pulls the required "id" field out of a document body.
func extractID(collection string, body json.RawMessage) (string, error) {
	var envelope struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", newValidationError(collection, "", fmt.Sprintf("body is not a JSON object: %v", err))
	}
	if envelope.ID == "" {
		return "", newValidationError(collection, "", "document body must carry a non-empty id")
	}
	return envelope.ID, nil
}

// mergeBody applies a shallow top-level merge of patch onto body.
func mergeBody(body json.RawMessage, patch map[string]any) (json.RawMessage, error) {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("stored body is not a JSON object: %w", err)
	}
	for k, v := range patch {
		if v == nil {
			delete(fields, k)
			continue
		}
		fields[k] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return merged, nil
}
