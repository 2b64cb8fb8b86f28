package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Document is the store's envelope around one record: the JSON body plus
// the replication metadata that travels with it. The JSON tags are the
// wire format pushed to and pulled from the hub.
type Document struct {
	ID      string          `json:"id"`
	Rev     string          `json:"rev"`
	Deleted bool            `json:"deleted,omitempty"`
	Seq     int64           `json:"seq,omitempty"`
	Body    json.RawMessage `json:"doc,omitempty"`
}

// Get returns a live document. Tombstoned or absent ids return a
// NOT_FOUND error.
func (s *Store) Get(ctx context.Context, collection, id string) (Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, rev, deleted, body, seq FROM documents
		WHERE collection = ? AND id = ?
	`, collection, id)

	doc, err := s.scanDocument(collection, row)
	if err == sql.ErrNoRows {
		return Document{}, newNotFoundError(collection, id)
	}
	if err != nil {
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	if doc.Deleted {
		return Document{}, newNotFoundError(collection, id)
	}
	return doc, nil
}

// List returns all live documents in a collection, ordered by id so
// every device renders the same order from the same data.
func (s *Store) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rev, deleted, body, seq FROM documents
		WHERE collection = ? AND deleted = 0
		ORDER BY id ASC
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		doc, err := s.scanDocument(collection, rows)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return docs, nil
}

// Count returns the number of live documents. Used for the one-time
// seeding check.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM documents WHERE collection = ? AND deleted = 0
	`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

// ChangesSince returns documents committed after sinceSeq, tombstones
// included, ordered by seq ASC then id ASC. limit <= 0 means no limit.
// The second return is the highest seq in the batch (sinceSeq when the
// batch is empty), which callers persist as their next checkpoint.
func (s *Store) ChangesSince(ctx context.Context, collection string, sinceSeq int64, limit int) ([]Document, int64, error) {
	q := `
		SELECT id, rev, deleted, body, seq FROM documents
		WHERE collection = ? AND seq > ?
		ORDER BY seq ASC, id ASC
	`
	args := []any{collection, sinceSeq}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("changes %s since %d: %w", collection, sinceSeq, err)
	}
	defer rows.Close()

	docs := []Document{}
	last := sinceSeq
	for rows.Next() {
		doc, err := s.scanDocument(collection, rows)
		if err != nil {
			return nil, 0, fmt.Errorf("changes %s since %d: %w", collection, sinceSeq, err)
		}
		docs = append(docs, doc)
		if doc.Seq > last {
			last = doc.Seq
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("changes %s since %d: %w", collection, sinceSeq, err)
	}
	return docs, last, nil
}

// LastSeq returns the store's current logical clock position.
func (s *Store) LastSeq() int64 {
	return s.clock.current()
}

// Checkpoint returns the saved replication checkpoint for a collection,
// direction ("push" or "pull") and remote URL. Zero if none saved.
func (s *Store) Checkpoint(ctx context.Context, collection, direction, remote string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT last_seq FROM checkpoints
		WHERE collection = ? AND direction = ? AND remote = ?
	`, collection, direction, remote).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("checkpoint %s/%s: %w", collection, direction, err)
	}
	return seq, nil
}

// SetCheckpoint persists a replication checkpoint.
func (s *Store) SetCheckpoint(ctx context.Context, collection, direction, remote string, seq int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (collection, direction, remote, last_seq)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(collection, direction, remote) DO UPDATE SET last_seq = excluded.last_seq
	`, collection, direction, remote, seq)
	if err != nil {
		return fmt.Errorf("set checkpoint %s/%s: %w", collection, direction, err)
	}
	return nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanDocument reads one row and decodes the body back through the codec
// pipeline. Tombstones have no body.
func (s *Store) scanDocument(collection string, row scanner) (Document, error) {
	var doc Document
	var deleted int
	var body []byte
	if err := row.Scan(&doc.ID, &doc.Rev, &deleted, &body, &doc.Seq); err != nil {
		return Document{}, err
	}
	doc.Deleted = deleted != 0

	if !doc.Deleted {
		plain, err := s.codec.Decode(collection, body)
		if err != nil {
			return Document{}, fmt.Errorf("decode body: %w", err)
		}
		doc.Body = plain
	}
	return doc, nil
}
