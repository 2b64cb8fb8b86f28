package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema (documents, checkpoints, meta)
const currentSchemaVersion = 1

const metaSaltKey = "encryption_salt"

// Store is the durable entity store for one device. All five collections
// share one SQLite file; each document passes through the codec pipeline
// on every read and write.
type Store struct {
	db    *sql.DB
	path  string
	codec *Codec
	clock *clock
	feed  *feed
	log   *zap.Logger

	// mu serializes the whole mutate-commit-notify sequence so change
	// feed subscribers observe snapshots in commit order.
	mu sync.Mutex
}

// Option configures Open.
type Option func(*openOptions)

type openOptions struct {
	passphrase string
	logger     *zap.Logger
}

// WithPassphrase enables encryption at rest. Without it, bodies are
// stored as plain JSON (the hub runs this way, matching the open
// reference deployment).
func WithPassphrase(passphrase string) Option {
	return func(o *openOptions) { o.passphrase = passphrase }
}

// WithLogger attaches a logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(o *openOptions) { o.logger = logger }
}

// Open creates or opens a store at the given path. Applies required
// pragmas and migrations, derives the encryption key when a passphrase is
// configured, and resumes the logical clock from the highest committed
// seq. Idempotent: safe to call on an existing database.
func Open(path string, opts ...Option) (*Store, error) {
	o := openOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY instead of retrying around it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	schemaStage, err := NewSchemaStage()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("build schema stage: %w", err)
	}
	stages := []Stage{schemaStage}

	if o.passphrase != "" {
		salt, err := loadOrCreateSalt(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		cipherStage, err := NewCipherStage(o.passphrase, salt)
		if err != nil {
			db.Close()
			return nil, err
		}
		stages = append(stages, cipherStage)
	}

	var maxSeq sql.NullInt64
	if err := db.QueryRow("SELECT MAX(seq) FROM documents").Scan(&maxSeq); err != nil {
		db.Close()
		return nil, fmt.Errorf("read max seq: %w", err)
	}

	s := &Store{
		db:    db,
		path:  path,
		codec: NewCodec(stages...),
		clock: newClockAt(maxSeq.Int64),
		feed:  newFeed(),
		log:   o.logger,
	}
	s.log.Debug("store opened",
		zap.String("path", path),
		zap.Int64("seq", maxSeq.Int64),
		zap.Bool("encrypted", o.passphrase != ""))
	return s, nil
}

// Close closes the database connection. Subscriptions are dropped.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	s.feed.close()
	return s.db.Close()
}

// Destroy closes the store and deletes its files. Irreversible and
// terminal for the process lifetime: callers must cancel replication
// first and reinitialize afterward.
func (s *Store) Destroy(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Warn("destroying store", zap.String("path", s.path))
	if err := s.Close(); err != nil {
		return fmt.Errorf("destroy: %w", err)
	}
	for _, p := range []string{s.path, s.path + "-wal", s.path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("destroy: %w", err)
		}
	}
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	// No incremental migrations yet; stamp the version for the first one.
	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

// loadOrCreateSalt reads the store's key-derivation salt, generating and
// persisting one on first open.
func loadOrCreateSalt(db *sql.DB) ([]byte, error) {
	var salt []byte
	err := db.QueryRow("SELECT value FROM meta WHERE key = ?", metaSaltKey).Scan(&salt)
	if err == nil {
		return salt, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("read salt: %w", err)
	}

	salt, err = newSalt()
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("INSERT INTO meta (key, value) VALUES (?, ?)", metaSaltKey, salt); err != nil {
		return nil, fmt.Errorf("persist salt: %w", err)
	}
	return salt, nil
}
