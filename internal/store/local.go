// Package store provides the SQLite-backed persistence layer for
// long-term memory. It holds embedded conversation chunks and saved
// facts, and supports cosine-similarity recall with optional
// acceleration through the sqlite-vec extension when compiled in.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"shellmind/internal/embedding"
	"shellmind/internal/logging"
)

// LocalStore is the on-disk vector store. All access goes through a
// single SQLite connection guarded by mu; WAL mode keeps readers from
// blocking the writer.
type LocalStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string

	engine embedding.Engine

	// vectorExt reports whether the sqlite-vec extension loaded.
	// Without it, similarity ranking falls back to in-process cosine.
	vectorExt bool
}

// NewLocalStore opens (or creates) the database at dbPath and runs
// schema initialization. The embedding engine may be nil for callers
// that only read previously stored rows.
func NewLocalStore(dbPath string, engine embedding.Engine) (*LocalStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewLocalStore")
	defer timer.Stop()

	if dbPath == "" {
		return nil, fmt.Errorf("store: database path is empty")
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dbPath, err)
	}

	// SQLite handles one writer at a time; funnel everything through
	// a single connection so the driver never races itself.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}

	s := &LocalStore{
		db:     db,
		dbPath: dbPath,
		engine: engine,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.vectorExt = s.detectVecExtension()
	if s.vectorExt {
		logging.Store("Opened %s (sqlite-vec available)", dbPath)
	} else {
		logging.Store("Opened %s (in-process cosine ranking)", dbPath)
	}

	return s, nil
}

func (s *LocalStore) initialize() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS memories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			content TEXT NOT NULL,
			embedding TEXT,
			embedding_blob BLOB,
			metadata TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_created ON memories(created_at)`,
		`CREATE TABLE IF NOT EXISTS workspaces (
			session_id TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			logging.StoreError("Schema init failed: %v", err)
			return fmt.Errorf("store: initialize schema: %w", err)
		}
	}

	// Databases created before the blob column existed get it added
	// in place; the duplicate-column error on newer files is expected.
	s.db.Exec("ALTER TABLE memories ADD COLUMN embedding_blob BLOB")
	return nil
}

// detectVecExtension checks for sqlite-vec by creating and dropping a
// throwaway virtual table. The extension is only present when the
// binary was built with the sqlite_vec tag.
func (s *LocalStore) detectVecExtension() bool {
	_, err := s.db.Exec("CREATE VIRTUAL TABLE IF NOT EXISTS vec_check USING vec0(embedding float[4])")
	if err != nil {
		return false
	}
	s.db.Exec("DROP TABLE IF EXISTS vec_check")
	return true
}

// HasVectorExtension reports whether sqlite-vec loaded at open time.
func (s *LocalStore) HasVectorExtension() bool {
	return s.vectorExt
}

// Engine returns the embedding engine the store was opened with.
func (s *LocalStore) Engine() embedding.Engine {
	return s.engine
}

// Path returns the database file path.
func (s *LocalStore) Path() string {
	return s.dbPath
}

// Close flushes and closes the underlying database.
func (s *LocalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Stats reports row counts per table, for the status command.
func (s *LocalStore) Stats() (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int64)
	for _, table := range []string{"memories", "workspaces"} {
		var n int64
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			return nil, fmt.Errorf("store: count %s: %w", table, err)
		}
		stats[table] = n
	}
	return stats, nil
}
