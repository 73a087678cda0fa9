// CLAUDE:SUMMARY Session persistence: one SQLite row per document holding the JSON-serialized box state and history, plus per-document serialization locks.
// Package session persists redaction sessions. Each document gets one row:
// identity and document metadata in columns, the full box state and
// undo/redo history as one JSON blob. The engine mutates a deserialized
// State in memory; Save writes the whole thing back.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hazyhaar/redact/dbopen"
	"github.com/hazyhaar/redact/redact"
)

// Schema for the sessions table. Apply via dbopen.WithSchema or manually.
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
	document_id TEXT PRIMARY KEY,
	payload_type TEXT NOT NULL DEFAULT '',
	detected_path TEXT NOT NULL DEFAULT '',
	total_pages INTEGER NOT NULL DEFAULT 0,
	state TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
`

// ErrNotFound is returned when no session exists for a document id.
var ErrNotFound = errors.New("session: not found")

// Record is one persisted redaction session.
type Record struct {
	DocumentID   string       `json:"document_id"`
	PayloadType  string       `json:"payload_type"`
	DetectedPath string       `json:"detected_path"`
	TotalPages   int          `json:"total_pages"`
	State        redact.State `json:"state"`
	CreatedAt    int64        `json:"created_at"`
	UpdatedAt    int64        `json:"updated_at"`
}

// Store reads and writes session records.
type Store struct {
	db *sql.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a session store backed by the given database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, locks: make(map[string]*sync.Mutex)}
}

// Init creates the sessions table if it doesn't exist.
func (s *Store) Init() error {
	_, err := s.db.Exec(Schema)
	return err
}

// Lock acquires the per-document mutex and returns its unlock function.
// Batches against the same session must run strictly one at a time;
// different documents proceed concurrently.
func (s *Store) Lock(documentID string) func() {
	s.mu.Lock()
	m, ok := s.locks[documentID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[documentID] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// Save creates or overwrites the record for its document id. Writes go
// through the busy-retry wrapper: sessions of different documents share
// one WAL database and may write concurrently.
func (s *Store) Save(ctx context.Context, r *Record) error {
	if r.DocumentID == "" {
		return fmt.Errorf("session: save: empty document id")
	}
	state, err := json.Marshal(&r.State)
	if err != nil {
		return fmt.Errorf("session: marshal state: %w", err)
	}
	now := time.Now().UnixMilli()
	if r.CreatedAt == 0 {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	_, err = dbopen.Exec(ctx, s.db, `
		INSERT INTO sessions (document_id, payload_type, detected_path, total_pages, state, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(document_id) DO UPDATE SET
			payload_type=excluded.payload_type, detected_path=excluded.detected_path,
			total_pages=excluded.total_pages, state=excluded.state,
			updated_at=excluded.updated_at`,
		r.DocumentID, r.PayloadType, r.DetectedPath, r.TotalPages, string(state), r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("session: save %s: %w", r.DocumentID, err)
	}
	return nil
}

// Get retrieves the session for a document id.
func (s *Store) Get(ctx context.Context, documentID string) (*Record, error) {
	r := &Record{}
	var state string
	err := s.db.QueryRowContext(ctx, `
		SELECT document_id, payload_type, detected_path, total_pages, state, created_at, updated_at
		FROM sessions WHERE document_id = ?`, documentID).Scan(
		&r.DocumentID, &r.PayloadType, &r.DetectedPath, &r.TotalPages, &state, &r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: get %s: %w", documentID, err)
	}
	if err := json.Unmarshal([]byte(state), &r.State); err != nil {
		return nil, fmt.Errorf("session: unmarshal state of %s: %w", documentID, err)
	}
	return r, nil
}

// Delete removes the session for a document id. Deleting a missing
// session is not an error.
func (s *Store) Delete(ctx context.Context, documentID string) error {
	_, err := dbopen.Exec(ctx, s.db, `DELETE FROM sessions WHERE document_id = ?`, documentID)
	if err != nil {
		return fmt.Errorf("session: delete %s: %w", documentID, err)
	}
	// The lock entry outlives the row: a concurrent holder must stay
	// serialized against re-creation under the same id.
	return nil
}

// List returns the document ids of all sessions, most recently updated first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT document_id FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("session: list: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
