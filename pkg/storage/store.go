// Package storage keeps saved drops, known contacts and collected
// survey responses in a local sqlite database. Content fields are
// encrypted at rest with a key derived from the user's passphrase.
package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/glyphapp/glyph-node/pkg/crypto"
)

var ErrNotFound = errors.New("not found")

// Store manages the encrypted local database.
type Store struct {
	db            *sql.DB
	encryptionKey []byte
}

// NewStore opens (or creates) the database at path. The passphrase is
// stretched into the at-rest encryption key.
func NewStore(path string, passphrase string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %v", err)
	}

	s := &Store{
		db:            db,
		encryptionKey: crypto.DeriveKey(passphrase),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// initSchema creates database tables
func (s *Store) initSchema() error {
	schema := `
	-- Saved drops (explicitly saved or auto-persisted permanent messages)
	CREATE TABLE IF NOT EXISTS drops (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind INTEGER NOT NULL,
		text BLOB,
		image BLOB,
		audio BLOB,
		sender_name TEXT,
		sender_handle TEXT,
		created_at INTEGER NOT NULL,
		saved_at INTEGER NOT NULL,
		expiry_mode INTEGER NOT NULL,
		expiry_seconds INTEGER NOT NULL DEFAULT 0
	);

	-- Contacts table
	CREATE TABLE IF NOT EXISTS contacts (
		handle TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		first_seen INTEGER NOT NULL,
		last_seen INTEGER,
		is_blocked INTEGER NOT NULL DEFAULT 0
	);

	-- Collected survey responses
	CREATE TABLE IF NOT EXISTS survey_responses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		survey_id TEXT NOT NULL,
		responded_at INTEGER NOT NULL,
		answers BLOB NOT NULL
	);

	-- Indexes for performance
	CREATE INDEX IF NOT EXISTS idx_drops_saved_at ON drops(saved_at DESC);
	CREATE INDEX IF NOT EXISTS idx_drops_sender ON drops(sender_handle);
	CREATE INDEX IF NOT EXISTS idx_survey_responses_survey ON survey_responses(survey_id, responded_at DESC);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %v", err)
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool {
	return i != 0
}

// seal encrypts a field for storage; empty fields stay empty.
func (s *Store) seal(plain []byte) ([]byte, error) {
	if len(plain) == 0 {
		return nil, nil
	}
	return crypto.AESEncrypt(plain, s.encryptionKey)
}

func (s *Store) unseal(sealed []byte) ([]byte, error) {
	if len(sealed) == 0 {
		return nil, nil
	}
	return crypto.AESDecrypt(sealed, s.encryptionKey)
}
