package storage

import (
	"database/sql"
	"fmt"

	"github.com/glyphapp/glyph-node/pkg/session"
)

// ===== CONTACT OPERATIONS =====

// Store satisfies the registry the receiving session records senders in.
var _ session.ContactRegistry = (*Store)(nil)

// UpsertContact adds or updates a contact
func (s *Store) UpsertContact(c *session.Contact) error {
	query := `
		INSERT INTO contacts (handle, name, first_seen, last_seen, is_blocked)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(handle) DO UPDATE SET
			name = excluded.name,
			last_seen = excluded.last_seen,
			is_blocked = excluded.is_blocked
	`

	_, err := s.db.Exec(
		query,
		c.Handle,
		c.Name,
		c.FirstSeen,
		c.LastSeen,
		boolToInt(c.Blocked),
	)
	if err != nil {
		return fmt.Errorf("failed to save contact: %v", err)
	}
	return nil
}

// LookupContact retrieves a contact by handle
func (s *Store) LookupContact(handle string) (*session.Contact, error) {
	query := `
		SELECT handle, name, first_seen, last_seen, is_blocked
		FROM contacts WHERE handle = ?
	`

	row := s.db.QueryRow(query, handle)

	var c session.Contact
	var isBlocked int

	err := row.Scan(&c.Handle, &c.Name, &c.FirstSeen, &c.LastSeen, &isBlocked)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	c.Blocked = intToBool(isBlocked)
	return &c, nil
}

// ListContacts retrieves all contacts ordered by most recently seen
func (s *Store) ListContacts() ([]*session.Contact, error) {
	query := `
		SELECT handle, name, first_seen, last_seen, is_blocked
		FROM contacts ORDER BY last_seen DESC
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []*session.Contact
	for rows.Next() {
		var c session.Contact
		var isBlocked int
		if err := rows.Scan(&c.Handle, &c.Name, &c.FirstSeen, &c.LastSeen, &isBlocked); err != nil {
			return nil, err
		}
		c.Blocked = intToBool(isBlocked)
		contacts = append(contacts, &c)
	}

	return contacts, rows.Err()
}

// SetContactBlocked flips the blocked flag for a handle
func (s *Store) SetContactBlocked(handle string, blocked bool) error {
	result, err := s.db.Exec(
		`UPDATE contacts SET is_blocked = ? WHERE handle = ?`,
		boolToInt(blocked), handle,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
