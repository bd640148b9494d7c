package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/glyphapp/glyph-node/pkg/lifecycle"
	"github.com/glyphapp/glyph-node/pkg/protocol"
)

// ===== DROP OPERATIONS =====

// Store is the persistence collaborator permanent messages are handed to.
var _ lifecycle.Saver = (*Store)(nil)

// StoredDrop is one persisted message.
type StoredDrop struct {
	ID            int64
	Kind          uint8
	Text          string
	Image         []byte
	Audio         []byte
	SenderName    string
	SenderHandle  string
	CreatedAt     int64
	SavedAt       int64
	ExpiryMode    uint8
	ExpirySeconds uint32
}

// SavePayload persists a reconstructed payload. It is the hook the
// lifecycle machine calls when a permanent message is first opened,
// and the explicit save action uses it too.
func (s *Store) SavePayload(p *protocol.LogicalPayload) error {
	drop := &StoredDrop{
		Kind:          protocol.KindDirect,
		Text:          p.Text,
		Image:         p.Image,
		Audio:         p.Audio,
		CreatedAt:     p.CreatedAt,
		SavedAt:       time.Now().UnixMilli(),
		ExpiryMode:    uint8(p.Expiry.Mode),
		ExpirySeconds: p.Expiry.Seconds,
	}
	if p.Sender != nil {
		drop.SenderName = p.Sender.Name
		drop.SenderHandle = p.Sender.Handle
	}
	return s.SaveDrop(drop)
}

// SaveDrop stores a drop, encrypting its content fields.
func (s *Store) SaveDrop(drop *StoredDrop) error {
	encryptedText, err := s.seal([]byte(drop.Text))
	if err != nil {
		return fmt.Errorf("failed to encrypt text: %v", err)
	}
	encryptedImage, err := s.seal(drop.Image)
	if err != nil {
		return fmt.Errorf("failed to encrypt image: %v", err)
	}
	encryptedAudio, err := s.seal(drop.Audio)
	if err != nil {
		return fmt.Errorf("failed to encrypt audio: %v", err)
	}

	query := `
		INSERT INTO drops (
			kind, text, image, audio, sender_name, sender_handle,
			created_at, saved_at, expiry_mode, expiry_seconds
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(
		query,
		drop.Kind,
		encryptedText,
		encryptedImage,
		encryptedAudio,
		drop.SenderName,
		drop.SenderHandle,
		drop.CreatedAt,
		drop.SavedAt,
		drop.ExpiryMode,
		drop.ExpirySeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to save drop: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	drop.ID = id

	return nil
}

// GetDrop retrieves a drop by ID
func (s *Store) GetDrop(id int64) (*StoredDrop, error) {
	query := `
		SELECT id, kind, text, image, audio, sender_name, sender_handle,
		       created_at, saved_at, expiry_mode, expiry_seconds
		FROM drops WHERE id = ?
	`

	drop, err := scanDrop(s, s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return drop, err
}

// ListDrops retrieves saved drops, newest first.
func (s *Store) ListDrops(limit, offset int) ([]*StoredDrop, error) {
	query := `
		SELECT id, kind, text, image, audio, sender_name, sender_handle,
		       created_at, saved_at, expiry_mode, expiry_seconds
		FROM drops
		ORDER BY saved_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.Query(query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drops []*StoredDrop
	for rows.Next() {
		drop, err := scanDrop(s, rows)
		if err != nil {
			return nil, err
		}
		drops = append(drops, drop)
	}

	return drops, rows.Err()
}

// DeleteDrop deletes a drop
func (s *Store) DeleteDrop(id int64) error {
	_, err := s.db.Exec(`DELETE FROM drops WHERE id = ?`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDrop(s *Store, row rowScanner) (*StoredDrop, error) {
	var drop StoredDrop
	var encryptedText, encryptedImage, encryptedAudio []byte

	err := row.Scan(
		&drop.ID,
		&drop.Kind,
		&encryptedText,
		&encryptedImage,
		&encryptedAudio,
		&drop.SenderName,
		&drop.SenderHandle,
		&drop.CreatedAt,
		&drop.SavedAt,
		&drop.ExpiryMode,
		&drop.ExpirySeconds,
	)
	if err != nil {
		return nil, err
	}

	text, err := s.unseal(encryptedText)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt text: %v", err)
	}
	drop.Text = string(text)

	drop.Image, err = s.unseal(encryptedImage)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt image: %v", err)
	}
	drop.Audio, err = s.unseal(encryptedAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt audio: %v", err)
	}

	return &drop, nil
}
