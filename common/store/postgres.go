package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/alturatime/backend/common/db"
)

// PGStore persists artifacts and records in a single Postgres table. The
// row insert is atomic, which gives the payload-before-record guarantee
// for free: a row either exists with its bytes or does not exist at all.
type PGStore struct {
	db       *db.DB
	maxBytes int64
}

// NewPGStore returns a store backed by database. maxBytes <= 0 disables
// the size ceiling.
func NewPGStore(database *db.DB, maxBytes int64) *PGStore {
	return &PGStore{db: database, maxBytes: maxBytes}
}

// InitSchema creates the upload table if it does not exist.
func (s *PGStore) InitSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schedule_upload (
			id         text PRIMARY KEY,
			name       text NOT NULL,
			orig_name  text NOT NULL,
			size_bytes bigint NOT NULL,
			content    bytea NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)
	`

	if _, err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schedule_upload table: %w", err)
	}

	return nil
}

// Put persists content under a fresh id and returns it.
func (s *PGStore) Put(ctx context.Context, content []byte, origName, displayName string) (string, error) {
	if len(content) == 0 {
		return "", ErrEmptyPayload
	}
	if s.maxBytes > 0 && int64(len(content)) > s.maxBytes {
		return "", fmt.Errorf("payload is %d bytes, limit is %d: %w", len(content), s.maxBytes, ErrTooLarge)
	}

	query := `
		INSERT INTO schedule_upload (id, name, orig_name, size_bytes, content)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`

	name := normalizeDisplayName(displayName)
	safeName := SanitizeFilename(origName)

	// ON CONFLICT DO NOTHING turns an id collision into zero affected
	// rows, so we just draw again instead of overwriting someone's upload.
	for i := 0; i < maxIDAttempts; i++ {
		id := newID()

		tag, err := s.db.Exec(ctx, query, id, name, safeName, int64(len(content)), content)
		if err != nil {
			return "", fmt.Errorf("failed to insert upload: %w", err)
		}
		if tag.RowsAffected() == 1 {
			return id, nil
		}
	}

	return "", fmt.Errorf("exhausted %d id attempts", maxIDAttempts)
}

// GetArtifact returns the stored payload bytes.
func (s *PGStore) GetArtifact(ctx context.Context, id string) ([]byte, error) {
	if !isValidID(id) {
		return nil, ErrNotFound
	}

	query := `
		SELECT content
		FROM schedule_upload
		WHERE id = $1
	`

	var content []byte
	err := s.db.QueryRow(ctx, query, id).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}

	return content, nil
}

// GetRecord returns the stored record.
func (s *PGStore) GetRecord(ctx context.Context, id string) (*Record, error) {
	if !isValidID(id) {
		return nil, ErrNotFound
	}

	query := `
		SELECT id, name, orig_name
		FROM schedule_upload
		WHERE id = $1
	`

	rec := &Record{}
	err := s.db.QueryRow(ctx, query, id).Scan(&rec.ID, &rec.Name, &rec.OrigName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	return rec, nil
}
