package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	payloadExt = ".ics"
	recordExt  = ".json"
)

// FSStore keeps each upload as two flat files under one root directory:
// <id>.ics for the payload and <id>.json for the record. The payload lands
// before the record, and both writes go through a temp file plus rename,
// so a crash can leave an unreferenced payload but never a record that
// points at missing bytes.
type FSStore struct {
	dir      string
	maxBytes int64
}

// NewFSStore creates the root directory if needed and returns a store
// rooted there. maxBytes <= 0 disables the size ceiling.
func NewFSStore(dir string, maxBytes int64) (*FSStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("fs store: dir is required")
	}
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("fs store: create dir %s: %w", dir, err)
	}
	return &FSStore{dir: dir, maxBytes: maxBytes}, nil
}

// Put persists content under a fresh id and returns it.
func (s *FSStore) Put(_ context.Context, content []byte, origName, displayName string) (string, error) {
	if len(content) == 0 {
		return "", ErrEmptyPayload
	}
	if s.maxBytes > 0 && int64(len(content)) > s.maxBytes {
		return "", fmt.Errorf("payload is %d bytes, limit is %d: %w", len(content), s.maxBytes, ErrTooLarge)
	}

	id, err := s.freshID()
	if err != nil {
		return "", err
	}

	payloadPath := s.payloadPath(id)
	if err := writeFileAtomic(s.dir, payloadPath, content); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", id, err)
	}

	rec := Record{
		ID:       id,
		Name:     normalizeDisplayName(displayName),
		OrigName: SanitizeFilename(origName),
	}
	data, err := json.Marshal(&rec)
	if err != nil {
		_ = os.Remove(payloadPath)
		return "", fmt.Errorf("encode record %s: %w", id, err)
	}
	if err := writeFileAtomic(s.dir, s.recordPath(id), data); err != nil {
		// Best effort: a failed put should leave nothing behind.
		_ = os.Remove(payloadPath)
		return "", fmt.Errorf("write record %s: %w", id, err)
	}

	return id, nil
}

// GetArtifact returns the stored payload bytes.
func (s *FSStore) GetArtifact(_ context.Context, id string) ([]byte, error) {
	if !isValidID(id) {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(s.payloadPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read artifact %s: %w", id, err)
	}
	return data, nil
}

// GetRecord returns the stored record.
func (s *FSStore) GetRecord(_ context.Context, id string) (*Record, error) {
	if !isValidID(id) {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(s.recordPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read record %s: %w", id, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", id, err)
	}
	return &rec, nil
}

// freshID draws ids until one is unused on disk.
func (s *FSStore) freshID() (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := newID()
		if fileExists(s.payloadPath(id)) || fileExists(s.recordPath(id)) {
			continue
		}
		return id, nil
	}
	return "", fmt.Errorf("exhausted %d id attempts", maxIDAttempts)
}

func (s *FSStore) payloadPath(id string) string {
	return filepath.Join(s.dir, id+payloadExt)
}

func (s *FSStore) recordPath(id string) string {
	return filepath.Join(s.dir, id+recordExt)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// writeFileAtomic writes data to a hidden temp file in dir, syncs it, then
// renames it over path. Readers never observe a partial file, and leftover
// temp files from a crash can never collide with an id-shaped name.
func writeFileAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
