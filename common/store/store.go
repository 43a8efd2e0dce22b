// Package store persists uploaded schedule artifacts and their records.
//
// Every upload is stored under a randomly generated 128-bit hex id. The id
// doubles as the retrieval capability: anyone holding it can fetch the
// artifact, nobody can guess it. Records are immutable once written.
package store

import (
	"context"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// DefaultDisplayName is stored when the uploader leaves the name blank.
const DefaultDisplayName = "Unnamed Student"

// maxIDAttempts bounds id regeneration on collision. With 128-bit random
// ids a single retry is already astronomically unlikely.
const maxIDAttempts = 5

var (
	// ErrNotFound is returned when no artifact or record exists for an id.
	ErrNotFound = errors.New("artifact not found")

	// ErrTooLarge is returned when a payload exceeds the store's size ceiling.
	ErrTooLarge = errors.New("artifact payload too large")

	// ErrEmptyPayload is returned for zero-length payloads.
	ErrEmptyPayload = errors.New("artifact payload is empty")
)

// Record is the metadata stored alongside an artifact.
type Record struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	OrigName string `json:"orig_name"`
}

// Store is the artifact persistence contract. Implementations must write
// the payload before the record so a record never points at missing bytes,
// and must never reuse an id.
type Store interface {
	// Put persists content under a fresh id and returns that id.
	Put(ctx context.Context, content []byte, origName, displayName string) (string, error)

	// GetArtifact returns the exact bytes stored under id.
	GetArtifact(ctx context.Context, id string) ([]byte, error)

	// GetRecord returns the metadata stored under id.
	GetRecord(ctx context.Context, id string) (*Record, error)
}

// newID returns 32 lowercase hex chars backed by 128 random bits.
func newID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

var validID = regexp.MustCompile(`^[a-f0-9]{32}$`)

// isValidID reports whether id has the exact shape Put generates. Lookups
// reject anything else before touching storage, so caller-supplied ids can
// never address paths or rows the store did not create.
func isValidID(id string) bool {
	return validID.MatchString(id)
}

var unsafeFilenameRunes = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename reduces a client-supplied filename to a safe flat name:
// path components are stripped, anything outside [A-Za-z0-9._-] collapses
// to underscores, and the result is length-capped. May return "".
func SanitizeFilename(name string) string {
	base := strings.TrimSpace(name)
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	base = unsafeFilenameRunes.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._-")
	if len(base) > 80 {
		base = base[:80]
	}
	return base
}

// normalizeDisplayName trims the uploader-provided name and substitutes
// the placeholder when nothing is left.
func normalizeDisplayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultDisplayName
	}
	return name
}
