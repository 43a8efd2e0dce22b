package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, maxBytes int64) *FSStore {
	t.Helper()
	s, err := NewFSStore(t.TempDir(), maxBytes)
	require.NoError(t, err)
	return s
}

func TestFSStorePutGetRoundTrip(t *testing.T) {
	s := newTestStore(t, 2*1024*1024)
	ctx := context.Background()

	content := []byte("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nEND:VCALENDAR\r\n")

	id, err := s.Put(ctx, content, "spring schedule.ics", "Alice")
	require.NoError(t, err)
	assert.Regexp(t, "^[a-f0-9]{32}$", id)

	got, err := s.GetArtifact(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, content, got, "artifact bytes must survive the round trip unchanged")

	rec, err := s.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "Alice", rec.Name)
	assert.Equal(t, "spring_schedule.ics", rec.OrigName)
}

func TestFSStoreBlankNameGetsPlaceholder(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	for _, name := range []string{"", "   ", "\t\n"} {
		id, err := s.Put(ctx, []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"), "cal.ics", name)
		require.NoError(t, err)

		rec, err := s.GetRecord(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, DefaultDisplayName, rec.Name, "name %q should become the placeholder", name)
	}
}

func TestFSStoreSizeCeiling(t *testing.T) {
	const limit = 1024
	s := newTestStore(t, limit)
	ctx := context.Background()

	// Exactly at the ceiling is accepted.
	id, err := s.Put(ctx, make([]byte, limit), "cal.ics", "Bob")
	require.NoError(t, err)

	got, err := s.GetArtifact(ctx, id)
	require.NoError(t, err)
	assert.Len(t, got, limit)

	// One byte over is rejected.
	_, err = s.Put(ctx, make([]byte, limit+1), "cal.ics", "Bob")
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestFSStoreEmptyPayload(t *testing.T) {
	s := newTestStore(t, 0)

	_, err := s.Put(context.Background(), nil, "cal.ics", "Bob")
	require.ErrorIs(t, err, ErrEmptyPayload)

	_, err = s.Put(context.Background(), []byte{}, "cal.ics", "Bob")
	require.ErrorIs(t, err, ErrEmptyPayload)
}

func TestFSStoreNotFound(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	// Well-formed but unknown id.
	_, err := s.GetArtifact(ctx, strings.Repeat("a", 32))
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetRecord(ctx, strings.Repeat("a", 32))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFSStoreRejectsMalformedIDs(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	// Plant a file outside the id namespace. No id shape may reach it.
	outside := filepath.Join(filepath.Dir(s.dir), "secret.ics")
	require.NoError(t, os.WriteFile(outside, []byte("private"), 0o644))

	malformed := []string{
		"",
		"short",
		"../secret",
		"..%2Fsecret",
		strings.Repeat("a", 31),
		strings.Repeat("a", 33),
		strings.Repeat("A", 32), // uppercase is never generated
		strings.Repeat("g", 32), // not hex
	}
	for _, id := range malformed {
		_, err := s.GetArtifact(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound, "id %q", id)
		_, err = s.GetRecord(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound, "id %q", id)
	}
}

func TestFSStoreConcurrentPutsGetDistinctIDs(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	const n = 20
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[string]struct{}, n)
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.Put(ctx, []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"), "cal.ics", "Racer")
			assert.NoError(t, err)

			mu.Lock()
			ids[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, ids, n, "every put must return a distinct id")
}

func TestFSStoreLeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	id, err := s.Put(ctx, []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"), "cal.ics", "Cleo")
	require.NoError(t, err)

	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{id + payloadExt, id + recordExt}, names)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"schedule.ics", "schedule.ics"},
		{"my schedule.ics", "my_schedule.ics"},
		{"../../etc/passwd.ics", "passwd.ics"},
		{`C:\Users\kid\cal.ics`, "cal.ics"},
		{".hidden.ics", "hidden.ics"},
		{"  spaced.ics  ", "spaced.ics"},
		{"émile's cal.ics", "mile_s_cal.ics"},
		{"...", ""},
		{"", ""},
		{strings.Repeat("x", 100) + ".ics", strings.Repeat("x", 80)},
	}

	for _, tt := range tests {
		got := SanitizeFilename(tt.in)
		if got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func BenchmarkFSStorePut(b *testing.B) {
	s, err := NewFSStore(b.TempDir(), 0)
	if err != nil {
		b.Fatal(err)
	}
	content := []byte(strings.Repeat("BEGIN:VEVENT\r\nEND:VEVENT\r\n", 64))
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Put(ctx, content, "bench.ics", "Bench"); err != nil {
			b.Fatal(err)
		}
	}
}
