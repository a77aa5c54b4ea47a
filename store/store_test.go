package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func newTestStore(t *testing.T) *Store {
	s, err := New(filepath.Join(t.TempDir(), "uploads"), nil)
	require.NoError(t, err)
	return s
}

func TestSaveReadDelete(t *testing.T) {
	s := newTestStore(t)

	h, err := s.Save(strings.NewReader("RIFF....WAVE"))
	require.NoError(t, err)
	assert.Equal(t, int64(12), h.Size)
	assert.FileExists(t, h.Path)
	assert.Equal(t, s.Dir(), filepath.Dir(h.Path))

	data, err := s.Read(h)
	require.NoError(t, err)
	assert.Equal(t, "RIFF....WAVE", string(data))

	require.NoError(t, s.Delete(h))
	assert.NoFileExists(t, h.Path)

	// A second delete of the same recording is a no-op.
	assert.NoError(t, s.Delete(h))
}

func TestSave_ConcurrentNamesDoNotCollide(t *testing.T) {
	s := newTestStore(t)

	const n = 64
	var wg sync.WaitGroup
	paths := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := s.Save(strings.NewReader("x"))
			if assert.NoError(t, err) {
				paths <- h.Path
			}
		}()
	}
	wg.Wait()
	close(paths)

	seen := make(map[string]bool)
	for p := range paths {
		assert.False(t, seen[p], "duplicate path %s", p)
		seen[p] = true
	}
	assert.Len(t, seen, n)
}

func TestSave_WriteFailureLeavesNothingBehind(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Save(failingReader{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write recording file")

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSave_MissingDirectory(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.RemoveAll(s.Dir()))

	_, err := s.Save(strings.NewReader("x"))
	assert.Error(t, err)
}

func TestSweep_RemovesOnlyStaleRecordings(t *testing.T) {
	s := newTestStore(t)

	stale, err := s.Save(strings.NewReader("old"))
	require.NoError(t, err)
	fresh, err := s.Save(strings.NewReader("new"))
	require.NoError(t, err)
	other := filepath.Join(s.Dir(), "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("keep"), 0644))

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(stale.Path, old, old))
	require.NoError(t, os.Chtimes(other, old, old))

	removed, err := s.Sweep(30 * time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, stale.Path)
	assert.FileExists(t, fresh.Path)
	assert.FileExists(t, other)
}

func TestJanitor_RemovesExpiredRecordings(t *testing.T) {
	s := newTestStore(t)
	j, err := NewJanitor(s, 50*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()

	h, err := s.Save(strings.NewReader("orphan"))
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		_, statErr := os.Stat(h.Path)
		return os.IsNotExist(statErr)
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, j.Tracked())
}
