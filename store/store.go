package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	filePrefix = "recording-"
	fileSuffix = ".wav"
)

// Handle identifies one stored recording.
type Handle struct {
	ID   uuid.UUID
	Path string
	Size int64
}

// Store keeps uploaded recordings on disk for the lifetime of a request.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New creates the uploads directory if needed.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Save writes r to a new uniquely named file.
func (s *Store) Save(r io.Reader) (Handle, error) {
	id := uuid.New()
	path := filepath.Join(s.dir, filePrefix+id.String()+fileSuffix)

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return Handle{}, fmt.Errorf("failed to create recording file: %w", err)
	}

	n, err := io.Copy(file, r)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return Handle{}, fmt.Errorf("failed to write recording file: %w", err)
	}

	s.logger.Debug("Stored recording", "id", id, "path", path, "bytes", n)
	return Handle{ID: id, Path: path, Size: n}, nil
}

func (s *Store) Read(h Handle) ([]byte, error) {
	data, err := os.ReadFile(h.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recording file: %w", err)
	}
	return data, nil
}

// Delete removes the recording. Deleting a recording that is already gone is
// not an error.
func (s *Store) Delete(h Handle) error {
	err := os.Remove(h.Path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("Recording already removed", "id", h.ID, "path", h.Path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete recording file: %w", err)
	}
	s.logger.Debug("Deleted recording", "id", h.ID, "path", h.Path)
	return nil
}

// Sweep removes recordings last modified more than olderThan ago.
func (s *Store) Sweep(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list uploads directory: %w", err)
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !isRecording(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Error("Failed to remove stale recording", "error", err, "path", path)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("Removed stale recordings", "count", removed, "path", s.dir)
	}
	return removed, nil
}

func isRecording(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix)
}
