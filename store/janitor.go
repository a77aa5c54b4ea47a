package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Janitor removes recordings that outlive MaxAge. Requests delete their own
// recordings; the janitor only catches what a crashed or stuck request left.
type Janitor struct {
	store    *Store
	maxAge   time.Duration
	interval time.Duration
	watcher  *fsnotify.Watcher

	mu      sync.Mutex
	created map[string]time.Time
}

func NewJanitor(s *Store, maxAge time.Duration) (*Janitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch uploads directory: %w", err)
	}

	interval := maxAge / 2
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}

	return &Janitor{
		store:    s,
		maxAge:   maxAge,
		interval: interval,
		watcher:  watcher,
		created:  make(map[string]time.Time),
	}, nil
}

// Tracked returns how many recordings the janitor currently knows about.
func (j *Janitor) Tracked() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.created)
}

// Run sweeps recordings older than MaxAge, then expires new recordings
// until ctx is done.
func (j *Janitor) Run(ctx context.Context) error {
	defer j.watcher.Close()

	if _, err := j.store.Sweep(j.maxAge); err != nil {
		j.store.logger.Error("Failed to sweep uploads directory", "error", err)
	}

	j.store.logger.Info("Watching uploads directory", "path", j.store.dir, "maxAge", j.maxAge)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-j.watcher.Events:
			if !ok {
				return nil
			}
			j.handleEvent(event)

		case err, ok := <-j.watcher.Errors:
			if !ok {
				return nil
			}
			j.store.logger.Error("Uploads watcher error", "error", err)

		case now := <-ticker.C:
			j.expire(now)
		}
	}
}

func (j *Janitor) handleEvent(event fsnotify.Event) {
	if !isRecording(filepath.Base(event.Name)) {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	switch {
	case event.Has(fsnotify.Create):
		j.created[event.Name] = time.Now()
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		delete(j.created, event.Name)
	}
}

func (j *Janitor) expire(now time.Time) {
	j.mu.Lock()
	var stale []string
	for path, created := range j.created {
		if now.Sub(created) >= j.maxAge {
			stale = append(stale, path)
			delete(j.created, path)
		}
	}
	j.mu.Unlock()

	for _, path := range stale {
		err := os.Remove(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			j.store.logger.Error("Failed to remove expired recording", "error", err, "path", path)
			continue
		}
		j.store.logger.Warn("Removed expired recording", "path", path, "maxAge", j.maxAge)
	}
}
