package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/Veraticus/the-deals-must-flow/internal/service"
)

// FileBackend stores the snapshot as a single JSON document. Writes go to a
// temporary file that is renamed over the target.
type FileBackend struct {
	path string
	mu   sync.Mutex
}

var _ service.Backend = (*FileBackend)(nil)

// NewFileBackend creates a backend for path, creating its directory.
func NewFileBackend(path string) (*FileBackend, error) {
	if err := validateString(path, "path"); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileBackend{path: path}, nil
}

// Path returns the file location.
func (f *FileBackend) Path() string {
	return f.path
}

// Load reads the snapshot. A missing file is an empty store.
func (f *FileBackend) Load(ctx context.Context) (service.Snapshot, error) {
	if err := validateContext(ctx); err != nil {
		return service.Snapshot{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return service.Snapshot{Version: service.SnapshotVersion}, nil
	}
	if err != nil {
		return service.Snapshot{}, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	return DecodeSnapshot(data)
}

// Save writes the snapshot atomically.
func (f *FileBackend) Save(ctx context.Context, snap service.Snapshot) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".deals-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}

// Close is a no-op.
func (f *FileBackend) Close() error {
	return nil
}
