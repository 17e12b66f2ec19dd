package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fenggwsx/dmrelay/internal/chat"
	"github.com/fenggwsx/dmrelay/internal/config"
)

// Store keeps the snapshot as a single JSON document on disk.
type Store struct {
	path string
}

// NewStore prepares a file-backed store at the configured path.
func NewStore(cfg config.StoreConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("file store: empty path")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("file store: %w", err)
		}
	}
	return &Store{path: cfg.Path}, nil
}

// Close is a no-op; files are opened per operation.
func (s *Store) Close() error { return nil }

// Load reads and decodes the snapshot file.
func (s *Store) Load(ctx context.Context) (chat.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return chat.Snapshot{}, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return chat.EmptySnapshot(), nil
		}
		return chat.Snapshot{}, fmt.Errorf("file store: read: %w", err)
	}
	return chat.DecodeSnapshot(data)
}

// Save writes the snapshot to a temporary file and renames it over the previous one.
func (s *Store) Save(ctx context.Context, snap chat.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := snap.Encode()
	if err != nil {
		return fmt.Errorf("file store: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("file store: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("file store: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("file store: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file store: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("file store: rename: %w", err)
	}
	tmpName = ""
	return nil
}
