package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/msomdec/gohans-journey/internal/domain"
)

// DiskStore implements domain.FileStore on a local directory. Writes go to
// a pending temp file that is fsynced and then hard-linked under its final
// name, so a failed write never leaves a partial file behind and an
// existing file is never replaced.
type DiskStore struct {
	dir string
}

// NewDiskStore creates dir if needed and returns a store rooted at it.
func NewDiskStore(dir string) (*DiskStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: abs}, nil
}

// Dir returns the absolute root directory.
func (s *DiskStore) Dir() string { return s.dir }

func (s *DiskStore) Save(ctx context.Context, key, contentType string, data []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() {
		// Removes the temp name; a committed link keeps the data.
		if err := pending.Cleanup(); err != nil {
			slog.Debug("cleanup pending upload", "key", key, "error", err)
		}
	}()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := pending.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", key, err)
	}
	// link(2) fails when the target exists, unlike rename(2).
	if err := os.Link(pending.Name(), path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("save %s: %w", key, fs.ErrExist)
		}
		return fmt.Errorf("commit %s: %w", key, err)
	}
	return nil
}

func (s *DiskStore) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (s *DiskStore) Delete(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// path maps a key to a file directly inside the root; keys that would
// escape it or name a directory are rejected.
func (s *DiskStore) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || key != filepath.Base(key) {
		return "", fmt.Errorf("%w: invalid storage key %q", domain.ErrInvalidInput, key)
	}
	return filepath.Join(s.dir, key), nil
}
