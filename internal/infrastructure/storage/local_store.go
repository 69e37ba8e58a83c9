package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	invoiceapp "github.com/wellnest/backend/internal/application/invoice"
)

var _ invoiceapp.ArchiveStore = (*LocalStore)(nil)

// LocalStore archives invoices under a directory on disk. Used when object
// storage is not configured; links are file URLs usable by ops only
type LocalStore struct {
	root string
}

// NewLocalStore creates the root directory if needed
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, errors.New("archive path is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid archive path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &LocalStore{root: abs}, nil
}

// Put writes data to root/storageKey
func (s *LocalStore) Put(_ context.Context, storageKey string, data []byte, _ string) error {
	path, err := s.path(storageKey)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	return os.Rename(tmp, path)
}

// PresignGet returns a file URL. The expiry is informational only
func (s *LocalStore) PresignGet(_ context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	path, err := s.path(storageKey)
	if err != nil {
		return "", time.Time{}, err
	}
	if _, err := os.Stat(path); err != nil {
		return "", time.Time{}, fmt.Errorf("archived object not found: %w", err)
	}
	return "file://" + filepath.ToSlash(path), time.Now().Add(expiresIn), nil
}

func (s *LocalStore) path(storageKey string) (string, error) {
	if storageKey == "" {
		return "", errors.New("storage key is required")
	}
	path := filepath.Join(s.root, filepath.FromSlash(storageKey))
	if !strings.HasPrefix(path, s.root+string(filepath.Separator)) {
		return "", errors.New("storage key escapes the archive directory")
	}
	return path, nil
}
