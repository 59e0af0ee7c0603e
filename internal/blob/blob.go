// Package blob stores uploaded document files. Keys are generated here;
// collision avoidance is delegated to the uuid component of the key and no
// content validation is performed.
package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store persists uploaded files under opaque storage keys.
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) error
}

// NewStorageKey returns a date-partitioned, universally unique storage key
// for an uploaded document.
func NewStorageKey() string {
	d := time.Now().UTC()
	return fmt.Sprintf("documents/%04d/%02d/%02d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

// FS stores files under a local directory. Used in development mode and
// tests; production deployments use the S3 store.
type FS struct {
	root string
}

var _ Store = (*FS)(nil)

// NewFS creates a filesystem store rooted at dir.
func NewFS(dir string) (*FS, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("blob: directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("blob: create root: %w", err)
	}
	return &FS{root: dir}, nil
}

func (s *FS) Put(ctx context.Context, key, contentType string, r io.Reader) error {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("blob: create dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return fmt.Errorf("blob: create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("blob: write file: %w", err)
	}
	return f.Close()
}
