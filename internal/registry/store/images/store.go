// Package images stores accepted selfies as files named by a generated id.
package images

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"kycgate/internal/registry/models"
)

// DirStore writes each image to <dir>/<uuid>.<ext> via temp file and rename.
type DirStore struct {
	dir string
}

func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

func (s *DirStore) Save(_ context.Context, img models.Image) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(img.Ext), ".")
	if ext == "" {
		ext = "bin"
	}
	ref := uuid.NewString() + "." + ext

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp image: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(img.Data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close image: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, ref)); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("store image: %w", err)
	}
	return ref, nil
}

func (s *DirStore) Delete(_ context.Context, ref string) error {
	if ref == "" || ref != filepath.Base(ref) {
		return fmt.Errorf("invalid image ref %q", ref)
	}
	err := os.Remove(filepath.Join(s.dir, ref))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}

// Reset removes every regular file in the directory.
func (s *DirStore) Reset(_ context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read image dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete image: %w", err)
		}
	}
	return nil
}
