package utils

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"flow-pantry-system/models"
)

// DiskStore keeps objects under a local directory that is served at PublicBase.
type DiskStore struct {
	Root       string
	PublicBase string
}

func NewDiskStore(root, publicBase string) (*DiskStore, error) {
	if err := os.MkdirAll(root, os.ModePerm); err != nil {
		return nil, err
	}
	return &DiskStore{Root: root, PublicBase: strings.TrimRight(publicBase, "/")}, nil
}

// resolvePath maps a key onto the root and refuses anything that escapes it.
func (s *DiskStore) resolvePath(locatorOrPath string) (string, string, error) {
	key := filepath.ToSlash(filepath.Clean("/" + keyFromLocator(s.PublicBase, locatorOrPath)))
	key = strings.TrimPrefix(key, "/")
	if key == "" || key == "." {
		return "", "", models.NewValidationError("path", "is empty")
	}
	return key, filepath.Join(s.Root, filepath.FromSlash(key)), nil
}

func (s *DiskStore) Upload(ctx context.Context, body io.Reader, size int64, contentType, objectPath string) (string, error) {
	key, dest, err := s.resolvePath(objectPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dest), os.ModePerm); err != nil {
		return "", err
	}

	dst, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, body); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}
	return s.PublicBase + "/" + key, nil
}

func (s *DiskStore) Delete(ctx context.Context, locatorOrPath string) error {
	_, dest, err := s.resolvePath(locatorOrPath)
	if err != nil {
		return err
	}
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *DiskStore) Resolve(ctx context.Context, objectPath string) (string, error) {
	key, dest, err := s.resolvePath(objectPath)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(dest); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("object %s: %w", key, models.ErrNotFound)
		}
		return "", err
	}
	return s.PublicBase + "/" + key, nil
}
