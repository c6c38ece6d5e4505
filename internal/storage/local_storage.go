package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ikkim/storefront-backend/pkg/logger"
)

// LocalStorage writes objects below a directory that the router serves statically.
type LocalStorage struct {
	root      string
	publicURL string
}

func NewLocalStorage(root, publicURL string) *LocalStorage {
	return &LocalStorage{
		root:      root,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (s *LocalStorage) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *LocalStorage) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	dst, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, body)
	if err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}

	logger.Debug("Stored object on local disk", map[string]interface{}{
		"key":          key,
		"bytes":        written,
		"content_type": contentType,
	})
	return s.publicURL + "/" + strings.TrimLeft(filepath.ToSlash(filepath.Clean("/"+key)), "/"), nil
}

func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	dst, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
