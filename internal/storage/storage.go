package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/ikkim/storefront-backend/config"
)

const (
	MaxReceiptSize = 5 << 20 // 5 MiB
	MaxImageSize   = 10 << 20
)

var (
	ErrFileTooLarge       = errors.New("file exceeds the maximum allowed size")
	ErrContentTypeDenied  = errors.New("content type is not allowed")
	ErrUnknownStorageType = errors.New("unknown storage driver")
)

// ReceiptContentTypes are accepted for checkout receipts.
var ReceiptContentTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
	"image/gif",
	"application/pdf",
}

// ImageContentTypes are accepted for product images.
var ImageContentTypes = []string{
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/gif",
	"image/webp",
}

// Storage persists uploaded objects and returns the URL they are served from.
type Storage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// New picks the driver named in the configuration.
func New(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStorage(cfg.LocalRoot, cfg.PublicURL), nil
	case "s3":
		return NewS3Storage(cfg.S3.Region, cfg.S3.Bucket, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, cfg.S3.BaseURL), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStorageType, cfg.Driver)
	}
}

// NewKey builds a collision-free object key under folder, keeping the original extension.
func NewKey(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%s/%s%s", folder, uuid.New().String(), ext)
}

// ValidateFileSize validates the file size
func ValidateFileSize(size int64, maxSize int64) error {
	if size > maxSize {
		return fmt.Errorf("%w: %d bytes", ErrFileTooLarge, maxSize)
	}
	return nil
}

// ValidateContentType validates the content type, ignoring parameters such as charset.
func ValidateContentType(contentType string, allowedTypes []string) error {
	base := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	for _, allowed := range allowedTypes {
		if strings.EqualFold(base, allowed) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrContentTypeDenied, contentType)
}
