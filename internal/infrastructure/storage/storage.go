// Package storage holds the file stores used for CSV ingestion and for
// the summaries the imports write back.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/fulfillment/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ErrObjectNotFound is returned by Download for a missing key
var ErrObjectNotFound = errors.New("object not found")

// FileStore stores opaque byte content by key
type FileStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// New builds the file store selected by cfg.Backend
func New(cfg *config.StorageConfig, logger *zap.Logger) (FileStore, error) {
	switch cfg.Backend {
	case "s3":
		return NewS3Store(cfg, WithLogger(logger))
	case "local", "":
		return NewLocalStore(cfg.LocalDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func validateKey(key string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	return nil
}
