// Package storage persists encoded stripes as blobs. A Store maps keys to
// whole objects; there are no partial reads or appends.
package storage

import (
	"context"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/jsonc/pkg/config"
	"github.com/ajitpratap0/jsonc/pkg/errors"
	"github.com/ajitpratap0/jsonc/pkg/metrics"
)

// Store is a flat blob namespace
type Store interface {
	// Put replaces the object at key
	Put(ctx context.Context, key string, data []byte) error
	// Get returns the object at key, or a not_found error
	Get(ctx context.Context, key string) ([]byte, error)
	// Exists reports whether key holds an object
	Exists(ctx context.Context, key string) (bool, error)
	// Close releases clients held by the store
	Close() error
}

// New creates the store selected by cfg
func New(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("backend", cfg.Backend))

	switch cfg.Backend {
	case config.BackendLocal:
		return NewLocal(cfg.Directory, logger)
	case config.BackendS3:
		return NewS3(ctx, cfg, logger)
	case config.BackendGCS:
		return NewGCS(ctx, cfg, logger)
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown storage backend %q", cfg.Backend)
	}
}

// validateKey rejects keys that could escape a directory or prefix
func validateKey(key string) error {
	if key == "" {
		return errors.New(errors.ErrorTypeValidation, "empty object key")
	}
	if strings.HasPrefix(key, "/") || path.Clean(key) != key || strings.HasPrefix(key, "../") || key == ".." {
		return errors.New(errors.ErrorTypeValidation, "object key must be a clean relative path").
			WithDetail("key", key)
	}
	return nil
}

// objectName joins an optional prefix and a key
func objectName(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return strings.TrimSuffix(prefix, "/") + "/" + key
}

func notFound(backend, key string) *errors.Error {
	return errors.New(errors.ErrorTypeNotFound, "object not found").
		WithDetail("backend", backend).
		WithDetail("key", key)
}

// observe records the outcome of one store operation
func observe(backend, op string, err error) {
	status := "ok"
	switch {
	case errors.IsType(err, errors.ErrorTypeNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	metrics.StorageOperations.WithLabelValues(backend, op, status).Inc()
}
