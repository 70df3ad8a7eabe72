package storage

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ajitpratap0/jsonc/pkg/config"
	"github.com/ajitpratap0/jsonc/pkg/errors"
)

// Local stores objects as files under a directory
type Local struct {
	dir    string
	logger *zap.Logger
}

// NewLocal creates the directory if needed
func NewLocal(dir string, logger *zap.Logger) (*Local, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to create storage directory").
			WithDetail("dir", dir)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{dir: dir, logger: logger}, nil
}

func (l *Local) path(key string) string {
	return filepath.Join(l.dir, filepath.FromSlash(key))
}

// Put writes to a temporary file and renames it into place so readers
// never observe a partial stripe
func (l *Local) Put(ctx context.Context, key string, data []byte) (err error) {
	defer func() { observe(config.BackendLocal, "put", err) }()
	if err := validateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	target := l.path(key)
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to create object directory").
			WithDetail("key", key)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".put-*")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to create temp file").
			WithDetail("key", key)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to write object").
			WithDetail("key", key)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to write object").
			WithDetail("key", key)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to commit object").
			WithDetail("key", key)
	}

	l.logger.Debug("object stored", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

// Get reads the file at key
func (l *Local) Get(ctx context.Context, key string) (data []byte, err error) {
	defer func() { observe(config.BackendLocal, "get", err) }()
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err = os.ReadFile(l.path(key))
	if os.IsNotExist(err) {
		return nil, notFound(config.BackendLocal, key)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to read object").
			WithDetail("key", key)
	}
	return data, nil
}

// Exists stats the file at key
func (l *Local) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	info, err := os.Stat(l.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, errors.ErrorTypeStorage, "failed to stat object").
			WithDetail("key", key)
	}
	return info.Mode().IsRegular(), nil
}

// Close is a no-op
func (l *Local) Close() error { return nil }
