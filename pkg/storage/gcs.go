package storage

import (
	"context"
	stderrors "errors"
	"io"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/jsonc/pkg/config"
	"github.com/ajitpratap0/jsonc/pkg/errors"
)

// GCS stores objects in a Cloud Storage bucket under an optional prefix
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	prefix string
	logger *zap.Logger
}

// NewGCS uses application default credentials, or no authentication when
// an endpoint such as a local emulator is configured
func NewGCS(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*GCS, error) {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create GCS client")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GCS{
		client: client,
		bucket: client.Bucket(cfg.Bucket),
		name:   cfg.Bucket,
		prefix: cfg.Prefix,
		logger: logger,
	}, nil
}

// Put writes data to key
func (g *GCS) Put(ctx context.Context, key string, data []byte) (err error) {
	defer func() { observe(config.BackendGCS, "put", err) }()
	if err := validateKey(key); err != nil {
		return err
	}

	name := objectName(g.prefix, key)
	writer := g.bucket.Object(name).NewWriter(ctx)
	writer.ContentType = stripeContentType
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to write object").
			WithDetail("bucket", g.name).
			WithDetail("key", name)
	}
	if err := writer.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to finalize object").
			WithDetail("bucket", g.name).
			WithDetail("key", name)
	}

	g.logger.Debug("object stored",
		zap.String("bucket", g.name),
		zap.String("key", name),
		zap.Int("bytes", len(data)))
	return nil
}

// Get reads the object at key
func (g *GCS) Get(ctx context.Context, key string) (data []byte, err error) {
	defer func() { observe(config.BackendGCS, "get", err) }()
	if err := validateKey(key); err != nil {
		return nil, err
	}

	name := objectName(g.prefix, key)
	reader, err := g.bucket.Object(name).NewReader(ctx)
	if stderrors.Is(err, storage.ErrObjectNotExist) {
		return nil, notFound(config.BackendGCS, name)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to open object").
			WithDetail("bucket", g.name).
			WithDetail("key", name)
	}
	defer reader.Close()

	data, err = io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to read object").
			WithDetail("key", name)
	}
	return data, nil
}

// Exists fetches the object attributes
func (g *GCS) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	name := objectName(g.prefix, key)
	_, err := g.bucket.Object(name).Attrs(ctx)
	if stderrors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, errors.ErrorTypeStorage, "failed to stat object").
			WithDetail("key", name)
	}
	return true, nil
}

// Close releases the client
func (g *GCS) Close() error {
	return g.client.Close()
}
