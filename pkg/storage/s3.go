package storage

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/ajitpratap0/jsonc/pkg/config"
	"github.com/ajitpratap0/jsonc/pkg/errors"
)

const stripeContentType = "application/x-jsonc-stripe"

// s3API is the subset of the S3 client used for reads
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// s3Uploader is satisfied by manager.Uploader, which switches to multipart
// uploads for large stripes
type s3Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3 stores objects in an S3 bucket under an optional prefix
type S3 struct {
	client   s3API
	uploader s3Uploader
	bucket   string
	prefix   string
	logger   *zap.Logger
}

// NewS3 loads the default AWS credential chain for the configured region
func NewS3(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*S3, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3(client, manager.NewUploader(client), cfg.Bucket, cfg.Prefix, logger), nil
}

func newS3(client s3API, uploader s3Uploader, bucket, prefix string, logger *zap.Logger) *S3 {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3{
		client:   client,
		uploader: uploader,
		bucket:   bucket,
		prefix:   prefix,
		logger:   logger,
	}
}

// Put uploads data to key
func (s *S3) Put(ctx context.Context, key string, data []byte) (err error) {
	defer func() { observe(config.BackendS3, "put", err) }()
	if err := validateKey(key); err != nil {
		return err
	}

	name := objectName(s.prefix, key)
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(stripeContentType),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to upload object").
			WithDetail("bucket", s.bucket).
			WithDetail("key", name)
	}

	s.logger.Debug("object stored",
		zap.String("bucket", s.bucket),
		zap.String("key", name),
		zap.Int("bytes", len(data)))
	return nil
}

// Get downloads the object at key
func (s *S3) Get(ctx context.Context, key string) (data []byte, err error) {
	defer func() { observe(config.BackendS3, "get", err) }()
	if err := validateKey(key); err != nil {
		return nil, err
	}

	name := objectName(s.prefix, key)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, notFound(config.BackendS3, name)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to get object").
			WithDetail("bucket", s.bucket).
			WithDetail("key", name)
	}
	defer out.Body.Close()

	data, err = io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to read object body").
			WithDetail("key", name)
	}
	return data, nil
}

// Exists issues a HEAD request for key
func (s *S3) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	name := objectName(s.prefix, key)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err == nil {
		return true, nil
	}
	if isS3NotFound(err) {
		return false, nil
	}
	return false, errors.Wrap(err, errors.ErrorTypeStorage, "failed to head object").
		WithDetail("key", name)
}

// Close is a no-op; the SDK client holds no resources that need releasing
func (s *S3) Close() error { return nil }

func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if stderrors.As(err, &noSuchKey) || stderrors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
