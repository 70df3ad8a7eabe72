// Package config holds the jsonc configuration: logging, NDJSON input
// limits, stripe codec settings and the blob store used for stripes.
//
// Configuration is loaded from YAML with ${VAR} environment substitution
// and layered over Default, so a file only needs the keys it changes:
//
//	cfg, err := config.Load("jsonc.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	comp, err := cfg.Codec.CompressionConfig()
package config

import (
	"github.com/ajitpratap0/jsonc/pkg/compression"
	"github.com/ajitpratap0/jsonc/pkg/errors"
	"github.com/ajitpratap0/jsonc/pkg/logger"
)

// Storage backends
const (
	BackendLocal = "local"
	BackendS3    = "s3"
	BackendGCS   = "gcs"
)

// Config is the root configuration
type Config struct {
	Logging logger.Config `yaml:"logging"`
	Input   InputConfig   `yaml:"input"`
	Codec   CodecConfig   `yaml:"codec"`
	Storage StorageConfig `yaml:"storage"`
}

// InputConfig bounds NDJSON reading
type InputConfig struct {
	// BufferSize is the initial line buffer in bytes
	BufferSize int `yaml:"buffer_size"`
	// MaxLineBytes is the longest accepted record
	MaxLineBytes int `yaml:"max_line_bytes"`
}

// CodecConfig selects stripe body compression
type CodecConfig struct {
	// Compression is one of none, gzip, snappy, lz4, zstd, s2, deflate
	Compression string `yaml:"compression"`
	// Level is one of fastest, default, better, best
	Level string `yaml:"level"`
}

// StorageConfig locates persisted stripes
type StorageConfig struct {
	Backend   string `yaml:"backend"`
	Directory string `yaml:"directory"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	// Endpoint overrides the service endpoint, e.g. for MinIO or a GCS emulator
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Logging: logger.DefaultConfig(),
		Input: InputConfig{
			BufferSize:   64 * 1024,
			MaxLineBytes: 16 * 1024 * 1024,
		},
		Codec: CodecConfig{
			Compression: string(compression.None),
			Level:       "default",
		},
		Storage: StorageConfig{
			Backend:   BackendLocal,
			Directory: ".",
		},
	}
}

// Validate checks the configuration for correctness
func (c *Config) Validate() error {
	if c.Input.BufferSize <= 0 {
		return errors.New(errors.ErrorTypeConfig, "input.buffer_size must be positive")
	}
	if c.Input.MaxLineBytes < c.Input.BufferSize {
		return errors.New(errors.ErrorTypeConfig, "input.max_line_bytes must be at least input.buffer_size")
	}
	if _, err := c.Codec.CompressionConfig(); err != nil {
		return err
	}
	return c.Storage.Validate()
}

// CompressionConfig parses the codec settings
func (c CodecConfig) CompressionConfig() (*compression.Config, error) {
	alg, err := compression.ParseAlgorithm(c.Compression)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid codec.compression")
	}
	level, err := compression.ParseLevel(c.Level)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid codec.level")
	}
	return &compression.Config{Algorithm: alg, Level: level}, nil
}

// Validate checks that the selected backend has what it needs
func (s StorageConfig) Validate() error {
	switch s.Backend {
	case BackendLocal:
		if s.Directory == "" {
			return errors.New(errors.ErrorTypeConfig, "storage.directory is required for the local backend")
		}
	case BackendS3, BackendGCS:
		if s.Bucket == "" {
			return errors.Newf(errors.ErrorTypeConfig, "storage.bucket is required for the %s backend", s.Backend)
		}
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unknown storage backend %q", s.Backend).
			WithDetail("supported", []string{BackendLocal, BackendS3, BackendGCS})
	}
	return nil
}
