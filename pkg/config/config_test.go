package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/jsonc/pkg/compression"
	"github.com/ajitpratap0/jsonc/pkg/errors"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero buffer", func(c *Config) { c.Input.BufferSize = 0 }},
		{"max below buffer", func(c *Config) { c.Input.MaxLineBytes = 1 }},
		{"unknown compression", func(c *Config) { c.Codec.Compression = "rar" }},
		{"unknown level", func(c *Config) { c.Codec.Level = "ultra" }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "ftp" }},
		{"s3 without bucket", func(c *Config) { c.Storage.Backend = BackendS3 }},
		{"gcs without bucket", func(c *Config) { c.Storage.Backend = BackendGCS }},
		{"local without directory", func(c *Config) { c.Storage.Directory = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig), "got %v", err)
		})
	}
}

func TestCompressionConfig(t *testing.T) {
	comp, err := CodecConfig{Compression: "LZ4", Level: "fastest"}.CompressionConfig()
	require.NoError(t, err)
	assert.Equal(t, compression.LZ4, comp.Algorithm)
	assert.Equal(t, compression.Fastest, comp.Level)
}

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jsonc.yaml")

	cfg := Default()
	cfg.Codec.Compression = "s2"
	cfg.Storage = StorageConfig{Backend: BackendGCS, Bucket: "b", Prefix: "p/"}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("input: [unterminated"), 0o600))
	_, err = Load(bad)
	require.Error(t, err)

	invalid := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("storage:\n  backend: tape\n"), 0o600))
	_, err = Load(invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tape")
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("JSONC_A", "alpha")
	assert.Equal(t, "x alpha y  z", substituteEnvVars("x ${JSONC_A} y ${JSONC_UNSET_VAR} z"))
	assert.Equal(t, "keep ${open", substituteEnvVars("keep ${open"))
}
