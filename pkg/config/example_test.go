package config_test

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ajitpratap0/jsonc/pkg/config"
)

// ExampleDefault shows the settings used when no file is given
func ExampleDefault() {
	cfg := config.Default()

	fmt.Printf("Compression: %s\n", cfg.Codec.Compression)
	fmt.Printf("Backend: %s\n", cfg.Storage.Backend)
	fmt.Printf("Max line: %d\n", cfg.Input.MaxLineBytes)

	// Output:
	// Compression: none
	// Backend: local
	// Max line: 16777216
}

// ExampleLoad demonstrates loading configuration from a YAML file
// with environment variable substitution.
func ExampleLoad() {
	dir, err := os.MkdirTemp("", "jsonc-config")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	os.Setenv("JSONC_BUCKET", "stripes-prod")
	defer os.Unsetenv("JSONC_BUCKET")

	path := filepath.Join(dir, "jsonc.yaml")
	yaml := `
codec:
  compression: zstd
  level: best
storage:
  backend: s3
  bucket: ${JSONC_BUCKET}
  prefix: events/
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		log.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fmt.Println(cfg.Storage.Bucket, cfg.Codec.Compression, cfg.Input.BufferSize)

	// Output:
	// stripes-prod zstd 65536
}
