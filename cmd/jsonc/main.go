// Command jsonc shreds newline-delimited JSON into typed column stripes,
// persists them to a blob store and scans them back.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/jsonc/pkg/config"
	"github.com/ajitpratap0/jsonc/pkg/loader"
	"github.com/ajitpratap0/jsonc/pkg/logger"
)

var version = "0.1.0"

// app carries state shared by every subcommand once flags are parsed
type app struct {
	configPath string
	logLevel   string
	storeDir   string

	cfg *config.Config
	log *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCommand().ExecuteContext(ctx)
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "jsonc",
		Short: "Columnar shredding for nested JSON",
		Long: `jsonc decomposes nested JSON records into one typed column per path.
Columns widen as new value types arrive and fall back to a union column
when types cannot be reconciled. Stripes can be stored locally, in S3 or
in GCS and scanned without re-parsing the original records.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	flags.StringVar(&a.storeDir, "dir", "", "Use a local store rooted at this directory")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "jsonc version %s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}

	root.AddCommand(versionCmd)
	root.AddCommand(a.newShredCommand())
	root.AddCommand(a.newInspectCommand())
	root.AddCommand(a.newAvgCommand())
	root.AddCommand(a.newExportCommand())
	return root
}

// setup loads configuration, applies flag overrides and installs the logger
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.storeDir != "" {
		cfg.Storage.Backend = config.BackendLocal
		cfg.Storage.Directory = a.storeDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return err
	}

	a.cfg = cfg
	a.log = logger.Get().With(
		zap.String("component", "jsonc-cli"),
		zap.String(string(logger.CommandKey), cmd.Name()),
	)
	return nil
}

func (a *app) loaderOptions() []loader.Option {
	return []loader.Option{
		loader.WithBufferSize(a.cfg.Input.BufferSize),
		loader.WithMaxLineBytes(a.cfg.Input.MaxLineBytes),
		loader.WithLogger(a.log),
	}
}
