package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/jsonc/pkg/columnar"
	"github.com/ajitpratap0/jsonc/pkg/compression"
	"github.com/ajitpratap0/jsonc/pkg/datum"
	"github.com/ajitpratap0/jsonc/pkg/errors"
	"github.com/ajitpratap0/jsonc/pkg/export"
	"github.com/ajitpratap0/jsonc/pkg/json"
	"github.com/ajitpratap0/jsonc/pkg/loader"
	"github.com/ajitpratap0/jsonc/pkg/logger"
	"github.com/ajitpratap0/jsonc/pkg/metrics"
	"github.com/ajitpratap0/jsonc/pkg/scan"
	"github.com/ajitpratap0/jsonc/pkg/storage"
)

// stripeExt is appended to the input base name when shred gets no --key
const stripeExt = ".jsnc"

func (a *app) newShredCommand() *cobra.Command {
	var key, comp, level string

	cmd := &cobra.Command{
		Use:   "shred <input.ndjson>",
		Short: "Shred an NDJSON file into a stripe and store it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				base := filepath.Base(args[0])
				key = strings.TrimSuffix(base, filepath.Ext(base)) + stripeExt
			}
			return a.runShred(cmd.Context(), cmd.OutOrStdout(), args[0], key, comp, level)
		},
	}

	cmd.Flags().StringVarP(&key, "key", "k", "", "Object key for the stripe (default: <input>"+stripeExt+")")
	cmd.Flags().StringVar(&comp, "compression", "", "Body compression, overrides codec.compression")
	cmd.Flags().StringVar(&level, "level", "", "Compression level, overrides codec.level")
	return cmd
}

func (a *app) runShred(ctx context.Context, out io.Writer, input, key, comp, level string) error {
	codec := a.cfg.Codec
	if comp != "" {
		codec.Compression = comp
	}
	if level != "" {
		codec.Level = level
	}
	cc, err := codec.CompressionConfig()
	if err != nil {
		return err
	}

	log := a.log.With(zap.String(string(logger.InputKey), input), zap.String(string(logger.StripeKey), key))

	s, rows, err := a.shredFile(ctx, input, log)
	if err != nil {
		return err
	}

	encodeTimer := metrics.NewTimer("encode")
	blob, err := columnar.Marshal(s,
		columnar.WithCompression(cc.Algorithm, cc.Level),
		columnar.WithCodecLogger(log))
	if err != nil {
		return err
	}
	encodeDur := encodeTimer.ObserveDuration()

	store, err := storage.New(ctx, a.cfg.Storage, log)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Put(ctx, key, blob); err != nil {
		return err
	}

	log.Info("stripe stored",
		zap.Int("rows", len(rows)),
		zap.Int("columns", s.NumColumns()),
		zap.Int("bytes", len(blob)),
		zap.String("compression", string(cc.Algorithm)),
		zap.Duration("encode", encodeDur))

	fmt.Fprintf(out, "stored %s: %d rows, %d columns, %d bytes (%s)\n",
		key, s.Len(), s.NumColumns(), len(blob), cc.Algorithm)
	return nil
}

// shredFile loads input and pushes every record into a new stripe
func (a *app) shredFile(ctx context.Context, input string, log *zap.Logger) (*columnar.Stripe, []datum.Datum, error) {
	loadTimer := metrics.NewTimer("load")
	rows, err := loader.LoadFile(ctx, input, a.loaderOptions()...)
	if err != nil {
		return nil, nil, err
	}
	loadDur := loadTimer.ObserveDuration()

	shredTimer := metrics.NewTimer("shred")
	tracker := metrics.NewThroughputTracker("shred")
	s := columnar.NewStripe(columnar.WithLogger(log))
	for _, row := range rows {
		s.Push(row)
		tracker.Increment(1)
	}
	shredDur := shredTimer.ObserveDuration()

	log.Info("records shredded",
		zap.Int("rows", len(rows)),
		zap.Int("columns", s.NumColumns()),
		zap.Duration("load", loadDur),
		zap.Duration("shred", shredDur),
		zap.Float64("rows_per_second", tracker.GetAndReset()))
	return s, rows, nil
}

// loadStripe fetches and decodes the stripe stored at key
func (a *app) loadStripe(ctx context.Context, key string) (*columnar.Stripe, error) {
	log := a.log.With(zap.String(string(logger.StripeKey), key))

	store, err := storage.New(ctx, a.cfg.Storage, log)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	blob, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	timer := metrics.NewTimer("decode")
	s, err := columnar.Unmarshal(blob, columnar.WithCodecLogger(log))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode stripe").WithDetail("key", key)
	}
	timer.ObserveDuration()
	return s, nil
}

// columnInfo is one line of inspect output
type columnInfo struct {
	Path    string `json:"path"`
	Type    string `json:"type"`
	Entries int    `json:"entries"`
	Depth   int    `json:"depth"`
	Nulls   int    `json:"nulls"`
}

func describe(s *columnar.Stripe) []columnInfo {
	infos := make([]columnInfo, 0, s.NumColumns())
	s.Ascend(func(p columnar.Path, c *columnar.Column) bool {
		infos = append(infos, columnInfo{
			Path:    p.String(),
			Type:    c.Type().String(),
			Entries: c.Len(),
			Depth:   c.Depth(),
			Nulls:   c.Nulls().Count(),
		})
		return true
	})
	return infos
}

func (a *app) newInspectCommand() *cobra.Command {
	var key string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List the columns of a stored stripe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.loadStripe(cmd.Context(), key)
			if err != nil {
				return err
			}
			return writeColumns(cmd.OutOrStdout(), s, asJSON)
		},
	}

	cmd.Flags().StringVarP(&key, "key", "k", "", "Object key of the stripe")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print one JSON object per column")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func writeColumns(out io.Writer, s *columnar.Stripe, asJSON bool) error {
	infos := describe(s)
	if asJSON {
		enc := json.NewLineEncoder(out)
		for _, info := range infos {
			if err := enc.Encode(info); err != nil {
				return err
			}
		}
		return nil
	}

	fmt.Fprintf(out, "rows: %d, columns: %d\n", s.Len(), len(infos))
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tTYPE\tENTRIES\tDEPTH\tNULLS")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", info.Path, info.Type, info.Entries, info.Depth, info.Nulls)
	}
	return tw.Flush()
}

func (a *app) newAvgCommand() *cobra.Command {
	var key, pathExpr, input string

	cmd := &cobra.Command{
		Use:   "avg",
		Short: "Average a numeric path with a columnar scan",
		Long: `avg averages every numeric value at --path. The stripe comes from the
store (--key) or is shredded in memory from --input. When --input is given
the row-wise average over the parsed records is computed too, and the two
results must agree.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runAvg(cmd.Context(), cmd.OutOrStdout(), key, pathExpr, input)
		},
	}

	cmd.Flags().StringVarP(&key, "key", "k", "", "Object key of a stored stripe")
	cmd.Flags().StringVarP(&pathExpr, "path", "p", "", "Column path, e.g. items.[].price")
	cmd.Flags().StringVarP(&input, "input", "i", "", "NDJSON file to compare against")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func (a *app) runAvg(ctx context.Context, out io.Writer, key, pathExpr, input string) error {
	if key == "" && input == "" {
		return errors.New(errors.ErrorTypeValidation, "one of --key or --input is required")
	}
	path, err := columnar.ParsePath(pathExpr)
	if err != nil {
		return err
	}

	var (
		s    *columnar.Stripe
		rows []datum.Datum
	)
	if key != "" {
		if s, err = a.loadStripe(ctx, key); err != nil {
			return err
		}
	}
	if input != "" {
		var shredded *columnar.Stripe
		if shredded, rows, err = a.shredFile(ctx, input, a.log.With(zap.String(string(logger.InputKey), input))); err != nil {
			return err
		}
		if s == nil {
			s = shredded
		}
	}

	start := time.Now()
	col := scan.ColumnAggregate(s, path)
	colDur := time.Since(start)
	metrics.PhaseDuration.WithLabelValues("scan").Observe(colDur.Seconds())
	fmt.Fprintf(out, "columnar: mean=%g count=%d (%s)\n", col.Mean(), col.Count, colDur)

	if input == "" {
		return nil
	}

	start = time.Now()
	row := scan.RowsAggregate(rows, path)
	rowDur := time.Since(start)
	fmt.Fprintf(out, "row-wise: mean=%g count=%d (%s)\n", row.Mean(), row.Count, rowDur)

	if row != col {
		return errors.New(errors.ErrorTypeInternal, "columnar and row-wise aggregates differ").
			WithDetail("path", path.String()).
			WithDetail("columnar", col).
			WithDetail("rows", row)
	}
	a.log.Info("aggregates match",
		zap.String("path", path.String()),
		zap.Int("count", col.Count),
		zap.Duration("columnar", colDur),
		zap.Duration("rows", rowDur))
	return nil
}

func (a *app) newExportCommand() *cobra.Command {
	var key, format, comp, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the flat columns of a stored stripe as Arrow or Parquet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runExport(cmd.Context(), cmd.OutOrStdout(), key, format, comp, out)
		},
	}

	cmd.Flags().StringVarP(&key, "key", "k", "", "Object key of the stripe")
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatParquet), "Output format (arrow, parquet)")
	cmd.Flags().StringVar(&comp, "compression", "snappy", "Parquet compression (none, gzip, snappy, lz4, zstd)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func (a *app) runExport(ctx context.Context, w io.Writer, key, format, comp, out string) error {
	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}
	alg, err := compression.ParseAlgorithm(comp)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid --compression")
	}

	s, err := a.loadStripe(ctx, key)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	res, err := export.Write(&buf, s, f, alg, export.WithLogger(a.log))
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write export").WithDetail("path", out)
	}

	fmt.Fprintf(w, "exported %d rows, %d fields to %s (%d columns skipped)\n",
		res.Rows, len(res.Fields), out, len(res.Skipped))
	return nil
}
