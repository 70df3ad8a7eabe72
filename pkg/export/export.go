// Package export writes the flat part of a stripe as an Arrow IPC file or a
// Parquet file.
//
// A column is flat when its path crosses no array and it holds scalars. Such
// a column has at most one entry per row, so it lines up with the stripe
// rows once the rows it never saw are filled with nulls. Container columns,
// columns below an array and union columns are skipped and reported.
package export

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"go.uber.org/zap"

	"github.com/ajitpratap0/jsonc/pkg/columnar"
	"github.com/ajitpratap0/jsonc/pkg/compression"
	"github.com/ajitpratap0/jsonc/pkg/datum"
	"github.com/ajitpratap0/jsonc/pkg/errors"
)

// Format is an output file format
type Format string

const (
	// FormatArrow writes the Arrow IPC file format
	FormatArrow Format = "arrow"
	// FormatParquet writes a single row group Parquet file
	FormatParquet Format = "parquet"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatArrow, FormatParquet:
		return f, nil
	default:
		return "", errors.Newf(errors.ErrorTypeConfig, "unknown export format %q", s).
			WithDetail("supported", []string{string(FormatArrow), string(FormatParquet)})
	}
}

// Result describes what an export contained
type Result struct {
	Rows    int
	Fields  []string
	Skipped []string
}

type options struct {
	mem         memory.Allocator
	compression compress.Compression
	logger      *zap.Logger
}

// Option configures Write
type Option func(*options)

// WithAllocator sets the Arrow allocator
func WithAllocator(mem memory.Allocator) Option {
	return func(o *options) {
		if mem != nil {
			o.mem = mem
		}
	}
}

// WithLogger sets the logger used for the export summary
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// ParquetCodec maps a stripe compression algorithm to the Parquet codec
// with the same name. S2 and deflate have no Parquet counterpart.
func ParquetCodec(alg compression.Algorithm) (compress.Compression, error) {
	switch alg {
	case compression.None, "":
		return compress.Codecs.Uncompressed, nil
	case compression.Gzip:
		return compress.Codecs.Gzip, nil
	case compression.Snappy:
		return compress.Codecs.Snappy, nil
	case compression.LZ4:
		return compress.Codecs.Lz4Raw, nil
	case compression.Zstd:
		return compress.Codecs.Zstd, nil
	default:
		return compress.Codecs.Uncompressed, errors.Newf(errors.ErrorTypeConfig,
			"compression %q is not available for parquet", alg)
	}
}

// Write exports the flat columns of s to w
func Write(w io.Writer, s *columnar.Stripe, format Format, alg compression.Algorithm, opts ...Option) (Result, error) {
	o := options{
		mem:    memory.DefaultAllocator,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if _, err := ParseFormat(string(format)); err != nil {
		return Result{}, err
	}
	if format == FormatParquet {
		codec, err := ParquetCodec(alg)
		if err != nil {
			return Result{}, err
		}
		o.compression = codec
	}

	rec, res, err := Record(s, o.mem)
	if err != nil {
		return res, err
	}
	defer rec.Release()

	if format == FormatArrow {
		err = writeArrow(w, rec, o)
	} else {
		err = writeParquet(w, rec, o)
	}
	if err != nil {
		return res, err
	}

	o.logger.Info("stripe exported",
		zap.String("format", string(format)),
		zap.Int("rows", res.Rows),
		zap.Int("fields", len(res.Fields)),
		zap.Strings("skipped", res.Skipped))
	return res, nil
}

func writeArrow(w io.Writer, rec arrow.Record, o options) error {
	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(o.mem))
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create Arrow writer")
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write record batch")
	}
	if err := fw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close Arrow writer")
	}
	return nil
}

func writeParquet(w io.Writer, rec arrow.Record, o options) error {
	props := parquet.NewWriterProperties(
		parquet.WithCompression(o.compression),
		parquet.WithAllocator(o.mem),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(o.mem),
		pqarrow.WithStoreSchema(),
	)

	fw, err := pqarrow.NewFileWriter(rec.Schema(), w, props, arrowProps)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create Parquet writer")
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write row group")
	}
	if err := fw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close Parquet writer")
	}
	return nil
}

// Record assembles the flat columns of s into one record of s.Len() rows,
// one nullable field per column named by its path. The caller must Release
// the record.
func Record(s *columnar.Stripe, mem memory.Allocator) (arrow.Record, Result, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	res := Result{Rows: s.Len()}

	var (
		fields []arrow.Field
		cols   []arrow.Array
	)
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	s.Ascend(func(p columnar.Path, c *columnar.Column) bool {
		dt, ok := flatType(p, c)
		if !ok {
			res.Skipped = append(res.Skipped, p.String())
			return true
		}
		cols = append(cols, densify(mem, dt, c, s.Len()))
		fields = append(fields, arrow.Field{Name: p.String(), Type: dt, Nullable: true})
		res.Fields = append(res.Fields, p.String())
		return true
	})

	if len(fields) == 0 {
		return nil, res, errors.New(errors.ErrorTypeCapability, "stripe has no flat scalar columns")
	}

	schema := arrow.NewSchema(fields, nil)
	return array.NewRecord(schema, cols, int64(s.Len())), res, nil
}

func flatType(p columnar.Path, c *columnar.Column) (arrow.DataType, bool) {
	if len(p) == 0 || p.Depth() != 0 {
		return nil, false
	}
	switch c.Type() {
	case datum.KindObject, datum.KindArray, datum.KindUnion:
		return nil, false
	}
	return columnar.ArrowType(c.Type())
}

// densify spreads the entries of a flat column over every row
func densify(mem memory.Allocator, dt arrow.DataType, c *columnar.Column, rows int) arrow.Array {
	b := array.NewBuilder(mem, dt)
	defer b.Release()
	b.Reserve(rows)

	idx := c.Index(0)
	j := 0
	for r := 0; r < rows; r++ {
		if j < len(idx) && int(idx[j]) == r {
			appendEntry(b, c.Entry(j))
			j++
			continue
		}
		b.AppendNull()
	}
	return b.NewArray()
}

func appendEntry(b array.Builder, v columnar.UnionValue) {
	if v.IsNull() {
		b.AppendNull()
		return
	}
	switch tb := b.(type) {
	case *array.BooleanBuilder:
		tb.Append(v.Bool)
	case *array.Int8Builder:
		tb.Append(int8(v.Int))
	case *array.Int16Builder:
		tb.Append(v.Int)
	case *array.Float64Builder:
		tb.Append(v.Float)
	case *array.StringBuilder:
		tb.Append(v.String)
	default:
		b.AppendNull()
	}
}
