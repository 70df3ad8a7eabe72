// Package loader reads newline-delimited JSON into row values.
//
// Numbers are narrowed the way the columnar engine expects: integer literals
// that fit in 8 bits become Int8, those that fit in 16 bits become Int16,
// every other number becomes Float, and literals that cannot be represented
// at all become Null.
package loader

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"math"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/ajitpratap0/jsonc/pkg/datum"
	"github.com/ajitpratap0/jsonc/pkg/errors"
	jsonpool "github.com/ajitpratap0/jsonc/pkg/json"
	"github.com/ajitpratap0/jsonc/pkg/metrics"
)

const (
	// DefaultBufferSize is the initial scanner buffer
	DefaultBufferSize = 64 * 1024
	// DefaultMaxLineBytes bounds a single record
	DefaultMaxLineBytes = 16 * 1024 * 1024
)

// Option configures a Reader
type Option func(*Reader)

// WithBufferSize sets the initial line buffer size
func WithBufferSize(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.bufferSize = n
		}
	}
}

// WithMaxLineBytes sets the longest accepted line
func WithMaxLineBytes(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxLineBytes = n
		}
	}
}

// WithLogger sets the logger used for skipped lines and load summaries
func WithLogger(logger *zap.Logger) Option {
	return func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Reader yields one datum per non-blank line
type Reader struct {
	scanner      *bufio.Scanner
	line         int
	bufferSize   int
	maxLineBytes int
	logger       *zap.Logger
}

// NewReader creates a Reader over r
func NewReader(r io.Reader, opts ...Option) *Reader {
	rd := &Reader{
		bufferSize:   DefaultBufferSize,
		maxLineBytes: DefaultMaxLineBytes,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(rd)
	}
	if rd.bufferSize > rd.maxLineBytes {
		rd.bufferSize = rd.maxLineBytes
	}

	rd.scanner = bufio.NewScanner(r)
	rd.scanner.Buffer(make([]byte, 0, rd.bufferSize), rd.maxLineBytes)
	return rd
}

// Line returns the 1-based number of the line last read
func (r *Reader) Line() int { return r.line }

// Next returns the next record, or io.EOF when the input is exhausted
func (r *Reader) Next() (datum.Datum, error) {
	for r.scanner.Scan() {
		r.line++
		text := bytes.TrimSpace(r.scanner.Bytes())
		if len(text) == 0 {
			continue
		}

		var v interface{}
		if err := jsonpool.UnmarshalNumber(text, &v); err != nil {
			metrics.RecordsLoaded.WithLabelValues("error").Inc()
			return datum.Missing(), errors.Wrap(err, errors.ErrorTypeData, "malformed record").
				WithDetail("line", r.line)
		}
		metrics.RecordsLoaded.WithLabelValues("ok").Inc()
		return FromValue(v), nil
	}

	if err := r.scanner.Err(); err != nil {
		metrics.RecordsLoaded.WithLabelValues("error").Inc()
		if stderrors.Is(err, bufio.ErrTooLong) {
			return datum.Missing(), errors.Wrap(err, errors.ErrorTypeData, "record too long").
				WithDetail("line", r.line+1).
				WithDetail("max_bytes", r.maxLineBytes)
		}
		return datum.Missing(), errors.Wrap(err, errors.ErrorTypeFile, "failed to read input").
			WithDetail("line", r.line+1)
	}
	return datum.Missing(), io.EOF
}

// ReadAll reads every record from r. Cancellation is checked between lines.
func ReadAll(ctx context.Context, r io.Reader, opts ...Option) ([]datum.Datum, error) {
	rd := NewReader(r, opts...)
	var rows []datum.Datum
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d, err := rd.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, d)
	}
	rd.logger.Debug("records loaded",
		zap.Int("records", len(rows)),
		zap.Int("lines", rd.Line()))
	return rows, nil
}

// LoadFile reads every record of the NDJSON file at path
func LoadFile(ctx context.Context, path string, opts ...Option) ([]datum.Datum, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open input").
			WithDetail("path", path)
	}
	defer f.Close()

	rows, err := ReadAll(ctx, f, opts...)
	if err != nil {
		var e *errors.Error
		if errors.As(err, &e) {
			return nil, e.WithDetail("path", path)
		}
		return nil, err
	}
	return rows, nil
}

// FromValue converts a decoded JSON value into a datum. Values of types the
// JSON decoder never produces convert to Null.
func FromValue(v interface{}) datum.Datum {
	switch x := v.(type) {
	case nil:
		return datum.Null()
	case datum.Datum:
		return x
	case bool:
		return datum.Bool(x)
	case string:
		return datum.String(x)
	case jsonpool.Number:
		return ParseNumber(string(x))
	case float64:
		return fromFloat(x)
	case float32:
		return fromFloat(float64(x))
	case int:
		return datum.Int(int64(x))
	case int8:
		return datum.Int8(x)
	case int16:
		return datum.Int16(x)
	case int32:
		return datum.Int(int64(x))
	case int64:
		return datum.Int(x)
	case uint8:
		return datum.Int(int64(x))
	case uint16:
		return datum.Int(int64(x))
	case uint32:
		return datum.Int(int64(x))
	case uint64:
		if x > math.MaxInt64 {
			return datum.Float(float64(x))
		}
		return datum.Int(int64(x))
	case []interface{}:
		elems := make([]datum.Datum, len(x))
		for i, e := range x {
			elems[i] = FromValue(e)
		}
		return datum.Array(elems...)
	case map[string]interface{}:
		fields := make(map[string]datum.Datum, len(x))
		for k, e := range x {
			fields[k] = FromValue(e)
		}
		return datum.Object(fields)
	default:
		return datum.Null()
	}
}

// ParseNumber narrows a JSON number literal
func ParseNumber(s string) datum.Datum {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return datum.Int(i)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return datum.Null()
	}
	return datum.Float(f)
}

func fromFloat(f float64) datum.Datum {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return datum.Null()
	}
	return datum.Float(f)
}
