package loader

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/jsonc/pkg/datum"
	"github.com/ajitpratap0/jsonc/pkg/errors"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want datum.Datum
	}{
		{"0", datum.Int8(0)},
		{"127", datum.Int8(127)},
		{"-128", datum.Int8(-128)},
		{"128", datum.Int16(128)},
		{"-32768", datum.Int16(-32768)},
		{"32768", datum.Float(32768)},
		{"9223372036854775807", datum.Float(9223372036854775807)},
		{"18446744073709551616", datum.Float(18446744073709551616)},
		{"1.5", datum.Float(1.5)},
		{"1.0", datum.Float(1)},
		{"-2e3", datum.Float(-2000)},
		{"1e400", datum.Null()},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseNumber(tt.in)
			assert.True(t, tt.want.Equal(got), "ParseNumber(%s) = %s (%s), want %s (%s)",
				tt.in, got, got.Kind(), tt.want, tt.want.Kind())
		})
	}
}

func TestReaderNext(t *testing.T) {
	input := `{"a": 1, "b": [true, null, "x"], "c": {"d": 2.5}}

   
{"a": 300}
7
`
	r := NewReader(strings.NewReader(input))

	first, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, r.Line())
	assert.Equal(t, datum.KindInt8, first.Field("a").Kind())
	assert.Equal(t, datum.KindObject, first.Field("c").Kind())
	assert.Equal(t, datum.Float(2.5), first.Field("c").Field("d"))
	elems := first.Field("b").Elements()
	require.Len(t, elems, 3)
	assert.True(t, elems[1].IsNull())
	assert.True(t, first.Field("zzz").IsMissing())

	second, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, 4, r.Line(), "blank lines are skipped but counted")
	assert.Equal(t, datum.Int16(300), second.Field("a"))

	third, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, datum.Int8(7), third)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestReaderMalformedLine(t *testing.T) {
	r := NewReader(strings.NewReader("{\"a\": 1}\n{\"a\": \n"))

	_, err := r.Next()
	require.NoError(t, err)

	_, err = r.Next()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))

	var e *errors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, 2, e.Details["line"])
}

func TestReaderLineTooLong(t *testing.T) {
	long := `{"a": "` + strings.Repeat("x", 200) + `"}`
	r := NewReader(strings.NewReader(long+"\n"), WithBufferSize(16), WithMaxLineBytes(64))

	_, err := r.Next()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestReadAllHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadAll(ctx, strings.NewReader("1\n2\n"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rows.ndjson")
	require.NoError(t, os.WriteFile(path, []byte("{\"n\": 1}\n{\"n\": null}\n{}\n"), 0o600))

	rows, err := LoadFile(context.Background(), path, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, datum.Int8(1), rows[0].Field("n"))
	assert.True(t, rows[1].Field("n").IsNull())
	assert.True(t, rows[2].Field("n").IsMissing())
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(context.Background(), filepath.Join(t.TempDir(), "absent.ndjson"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))

	path := filepath.Join(t.TempDir(), "bad.ndjson")
	require.NoError(t, os.WriteFile(path, []byte("[1, 2\n"), 0o600))
	_, err = LoadFile(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
	var e *errors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, path, e.Details["path"])
}

func TestFromValue(t *testing.T) {
	v := map[string]interface{}{
		"i":    42,
		"big":  int64(1 << 40),
		"f":    0.5,
		"nan":  nan(),
		"list": []interface{}{"a", nil, false},
		"odd":  struct{}{},
	}
	d := FromValue(v)

	assert.Equal(t, datum.Int8(42), d.Field("i"))
	assert.Equal(t, datum.Float(1<<40), d.Field("big"))
	assert.Equal(t, datum.Float(0.5), d.Field("f"))
	assert.True(t, d.Field("nan").IsNull())
	assert.True(t, d.Field("odd").IsNull())
	assert.Equal(t, 3, d.Field("list").Len())
	assert.Equal(t, datum.Int16(-200), FromValue(datum.Int16(-200)))
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}
