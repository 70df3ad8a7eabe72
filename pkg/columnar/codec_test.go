package columnar

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/jsonc/pkg/compression"
	"github.com/ajitpratap0/jsonc/pkg/datum"
	"github.com/ajitpratap0/jsonc/pkg/errors"
)

type columnSnapshot struct {
	Type    datum.Kind
	Indexes [][]uint32
	Nulls   []bool
	Entries []UnionValue
}

// snapshot flattens a stripe into comparable values keyed by path
func snapshot(s *Stripe) map[string]columnSnapshot {
	out := make(map[string]columnSnapshot, s.NumColumns())
	s.Ascend(func(p Path, c *Column) bool {
		snap := columnSnapshot{
			Type:    c.Type(),
			Indexes: make([][]uint32, c.Depth()),
			Nulls:   c.Nulls().Bools(),
			Entries: make([]UnionValue, c.Len()),
		}
		for d := range snap.Indexes {
			snap.Indexes[d] = append([]uint32{}, c.Index(d)...)
		}
		for i := range snap.Entries {
			snap.Entries[i] = c.Entry(i)
		}
		out[p.String()] = snap
		return true
	})
	return out
}

func sampleStripe() *Stripe {
	s := NewStripe()
	s.Push(obj(
		"id", datum.Int8(1),
		"name", datum.String("first"),
		"ok", datum.Bool(true),
		"score", datum.Float(4.5),
		"tags", arr(datum.String("x"), datum.String("y")),
		"mixed", datum.Int8(3),
		"nothing", datum.Null(),
	))
	s.Push(obj(
		"id", datum.Int16(1200),
		"name", datum.Null(),
		"ok", datum.Bool(false),
		"tags", arr(),
		"mixed", datum.String("three"),
		"nested", arr(arr(datum.Int8(1)), arr(datum.Int8(2), datum.Null())),
	))
	s.Push(datum.Missing())
	s.Push(obj(
		"mixed", obj("deep", datum.Float(-1)),
		"score", datum.Int8(2),
	))
	s.Push(obj(
		"mixed", arr(datum.Bool(true)),
		"name", datum.String("last"),
	))
	return s
}

func TestCodecRoundTrip(t *testing.T) {
	s := sampleStripe()
	require.NoError(t, s.Validate())

	blob, err := Marshal(s, WithCodecLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	decoded, err := Unmarshal(blob, WithCodecLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	assert.Equal(t, s.Len(), decoded.Len())
	assert.Equal(t, s.Paths(), decoded.Paths())
	if diff := cmp.Diff(snapshot(s), snapshot(decoded)); diff != "" {
		t.Errorf("decoded stripe differs (-want +got):\n%s", diff)
	}

	mixed := mustColumn(t, decoded, "mixed")
	assert.Equal(t, datum.KindUnion, mixed.Type())
	assert.Equal(t, UnionString("three"), mixed.Entry(1))
	assert.Equal(t, UnionArray(1), mixed.Entry(3))
}

func TestCodecEmptyStripe(t *testing.T) {
	blob, err := Marshal(NewStripe())
	require.NoError(t, err)

	decoded, err := Unmarshal(blob)
	require.NoError(t, err)
	assert.Equal(t, 0, decoded.Len())
	assert.Equal(t, 0, decoded.NumColumns())
}

func TestCodecEncodeDecodeStream(t *testing.T) {
	s := sampleStripe()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, s))

	decoded, err := Decode(&buf)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(snapshot(s), snapshot(decoded)))
}

func TestCodecCompressedRoundTrip(t *testing.T) {
	s := NewStripe()
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 300; i++ {
		s.Push(randomDatum(rng, 3))
	}
	want := snapshot(s)

	algorithms := []compression.Algorithm{
		compression.None,
		compression.Gzip,
		compression.Snappy,
		compression.LZ4,
		compression.Zstd,
		compression.S2,
		compression.Deflate,
	}
	for _, alg := range algorithms {
		t.Run(string(alg), func(t *testing.T) {
			blob, err := Marshal(s, WithCompression(alg, compression.Default))
			require.NoError(t, err)

			code, err := alg.Code()
			require.NoError(t, err)
			assert.Equal(t, code, blob[len(codecMagic)+1])

			decoded, err := Unmarshal(blob)
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(want, snapshot(decoded)))
		})
	}
}

func TestCodecRejectsUnknownCompression(t *testing.T) {
	_, err := Marshal(NewStripe(), WithCompression("brotli", compression.Default))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestCodecRejectsCorruptBlobs(t *testing.T) {
	blob, err := Marshal(sampleStripe())
	require.NoError(t, err)

	corrupt := func(mutate func([]byte) []byte) []byte {
		b := append([]byte{}, blob...)
		return mutate(b)
	}

	tests := []struct {
		name string
		blob []byte
	}{
		{"empty", nil},
		{"truncated", blob[:len(blob)/2]},
		{"bad magic", corrupt(func(b []byte) []byte { b[0] = 'X'; return b })},
		{"bad version", corrupt(func(b []byte) []byte { b[4] = 99; return b })},
		{"bad compression code", corrupt(func(b []byte) []byte { b[5] = 200; return b })},
		{"bad trailer", corrupt(func(b []byte) []byte { b[len(b)-1] = 'X'; return b })},
		{"flipped body byte", corrupt(func(b []byte) []byte { b[len(b)/2] ^= 0xff; return b })},
		{"flipped checksum", corrupt(func(b []byte) []byte { b[len(b)-5] ^= 0x01; return b })},
		{"extra byte", corrupt(func(b []byte) []byte {
			return append(b[:len(b)-4], 0, 'C', 'N', 'S', 'J')
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Unmarshal(tt.blob)
			require.Error(t, err)
			assert.Nil(t, s)
			assert.True(t, errors.IsType(err, errors.ErrorTypeData), "got %v", err)
		})
	}
}

// frame wraps a hand-built body the way Marshal does, without compression
func frame(body []byte) []byte {
	out := []byte(codecMagic)
	out = append(out, codecVersion, 0)
	out = binary.AppendUvarint(out, uint64(len(body)))
	out = append(out, body...)
	out = binary.LittleEndian.AppendUint64(out, xxhash.Sum64(body))
	return append(out, codecTrailer...)
}

func emptyNullColumn(e *encoder, p Path) {
	e.putPath(p)
	e.putUvarint(uint64(p.Depth() + 1))
	e.putUvarint(0)
	e.putUvarint(0)
	e.putByte(byte(datum.KindNull))
}

func TestCodecRejectsUnorderedPaths(t *testing.T) {
	var e encoder
	e.putUvarint(0)
	e.putUvarint(2)
	emptyNullColumn(&e, NewPath(Key("b")))
	emptyNullColumn(&e, NewPath(Key("a")))

	_, err := Unmarshal(frame(e.buf))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
	assert.Contains(t, err.Error(), "out of order")
}

func TestCodecRejectsDuplicatePaths(t *testing.T) {
	var e encoder
	e.putUvarint(0)
	e.putUvarint(2)
	emptyNullColumn(&e, NewPath(Key("a")))
	emptyNullColumn(&e, NewPath(Key("a")))

	_, err := Unmarshal(frame(e.buf))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestCodecRejectsWrongDepth(t *testing.T) {
	var e encoder
	e.putUvarint(0)
	e.putUvarint(1)
	e.putPath(NewPath(Key("a"), ArrayElem))
	e.putUvarint(1)
	e.putUvarint(0)
	e.putUvarint(0)
	e.putByte(byte(datum.KindNull))

	_, err := Unmarshal(frame(e.buf))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depth")
}

func TestCodecRejectsRowOutOfRange(t *testing.T) {
	var e encoder
	e.putUvarint(1)
	e.putUvarint(1)
	e.putPath(NewPath(Key("a")))
	e.putUvarint(1)
	e.putUvarint(1)
	e.putUvarint(5) // row 5 of a one-row stripe
	e.putUvarint(0)
	e.putByte(byte(datum.KindInt8))
	e.putByte(1)

	_, err := Unmarshal(frame(e.buf))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestCodecRejectsMisalignedColumn(t *testing.T) {
	s := NewStripe()
	s.insert(NewPath(Key("a")), &Column{
		indexes: [][]uint32{{0}},
		nulls:   newBitmapFilled(1),
		data:    &Int8Data{Values: []int8{1, 2}},
	})
	s.count = 1
	require.Error(t, s.Validate())

	blob, err := Marshal(s)
	require.NoError(t, err)
	_, err = Unmarshal(blob)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestCodecDecodedStripeAcceptsPushes(t *testing.T) {
	blob, err := Marshal(sampleStripe())
	require.NoError(t, err)
	s, err := Unmarshal(blob)
	require.NoError(t, err)

	s.Push(obj("id", datum.Float(0.5), "ok", datum.Bool(true)))

	require.NoError(t, s.Validate())
	assert.Equal(t, 6, s.Len())
	id := mustColumn(t, s, "id")
	assert.Equal(t, datum.KindFloat, id.Type())
	assert.Equal(t, []uint32{0, 1, 5}, id.Index(0))
	ok := mustColumn(t, s, "ok")
	assert.Equal(t, []bool{true, false, true}, ok.Data().(*BoolData).Values.Bools())
}
