package columnar

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/ajitpratap0/jsonc/pkg/compression"
	"github.com/ajitpratap0/jsonc/pkg/datum"
	"github.com/ajitpratap0/jsonc/pkg/errors"
	"github.com/ajitpratap0/jsonc/pkg/metrics"
)

// Stripe blob layout:
//
//	magic "JSNC" | version | compression code | uvarint body length |
//	body | xxhash64(uncompressed body) LE | trailer "CNSJ"
const (
	codecMagic   = "JSNC"
	codecTrailer = "CNSJ"
	codecVersion = 1

	minBlobSize = len(codecMagic) + 2 + 1 + 8 + len(codecTrailer)
)

type codecOptions struct {
	compression *compression.Config
	logger      *zap.Logger
}

// CodecOption configures Encode and Decode
type CodecOption func(*codecOptions)

// WithCompression compresses the stripe body. Decoding reads the algorithm
// from the blob and ignores this option.
func WithCompression(alg compression.Algorithm, level compression.Level) CodecOption {
	return func(o *codecOptions) {
		o.compression = &compression.Config{Algorithm: alg, Level: level}
	}
}

// WithCodecLogger sets the logger for codec summaries. Decoded stripes inherit it.
func WithCodecLogger(logger *zap.Logger) CodecOption {
	return func(o *codecOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newCodecOptions(opts []CodecOption) *codecOptions {
	o := &codecOptions{
		compression: compression.DefaultConfig(),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Encode writes s to w as a single blob
func Encode(w io.Writer, s *Stripe, opts ...CodecOption) error {
	blob, err := Marshal(s, opts...)
	if err != nil {
		return err
	}
	if _, err := w.Write(blob); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write stripe")
	}
	return nil
}

// Marshal serializes s
func Marshal(s *Stripe, opts ...CodecOption) ([]byte, error) {
	o := newCodecOptions(opts)

	comp, err := compression.NewCompressor(o.compression)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid stripe compression")
	}
	code, err := comp.Algorithm().Code()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid stripe compression")
	}

	body := encodeBody(s)
	stored, err := comp.Compress(body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to compress stripe").
			WithDetail("algorithm", string(comp.Algorithm()))
	}

	var out bytes.Buffer
	out.Grow(len(stored) + minBlobSize + binary.MaxVarintLen64)
	out.WriteString(codecMagic)
	out.WriteByte(codecVersion)
	out.WriteByte(code)
	out.Write(binary.AppendUvarint(nil, uint64(len(stored))))
	out.Write(stored)
	out.Write(binary.LittleEndian.AppendUint64(nil, xxhash.Sum64(body)))
	out.WriteString(codecTrailer)

	metrics.CodecBytes.WithLabelValues("encode").Add(float64(out.Len()))
	o.logger.Info("stripe encoded",
		zap.Int("rows", s.Len()),
		zap.Int("columns", s.NumColumns()),
		zap.Int("body_bytes", len(body)),
		zap.Int("blob_bytes", out.Len()),
		zap.String("compression", string(comp.Algorithm())))
	return out.Bytes(), nil
}

// Decode reads one blob from r
func Decode(r io.Reader, opts ...CodecOption) (*Stripe, error) {
	blob, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read stripe")
	}
	return Unmarshal(blob, opts...)
}

// Unmarshal deserializes a blob produced by Marshal. Any structural problem
// yields a data error and no stripe.
func Unmarshal(blob []byte, opts ...CodecOption) (*Stripe, error) {
	o := newCodecOptions(opts)

	if len(blob) < minBlobSize {
		return nil, corruptf("blob of %d bytes is too short", len(blob))
	}
	if string(blob[:len(codecMagic)]) != codecMagic {
		return nil, corruptf("bad magic")
	}
	if string(blob[len(blob)-len(codecTrailer):]) != codecTrailer {
		return nil, corruptf("bad trailer")
	}
	if v := blob[len(codecMagic)]; v != codecVersion {
		return nil, errors.Newf(errors.ErrorTypeData, "unsupported stripe version %d", v)
	}
	alg, err := compression.AlgorithmFromCode(blob[len(codecMagic)+1])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "corrupt stripe")
	}

	rest := blob[len(codecMagic)+2 : len(blob)-len(codecTrailer)]
	storedLen, n := binary.Uvarint(rest)
	if n <= 0 || len(rest) < n+8 || storedLen != uint64(len(rest)-n-8) {
		return nil, corruptf("body length mismatch")
	}
	stored := rest[n : n+int(storedLen)]
	sum := binary.LittleEndian.Uint64(rest[n+int(storedLen):])

	comp, err := compression.NewCompressor(&compression.Config{Algorithm: alg, Level: compression.Default})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "corrupt stripe")
	}
	body, err := comp.Decompress(stored)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decompress stripe").
			WithDetail("algorithm", string(alg))
	}
	if xxhash.Sum64(body) != sum {
		return nil, corruptf("checksum mismatch")
	}

	s, err := decodeBody(body, o.logger)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	metrics.CodecBytes.WithLabelValues("decode").Add(float64(len(blob)))
	o.logger.Info("stripe decoded",
		zap.Int("rows", s.Len()),
		zap.Int("columns", s.NumColumns()),
		zap.Int("blob_bytes", len(blob)),
		zap.String("compression", string(alg)))
	return s, nil
}

func corruptf(format string, args ...interface{}) *errors.Error {
	return errors.Newf(errors.ErrorTypeData, "corrupt stripe: "+format, args...)
}

func encodeBody(s *Stripe) []byte {
	var e encoder
	e.putUvarint(uint64(s.Len()))
	e.putUvarint(uint64(s.NumColumns()))
	s.Ascend(func(p Path, c *Column) bool {
		e.putPath(p)
		e.putColumn(c)
		return true
	})
	return e.buf
}

// encoder appends to a growing body
type encoder struct {
	buf []byte
}

func (e *encoder) putUvarint(v uint64) { e.buf = binary.AppendUvarint(e.buf, v) }
func (e *encoder) putByte(b byte)      { e.buf = append(e.buf, b) }

func (e *encoder) putString(s string) {
	e.putUvarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *encoder) putPath(p Path) {
	e.putUvarint(uint64(len(p)))
	for _, c := range p {
		e.putByte(byte(c.Kind))
		if c.Kind == ComponentKey {
			e.putString(c.Name)
		}
	}
}

func (e *encoder) putBitmap(b *Bitmap) {
	words := b.words()
	e.putUvarint(uint64(len(words)))
	for _, w := range words {
		e.buf = binary.LittleEndian.AppendUint64(e.buf, w)
	}
}

func (e *encoder) putColumn(c *Column) {
	e.putUvarint(uint64(c.Depth()))
	e.putUvarint(uint64(c.Len()))
	for _, buf := range c.indexes {
		for _, idx := range buf {
			e.putUvarint(uint64(idx))
		}
	}
	e.putBitmap(c.nulls)

	e.putByte(byte(c.data.Type()))
	switch d := c.data.(type) {
	case *NullData:
	case *BoolData:
		e.putBitmap(d.Values)
	case *Int8Data:
		for _, v := range d.Values {
			e.putByte(byte(v))
		}
	case *Int16Data:
		for _, v := range d.Values {
			e.buf = binary.LittleEndian.AppendUint16(e.buf, uint16(v))
		}
	case *FloatData:
		for _, v := range d.Values {
			e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(v))
		}
	case *StringData:
		e.putUvarint(uint64(len(d.Buf)))
		e.buf = append(e.buf, d.Buf...)
		for _, off := range d.Offsets {
			e.putUvarint(off)
		}
	case *ObjectData:
		for _, v := range d.Sizes {
			e.putUvarint(uint64(v))
		}
	case *ArrayData:
		for _, v := range d.Sizes {
			e.putUvarint(uint64(v))
		}
	case *UnionData:
		for _, v := range d.Values {
			e.putUnionValue(v)
		}
	}
}

func (e *encoder) putUnionValue(v UnionValue) {
	e.putByte(byte(v.Kind))
	switch v.Kind {
	case datum.KindBool:
		if v.Bool {
			e.putByte(1)
		} else {
			e.putByte(0)
		}
	case datum.KindInt8:
		e.putByte(byte(int8(v.Int)))
	case datum.KindInt16:
		e.buf = binary.LittleEndian.AppendUint16(e.buf, uint16(v.Int))
	case datum.KindFloat:
		e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(v.Float))
	case datum.KindString:
		e.putString(v.String)
	case datum.KindObject, datum.KindArray:
		e.putUvarint(uint64(v.Size))
	}
}

// decoder consumes a body. The first error sticks and turns every later
// read into a zero value.
type decoder struct {
	buf []byte
	err error
}

func (d *decoder) fail(format string, args ...interface{}) {
	if d.err == nil {
		d.err = corruptf(format, args...)
	}
}

func (d *decoder) uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.buf)
	if n <= 0 {
		d.fail("bad varint")
		return 0
	}
	d.buf = d.buf[n:]
	return v
}

// count reads a length that must be backed by at least minBytes per element
// of remaining input, so corrupt lengths cannot force huge allocations.
func (d *decoder) count(minBytes int) int {
	v := d.uvarint()
	if d.err == nil && v > uint64(len(d.buf)/minBytes) {
		d.fail("length %d exceeds remaining input", v)
		return 0
	}
	return int(v)
}

func (d *decoder) u32() uint32 {
	v := d.uvarint()
	if v > math.MaxUint32 {
		d.fail("value %d overflows uint32", v)
		return 0
	}
	return uint32(v)
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n > len(d.buf) {
		d.fail("truncated body")
		return nil
	}
	b := d.buf[:n:n]
	d.buf = d.buf[n:]
	return b
}

func (d *decoder) readByte() byte {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) readString() string {
	return string(d.take(d.count(1)))
}

func (d *decoder) path() Path {
	n := d.count(1)
	p := make(Path, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		switch kind := ComponentKind(d.readByte()); kind {
		case ComponentKey:
			p = append(p, Key(d.readString()))
		case ComponentArray:
			p = append(p, ArrayElem)
		default:
			d.fail("unknown path component %d", kind)
		}
	}
	return p
}

func (d *decoder) bitmap(n int) *Bitmap {
	nwords := d.count(8)
	if d.err == nil && nwords > (n+63)/64 {
		d.fail("bitmap of %d words for %d bits", nwords, n)
		return nil
	}
	words := make([]uint64, nwords)
	for i := range words {
		if b := d.take(8); b != nil {
			words[i] = binary.LittleEndian.Uint64(b)
		}
	}
	if nwords > 0 && nwords == (n+63)/64 && n%64 != 0 && words[nwords-1]>>(n%64) != 0 {
		d.fail("bitmap has bits set past %d", n)
		return nil
	}
	return bitmapFromWords(words, n)
}

func (d *decoder) column(p Path) *Column {
	depth := d.count(1)
	if d.err == nil && depth != p.Depth()+1 {
		d.fail("column %s has depth %d, want %d", p, depth, p.Depth()+1)
		return nil
	}
	n := d.count(depth)

	c := &Column{indexes: make([][]uint32, depth)}
	for i := range c.indexes {
		buf := make([]uint32, n)
		for j := range buf {
			buf[j] = d.u32()
		}
		c.indexes[i] = buf
	}
	c.nulls = d.bitmap(n)
	c.data = d.data(datum.Kind(d.readByte()), n)
	if d.err != nil {
		return nil
	}
	return c
}

func (d *decoder) data(kind datum.Kind, n int) Data {
	switch kind {
	case datum.KindNull:
		return &NullData{N: n}
	case datum.KindBool:
		return &BoolData{Values: d.bitmap(n)}
	case datum.KindInt8:
		raw := d.take(n)
		values := make([]int8, len(raw))
		for i, b := range raw {
			values[i] = int8(b)
		}
		return &Int8Data{Values: values}
	case datum.KindInt16:
		raw := d.take(2 * n)
		values := make([]int16, len(raw)/2)
		for i := range values {
			values[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
		}
		return &Int16Data{Values: values}
	case datum.KindFloat:
		raw := d.take(8 * n)
		values := make([]float64, len(raw)/8)
		for i := range values {
			values[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
		}
		return &FloatData{Values: values}
	case datum.KindString:
		sd := &StringData{Buf: d.take(d.count(1))}
		if d.err == nil && n > len(d.buf) {
			d.fail("truncated string offsets")
			return nil
		}
		sd.Offsets = make([]uint64, n)
		for i := range sd.Offsets {
			sd.Offsets[i] = d.uvarint()
		}
		return sd
	case datum.KindObject:
		return &ObjectData{Sizes: d.sizes(n)}
	case datum.KindArray:
		return &ArrayData{Sizes: d.sizes(n)}
	case datum.KindUnion:
		if n > len(d.buf) {
			d.fail("truncated union entries")
			return nil
		}
		values := make([]UnionValue, n)
		for i := range values {
			values[i] = d.unionValue()
		}
		return &UnionData{Values: values}
	default:
		d.fail("unknown column type %d", kind)
		return nil
	}
}

func (d *decoder) sizes(n int) []uint32 {
	if n > len(d.buf) {
		d.fail("truncated sizes")
		return nil
	}
	sizes := make([]uint32, n)
	for i := range sizes {
		sizes[i] = d.u32()
	}
	return sizes
}

func (d *decoder) unionValue() UnionValue {
	switch kind := datum.Kind(d.readByte()); kind {
	case datum.KindNull:
		return UnionNull()
	case datum.KindBool:
		return UnionBool(d.readByte() != 0)
	case datum.KindInt8:
		return UnionInt8(int8(d.readByte()))
	case datum.KindInt16:
		raw := d.take(2)
		if raw == nil {
			return UnionNull()
		}
		return UnionInt16(int16(binary.LittleEndian.Uint16(raw)))
	case datum.KindFloat:
		raw := d.take(8)
		if raw == nil {
			return UnionNull()
		}
		return UnionFloat(math.Float64frombits(binary.LittleEndian.Uint64(raw)))
	case datum.KindString:
		return UnionString(d.readString())
	case datum.KindObject:
		return UnionObject(d.u32())
	case datum.KindArray:
		return UnionArray(d.u32())
	default:
		d.fail("unknown union tag %d", kind)
		return UnionNull()
	}
}

func decodeBody(body []byte, logger *zap.Logger) (*Stripe, error) {
	d := &decoder{buf: body}
	rows := d.uvarint()
	ncols := d.count(1)
	if d.err != nil {
		return nil, d.err
	}
	if rows > math.MaxUint32 {
		return nil, corruptf("row count %d overflows uint32", rows)
	}

	s := NewStripe(WithLogger(logger))
	s.count = int(rows)

	var prev Path
	for i := 0; i < ncols; i++ {
		p := d.path()
		if d.err == nil && i > 0 && prev.Compare(p) >= 0 {
			d.fail("column %s out of order after %s", p, prev)
		}
		c := d.column(p)
		if d.err != nil {
			return nil, d.err
		}
		for _, row := range c.indexes[0] {
			if uint64(row) >= rows {
				return nil, corruptf("column %s references row %d of %d", p, row, rows)
			}
		}
		s.insert(p, c)
		prev = p
	}
	if len(d.buf) != 0 {
		return nil, corruptf("%d trailing bytes in body", len(d.buf))
	}
	return s, nil
}
