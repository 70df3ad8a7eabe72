// Package json provides JSON serialization backed by goccy/go-json with
// pooled decoders. Decoders always keep numbers as json.Number so the
// loader can pick the narrowest numeric kind itself.
package json

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	gojson "github.com/goccy/go-json"
)

// Number is a JSON number literal kept as text
type Number = gojson.Number

var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

var readerPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewReader(nil)
	},
}

// NewDecoder returns a decoder over r that keeps numbers as Number
func NewDecoder(r io.Reader) *gojson.Decoder {
	dec := gojson.NewDecoder(r)
	dec.UseNumber()
	return dec
}

// UnmarshalNumber decodes data into v keeping numbers as Number. Trailing
// data after the first value is an error.
func UnmarshalNumber(data []byte, v interface{}) error {
	r := readerPool.Get().(*bytes.Reader)
	defer readerPool.Put(r)
	r.Reset(data)

	dec := NewDecoder(r)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON value at offset %d", dec.InputOffset())
	}
	return nil
}

// GetBuffer gets a pooled bytes.Buffer
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns a buffer to the pool
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 1024*1024 { // Don't pool very large buffers
		return
	}
	bufferPool.Put(buf)
}

// Marshal is a drop-in replacement for json.Marshal
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal is a drop-in replacement for json.Unmarshal. Numbers in
// interface{} targets become float64; use UnmarshalNumber to keep them.
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// MarshalIndent is a drop-in replacement for json.MarshalIndent
func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return gojson.MarshalIndent(v, prefix, indent)
}

// LineEncoder writes one JSON document per line
type LineEncoder struct {
	encoder *gojson.Encoder
	count   int
}

// NewLineEncoder creates a line-delimited encoder over w
func NewLineEncoder(w io.Writer) *LineEncoder {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &LineEncoder{encoder: enc}
}

// Encode writes v followed by a newline
func (le *LineEncoder) Encode(v interface{}) error {
	if err := le.encoder.Encode(v); err != nil {
		return err
	}
	le.count++
	return nil
}

// Count returns the number of documents written
func (le *LineEncoder) Count() int { return le.count }
