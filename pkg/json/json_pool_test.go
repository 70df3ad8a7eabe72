package json

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalNumberKeepsLiterals(t *testing.T) {
	var v map[string]interface{}
	require.NoError(t, UnmarshalNumber([]byte(`{"small": 12, "big": 123456789012, "frac": 1.50}`), &v))

	assert.Equal(t, Number("12"), v["small"])
	assert.Equal(t, Number("123456789012"), v["big"])
	assert.Equal(t, Number("1.50"), v["frac"])
}

func TestUnmarshalNumberRejectsTrailingData(t *testing.T) {
	var v interface{}
	assert.Error(t, UnmarshalNumber([]byte(`{"a": 1} {"b": 2}`), &v))
	assert.Error(t, UnmarshalNumber([]byte(`{"a": `), &v))
	assert.NoError(t, UnmarshalNumber([]byte("{\"a\": 1}  \n"), &v))
}

func TestUnmarshalUsesFloats(t *testing.T) {
	var v map[string]interface{}
	require.NoError(t, Unmarshal([]byte(`{"n": 3}`), &v))
	assert.Equal(t, 3.0, v["n"])
}

func TestLineEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewLineEncoder(&buf)
	require.NoError(t, enc.Encode(map[string]interface{}{"path": "a.[]", "type": "int8"}))
	require.NoError(t, enc.Encode(map[string]interface{}{"html": "<b>"}))

	assert.Equal(t, 2, enc.Count())
	assert.Equal(t, "{\"path\":\"a.[]\",\"type\":\"int8\"}\n{\"html\":\"<b>\"}\n", buf.String())
}

func TestBufferPool(t *testing.T) {
	buf := GetBuffer()
	buf.WriteString("scratch")
	PutBuffer(buf)

	again := GetBuffer()
	assert.Equal(t, 0, again.Len())
	PutBuffer(again)
}

func BenchmarkUnmarshalNumber(b *testing.B) {
	line := []byte(`{"id": 17, "review_comments": 3, "title": "fix", "labels": ["a", "b"], "score": 0.75}`)
	b.SetBytes(int64(len(line)))
	for i := 0; i < b.N; i++ {
		var v interface{}
		if err := UnmarshalNumber(line, &v); err != nil {
			b.Fatal(err)
		}
	}
}
