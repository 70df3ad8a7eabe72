// Package datum implements the row oriented value model used while loading
// semi-structured records, before they are shredded into columns.
//
// A Datum is a closed tagged union. Besides the usual JSON shapes it has a
// Missing state, which is different from Null: for {"foo": null} the value of
// foo is Null, for {} it is Missing. Integers are kept in the narrowest of
// 8 or 16 bits that holds them exactly; wider numbers are floats.
package datum

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// JSONType is the coarse, externally visible kind of a Datum
type JSONType int

const (
	JSONNull JSONType = iota
	JSONMissing
	JSONNumber
	JSONBool
	JSONString
	JSONArray
	JSONObject
)

func (t JSONType) String() string {
	switch t {
	case JSONNull:
		return "null"
	case JSONMissing:
		return "missing"
	case JSONNumber:
		return "number"
	case JSONBool:
		return "bool"
	case JSONString:
		return "string"
	case JSONArray:
		return "array"
	case JSONObject:
		return "object"
	default:
		return "unknown"
	}
}

// Kind is the fine grained kind. It separates the narrow integer widths and
// includes KindUnion, which only column data can have.
type Kind uint8

const (
	KindMissing Kind = iota
	KindNull
	KindBool
	KindInt8
	KindInt16
	KindFloat
	KindString
	KindArray
	KindObject
	KindUnion
)

// Kinds lists every Kind, in declaration order
var Kinds = []Kind{
	KindMissing, KindNull, KindBool, KindInt8, KindInt16,
	KindFloat, KindString, KindArray, KindObject, KindUnion,
}

func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt8:
		return "int8"
	case KindInt16:
		return "int16"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindUnion:
		return "union"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// IsNumeric reports whether k is one of the numeric kinds
func (k Kind) IsNumeric() bool {
	return k == KindInt8 || k == KindInt16 || k == KindFloat
}

// Datum is one semi-structured value. The zero value is Missing.
// Object keys are unique by construction since they live in a map.
type Datum struct {
	kind Kind
	b    bool
	i    int16
	f    float64
	s    string
	arr  []Datum
	obj  map[string]Datum
}

// Null returns the explicit null value
func Null() Datum { return Datum{kind: KindNull} }

// Missing returns the absent value
func Missing() Datum { return Datum{} }

// Bool wraps a boolean
func Bool(b bool) Datum { return Datum{kind: KindBool, b: b} }

// Int8 wraps an 8-bit integer
func Int8(v int8) Datum { return Datum{kind: KindInt8, i: int16(v)} }

// Int16 wraps a 16-bit integer. Use Int when the value may fit in 8 bits.
func Int16(v int16) Datum { return Datum{kind: KindInt16, i: v} }

// Int narrows v to the smallest integer kind that holds it exactly and falls
// back to a float for anything wider than 16 bits.
func Int(v int64) Datum {
	switch {
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return Int8(int8(v))
	case v >= math.MinInt16 && v <= math.MaxInt16:
		return Int16(int16(v))
	default:
		return Float(float64(v))
	}
}

// Float wraps a 64-bit float
func Float(f float64) Datum { return Datum{kind: KindFloat, f: f} }

// String wraps a UTF-8 string
func String(s string) Datum { return Datum{kind: KindString, s: s} }

// Array builds an ordered sequence of values
func Array(elems ...Datum) Datum {
	if elems == nil {
		elems = []Datum{}
	}
	return Datum{kind: KindArray, arr: elems}
}

// Object builds a keyed mapping. The map is used as is, not copied.
func Object(fields map[string]Datum) Datum {
	if fields == nil {
		fields = map[string]Datum{}
	}
	return Datum{kind: KindObject, obj: fields}
}

// Kind returns the fine grained kind
func (d Datum) Kind() Kind { return d.kind }

// IsNull reports whether d is the explicit null
func (d Datum) IsNull() bool { return d.kind == KindNull }

// IsMissing reports whether d is absent
func (d Datum) IsMissing() bool { return d.kind == KindMissing }

// JSONType returns the coarse kind
func (d Datum) JSONType() JSONType {
	switch d.kind {
	case KindNull:
		return JSONNull
	case KindBool:
		return JSONBool
	case KindInt8, KindInt16, KindFloat:
		return JSONNumber
	case KindString:
		return JSONString
	case KindArray:
		return JSONArray
	case KindObject:
		return JSONObject
	default:
		return JSONMissing
	}
}

// AsF64 widens any numeric value to a float. It fails for every other kind.
func (d Datum) AsF64() (float64, bool) {
	switch d.kind {
	case KindFloat:
		return d.f, true
	case KindInt8, KindInt16:
		return float64(d.i), true
	default:
		return 0, false
	}
}

// BoolValue returns the boolean payload; false for other kinds
func (d Datum) BoolValue() bool { return d.kind == KindBool && d.b }

// IntValue returns the integer payload of an Int8 or Int16 datum
func (d Datum) IntValue() int16 {
	if d.kind == KindInt8 || d.kind == KindInt16 {
		return d.i
	}
	return 0
}

// FloatValue returns the payload of a Float datum
func (d Datum) FloatValue() float64 {
	if d.kind == KindFloat {
		return d.f
	}
	return 0
}

// StringValue returns the payload of a String datum
func (d Datum) StringValue() string {
	if d.kind == KindString {
		return d.s
	}
	return ""
}

// Elements returns the elements of an array; nil for other kinds
func (d Datum) Elements() []Datum {
	if d.kind == KindArray {
		return d.arr
	}
	return nil
}

// Fields returns the fields of an object; nil for other kinds
func (d Datum) Fields() map[string]Datum {
	if d.kind == KindObject {
		return d.obj
	}
	return nil
}

// Field looks up key in an object. The result is Missing when d is not an
// object or has no such key.
func (d Datum) Field(key string) Datum {
	if d.kind != KindObject {
		return Missing()
	}
	return d.obj[key]
}

// Len returns the number of elements of an array or fields of an object
func (d Datum) Len() int {
	switch d.kind {
	case KindArray:
		return len(d.arr)
	case KindObject:
		return len(d.obj)
	default:
		return 0
	}
}

// Equal reports deep equality. Int8 and Int16 holding the same number are
// different values.
func (d Datum) Equal(o Datum) bool {
	if d.kind != o.kind {
		return false
	}
	switch d.kind {
	case KindBool:
		return d.b == o.b
	case KindInt8, KindInt16:
		return d.i == o.i
	case KindFloat:
		return d.f == o.f || (math.IsNaN(d.f) && math.IsNaN(o.f))
	case KindString:
		return d.s == o.s
	case KindArray:
		if len(d.arr) != len(o.arr) {
			return false
		}
		for i := range d.arr {
			if !d.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(d.obj) != len(o.obj) {
			return false
		}
		for k, v := range d.obj {
			ov, ok := o.obj[k]
			if !ok || !v.Equal(ov) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String renders d as JSON-like text with object keys sorted. Missing renders
// as "<missing>".
func (d Datum) String() string {
	var sb strings.Builder
	d.write(&sb)
	return sb.String()
}

func (d Datum) write(sb *strings.Builder) {
	switch d.kind {
	case KindMissing:
		sb.WriteString("<missing>")
	case KindNull:
		sb.WriteString("null")
	case KindBool:
		sb.WriteString(strconv.FormatBool(d.b))
	case KindInt8, KindInt16:
		sb.WriteString(strconv.Itoa(int(d.i)))
	case KindFloat:
		sb.WriteString(strconv.FormatFloat(d.f, 'g', -1, 64))
	case KindString:
		sb.WriteString(strconv.Quote(d.s))
	case KindArray:
		sb.WriteByte('[')
		for i, e := range d.arr {
			if i > 0 {
				sb.WriteByte(',')
			}
			e.write(sb)
		}
		sb.WriteByte(']')
	case KindObject:
		keys := make([]string, 0, len(d.obj))
		for k := range d.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Quote(k))
			sb.WriteByte(':')
			d.obj[k].write(sb)
		}
		sb.WriteByte('}')
	default:
		fmt.Fprintf(sb, "<%s>", d.kind)
	}
}
