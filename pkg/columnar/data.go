package columnar

import (
	"github.com/ajitpratap0/jsonc/pkg/datum"
)

// Data is the typed payload of a column. The set of implementations is
// closed: NullData, BoolData, Int8Data, Int16Data, FloatData, StringData,
// ObjectData, ArrayData and UnionData. Every implementation keeps exactly one
// slot per column entry, including entries that are null.
type Data interface {
	// Type returns the column type this payload represents
	Type() datum.Kind
	// Len returns the number of entries
	Len() int
	// entry returns the tagged view of entry i, ignoring the null map
	entry(i int) UnionValue
	// appendFiller appends the placeholder stored for a null entry
	appendFiller()
}

// NullData is the payload of a column that has only seen nulls
type NullData struct {
	N int
}

func (d *NullData) Type() datum.Kind     { return datum.KindNull }
func (d *NullData) Len() int             { return d.N }
func (d *NullData) entry(int) UnionValue { return UnionNull() }
func (d *NullData) appendFiller()        { d.N++ }

// BoolData stores booleans bit-packed
type BoolData struct {
	Values *Bitmap
}

func (d *BoolData) Type() datum.Kind       { return datum.KindBool }
func (d *BoolData) Len() int               { return d.Values.Len() }
func (d *BoolData) entry(i int) UnionValue { return UnionBool(d.Values.Test(i)) }
func (d *BoolData) appendFiller()          { d.Values.Push(false) }

// Int8Data stores 8-bit integers
type Int8Data struct {
	Values []int8
}

func (d *Int8Data) Type() datum.Kind       { return datum.KindInt8 }
func (d *Int8Data) Len() int               { return len(d.Values) }
func (d *Int8Data) entry(i int) UnionValue { return UnionInt8(d.Values[i]) }
func (d *Int8Data) appendFiller()          { d.Values = append(d.Values, 0) }

// Int16Data stores 16-bit integers
type Int16Data struct {
	Values []int16
}

func (d *Int16Data) Type() datum.Kind       { return datum.KindInt16 }
func (d *Int16Data) Len() int               { return len(d.Values) }
func (d *Int16Data) entry(i int) UnionValue { return UnionInt16(d.Values[i]) }
func (d *Int16Data) appendFiller()          { d.Values = append(d.Values, 0) }

// FloatData stores 64-bit floats
type FloatData struct {
	Values []float64
}

func (d *FloatData) Type() datum.Kind       { return datum.KindFloat }
func (d *FloatData) Len() int               { return len(d.Values) }
func (d *FloatData) entry(i int) UnionValue { return UnionFloat(d.Values[i]) }
func (d *FloatData) appendFiller()          { d.Values = append(d.Values, 0) }

// StringData stores every string of the column in one buffer. Offsets[i] is
// the end of entry i, so entry i spans Buf[Offsets[i-1]:Offsets[i]] with an
// implicit leading offset of zero.
type StringData struct {
	Buf     []byte
	Offsets []uint64
}

func (d *StringData) Type() datum.Kind       { return datum.KindString }
func (d *StringData) Len() int               { return len(d.Offsets) }
func (d *StringData) entry(i int) UnionValue { return UnionString(d.At(i)) }

func (d *StringData) appendFiller() {
	d.Offsets = append(d.Offsets, uint64(len(d.Buf)))
}

func (d *StringData) push(s string) {
	d.Buf = append(d.Buf, s...)
	d.Offsets = append(d.Offsets, uint64(len(d.Buf)))
}

// At returns entry i
func (d *StringData) At(i int) string {
	var start uint64
	if i > 0 {
		start = d.Offsets[i-1]
	}
	return string(d.Buf[start:d.Offsets[i]])
}

// ObjectData stores the number of fields of each object. The field values
// live in the columns of the child paths.
type ObjectData struct {
	Sizes []uint32
}

func (d *ObjectData) Type() datum.Kind       { return datum.KindObject }
func (d *ObjectData) Len() int               { return len(d.Sizes) }
func (d *ObjectData) entry(i int) UnionValue { return UnionObject(d.Sizes[i]) }
func (d *ObjectData) appendFiller()          { d.Sizes = append(d.Sizes, 0) }

// ArrayData stores the number of elements of each array. The elements live
// in the column of the path extended by ArrayElem.
type ArrayData struct {
	Sizes []uint32
}

func (d *ArrayData) Type() datum.Kind       { return datum.KindArray }
func (d *ArrayData) Len() int               { return len(d.Sizes) }
func (d *ArrayData) entry(i int) UnionValue { return UnionArray(d.Sizes[i]) }
func (d *ArrayData) appendFiller()          { d.Sizes = append(d.Sizes, 0) }

// UnionData is the fallback payload for a path whose values share no
// narrower type. Each entry is tagged with its own kind.
type UnionData struct {
	Values []UnionValue
}

func (d *UnionData) Type() datum.Kind       { return datum.KindUnion }
func (d *UnionData) Len() int               { return len(d.Values) }
func (d *UnionData) entry(i int) UnionValue { return d.Values[i] }
func (d *UnionData) appendFiller()          { d.Values = append(d.Values, UnionNull()) }

// UnionValue is one tagged union entry. Scalars carry their value, objects
// and arrays only their size, mirroring what the typed payloads store.
type UnionValue struct {
	Kind   datum.Kind
	Bool   bool
	Int    int16
	Float  float64
	String string
	Size   uint32
}

// Constructors for union entries, one per tag.

func UnionNull() UnionValue              { return UnionValue{Kind: datum.KindNull} }
func UnionBool(b bool) UnionValue        { return UnionValue{Kind: datum.KindBool, Bool: b} }
func UnionInt8(v int8) UnionValue        { return UnionValue{Kind: datum.KindInt8, Int: int16(v)} }
func UnionInt16(v int16) UnionValue      { return UnionValue{Kind: datum.KindInt16, Int: v} }
func UnionFloat(f float64) UnionValue    { return UnionValue{Kind: datum.KindFloat, Float: f} }
func UnionString(s string) UnionValue    { return UnionValue{Kind: datum.KindString, String: s} }
func UnionObject(size uint32) UnionValue { return UnionValue{Kind: datum.KindObject, Size: size} }
func UnionArray(size uint32) UnionValue  { return UnionValue{Kind: datum.KindArray, Size: size} }

// unionOf converts a datum to its union entry. Missing has no union form.
func unionOf(d datum.Datum) UnionValue {
	switch d.Kind() {
	case datum.KindNull:
		return UnionNull()
	case datum.KindBool:
		return UnionBool(d.BoolValue())
	case datum.KindInt8:
		return UnionInt8(int8(d.IntValue()))
	case datum.KindInt16:
		return UnionInt16(d.IntValue())
	case datum.KindFloat:
		return UnionFloat(d.FloatValue())
	case datum.KindString:
		return UnionString(d.StringValue())
	case datum.KindObject:
		return UnionObject(uint32(d.Len()))
	case datum.KindArray:
		return UnionArray(uint32(d.Len()))
	default:
		panic(invariantf("datum of kind %s has no union form", d.Kind()))
	}
}

// AsF64 widens numeric entries to float
func (u UnionValue) AsF64() (float64, bool) {
	switch u.Kind {
	case datum.KindInt8, datum.KindInt16:
		return float64(u.Int), true
	case datum.KindFloat:
		return u.Float, true
	default:
		return 0, false
	}
}

// IsNull reports whether the entry is the null tag
func (u UnionValue) IsNull() bool { return u.Kind == datum.KindNull }

// Datum converts the entry back into a row value. Objects and arrays come
// back as their size since their children are not stored here.
func (u UnionValue) Datum() datum.Datum {
	switch u.Kind {
	case datum.KindNull:
		return datum.Null()
	case datum.KindBool:
		return datum.Bool(u.Bool)
	case datum.KindInt8:
		return datum.Int8(int8(u.Int))
	case datum.KindInt16:
		return datum.Int16(u.Int)
	case datum.KindFloat:
		return datum.Float(u.Float)
	case datum.KindString:
		return datum.String(u.String)
	case datum.KindObject, datum.KindArray:
		return datum.Int(int64(u.Size))
	default:
		return datum.Missing()
	}
}

// newData returns an empty payload of the given kind padded with n fillers
func newData(k datum.Kind, n int) Data {
	switch k {
	case datum.KindNull:
		return &NullData{N: n}
	case datum.KindBool:
		return &BoolData{Values: newBitmapFilled(n)}
	case datum.KindInt8:
		return &Int8Data{Values: make([]int8, n)}
	case datum.KindInt16:
		return &Int16Data{Values: make([]int16, n)}
	case datum.KindFloat:
		return &FloatData{Values: make([]float64, n)}
	case datum.KindString:
		return &StringData{Offsets: make([]uint64, n)}
	case datum.KindObject:
		return &ObjectData{Sizes: make([]uint32, n)}
	case datum.KindArray:
		return &ArrayData{Sizes: make([]uint32, n)}
	case datum.KindUnion:
		values := make([]UnionValue, n)
		for i := range values {
			values[i] = UnionNull()
		}
		return &UnionData{Values: values}
	default:
		panic(invariantf("no column data for kind %s", k))
	}
}
