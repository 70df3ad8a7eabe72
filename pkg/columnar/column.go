package columnar

import (
	"github.com/ajitpratap0/jsonc/pkg/datum"
	"github.com/ajitpratap0/jsonc/pkg/errors"
)

// Column holds every value observed at one path of a stripe.
//
// indexes has one buffer per nesting level: buffer 0 holds the row of each
// entry and buffer d > 0 the element position inside the array at level d.
// nulls has one bit per entry, set for explicit nulls. data holds the typed
// payload. All of them always have the same length.
//
// {foo: [{bar: 5}]} produces
//
//	foo        array  indexes=[[0]]         nulls=[f] sizes=[1]
//	foo.[]     object indexes=[[0],[0]]     nulls=[f] sizes=[1]
//	foo.[].bar int8   indexes=[[0],[0]]     nulls=[f] values=[5]
type Column struct {
	indexes [][]uint32
	nulls   *Bitmap
	data    Data
}

// newColumn creates an untyped column with depth index buffers
func newColumn(depth int) *Column {
	return &Column{
		indexes: make([][]uint32, depth),
		nulls:   NewBitmap(0),
		data:    &NullData{},
	}
}

// upcastEvent records a change of column type made by append
type upcastEvent struct {
	from, to datum.Kind
}

func (e upcastEvent) changed() bool { return e.from != e.to }

// append adds one entry. The column type is widened first when d does not
// fit. Missing values must be filtered out by the caller.
func (c *Column) append(d datum.Datum, ctx []uint32) upcastEvent {
	if d.IsMissing() {
		panic(invariantf("missing value reached column append"))
	}
	if len(ctx) != len(c.indexes) {
		panic(invariantf("index context of length %d for column of depth %d", len(ctx), len(c.indexes)))
	}

	ev := c.upcast(d.Kind())

	for depth, idx := range ctx {
		c.indexes[depth] = append(c.indexes[depth], idx)
	}
	c.nulls.Push(d.IsNull())

	if d.IsNull() {
		c.data.appendFiller()
		return ev
	}

	switch data := c.data.(type) {
	case *BoolData:
		data.Values.Push(d.BoolValue())
	case *Int8Data:
		data.Values = append(data.Values, int8(d.IntValue()))
	case *Int16Data:
		data.Values = append(data.Values, d.IntValue())
	case *FloatData:
		f, _ := d.AsF64()
		data.Values = append(data.Values, f)
	case *StringData:
		data.push(d.StringValue())
	case *ObjectData:
		data.Sizes = append(data.Sizes, uint32(d.Len()))
	case *ArrayData:
		data.Sizes = append(data.Sizes, uint32(d.Len()))
	case *UnionData:
		data.Values = append(data.Values, unionOf(d))
	default:
		panic(invariantf("%s value left in %s column after upcast", d.Kind(), c.data.Type()))
	}
	return ev
}

// Len returns the number of entries
func (c *Column) Len() int { return c.nulls.Len() }

// Depth returns the number of index buffers, the row index included
func (c *Column) Depth() int { return len(c.indexes) }

// Index returns the index buffer at depth d. The slice must not be modified.
func (c *Column) Index(d int) []uint32 { return c.indexes[d] }

// Indexes returns all index buffers, outermost first
func (c *Column) Indexes() [][]uint32 { return c.indexes }

// IsNull reports whether entry i is an explicit null
func (c *Column) IsNull(i int) bool { return c.nulls.Test(i) }

// Nulls returns the null map
func (c *Column) Nulls() *Bitmap { return c.nulls }

// Data returns the typed payload. Slots flagged in the null map hold filler
// values and must be skipped.
func (c *Column) Data() Data { return c.data }

// Type returns the current column type
func (c *Column) Type() datum.Kind { return c.data.Type() }

// Entry returns entry i as a tagged value with nulls applied
func (c *Column) Entry(i int) UnionValue {
	if c.nulls.Test(i) {
		return UnionNull()
	}
	return c.data.entry(i)
}

// validate checks the alignment invariant
func (c *Column) validate() error {
	n := c.nulls.Len()
	if c.data.Len() != n {
		return errors.Newf(errors.ErrorTypeData, "column data has %d entries, null map %d", c.data.Len(), n)
	}
	for d, buf := range c.indexes {
		if len(buf) != n {
			return errors.Newf(errors.ErrorTypeData, "index buffer %d has %d entries, null map %d", d, len(buf), n)
		}
	}
	if sd, ok := c.data.(*StringData); ok {
		var prev uint64
		for _, off := range sd.Offsets {
			if off < prev || off > uint64(len(sd.Buf)) {
				return errors.New(errors.ErrorTypeData, "string offsets out of order")
			}
			prev = off
		}
	}
	return nil
}

func invariantf(format string, args ...interface{}) *errors.Error {
	return errors.Newf(errors.ErrorTypeInternal, format, args...)
}
