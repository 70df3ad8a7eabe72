package columnar

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/jsonc/pkg/datum"
	"github.com/ajitpratap0/jsonc/pkg/errors"
)

// ArrowType returns the Arrow type a column of kind k exports to. Union
// columns have no Arrow form.
func ArrowType(k datum.Kind) (arrow.DataType, bool) {
	switch k {
	case datum.KindNull:
		return arrow.Null, true
	case datum.KindBool:
		return arrow.FixedWidthTypes.Boolean, true
	case datum.KindInt8:
		return arrow.PrimitiveTypes.Int8, true
	case datum.KindInt16:
		return arrow.PrimitiveTypes.Int16, true
	case datum.KindFloat:
		return arrow.PrimitiveTypes.Float64, true
	case datum.KindString:
		return arrow.BinaryTypes.String, true
	case datum.KindObject, datum.KindArray:
		return arrow.PrimitiveTypes.Uint32, true
	default:
		return nil, false
	}
}

// ToArrow copies the column payload into an Arrow array, one slot per entry
// with the null map as validity. Object and array columns export their
// sizes. The caller must Release the result.
func (c *Column) ToArrow(mem memory.Allocator) (arrow.Array, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	n := c.Len()

	switch d := c.data.(type) {
	case *NullData:
		return array.NewNull(n), nil
	case *BoolData:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		b.Reserve(n)
		for i := 0; i < n; i++ {
			if c.nulls.Test(i) {
				b.AppendNull()
			} else {
				b.Append(d.Values.Test(i))
			}
		}
		return b.NewArray(), nil
	case *Int8Data:
		b := array.NewInt8Builder(mem)
		defer b.Release()
		b.AppendValues(d.Values, c.validity())
		return b.NewArray(), nil
	case *Int16Data:
		b := array.NewInt16Builder(mem)
		defer b.Release()
		b.AppendValues(d.Values, c.validity())
		return b.NewArray(), nil
	case *FloatData:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		b.AppendValues(d.Values, c.validity())
		return b.NewArray(), nil
	case *StringData:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		b.Reserve(n)
		for i := 0; i < n; i++ {
			if c.nulls.Test(i) {
				b.AppendNull()
			} else {
				b.Append(d.At(i))
			}
		}
		return b.NewArray(), nil
	case *ObjectData:
		b := array.NewUint32Builder(mem)
		defer b.Release()
		b.AppendValues(d.Sizes, c.validity())
		return b.NewArray(), nil
	case *ArrayData:
		b := array.NewUint32Builder(mem)
		defer b.Release()
		b.AppendValues(d.Sizes, c.validity())
		return b.NewArray(), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeCapability, "%s columns have no arrow representation", c.Type())
	}
}

// validity inverts the null map into Arrow's valid flags
func (c *Column) validity() []bool {
	valid := c.nulls.Bools()
	for i, isNull := range valid {
		valid[i] = !isNull
	}
	return valid
}
