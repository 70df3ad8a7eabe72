package columnar

import (
	"github.com/ajitpratap0/jsonc/pkg/datum"
)

// upcastTarget is the type lattice. It returns the column type needed to
// store a value of kind in into a column of type cur, and false when the pair
// is outside the lattice (a programming error, never a data error).
//
// Types only widen: null goes to anything, int8 -> int16 -> float, and every
// other mismatch ends in union, which absorbs everything.
func upcastTarget(cur, in datum.Kind) (datum.Kind, bool) {
	if cur == datum.KindMissing || in == datum.KindUnion {
		return cur, false
	}

	switch {
	case in == datum.KindMissing, in == datum.KindNull:
		return cur, true
	case cur == datum.KindUnion:
		return cur, true
	case cur == datum.KindNull:
		return in, true
	case cur == in:
		return cur, true
	}

	switch cur {
	case datum.KindInt8:
		switch in {
		case datum.KindInt16, datum.KindFloat:
			return in, true
		}
	case datum.KindInt16:
		switch in {
		case datum.KindInt8:
			return cur, true
		case datum.KindFloat:
			return in, true
		}
	case datum.KindFloat:
		if in == datum.KindInt8 || in == datum.KindInt16 {
			return cur, true
		}
	}
	return datum.KindUnion, true
}

// upcast converts the column payload so a value of kind k fits
func (c *Column) upcast(k datum.Kind) upcastEvent {
	cur := c.data.Type()
	target, ok := upcastTarget(cur, k)
	if !ok {
		panic(invariantf("no upcast rule for %s column and %s value", cur, k))
	}
	if target != cur {
		c.data = convertData(c.data, c.nulls, target)
	}
	return upcastEvent{from: cur, to: target}
}

// convertData re-encodes every entry of data as the target type
func convertData(data Data, nulls *Bitmap, target datum.Kind) Data {
	if data.Type() == datum.KindNull {
		return newData(target, data.Len())
	}

	switch target {
	case datum.KindInt16:
		if src, ok := data.(*Int8Data); ok {
			out := make([]int16, len(src.Values))
			for i, v := range src.Values {
				out[i] = int16(v)
			}
			return &Int16Data{Values: out}
		}
	case datum.KindFloat:
		switch src := data.(type) {
		case *Int8Data:
			out := make([]float64, len(src.Values))
			for i, v := range src.Values {
				out[i] = float64(v)
			}
			return &FloatData{Values: out}
		case *Int16Data:
			out := make([]float64, len(src.Values))
			for i, v := range src.Values {
				out[i] = float64(v)
			}
			return &FloatData{Values: out}
		}
	case datum.KindUnion:
		out := make([]UnionValue, data.Len())
		for i := range out {
			if nulls.Test(i) {
				out[i] = UnionNull()
			} else {
				out[i] = data.entry(i)
			}
		}
		return &UnionData{Values: out}
	}
	panic(invariantf("cannot convert %s column to %s", data.Type(), target))
}
