// Package scan computes numeric aggregates over one path, either by walking
// row values or by reading the shredded column directly. Both walks visit
// values in the same order, so their results are identical.
package scan

import (
	"math"

	"github.com/ajitpratap0/jsonc/pkg/columnar"
	"github.com/ajitpratap0/jsonc/pkg/datum"
)

// Aggregate is a running sum and count of numeric values
type Aggregate struct {
	Sum   float64
	Count int
}

// Add includes one value
func (a *Aggregate) Add(v float64) {
	a.Sum += v
	a.Count++
}

// Mean returns Sum/Count, or NaN when no value was seen
func (a Aggregate) Mean() float64 {
	if a.Count == 0 {
		return math.NaN()
	}
	return a.Sum / float64(a.Count)
}

// RowsAggregate walks each row along path. Array components fan out over
// every element; absent, null and non-numeric values are skipped.
func RowsAggregate(rows []datum.Datum, path columnar.Path) Aggregate {
	var agg Aggregate
	for _, row := range rows {
		walk(row, path, &agg)
	}
	return agg
}

func walk(d datum.Datum, path columnar.Path, agg *Aggregate) {
	if d.IsMissing() {
		return
	}
	if len(path) == 0 {
		if f, ok := d.AsF64(); ok {
			agg.Add(f)
		}
		return
	}

	switch c := path[0]; c.Kind {
	case columnar.ComponentKey:
		walk(d.Field(c.Name), path[1:], agg)
	case columnar.ComponentArray:
		for _, elem := range d.Elements() {
			walk(elem, path[1:], agg)
		}
	}
}

// ColumnAggregate reads the column at path. Null slots are skipped; a
// missing or non-numeric column yields an empty aggregate.
func ColumnAggregate(s *columnar.Stripe, path columnar.Path) Aggregate {
	var agg Aggregate
	col, ok := s.Column(path)
	if !ok {
		return agg
	}

	switch data := col.Data().(type) {
	case *columnar.Int8Data:
		for i, v := range data.Values {
			if !col.IsNull(i) {
				agg.Add(float64(v))
			}
		}
	case *columnar.Int16Data:
		for i, v := range data.Values {
			if !col.IsNull(i) {
				agg.Add(float64(v))
			}
		}
	case *columnar.FloatData:
		for i, v := range data.Values {
			if !col.IsNull(i) {
				agg.Add(v)
			}
		}
	case *columnar.UnionData:
		for _, v := range data.Values {
			if f, ok := v.AsF64(); ok {
				agg.Add(f)
			}
		}
	}
	return agg
}
