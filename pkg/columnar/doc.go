// Package columnar shreds nested records into typed columns, one per path.
//
// # Overview
//
// A Stripe owns one Column for every distinct Path it has seen. A path is a
// sequence of object keys and array element markers, for example
// items.[].price. Each column stores:
//
//   - one index buffer per nesting level: buffer 0 holds the row, buffer d
//     the element position inside the d-th enclosing array
//   - a null map with one bit per entry, set for explicit nulls
//   - a typed payload (Data) whose variant is the column type
//
// All three grow in lockstep, so entry i of a column is fully described by
// the i-th slot of every buffer. Absent values (Missing) leave no trace.
//
// # Type Widening
//
// Columns start with the type of their first non-null value and widen as
// new values arrive:
//
//	Null  -> any type (existing entries become null fillers)
//	Int8  -> Int16 -> Float
//	other -> Union
//
// Union stores a tagged value per entry and never changes again. Nulls never
// change a column type.
//
// # Usage Example
//
//	s := columnar.NewStripe(columnar.WithLogger(logger))
//	for _, row := range rows {
//		s.Push(row)
//	}
//
//	path, _ := columnar.ParsePath("items.[].price")
//	if col, ok := s.Column(path); ok {
//		fmt.Println(col.Type(), col.Len(), col.Depth())
//	}
//
// # Persistence
//
// Marshal and Unmarshal convert a stripe to and from a self-checking binary
// blob. The body can be compressed with any algorithm from the compression
// package and is verified with an xxhash64 checksum on load. Decoding never
// returns a partially built stripe.
//
//	blob, err := columnar.Marshal(s, columnar.WithCompression(compression.Zstd, compression.Default))
//	restored, err := columnar.Unmarshal(blob)
//
// # Arrow
//
// Column.ToArrow copies a column into an Arrow array, one slot per entry,
// with the null map as validity.
package columnar
