// Package jsonc shreds semi-structured JSON records into typed columns.
//
// Every distinct path through a record (object keys and array positions)
// becomes one column. A column keeps one index buffer per nesting level, a
// null map and a typed payload, so any value can be located again from its
// row and element positions without storing the record itself.
//
// # Architecture
//
// The engine is split into small packages under pkg/:
//
//   - datum: the in-memory value model (Missing, Null, Bool, Int8, Int16,
//     Float, String, Array, Object)
//   - columnar: Path, Column, the upcast lattice and Stripe, plus the
//     binary stripe codec and Arrow export
//   - loader: NDJSON reading into datum values
//   - scan: row-wise and columnar aggregates over a path
//   - storage: local, S3 and GCS blob stores for encoded stripes
//   - compression: body compression for the codec
//   - config, logger, metrics, errors: the ambient stack
//
// # Quick Start
//
//	s := columnar.NewStripe()
//	for _, row := range rows {
//	    s.Push(row)
//	}
//	blob, err := columnar.Marshal(s, columnar.WithCompression(compression.Zstd, compression.Default))
//	if err != nil {
//	    return err
//	}
//	restored, err := columnar.Unmarshal(blob)
//
// Columns widen as values arrive: Int8 becomes Int16 becomes Float, and a
// column that sees incompatible types falls back to a Union column that
// keeps a tagged entry per value. Union is terminal.
//
// The jsonc command (cmd/jsonc) wraps the same operations:
//
//	jsonc shred events.ndjson --compression zstd
//	jsonc inspect --key events.jsnc
//	jsonc avg --key events.jsnc --path items.[].price --input events.ndjson
package jsonc
