package columnar

import (
	"github.com/google/btree"
	"go.uber.org/zap"

	"github.com/ajitpratap0/jsonc/pkg/datum"
	"github.com/ajitpratap0/jsonc/pkg/errors"
	"github.com/ajitpratap0/jsonc/pkg/metrics"
)

const btreeDegree = 16

// Stripe is one batch of shredded records: a column per distinct path,
// ordered by Path, plus the number of records pushed. Indexes stored in the
// columns are local to the stripe.
//
// Push must not run concurrently with anything else on the same stripe. Once
// ingestion has stopped, lookups are safe from multiple goroutines.
type Stripe struct {
	columns *btree.BTreeG[*columnEntry]
	count   int
	logger  *zap.Logger
}

type columnEntry struct {
	path   Path
	column *Column
}

func lessEntry(a, b *columnEntry) bool {
	return a.path.Compare(b.path) < 0
}

// Option configures a Stripe
type Option func(*Stripe)

// WithLogger sets the logger used for column lifecycle events
func WithLogger(logger *zap.Logger) Option {
	return func(s *Stripe) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStripe creates an empty stripe
func NewStripe(opts ...Option) *Stripe {
	s := &Stripe{
		columns: btree.NewG[*columnEntry](btreeDegree, lessEntry),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Push shreds one record into the stripe. It never fails for a well formed
// datum; Missing records add a row but no entries.
func (s *Stripe) Push(d datum.Datum) {
	s.decompose(d, Path{}, []uint32{uint32(s.count)})
	s.count++
	metrics.RowsShredded.Inc()
}

// decompose routes d and all of its descendants to their columns. ctx holds
// the row index followed by one element position per enclosing array.
func (s *Stripe) decompose(d datum.Datum, path Path, ctx []uint32) {
	if d.IsMissing() {
		return
	}

	col := s.columnFor(path, len(ctx))
	if ev := col.append(d, ctx); ev.changed() {
		s.recordUpcast(path, ev)
	}

	switch d.Kind() {
	case datum.KindObject:
		for key, child := range d.Fields() {
			s.decompose(child, path.Child(Key(key)), ctx)
		}
	case datum.KindArray:
		childPath := path.Child(ArrayElem)
		childCtx := make([]uint32, len(ctx)+1)
		copy(childCtx, ctx)
		for i, elem := range d.Elements() {
			childCtx[len(ctx)] = uint32(i)
			s.decompose(elem, childPath, childCtx)
		}
	}
}

func (s *Stripe) columnFor(path Path, depth int) *Column {
	if e, ok := s.columns.Get(&columnEntry{path: path}); ok {
		return e.column
	}
	col := newColumn(depth)
	s.columns.ReplaceOrInsert(&columnEntry{path: path, column: col})
	metrics.ColumnsCreated.Inc()
	s.logger.Debug("column created",
		zap.Stringer("path", path),
		zap.Int("depth", depth),
		zap.Int("row", s.count))
	return col
}

func (s *Stripe) recordUpcast(path Path, ev upcastEvent) {
	// typing an untyped column is not a widening
	if ev.from == datum.KindNull {
		return
	}
	metrics.ColumnUpcasts.WithLabelValues(ev.from.String(), ev.to.String()).Inc()
	if ev.to == datum.KindUnion {
		metrics.UnionConversions.Inc()
	}
	s.logger.Debug("column upcast",
		zap.Stringer("path", path),
		zap.Stringer("from", ev.from),
		zap.Stringer("to", ev.to),
		zap.Int("row", s.count))
}

// Column returns the column stored at exactly path
func (s *Stripe) Column(path Path) (*Column, bool) {
	e, ok := s.columns.Get(&columnEntry{path: path})
	if !ok {
		return nil, false
	}
	return e.column, true
}

// Len returns the number of records pushed
func (s *Stripe) Len() int { return s.count }

// NumColumns returns the number of distinct paths seen
func (s *Stripe) NumColumns() int { return s.columns.Len() }

// Ascend calls fn for every column in Path order until fn returns false
func (s *Stripe) Ascend(fn func(Path, *Column) bool) {
	s.columns.Ascend(func(e *columnEntry) bool {
		return fn(e.path, e.column)
	})
}

// Paths returns every path in order
func (s *Stripe) Paths() []Path {
	paths := make([]Path, 0, s.columns.Len())
	s.Ascend(func(p Path, _ *Column) bool {
		paths = append(paths, p)
		return true
	})
	return paths
}

// Validate checks the alignment invariant of every column
func (s *Stripe) Validate() error {
	var err error
	s.Ascend(func(p Path, c *Column) bool {
		if verr := c.validate(); verr != nil {
			err = errors.Wrap(verr, errors.ErrorTypeData, "misaligned column").
				WithDetail("path", p.String())
			return false
		}
		return true
	})
	return err
}

// insert adds a decoded column. The caller guarantees path is new.
func (s *Stripe) insert(path Path, col *Column) {
	s.columns.ReplaceOrInsert(&columnEntry{path: path, column: col})
}
