// Package mapper materializes result rows into typed values: scalars read
// straight from column 0, structs are built through registered constructors
// and field population, and specification selectors project entities into
// result shapes. Reflection metadata and compiled accessors are cached for
// the process lifetime, so steady-state mapping is cache lookups and
// delegate calls.
package mapper

import "strings"

// Row is one positioned result row. Value returns nil for a database NULL.
type Row interface {
	ColumnCount() int
	ColumnName(i int) string
	Value(i int) any
}

// Indexer is implemented by rows that share one column lookup across a whole
// cursor. Rows that do not implement it get a lookup built per call.
type Indexer interface {
	Index() *ColumnIndex
}

// ColumnIndex resolves column names to ordinals case-insensitively. Build it
// once per result set; it is immutable afterwards and safe for concurrent use.
type ColumnIndex struct {
	names    []string
	ordinals map[string]int
}

// NewColumnIndex builds the lookup for a cursor's column list. The first
// occurrence wins when names repeat.
func NewColumnIndex(names []string) *ColumnIndex {
	ix := &ColumnIndex{
		names:    names,
		ordinals: make(map[string]int, len(names)),
	}
	for i, n := range names {
		key := strings.ToLower(n)
		if _, dup := ix.ordinals[key]; !dup {
			ix.ordinals[key] = i
		}
	}
	return ix
}

// Ordinal returns the position of a column, matched case-insensitively.
func (ix *ColumnIndex) Ordinal(name string) (int, bool) {
	i, ok := ix.ordinals[strings.ToLower(name)]
	return i, ok
}

// Len reports the number of columns.
func (ix *ColumnIndex) Len() int { return len(ix.names) }

// Name returns the column name at ordinal i.
func (ix *ColumnIndex) Name(i int) string { return ix.names[i] }

func indexOf(row Row) *ColumnIndex {
	if ir, ok := row.(Indexer); ok {
		if ix := ir.Index(); ix != nil {
			return ix
		}
	}
	names := make([]string, row.ColumnCount())
	for i := range names {
		names[i] = row.ColumnName(i)
	}
	return NewColumnIndex(names)
}

// ValueRow is a Row over parallel name and value slices. Handy for tests and
// for callers that already hold decoded values.
type ValueRow struct {
	Names []string
	Vals  []any
}

func (r ValueRow) ColumnCount() int        { return len(r.Names) }
func (r ValueRow) ColumnName(i int) string { return r.Names[i] }
func (r ValueRow) Value(i int) any         { return r.Vals[i] }
