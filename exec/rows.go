package exec

import (
	"database/sql"
	"fmt"

	"github.com/specql/specql/mapper"
)

// Rows adapts *sql.Rows to the mapper's Row contract. One scan buffer and
// one column index serve the whole cursor; Next overwrites the buffer, so a
// row must be mapped before advancing.
type Rows struct {
	rows *sql.Rows
	ix   *mapper.ColumnIndex
	vals []any
	ptrs []any
	err  error
}

func wrapRows(rows *sql.Rows) (*Rows, error) {
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("exec: columns: %w", err)
	}
	r := &Rows{
		rows: rows,
		ix:   mapper.NewColumnIndex(cols),
		vals: make([]any, len(cols)),
		ptrs: make([]any, len(cols)),
	}
	for i := range r.vals {
		r.ptrs[i] = &r.vals[i]
	}
	return r, nil
}

// Next advances and scans the next row. It returns false at the end of the
// result set or on error; check Err afterwards.
func (r *Rows) Next() bool {
	if r.err != nil || !r.rows.Next() {
		return false
	}
	if err := r.rows.Scan(r.ptrs...); err != nil {
		r.err = fmt.Errorf("exec: scan: %w", err)
		return false
	}
	return true
}

// Err reports the first scan or iteration error.
func (r *Rows) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.rows.Err()
}

// Close releases the cursor. Safe to call more than once.
func (r *Rows) Close() error { return r.rows.Close() }

func (r *Rows) ColumnCount() int        { return len(r.vals) }
func (r *Rows) ColumnName(i int) string { return r.ix.Name(i) }
func (r *Rows) Value(i int) any         { return r.vals[i] }

// Index shares the cursor-lifetime column lookup with the mapper.
func (r *Rows) Index() *mapper.ColumnIndex { return r.ix }
