// Package exec runs compiled statements against database/sql handles. It
// binds parameters the way each provider expects, adapts result cursors to
// the mapper's Row contract and stays out of transaction management: a
// Runner works identically over a *sql.DB or a *sql.Tx.
package exec

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/specql/specql"
	"github.com/specql/specql/compiler"
	"github.com/specql/specql/dialect"
	"github.com/specql/specql/internal/debug"
)

// Querier is the executable surface shared by *sql.DB, *sql.Tx and
// *sql.Conn.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Runner executes statements for one provider over one handle.
type Runner struct {
	db Querier
	d  dialect.Dialect
}

// New wraps a handle with the dialect the statements were compiled for.
func New(db Querier, d dialect.Dialect) (*Runner, error) {
	if db == nil {
		return nil, fmt.Errorf("exec: nil database handle: %w", specql.ErrInvalidArgument)
	}
	if d == nil {
		return nil, fmt.Errorf("exec: nil dialect: %w", specql.ErrInvalidArgument)
	}
	return &Runner{db: db, d: d}, nil
}

// ForProvider is New with a provider lookup.
func ForProvider(db Querier, p dialect.Provider) (*Runner, error) {
	d, err := dialect.ForProvider(p)
	if err != nil {
		return nil, err
	}
	return New(db, d)
}

// Dialect returns the dialect statements must be compiled with.
func (r *Runner) Dialect() dialect.Dialect { return r.d }

// Query runs a SELECT and returns the adapted cursor. Callers own Close.
func (r *Runner) Query(ctx context.Context, st compiler.Statement) (*Rows, error) {
	if st.IsEmpty() {
		return nil, fmt.Errorf("exec: empty statement: %w", specql.ErrInvalidArgument)
	}
	if debug.Enabled() {
		debug.Debug("query", "sql", st.SQL, "params", len(st.Params))
	}
	rows, err := r.db.QueryContext(ctx, st.SQL, r.bind(st)...)
	if err != nil {
		return nil, fmt.Errorf("exec: query: %w", err)
	}
	return wrapRows(rows)
}

// Exec runs a statement that returns no rows. Batch inserts compiled from
// zero entities are empty statements and succeed as a no-op.
func (r *Runner) Exec(ctx context.Context, st compiler.Statement) (sql.Result, error) {
	if st.IsEmpty() {
		return emptyResult{}, nil
	}
	if debug.Enabled() {
		debug.Debug("exec", "sql", st.SQL, "params", len(st.Params))
	}
	res, err := r.db.ExecContext(ctx, st.SQL, r.bind(st)...)
	if err != nil {
		return nil, fmt.Errorf("exec: exec: %w", err)
	}
	return res, nil
}

// bind lays parameters out for the provider: named arguments for SQL Server,
// positional values for everyone else. Compiled parameter order matches
// placeholder order, so positional binding is a straight copy.
func (r *Runner) bind(st compiler.Statement) []any {
	if r.d.Provider() == dialect.SqlServer {
		args := make([]any, len(st.Params))
		for i, p := range st.Params {
			args[i] = sql.Named(p.Name, p.Value)
		}
		return args
	}
	return st.Values()
}

// emptyResult is the no-op result for empty statements.
type emptyResult struct{}

func (emptyResult) LastInsertId() (int64, error) { return 0, nil }
func (emptyResult) RowsAffected() (int64, error) { return 0, nil }

// DriverName maps a provider to its database/sql driver registration name.
func DriverName(p dialect.Provider) (string, error) {
	switch p {
	case dialect.SqlServer:
		return "sqlserver", nil
	case dialect.MySql:
		return "mysql", nil
	case dialect.PostgreSql:
		return "postgres", nil
	}
	return "", fmt.Errorf("exec: no driver for provider %s: %w", p, specql.ErrInvalidArgument)
}
