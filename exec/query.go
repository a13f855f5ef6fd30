package exec

import (
	"context"
	"database/sql"

	"github.com/specql/specql/compiler"
	"github.com/specql/specql/mapper"
)

// All runs a SELECT and materializes every row as R.
func All[R any](ctx context.Context, r *Runner, st compiler.Statement) ([]R, error) {
	rows, err := r.Query(ctx, st)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []R
	for rows.Next() {
		v, err := mapper.One[R](rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// First runs a SELECT and materializes the first row as R, returning
// sql.ErrNoRows on an empty result.
func First[R any](ctx context.Context, r *Runner, st compiler.Statement) (R, error) {
	var zero R
	rows, err := r.Query(ctx, st)
	if err != nil {
		return zero, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return zero, err
		}
		return zero, sql.ErrNoRows
	}
	return mapper.One[R](rows)
}

// Scalar runs a SELECT whose first column of the first row is the answer,
// e.g. a compiled COUNT. Empty results return sql.ErrNoRows.
func Scalar[R any](ctx context.Context, r *Runner, st compiler.Statement) (R, error) {
	return First[R](ctx, r, st)
}
