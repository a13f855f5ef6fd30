// Package repo is the thin CRUD façade over compiler, exec and mapper:
// compile the specification, run the statement, map the rows. It owns no
// connection or transaction state beyond the handle it was built on.
package repo

import (
	"context"
	"fmt"

	"github.com/specql/specql"
	"github.com/specql/specql/compiler"
	"github.com/specql/specql/exec"
	"github.com/specql/specql/expr"
	"github.com/specql/specql/spec"
)

// Repo reads and writes one entity type through a Runner.
type Repo[T any] struct {
	run *exec.Runner
	c   *compiler.Compiler
}

// New builds a repository over a runner; statements compile for the
// runner's dialect.
func New[T any](run *exec.Runner) (*Repo[T], error) {
	if run == nil {
		return nil, fmt.Errorf("repo: nil runner: %w", specql.ErrInvalidArgument)
	}
	return &Repo[T]{run: run, c: compiler.New(run.Dialect())}, nil
}

// Runner exposes the underlying executor for callers that need raw access.
func (r *Repo[T]) Runner() *exec.Runner { return r.run }

// Find returns every row the specification selects.
func (r *Repo[T]) Find(ctx context.Context, s *spec.Specification[T, T]) ([]T, error) {
	st, err := r.c.Select(s.Definition())
	if err != nil {
		return nil, err
	}
	return exec.All[T](ctx, r.run, st)
}

// First returns the first selected row, compiling with the row limit forced
// to one. sql.ErrNoRows when nothing matches.
func (r *Repo[T]) First(ctx context.Context, s *spec.Specification[T, T]) (T, error) {
	var zero T
	st, err := r.c.Select(limitOne(s.Definition()))
	if err != nil {
		return zero, err
	}
	return exec.First[T](ctx, r.run, st)
}

// Count returns the number of rows the specification selects.
func (r *Repo[T]) Count(ctx context.Context, s *spec.Specification[T, T]) (int64, error) {
	st, err := r.c.Count(s.Definition())
	if err != nil {
		return 0, err
	}
	return exec.Scalar[int64](ctx, r.run, st)
}

// Exists reports whether any row matches, fetching at most one.
func (r *Repo[T]) Exists(ctx context.Context, s *spec.Specification[T, T]) (bool, error) {
	st, err := r.c.Select(limitOne(s.Definition()))
	if err != nil {
		return false, err
	}
	rows, err := r.run.Query(ctx, st)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	if rows.Next() {
		return true, nil
	}
	return false, rows.Err()
}

// Insert writes one entity. Identity columns stay out of the statement.
func (r *Repo[T]) Insert(ctx context.Context, entity T) error {
	st, err := r.c.Insert(entity)
	if err != nil {
		return err
	}
	_, err = r.run.Exec(ctx, st)
	return err
}

// InsertAll writes a batch in one statement and returns the inserted count.
// An empty batch is a no-op.
func (r *Repo[T]) InsertAll(ctx context.Context, entities []T) (int64, error) {
	st, err := r.c.InsertBatch(entities)
	if err != nil {
		return 0, err
	}
	res, err := r.run.Exec(ctx, st)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Update applies the set list to every row the specification selects and
// returns the affected count.
func (r *Repo[T]) Update(ctx context.Context, s *spec.Specification[T, T], set *spec.UpdateSet) (int64, error) {
	st, err := r.c.Update(s.Definition(), set)
	if err != nil {
		return 0, err
	}
	res, err := r.run.Exec(ctx, st)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateWhere is Update with an inline predicate.
func (r *Repo[T]) UpdateWhere(ctx context.Context, pred func(p *expr.Param) expr.Node, set *spec.UpdateSet) (int64, error) {
	s, err := spec.For[T]().Where(pred).Select()
	if err != nil {
		return 0, err
	}
	return r.Update(ctx, s, set)
}

// Delete removes every row the specification selects and returns the
// affected count.
func (r *Repo[T]) Delete(ctx context.Context, s *spec.Specification[T, T]) (int64, error) {
	st, err := r.c.Delete(s.Definition())
	if err != nil {
		return 0, err
	}
	res, err := r.run.Exec(ctx, st)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FindAs runs a projecting specification: the SELECT list carries the
// result shape, so rows map straight to R.
func FindAs[T, R any](ctx context.Context, r *Repo[T], s *spec.Specification[T, R]) ([]R, error) {
	st, err := r.c.Select(s.Definition())
	if err != nil {
		return nil, err
	}
	return exec.All[R](ctx, r.run, st)
}

// FirstAs is FindAs limited to one row. sql.ErrNoRows when nothing matches.
func FirstAs[T, R any](ctx context.Context, r *Repo[T], s *spec.Specification[T, R]) (R, error) {
	var zero R
	st, err := r.c.Select(limitOne(s.Definition()))
	if err != nil {
		return zero, err
	}
	return exec.First[R](ctx, r.run, st)
}

// limitOne copies the definition with the take count forced to one. The
// caller's specification stays untouched.
func limitOne(def *spec.Definition) *spec.Definition {
	out := *def
	one := 1
	out.Take = &one
	return &out
}
