package spec

import (
	"fmt"

	"github.com/specql/specql"
	"github.com/specql/specql/expr"
)

// Builder accumulates a specification for root entity T. It has value
// semantics: every call returns a modified copy, so partial builders can be
// shared and extended independently.
//
// Argument errors (nil callbacks, negative counts) stick to the builder and
// surface from the terminal Select call, keeping chains fluent.
type Builder[T any] struct {
	def Definition
	err error
}

// For starts a builder for root entity T.
func For[T any]() Builder[T] {
	root := typeOf[T]()
	return Builder[T]{def: Definition{Root: root, Result: root}}
}

// Err returns the first argument error recorded by the chain, if any.
func (b Builder[T]) Err() error { return b.err }

func (b Builder[T]) fail(format string, args ...any) Builder[T] {
	if b.err == nil {
		b.err = fmt.Errorf(format, args...)
	}
	return b
}

// Where adds a filter over the root entity. A second Where call does not
// replace the first: both predicate bodies are re-pointed onto one shared
// parameter set and spliced under a single AND.
func (b Builder[T]) Where(pred func(p *expr.Param) expr.Node) Builder[T] {
	if b.err != nil {
		return b
	}
	if pred == nil {
		return b.fail("spec: Where: nil predicate: %w", specql.ErrInvalidArgument)
	}
	p := argOf(b.def.Root, "p")
	body := pred(p)
	if body == nil {
		return b.fail("spec: Where: predicate returned nil: %w", specql.ErrInvalidArgument)
	}
	d := b.def.clone()
	d.Where = mergePredicate(d.Where, expr.NewLambda(body, p))
	b.def = *d
	return b
}

// WhereJoined adds a filter spanning the root entity and joined entity J.
// The root parameter comes first, matching the join declaration.
func WhereJoined[J, T any](b Builder[T], pred func(p, j *expr.Param) expr.Node) Builder[T] {
	if b.err != nil {
		return b
	}
	if pred == nil {
		return b.fail("spec: WhereJoined: nil predicate: %w", specql.ErrInvalidArgument)
	}
	p := argOf(b.def.Root, "p")
	j := argOf(typeOf[J](), "j")
	body := pred(p, j)
	if body == nil {
		return b.fail("spec: WhereJoined: predicate returned nil: %w", specql.ErrInvalidArgument)
	}
	d := b.def.clone()
	d.Where = mergePredicate(d.Where, expr.NewLambda(body, p, j))
	b.def = *d
	return b
}

// mergePredicate unifies the parameter sets of two predicates and joins
// their bodies under AND. Parameters map positionally; when the incoming
// predicate declares more parameters than the existing one, the extras are
// appended to the shared set.
func mergePredicate(existing, incoming *expr.Lambda) *expr.Lambda {
	if existing == nil {
		return incoming
	}
	params := append([]*expr.Param(nil), existing.Params...)
	mapping := make(map[*expr.Param]*expr.Param, len(incoming.Params))
	for i, p := range incoming.Params {
		if i < len(params) {
			mapping[p] = params[i]
			continue
		}
		params = append(params, p)
	}
	body := expr.ReplaceParams(incoming.Body, mapping)
	return expr.NewLambda(expr.And(existing.Body, body), params...)
}

func joinWith[L, R, T any](b Builder[T], kind JoinKind, on func(l, r *expr.Param) expr.Node) Builder[T] {
	if b.err != nil {
		return b
	}
	if on == nil {
		return b.fail("spec: %s: nil on condition: %w", kind.Keyword(), specql.ErrInvalidArgument)
	}
	l := argOf(typeOf[L](), "l")
	r := argOf(typeOf[R](), "r")
	body := on(l, r)
	if body == nil {
		return b.fail("spec: %s: on condition returned nil: %w", kind.Keyword(), specql.ErrInvalidArgument)
	}
	d := b.def.clone()
	d.Joins = append(d.Joins, Join{
		Kind:  kind,
		Left:  typeOf[L](),
		Right: typeOf[R](),
		On:    expr.NewLambda(body, l, r),
	})
	b.def = *d
	return b
}

// InnerJoin joins R to the query. L is the side the condition's first
// parameter ranges over, usually the root entity; R is the table joined in
// and is bound to the next t{n} alias.
func InnerJoin[L, R, T any](b Builder[T], on func(l, r *expr.Param) expr.Node) Builder[T] {
	return joinWith[L, R](b, InnerJoinKind, on)
}

// LeftJoin joins R with LEFT JOIN semantics.
func LeftJoin[L, R, T any](b Builder[T], on func(l, r *expr.Param) expr.Node) Builder[T] {
	return joinWith[L, R](b, LeftJoinKind, on)
}

// RightJoin joins R with RIGHT JOIN semantics.
func RightJoin[L, R, T any](b Builder[T], on func(l, r *expr.Param) expr.Node) Builder[T] {
	return joinWith[L, R](b, RightJoinKind, on)
}

// FullJoin joins R with FULL JOIN semantics.
func FullJoin[L, R, T any](b Builder[T], on func(l, r *expr.Param) expr.Node) Builder[T] {
	return joinWith[L, R](b, FullJoinKind, on)
}

// CrossJoin joins R with no condition.
func CrossJoin[R, T any](b Builder[T]) Builder[T] {
	if b.err != nil {
		return b
	}
	d := b.def.clone()
	d.Joins = append(d.Joins, Join{Kind: CrossJoinKind, Left: b.def.Root, Right: typeOf[R]()})
	b.def = *d
	return b
}

// As overrides the alias of the most recent join.
func (b Builder[T]) As(alias string) Builder[T] {
	if b.err != nil {
		return b
	}
	if alias == "" {
		return b.fail("spec: As: empty alias: %w", specql.ErrInvalidArgument)
	}
	if len(b.def.Joins) == 0 {
		return b.fail("spec: As(%q): no join to alias: %w", alias, specql.ErrInvalidOperation)
	}
	d := b.def.clone()
	d.Joins[len(d.Joins)-1].Alias = alias
	b.def = *d
	return b
}

func (b Builder[T]) orderBy(key func(p *expr.Param) expr.Node, dir SortDirection, replace bool) Builder[T] {
	if b.err != nil {
		return b
	}
	if key == nil {
		return b.fail("spec: nil ordering key: %w", specql.ErrInvalidArgument)
	}
	if !replace && len(b.def.Orderings) == 0 {
		return b.fail("spec: ThenBy without OrderBy: %w", specql.ErrInvalidOperation)
	}
	p := argOf(b.def.Root, "p")
	body := key(p)
	if body == nil {
		return b.fail("spec: ordering key returned nil: %w", specql.ErrInvalidArgument)
	}
	d := b.def.clone()
	o := Ordering{Key: expr.NewLambda(body, p), Direction: dir}
	if replace {
		d.Orderings = []Ordering{o}
	} else {
		d.Orderings = append(d.Orderings, o)
	}
	b.def = *d
	return b
}

// OrderBy starts the ordering with an ascending key, discarding any
// previously declared ordering.
func (b Builder[T]) OrderBy(key func(p *expr.Param) expr.Node) Builder[T] {
	return b.orderBy(key, Ascending, true)
}

// OrderByDescending starts the ordering with a descending key.
func (b Builder[T]) OrderByDescending(key func(p *expr.Param) expr.Node) Builder[T] {
	return b.orderBy(key, Descending, true)
}

// ThenBy appends a subordinate ascending key. It requires a preceding
// OrderBy or OrderByDescending.
func (b Builder[T]) ThenBy(key func(p *expr.Param) expr.Node) Builder[T] {
	return b.orderBy(key, Ascending, false)
}

// ThenByDescending appends a subordinate descending key.
func (b Builder[T]) ThenByDescending(key func(p *expr.Param) expr.Node) Builder[T] {
	return b.orderBy(key, Descending, false)
}

// GroupBy appends grouping keys.
func (b Builder[T]) GroupBy(keys ...func(p *expr.Param) expr.Node) Builder[T] {
	if b.err != nil {
		return b
	}
	if len(keys) == 0 {
		return b.fail("spec: GroupBy: no keys: %w", specql.ErrInvalidArgument)
	}
	d := b.def.clone()
	for _, key := range keys {
		if key == nil {
			return b.fail("spec: GroupBy: nil key: %w", specql.ErrInvalidArgument)
		}
		p := argOf(b.def.Root, "p")
		body := key(p)
		if body == nil {
			return b.fail("spec: GroupBy: key returned nil: %w", specql.ErrInvalidArgument)
		}
		d.GroupBy = append(d.GroupBy, expr.NewLambda(body, p))
	}
	b.def = *d
	return b
}

// Having adds a group filter. Like Where, repeated calls are combined
// under AND on a shared parameter set.
func (b Builder[T]) Having(pred func(p *expr.Param) expr.Node) Builder[T] {
	if b.err != nil {
		return b
	}
	if pred == nil {
		return b.fail("spec: Having: nil predicate: %w", specql.ErrInvalidArgument)
	}
	p := argOf(b.def.Root, "p")
	body := pred(p)
	if body == nil {
		return b.fail("spec: Having: predicate returned nil: %w", specql.ErrInvalidArgument)
	}
	d := b.def.clone()
	d.Having = mergePredicate(d.Having, expr.NewLambda(body, p))
	b.def = *d
	return b
}

// Skip discards the first count rows. Negative counts are rejected.
func (b Builder[T]) Skip(count int) Builder[T] {
	if b.err != nil {
		return b
	}
	if count < 0 {
		return b.fail("spec: Skip(%d): negative count: %w", count, specql.ErrInvalidArgument)
	}
	d := b.def.clone()
	d.Skip = &count
	b.def = *d
	return b
}

// Take bounds the result to count rows. Negative counts are rejected.
func (b Builder[T]) Take(count int) Builder[T] {
	if b.err != nil {
		return b
	}
	if count < 0 {
		return b.fail("spec: Take(%d): negative count: %w", count, specql.ErrInvalidArgument)
	}
	d := b.def.clone()
	d.Take = &count
	b.def = *d
	return b
}

// Page selects page index (zero-based) of the given size; shorthand for
// Skip(index*size).Take(size). Size must be at least 1.
func (b Builder[T]) Page(index, size int) Builder[T] {
	if b.err != nil {
		return b
	}
	if index < 0 {
		return b.fail("spec: Page(%d, %d): negative page index: %w", index, size, specql.ErrInvalidArgument)
	}
	if size < 1 {
		return b.fail("spec: Page(%d, %d): page size must be at least 1: %w", index, size, specql.ErrInvalidArgument)
	}
	return b.Skip(index * size).Take(size)
}

// Distinct requests duplicate elimination.
func (b Builder[T]) Distinct() Builder[T] {
	if b.err != nil {
		return b
	}
	d := b.def.clone()
	d.Distinct = true
	b.def = *d
	return b
}

// Include records an eager-load hint starting a new navigation path. The
// hint travels on the specification; SQL generation ignores it.
func (b Builder[T]) Include(path func(p *expr.Param) expr.Node) Builder[T] {
	if b.err != nil {
		return b
	}
	if path == nil {
		return b.fail("spec: Include: nil path: %w", specql.ErrInvalidArgument)
	}
	p := argOf(b.def.Root, "p")
	body := path(p)
	if body == nil {
		return b.fail("spec: Include: path returned nil: %w", specql.ErrInvalidArgument)
	}
	d := b.def.clone()
	d.Includes = append(d.Includes, IncludePath{Steps: []*expr.Lambda{expr.NewLambda(body, p)}})
	b.def = *d
	return b
}

// ThenInclude extends the most recent Include path one navigation deeper.
func (b Builder[T]) ThenInclude(path func(p *expr.Param) expr.Node) Builder[T] {
	if b.err != nil {
		return b
	}
	if path == nil {
		return b.fail("spec: ThenInclude: nil path: %w", specql.ErrInvalidArgument)
	}
	if len(b.def.Includes) == 0 {
		return b.fail("spec: ThenInclude without Include: %w", specql.ErrInvalidOperation)
	}
	p := argOf(b.def.Root, "p")
	body := path(p)
	if body == nil {
		return b.fail("spec: ThenInclude: path returned nil: %w", specql.ErrInvalidArgument)
	}
	d := b.def.clone()
	last := len(d.Includes) - 1
	steps := append([]*expr.Lambda(nil), d.Includes[last].Steps...)
	d.Includes[last] = IncludePath{Steps: append(steps, expr.NewLambda(body, p))}
	b.def = *d
	return b
}

// Select completes the specification with the identity projection.
func (b Builder[T]) Select() (*Specification[T, T], error) {
	if b.err != nil {
		return nil, b.err
	}
	d := b.def.clone()
	p := argOf(d.Root, "p")
	d.Selector = expr.NewLambda(p, p)
	d.Result = d.Root
	return &Specification[T, T]{def: d}, nil
}

// SelectAs completes the specification with a projection to R. The
// selector body is a single member access or an expr.Construct listing the
// result's fields in declaration order.
func SelectAs[R, T any](b Builder[T], sel func(p *expr.Param) expr.Node) (*Specification[T, R], error) {
	if b.err != nil {
		return nil, b.err
	}
	if sel == nil {
		return nil, fmt.Errorf("spec: SelectAs: nil selector: %w", specql.ErrInvalidArgument)
	}
	d := b.def.clone()
	p := argOf(d.Root, "p")
	body := sel(p)
	if body == nil {
		return nil, fmt.Errorf("spec: SelectAs: selector returned nil: %w", specql.ErrInvalidArgument)
	}
	d.Selector = expr.NewLambda(body, p)
	d.Result = typeOf[R]()
	return &Specification[T, R]{def: d}, nil
}

// SelectJoinedAs completes the specification with a projection spanning
// the root entity and joined entity J.
func SelectJoinedAs[R, J, T any](b Builder[T], sel func(p, j *expr.Param) expr.Node) (*Specification[T, R], error) {
	if b.err != nil {
		return nil, b.err
	}
	if sel == nil {
		return nil, fmt.Errorf("spec: SelectJoinedAs: nil selector: %w", specql.ErrInvalidArgument)
	}
	d := b.def.clone()
	p := argOf(d.Root, "p")
	j := argOf(typeOf[J](), "j")
	body := sel(p, j)
	if body == nil {
		return nil, fmt.Errorf("spec: SelectJoinedAs: selector returned nil: %w", specql.ErrInvalidArgument)
	}
	d.Selector = expr.NewLambda(body, p, j)
	d.Result = typeOf[R]()
	return &Specification[T, R]{def: d}, nil
}
