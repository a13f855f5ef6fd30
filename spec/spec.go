// Package spec models typed query specifications: the portable description
// of a query (filter, joins, ordering, grouping, paging, projection) that
// the compiler turns into provider-specific SQL.
//
// Specifications are built fluently and are immutable once completed:
//
//	p := spec.For[Product]().
//		Where(func(p *expr.Param) expr.Node {
//			return expr.Eq(p.Field("IsActive"), expr.Value(true))
//		}).
//		OrderBy(func(p *expr.Param) expr.Node { return p.Field("Name") }).
//		Page(0, 20)
//	s, err := p.Select()
//
// Operations that introduce a second entity type (joins, predicates or
// selectors spanning a join) are free functions because Go methods cannot
// add type parameters.
package spec

import (
	"reflect"

	"github.com/specql/specql/expr"
)

// JoinKind identifies the join flavor.
type JoinKind int

const (
	InnerJoinKind JoinKind = iota
	LeftJoinKind
	RightJoinKind
	FullJoinKind
	CrossJoinKind
)

// Keyword returns the SQL join keyword.
func (k JoinKind) Keyword() string {
	switch k {
	case InnerJoinKind:
		return "INNER JOIN"
	case LeftJoinKind:
		return "LEFT JOIN"
	case RightJoinKind:
		return "RIGHT JOIN"
	case FullJoinKind:
		return "FULL JOIN"
	case CrossJoinKind:
		return "CROSS JOIN"
	}
	return "JOIN"
}

// Join is one join clause. Left and Right are the entity types the on
// condition was declared against; Right is the table being joined in.
type Join struct {
	Kind  JoinKind
	Left  reflect.Type
	Right reflect.Type
	// On is the join condition; nil for cross joins.
	On *expr.Lambda
	// Alias overrides the generated t{n} alias when non-empty.
	Alias string
}

// SortDirection orders an ORDER BY key.
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

// Keyword returns ASC or DESC.
func (d SortDirection) Keyword() string {
	if d == Descending {
		return "DESC"
	}
	return "ASC"
}

// Ordering is one ORDER BY key.
type Ordering struct {
	Key       *expr.Lambda
	Direction SortDirection
}

// IncludePath is an eager-load hint: a chain of member selections starting
// at the root entity. Paths are carried on the specification for callers
// that implement eager loading; the compiler does not translate them.
type IncludePath struct {
	Steps []*expr.Lambda
}

// Definition is the type-erased core of a completed specification. The
// compiler and mapper consume Definitions; typed callers hold a
// Specification and rarely touch this directly.
//
// A Definition obtained from Specification.Definition is immutable.
type Definition struct {
	// Root is the base entity type.
	Root reflect.Type
	// Result is the projected result type; equals Root for the identity
	// projection.
	Result reflect.Type
	// Where is the unified predicate, nil when absent. Multiple Where
	// calls are already spliced under AND onto one parameter set.
	Where *expr.Lambda
	// Joins in declaration order; join i binds alias t{i+1}.
	Joins []Join
	// Orderings in ORDER BY order.
	Orderings []Ordering
	// GroupBy keys in GROUP BY order.
	GroupBy []*expr.Lambda
	// Having is the group filter, nil when absent.
	Having *expr.Lambda
	// Skip and Take are row bounds; nil means not set.
	Skip *int
	Take *int
	// Distinct requests SELECT DISTINCT.
	Distinct bool
	// Includes carries eager-load hints, untranslated.
	Includes []IncludePath
	// Selector is the projection; never nil on a completed specification.
	// An identity projection has the bound parameter itself as its body.
	Selector *expr.Lambda
}

// IdentitySelector reports whether the selector projects the whole entity.
func (d *Definition) IdentitySelector() bool {
	if d.Selector == nil || len(d.Selector.Params) == 0 {
		return false
	}
	p, ok := d.Selector.Body.(*expr.Param)
	return ok && p == d.Selector.Params[0]
}

func (d *Definition) clone() *Definition {
	out := *d
	out.Joins = append([]Join(nil), d.Joins...)
	out.Orderings = append([]Ordering(nil), d.Orderings...)
	out.GroupBy = append([]*expr.Lambda(nil), d.GroupBy...)
	out.Includes = append([]IncludePath(nil), d.Includes...)
	if d.Skip != nil {
		v := *d.Skip
		out.Skip = &v
	}
	if d.Take != nil {
		v := *d.Take
		out.Take = &v
	}
	return &out
}

// Specification is a completed, immutable query description. T is the root
// entity type, R the result type produced by the selector.
type Specification[T, R any] struct {
	def *Definition
}

// Definition exposes the erased core for the compiler and mapper.
func (s *Specification[T, R]) Definition() *Definition { return s.def }

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func argOf(t reflect.Type, name string) *expr.Param {
	return &expr.Param{Name: name, Type: t}
}
