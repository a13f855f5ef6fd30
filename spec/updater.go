package spec

import (
	"fmt"
	"reflect"

	"github.com/specql/specql"
	"github.com/specql/specql/expr"
)

// PropertyUpdate assigns one entity field in an UPDATE statement.
type PropertyUpdate struct {
	// Field is the Go field name on the entity.
	Field string
	// Constant marks a literal assignment carried in Value.
	Constant bool
	// Value is the literal for constant assignments.
	Value any
	// Expr is the computed value over the entity for non-constant
	// assignments, e.g. price = price * 1.1. Translated against the base
	// table only.
	Expr *expr.Lambda
}

// UpdateSet is the erased, ordered list of assignments consumed by UPDATE
// compilation.
type UpdateSet struct {
	Root    reflect.Type
	Updates []PropertyUpdate
}

// Updater builds an ordered assignment list for entity T. Like Builder it
// has value semantics and sticky argument errors.
type Updater[T any] struct {
	set UpdateSet
	err error
}

// Update starts an updater for entity T.
func Update[T any]() Updater[T] {
	return Updater[T]{set: UpdateSet{Root: typeOf[T]()}}
}

// Err returns the first argument error recorded by the chain, if any.
func (u Updater[T]) Err() error { return u.err }

// Set assigns a literal value to field.
func (u Updater[T]) Set(field string, value any) Updater[T] {
	if u.err != nil {
		return u
	}
	if field == "" {
		u.err = fmt.Errorf("spec: Set: empty field name: %w", specql.ErrInvalidArgument)
		return u
	}
	u.set.Updates = append(append([]PropertyUpdate(nil), u.set.Updates...),
		PropertyUpdate{Field: field, Constant: true, Value: value})
	return u
}

// SetExpr assigns a value computed from the entity, e.g.
//
//	Update[Product]().SetExpr("Price", func(p *expr.Param) expr.Node {
//		return expr.Mul(p.Field("Price"), expr.Value(1.1))
//	})
func (u Updater[T]) SetExpr(field string, value func(p *expr.Param) expr.Node) Updater[T] {
	if u.err != nil {
		return u
	}
	if field == "" {
		u.err = fmt.Errorf("spec: SetExpr: empty field name: %w", specql.ErrInvalidArgument)
		return u
	}
	if value == nil {
		u.err = fmt.Errorf("spec: SetExpr(%q): nil value expression: %w", field, specql.ErrInvalidArgument)
		return u
	}
	p := argOf(u.set.Root, "p")
	body := value(p)
	if body == nil {
		u.err = fmt.Errorf("spec: SetExpr(%q): value expression returned nil: %w", field, specql.ErrInvalidArgument)
		return u
	}
	u.set.Updates = append(append([]PropertyUpdate(nil), u.set.Updates...),
		PropertyUpdate{Field: field, Expr: expr.NewLambda(body, p)})
	return u
}

// Build returns the completed assignment list. Whether the list is
// acceptable for compilation (at least one assignment, mapped fields) is
// checked by the compiler.
func (u Updater[T]) Build() (*UpdateSet, error) {
	if u.err != nil {
		return nil, u.err
	}
	set := UpdateSet{Root: u.set.Root, Updates: append([]PropertyUpdate(nil), u.set.Updates...)}
	return &set, nil
}
