package mapper

import (
	"fmt"
	"reflect"

	"github.com/specql/specql"
	"github.com/specql/specql/expr"
)

// evalFunc computes one compiled selector subtree against bound parameter
// values. values is positional, matching the selector's parameter list.
type evalFunc func(values []any) (any, error)

// compileNode turns a selector subtree into a closure. Member chains rooted
// at a parameter resolve their field index paths here, once, using the
// parameter's static type; running the closure then walks indices with no
// name lookups. Parameter-free subtrees defer to expr.Evaluate so captured
// closures observe current values.
func compileNode(n expr.Node, params []*expr.Param) (evalFunc, reflect.Type, error) {
	switch t := n.(type) {
	case *expr.Param:
		idx := -1
		for i, p := range params {
			if p == t {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, nil, fmt.Errorf("mapper: selector references an unbound parameter %q: %w", t.Name, specql.ErrNotSupported)
		}
		at := idx
		return func(values []any) (any, error) {
			return values[at], nil
		}, t.Type, nil

	case *expr.Constant:
		v := t.Value
		var st reflect.Type
		if v != nil {
			st = reflect.TypeOf(v)
		}
		return func([]any) (any, error) { return v, nil }, st, nil

	case *expr.Member:
		if !expr.ContainsParam(t) {
			return deferred(t), nil, nil
		}
		target, st, err := compileNode(t.Target, params)
		if err != nil {
			return nil, nil, err
		}
		return compileMember(t.Name, target, st)

	case *expr.Unary:
		operand, _, err := compileNode(t.Operand, params)
		if err != nil {
			return nil, nil, err
		}
		op := t.Op
		return func(values []any) (any, error) {
			v, err := operand(values)
			if err != nil {
				return nil, err
			}
			switch op {
			case expr.OpConvert:
				return v, nil
			case expr.OpNeg:
				return expr.Negate(v)
			case expr.OpNot:
				b, ok := v.(bool)
				if !ok {
					return nil, fmt.Errorf("mapper: NOT applied to %T: %w", v, specql.ErrNotSupported)
				}
				return !b, nil
			}
			return nil, fmt.Errorf("mapper: unary operator %d: %w", op, specql.ErrNotSupported)
		}, nil, nil

	case *expr.Binary:
		left, _, err := compileNode(t.Left, params)
		if err != nil {
			return nil, nil, err
		}
		right, _, err := compileNode(t.Right, params)
		if err != nil {
			return nil, nil, err
		}
		op := t.Op
		return func(values []any) (any, error) {
			lv, err := left(values)
			if err != nil {
				return nil, err
			}
			rv, err := right(values)
			if err != nil {
				return nil, err
			}
			return expr.Apply(op, lv, rv)
		}, nil, nil

	case *expr.Call:
		target, _, err := compileNode(t.Target, params)
		if err != nil {
			return nil, nil, err
		}
		args := make([]evalFunc, len(t.Args))
		for i, a := range t.Args {
			af, _, err := compileNode(a, params)
			if err != nil {
				return nil, nil, err
			}
			args[i] = af
		}
		method := t.Method
		return func(values []any) (any, error) {
			tv, err := target(values)
			if err != nil {
				return nil, err
			}
			s, ok := tv.(string)
			if !ok {
				return nil, fmt.Errorf("mapper: method %s on %T: %w", method, tv, specql.ErrNotSupported)
			}
			strs := make([]string, len(args))
			for i, af := range args {
				av, err := af(values)
				if err != nil {
					return nil, err
				}
				as, ok := av.(string)
				if !ok {
					return nil, fmt.Errorf("mapper: method %s argument %T: %w", method, av, specql.ErrNotSupported)
				}
				strs[i] = as
			}
			return expr.StringCall(method, s, strs...)
		}, nil, nil
	}
	return nil, nil, fmt.Errorf("mapper: cannot compile %T in a selector: %w", n, specql.ErrNotSupported)
}

// deferred evaluates a parameter-free subtree on every call.
func deferred(n expr.Node) evalFunc {
	return func([]any) (any, error) {
		return expr.Evaluate(n)
	}
}

// compileMember builds the field accessor. With a known struct type the
// index path is resolved now and promoted fields come along for free; with
// an unknown type the lookup happens by name at run time.
func compileMember(name string, target evalFunc, st reflect.Type) (evalFunc, reflect.Type, error) {
	elem := st
	for elem != nil && elem.Kind() == reflect.Pointer {
		elem = elem.Elem()
	}
	if elem != nil && elem.Kind() == reflect.Struct {
		sf, ok := elem.FieldByName(name)
		if !ok {
			return nil, nil, fmt.Errorf("mapper: type %s has no field %s: %w", elem, name, specql.ErrInvalidOperation)
		}
		index := sf.Index
		return func(values []any) (any, error) {
			tv, err := target(values)
			if err != nil {
				return nil, err
			}
			rv, ok := deref(tv)
			if !ok {
				return nil, nil
			}
			// A nil embedded pointer on the path propagates nil.
			f, err := rv.FieldByIndexErr(index)
			if err != nil {
				return nil, nil
			}
			return f.Interface(), nil
		}, sf.Type, nil
	}
	return func(values []any) (any, error) {
		tv, err := target(values)
		if err != nil {
			return nil, err
		}
		rv, ok := deref(tv)
		if !ok {
			return nil, nil
		}
		if rv.Kind() != reflect.Struct {
			return nil, fmt.Errorf("mapper: member %s on %s: %w", name, rv.Type(), specql.ErrNotSupported)
		}
		f := rv.FieldByName(name)
		if !f.IsValid() {
			return nil, fmt.Errorf("mapper: type %s has no field %s: %w", rv.Type(), name, specql.ErrInvalidOperation)
		}
		return f.Interface(), nil
	}, nil, nil
}

// deref unwraps pointers; a nil target yields ok false so member access
// propagates nil instead of panicking.
func deref(v any) (reflect.Value, bool) {
	if v == nil {
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		rv = rv.Elem()
	}
	return rv, true
}
