package mapper

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/specql/specql"
	"github.com/specql/specql/expr"
	"github.com/specql/specql/spec"
)

// projection applies a compiled selector to one materialized entity.
type projection func(entity any) (any, error)

var (
	projMutex   sync.RWMutex
	projections = map[*expr.Lambda]projection{}
)

// Project materializes the row as T and applies the specification's
// selector. An identity selector hands the entity back unchanged. Any other
// selector runs through a projection compiled on first use and cached for
// the process lifetime, keyed by the selector instance, so repeated rows of
// the same query pay no compilation or name lookups.
//
// Selectors that bind more than one parameter describe SQL-side projections
// over joins; their result columns already carry the result shape, so map
// those rows with One instead.
func Project[T, R any](s *spec.Specification[T, R], row Row) (R, error) {
	var zero R
	entity, err := One[T](row)
	if err != nil {
		return zero, err
	}
	def := s.Definition()
	if def == nil || def.Selector == nil || def.IdentitySelector() {
		out, ok := any(entity).(R)
		if !ok {
			return zero, fmt.Errorf("mapper: identity selector yields %T, want %s: %w",
				entity, reflect.TypeOf(&zero).Elem(), specql.ErrInvalidOperation)
		}
		return out, nil
	}
	fn, err := projectionFor(def.Selector, reflect.TypeOf(&zero).Elem())
	if err != nil {
		return zero, err
	}
	out, err := fn(entity)
	if err != nil {
		return zero, err
	}
	return out.(R), nil
}

func projectionFor(l *expr.Lambda, result reflect.Type) (projection, error) {
	projMutex.RLock()
	fn, ok := projections[l]
	projMutex.RUnlock()
	if ok {
		return fn, nil
	}

	fn, err := compileProjection(l, result)
	if err != nil {
		return nil, err
	}

	projMutex.Lock()
	if prior, ok := projections[l]; ok {
		fn = prior
	} else {
		projections[l] = fn
	}
	projMutex.Unlock()
	return fn, nil
}

func compileProjection(l *expr.Lambda, result reflect.Type) (projection, error) {
	if len(l.Params) != 1 {
		return nil, fmt.Errorf("mapper: client-side projection binds one entity, selector declares %d parameters: %w",
			len(l.Params), specql.ErrNotSupported)
	}

	if ctor, ok := l.Body.(*expr.Construct); ok && result.Kind() == reflect.Struct {
		return compileConstruct(ctor, l.Params, result)
	}

	body, _, err := compileNode(l.Body, l.Params)
	if err != nil {
		return nil, err
	}
	return func(entity any) (any, error) {
		v, err := body([]any{entity})
		if err != nil {
			return nil, err
		}
		cv, err := convert(v, result, "projection result")
		if err != nil {
			return nil, err
		}
		return cv.Interface(), nil
	}, nil
}

// fieldTarget pairs one compiled initializer with its destination field.
type fieldTarget struct {
	name  string
	index []int
	typ   reflect.Type
	value evalFunc
}

func compileConstruct(c *expr.Construct, params []*expr.Param, result reflect.Type) (projection, error) {
	targets := make([]fieldTarget, 0, len(c.Fields))
	for _, f := range c.Fields {
		sf, ok := result.FieldByName(f.Name)
		if !ok {
			return nil, fmt.Errorf("mapper: result type %s has no field %s: %w", result, f.Name, specql.ErrInvalidOperation)
		}
		if sf.PkgPath != "" {
			return nil, fmt.Errorf("mapper: result field %s.%s is unexported: %w", result, f.Name, specql.ErrInvalidOperation)
		}
		vf, _, err := compileNode(f.Value, params)
		if err != nil {
			return nil, err
		}
		targets = append(targets, fieldTarget{name: f.Name, index: sf.Index, typ: sf.Type, value: vf})
	}

	return func(entity any) (any, error) {
		values := []any{entity}
		out := reflect.New(result).Elem()
		for _, t := range targets {
			v, err := t.value(values)
			if err != nil {
				return nil, err
			}
			if v == nil {
				continue
			}
			cv, err := convert(v, t.typ, "projection field "+t.name)
			if err != nil {
				return nil, err
			}
			out.FieldByIndex(t.index).Set(cv)
		}
		return out.Interface(), nil
	}, nil
}
