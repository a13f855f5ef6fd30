package mapper

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/specql/specql"
)

// constructor is one registered factory: the function plus the column names
// feeding its parameters, in parameter order.
type constructor struct {
	fn     reflect.Value
	params []string
	// hasErr marks the (T, error) form.
	hasErr bool
}

var (
	ctorMutex sync.RWMutex
	ctors     = map[reflect.Type][]constructor{}
)

// RegisterConstructor registers fn as a factory for T, with paramNames
// supplying the column name for each parameter in order. Go reflection
// cannot recover parameter names, so registration is how a type opts in to
// constructor-based mapping. fn must be func(...) T or func(...) (T, error)
// with exactly one parameter name per parameter.
//
// A row maps through the registered constructor whose parameter names all
// resolve to columns and which has the most parameters; ties go to the
// earliest registration. Rows that satisfy no constructor fall back to the
// zero value plus field population.
func RegisterConstructor[T any](fn any, paramNames ...string) error {
	target := reflect.TypeOf((*T)(nil)).Elem()
	if fn == nil {
		return fmt.Errorf("mapper: RegisterConstructor(%s): nil function: %w", target, specql.ErrInvalidArgument)
	}
	fv := reflect.ValueOf(fn)
	ft := fv.Type()
	if ft.Kind() != reflect.Func {
		return fmt.Errorf("mapper: RegisterConstructor(%s): %s is not a function: %w", target, ft, specql.ErrInvalidArgument)
	}
	if ft.IsVariadic() {
		return fmt.Errorf("mapper: RegisterConstructor(%s): variadic functions are not supported: %w", target, specql.ErrInvalidArgument)
	}
	hasErr := false
	switch ft.NumOut() {
	case 1:
	case 2:
		if ft.Out(1) != reflect.TypeOf((*error)(nil)).Elem() {
			return fmt.Errorf("mapper: RegisterConstructor(%s): second return must be error, got %s: %w", target, ft.Out(1), specql.ErrInvalidArgument)
		}
		hasErr = true
	default:
		return fmt.Errorf("mapper: RegisterConstructor(%s): function must return %s or (%s, error): %w", target, target, target, specql.ErrInvalidArgument)
	}
	if ft.Out(0) != target {
		return fmt.Errorf("mapper: RegisterConstructor(%s): function returns %s: %w", target, ft.Out(0), specql.ErrInvalidArgument)
	}
	if ft.NumIn() != len(paramNames) {
		return fmt.Errorf("mapper: RegisterConstructor(%s): %d parameters but %d names: %w", target, ft.NumIn(), len(paramNames), specql.ErrInvalidArgument)
	}
	for i, name := range paramNames {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("mapper: RegisterConstructor(%s): empty name for parameter %d: %w", target, i, specql.ErrInvalidArgument)
		}
	}
	names := make([]string, len(paramNames))
	copy(names, paramNames)

	ctorMutex.Lock()
	ctors[target] = append(ctors[target], constructor{fn: fv, params: names, hasErr: hasErr})
	ctorMutex.Unlock()
	return nil
}

// MustRegisterConstructor is RegisterConstructor that panics on a bad
// registration. Intended for package init blocks.
func MustRegisterConstructor[T any](fn any, paramNames ...string) {
	if err := RegisterConstructor[T](fn, paramNames...); err != nil {
		panic(err)
	}
}

// constructorsFor snapshots the registrations for a type in registration
// order.
func constructorsFor(t reflect.Type) []constructor {
	ctorMutex.RLock()
	defer ctorMutex.RUnlock()
	return ctors[t]
}

// chooseConstructor picks the registration whose parameter names all resolve
// in the column index, preferring the most parameters and then registration
// order. ok is false when nothing matches.
func chooseConstructor(list []constructor, ix *ColumnIndex) (constructor, bool) {
	best := -1
	for i, c := range list {
		resolved := true
		for _, p := range c.params {
			if _, ok := ix.Ordinal(p); !ok {
				resolved = false
				break
			}
		}
		if !resolved {
			continue
		}
		if best < 0 || len(c.params) > len(list[best].params) {
			best = i
		}
	}
	if best < 0 {
		return constructor{}, false
	}
	return list[best], true
}
