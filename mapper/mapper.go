package mapper

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/specql/specql"
	"github.com/specql/specql/schema"
)

// One materializes a single row as R.
//
// Scalar result types (numerics, bool, string, time.Time, uuid.UUID,
// decimal.Decimal, []byte) read column 0 and return the zero value on NULL.
// Struct results go through constructor selection and field population:
// the chosen registered constructor runs first, then every remaining mapped
// field with a matching column is set, skipping NULL columns. R may also be
// a pointer to a struct.
func One[R any](row Row) (R, error) {
	var zero R
	rt := reflect.TypeOf(&zero).Elem()

	if rt.Kind() == reflect.Pointer && rt.Elem().Kind() == reflect.Struct && !scalarType(rt.Elem()) {
		out, err := mapValue(rt.Elem(), row)
		if err != nil {
			return zero, err
		}
		p := reflect.New(rt.Elem())
		p.Elem().Set(out)
		return p.Interface().(R), nil
	}

	out, err := mapValue(rt, row)
	if err != nil {
		return zero, err
	}
	return out.Interface().(R), nil
}

func mapValue(rt reflect.Type, row Row) (reflect.Value, error) {
	if scalarType(rt) {
		return mapScalar(rt, row)
	}
	if rt.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("mapper: cannot materialize %s: %w", rt, specql.ErrNotSupported)
	}
	return mapStruct(rt, row)
}

func mapScalar(rt reflect.Type, row Row) (reflect.Value, error) {
	if row.ColumnCount() == 0 {
		return reflect.Value{}, fmt.Errorf("mapper: row has no columns: %w", specql.ErrInvalidOperation)
	}
	v := row.Value(0)
	if v == nil {
		return reflect.Zero(rt), nil
	}
	return convert(v, rt, "column "+row.ColumnName(0))
}

func mapStruct(rt reflect.Type, row Row) (reflect.Value, error) {
	tbl, err := schema.For(rt)
	if err != nil {
		return reflect.Value{}, err
	}
	ix := indexOf(row)

	out := reflect.New(rt).Elem()
	consumed := map[string]bool{}

	if list := constructorsFor(rt); len(list) > 0 {
		if ctor, ok := chooseConstructor(list, ix); ok {
			built, err := invoke(ctor, rt, row, ix)
			if err != nil {
				return reflect.Value{}, err
			}
			out.Set(built)
			for _, p := range ctor.params {
				consumed[strings.ToLower(p)] = true
			}
		}
	}

	for _, col := range tbl.Columns {
		if consumed[strings.ToLower(col.Name)] {
			continue
		}
		ord, ok := ix.Ordinal(col.Name)
		if !ok {
			continue
		}
		v := row.Value(ord)
		if v == nil {
			continue
		}
		fv := out.FieldByIndex(col.Index)
		if !fv.CanSet() {
			continue
		}
		cv, err := convert(v, col.Type, "column "+row.ColumnName(ord))
		if err != nil {
			return reflect.Value{}, err
		}
		fv.Set(cv)
	}
	return out, nil
}

// invoke calls a chosen constructor with column values converted to its
// parameter types. NULL arguments become the parameter's zero value.
func invoke(c constructor, rt reflect.Type, row Row, ix *ColumnIndex) (reflect.Value, error) {
	ft := c.fn.Type()
	args := make([]reflect.Value, ft.NumIn())
	for i, name := range c.params {
		ord, _ := ix.Ordinal(name)
		v, err := convert(row.Value(ord), ft.In(i), "column "+row.ColumnName(ord))
		if err != nil {
			return reflect.Value{}, err
		}
		args[i] = v
	}
	rets := c.fn.Call(args)
	if c.hasErr && !rets[1].IsNil() {
		return reflect.Value{}, fmt.Errorf("mapper: constructor for %s: %w", rt, rets[1].Interface().(error))
	}
	return rets[0], nil
}
