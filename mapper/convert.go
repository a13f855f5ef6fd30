package mapper

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/specql/specql"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
	bytesType   = reflect.TypeOf([]byte(nil))
)

// scalarType reports whether t maps from a single column with no object
// graph: numerics (named types included), bool, string, time.Time,
// uuid.UUID, decimal.Decimal and []byte.
func scalarType(t reflect.Type) bool {
	switch t {
	case timeType, uuidType, decimalType, bytesType:
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// convert coerces a column value to a target type. nil inputs yield the
// target's zero value; callers that must skip NULL columns check before
// calling. Drivers hand back a narrow set of types (int64, float64, bool,
// string, []byte, time.Time), so conversion is a type switch plus string
// parsing for the textual encodings MySQL and SQLite produce.
func convert(value any, target reflect.Type, label string) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(target), nil
	}
	for target.Kind() == reflect.Pointer {
		elem, err := convert(value, target.Elem(), label)
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(target.Elem())
		p.Elem().Set(elem)
		return p, nil
	}

	rv := reflect.ValueOf(value)
	if rv.Type() == target {
		return rv, nil
	}
	if rv.Type().AssignableTo(target) {
		return rv.Convert(target), nil
	}

	switch target {
	case timeType:
		return convertTime(value, label)
	case uuidType:
		return convertUUID(value, label)
	case decimalType:
		return convertDecimal(value, label)
	case bytesType:
		if s, ok := value.(string); ok {
			return reflect.ValueOf([]byte(s)), nil
		}
		return reflect.Value{}, convErr(value, target, label)
	}

	switch target.Kind() {
	case reflect.Bool:
		b, err := convertBool(value, label)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(b).Convert(target), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := convertInt(value, target, label)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(target).Elem()
		out.SetInt(i)
		return out, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		i, err := convertInt(value, target, label)
		if err != nil {
			return reflect.Value{}, err
		}
		if i < 0 {
			return reflect.Value{}, fmt.Errorf("mapper: %s: negative value %d for %s: %w", label, i, target, specql.ErrInvalidArgument)
		}
		out := reflect.New(target).Elem()
		out.SetUint(uint64(i))
		return out, nil
	case reflect.Float32, reflect.Float64:
		f, err := convertFloat(value, label)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(target).Elem()
		out.SetFloat(f)
		return out, nil
	case reflect.String:
		switch t := value.(type) {
		case []byte:
			return reflect.ValueOf(string(t)).Convert(target), nil
		case string:
			return reflect.ValueOf(t).Convert(target), nil
		}
		return reflect.Value{}, convErr(value, target, label)
	}

	if rv.Type().ConvertibleTo(target) {
		return rv.Convert(target), nil
	}
	return reflect.Value{}, convErr(value, target, label)
}

func convErr(value any, target reflect.Type, label string) error {
	return fmt.Errorf("mapper: %s: cannot convert %T to %s: %w", label, value, target, specql.ErrInvalidArgument)
}

func convertBool(value any, label string) (bool, error) {
	switch t := value.(type) {
	case bool:
		return t, nil
	case int64:
		return t != 0, nil
	case []byte:
		return parseBool(string(t), value, label)
	case string:
		return parseBool(t, value, label)
	}
	return false, convErr(value, reflect.TypeOf(true), label)
}

func parseBool(s string, value any, label string) (bool, error) {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, convErr(value, reflect.TypeOf(true), label)
	}
	return b, nil
}

func convertInt(value any, target reflect.Type, label string) (int64, error) {
	switch t := value.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case uint64:
		return int64(t), nil
	case float64:
		return int64(t), nil
	case []byte:
		i, err := strconv.ParseInt(string(t), 10, 64)
		if err != nil {
			return 0, convErr(value, target, label)
		}
		return i, nil
	case string:
		i, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, convErr(value, target, label)
		}
		return i, nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	}
	return 0, convErr(value, target, label)
}

func convertFloat(value any, label string) (float64, error) {
	target := reflect.TypeOf(float64(0))
	switch t := value.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case int:
		return float64(t), nil
	case []byte:
		f, err := strconv.ParseFloat(string(t), 64)
		if err != nil {
			return 0, convErr(value, target, label)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, convErr(value, target, label)
		}
		return f, nil
	}
	return 0, convErr(value, target, label)
}

// timeLayouts are tried in order for drivers that return times as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func convertTime(value any, label string) (reflect.Value, error) {
	var s string
	switch t := value.(type) {
	case time.Time:
		return reflect.ValueOf(t), nil
	case []byte:
		s = string(t)
	case string:
		s = t
	default:
		return reflect.Value{}, convErr(value, timeType, label)
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return reflect.ValueOf(ts), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("mapper: %s: cannot parse %q as time: %w", label, s, specql.ErrInvalidArgument)
}

func convertUUID(value any, label string) (reflect.Value, error) {
	switch t := value.(type) {
	case uuid.UUID:
		return reflect.ValueOf(t), nil
	case string:
		id, err := uuid.Parse(t)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("mapper: %s: %v: %w", label, err, specql.ErrInvalidArgument)
		}
		return reflect.ValueOf(id), nil
	case []byte:
		if len(t) == 16 {
			id, err := uuid.FromBytes(t)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("mapper: %s: %v: %w", label, err, specql.ErrInvalidArgument)
			}
			return reflect.ValueOf(id), nil
		}
		id, err := uuid.ParseBytes(t)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("mapper: %s: %v: %w", label, err, specql.ErrInvalidArgument)
		}
		return reflect.ValueOf(id), nil
	}
	return reflect.Value{}, convErr(value, uuidType, label)
}

func convertDecimal(value any, label string) (reflect.Value, error) {
	switch t := value.(type) {
	case decimal.Decimal:
		return reflect.ValueOf(t), nil
	case string:
		d, err := decimal.NewFromString(t)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("mapper: %s: %v: %w", label, err, specql.ErrInvalidArgument)
		}
		return reflect.ValueOf(d), nil
	case []byte:
		d, err := decimal.NewFromString(string(t))
		if err != nil {
			return reflect.Value{}, fmt.Errorf("mapper: %s: %v: %w", label, err, specql.ErrInvalidArgument)
		}
		return reflect.ValueOf(d), nil
	case int64:
		return reflect.ValueOf(decimal.NewFromInt(t)), nil
	case float64:
		return reflect.ValueOf(decimal.NewFromFloat(t)), nil
	}
	return reflect.Value{}, convErr(value, decimalType, label)
}
