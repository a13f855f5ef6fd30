package expr

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/specql/specql"
)

// Evaluate computes the value of a parameter-free subtree: captured
// constants, member chains on captured values, string methods and basic
// arithmetic. The translator uses it for every operand that does not bind
// to a column.
//
// Reaching a query parameter makes the subtree non-evaluable and yields an
// error matching specql.ErrNotSupported.
func Evaluate(n Node) (any, error) {
	switch t := n.(type) {
	case *Constant:
		return t.Value, nil
	case *Param:
		return nil, fmt.Errorf("evaluate: expression references query parameter %q: %w", t.Name, specql.ErrNotSupported)
	case *Member:
		target, err := Evaluate(t.Target)
		if err != nil {
			return nil, err
		}
		return member(target, t.Name)
	case *Unary:
		operand, err := Evaluate(t.Operand)
		if err != nil {
			return nil, err
		}
		switch t.Op {
		case OpConvert:
			return operand, nil
		case OpNot:
			b, ok := operand.(bool)
			if !ok {
				return nil, fmt.Errorf("evaluate: NOT applied to %T: %w", operand, specql.ErrNotSupported)
			}
			return !b, nil
		case OpNeg:
			return Negate(operand)
		}
		return nil, fmt.Errorf("evaluate: unary operator %d: %w", t.Op, specql.ErrNotSupported)
	case *Binary:
		left, err := Evaluate(t.Left)
		if err != nil {
			return nil, err
		}
		right, err := Evaluate(t.Right)
		if err != nil {
			return nil, err
		}
		return Apply(t.Op, left, right)
	case *Call:
		return evalCall(t)
	}
	return nil, fmt.Errorf("evaluate: %T node: %w", n, specql.ErrNotSupported)
}

// Apply computes a binary operator over two evaluated operands, dispatching
// between arithmetic and comparison/logical semantics.
func Apply(op BinaryOp, left, right any) (any, error) {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return Arithmetic(op, left, right)
	default:
		return Compare(op, left, right)
	}
}

func evalCall(c *Call) (any, error) {
	target, err := Evaluate(c.Target)
	if err != nil {
		return nil, err
	}
	s, ok := target.(string)
	if !ok {
		return nil, fmt.Errorf("evaluate: method %s on %T: %w", c.Method, target, specql.ErrNotSupported)
	}
	args := make([]string, 0, len(c.Args))
	for _, a := range c.Args {
		v, err := Evaluate(a)
		if err != nil {
			return nil, err
		}
		as, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("evaluate: method %s argument %T: %w", c.Method, v, specql.ErrNotSupported)
		}
		args = append(args, as)
	}
	return StringCall(c.Method, s, args...)
}

// StringCall applies a named string method to an evaluated receiver.
// ToLower and ToUpper take no arguments; Contains, StartsWith and EndsWith
// take one and return a bool.
func StringCall(method, target string, args ...string) (any, error) {
	switch method {
	case MethodToLower:
		return strings.ToLower(target), nil
	case MethodToUpper:
		return strings.ToUpper(target), nil
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("evaluate: method %s wants one argument, got %d: %w", method, len(args), specql.ErrNotSupported)
	}
	switch method {
	case MethodContains:
		return strings.Contains(target, args[0]), nil
	case MethodStartsWith:
		return strings.HasPrefix(target, args[0]), nil
	case MethodEndsWith:
		return strings.HasSuffix(target, args[0]), nil
	}
	return nil, fmt.Errorf("evaluate: method %s: %w", method, specql.ErrNotSupported)
}

// member resolves a field on a captured struct or a key in a string map.
func member(target any, name string) (any, error) {
	if target == nil {
		return nil, fmt.Errorf("evaluate: member %s on nil: %w", name, specql.ErrInvalidOperation)
	}
	rv := reflect.ValueOf(target)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("evaluate: member %s on nil %s: %w", name, rv.Type(), specql.ErrInvalidOperation)
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		f := rv.FieldByName(name)
		if !f.IsValid() {
			return nil, fmt.Errorf("evaluate: type %s has no field %s: %w", rv.Type(), name, specql.ErrInvalidOperation)
		}
		return f.Interface(), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, nil
		}
		return v.Interface(), nil
	}
	return nil, fmt.Errorf("evaluate: member %s on %s: %w", name, rv.Type(), specql.ErrNotSupported)
}

// Negate flips the sign of an evaluated numeric operand.
func Negate(v any) (any, error) {
	if i, ok := asInt(v); ok {
		return -i, nil
	}
	if f, ok := asFloat(v); ok {
		return -f, nil
	}
	return nil, fmt.Errorf("evaluate: negate %T: %w", v, specql.ErrNotSupported)
}

// Arithmetic computes +, -, *, / or % over evaluated operands. Integers stay
// integers; mixed operands promote to float64; + concatenates strings.
func Arithmetic(op BinaryOp, left, right any) (any, error) {
	if op == OpAdd {
		if ls, ok := left.(string); ok {
			if rs, ok := right.(string); ok {
				return ls + rs, nil
			}
		}
	}
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
	default:
		return nil, fmt.Errorf("evaluate: operator %s: %w", op.Token(), specql.ErrNotSupported)
	}
	li, lok := asInt(left)
	ri, rok := asInt(right)
	if lok && rok {
		return intArith(op, li, ri)
	}
	lf, lok := asFloat(left)
	rf, rok := asFloat(right)
	if lok && rok {
		return floatArith(op, lf, rf)
	}
	return nil, fmt.Errorf("evaluate: operator %s on %T and %T: %w", op.Token(), left, right, specql.ErrNotSupported)
}

// Compare computes a comparison or logical operator over evaluated operands.
// Equality uses Go semantics, so nil equals nil; ordering requires two
// numerics, two strings or two times.
func Compare(op BinaryOp, left, right any) (any, error) {
	switch op {
	case OpAnd, OpOr:
		lb, lok := left.(bool)
		rb, rok := right.(bool)
		if !lok || !rok {
			return nil, fmt.Errorf("evaluate: operator %s on %T and %T: %w", op.Token(), left, right, specql.ErrNotSupported)
		}
		if op == OpAnd {
			return lb && rb, nil
		}
		return lb || rb, nil
	case OpEq, OpNe:
		eq, err := equal(left, right)
		if err != nil {
			return nil, err
		}
		if op == OpNe {
			return !eq, nil
		}
		return eq, nil
	case OpLt, OpLe, OpGt, OpGe:
		c, err := order(left, right)
		if err != nil {
			return nil, fmt.Errorf("evaluate: operator %s: %w", op.Token(), err)
		}
		switch op {
		case OpLt:
			return c < 0, nil
		case OpLe:
			return c <= 0, nil
		case OpGt:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	}
	return nil, fmt.Errorf("evaluate: operator %s: %w", op.Token(), specql.ErrNotSupported)
}

func equal(left, right any) (bool, error) {
	if left == nil || right == nil {
		return left == nil && right == nil, nil
	}
	if lt, ok := left.(time.Time); ok {
		if rt, ok := right.(time.Time); ok {
			return lt.Equal(rt), nil
		}
	}
	li, lok := asInt(left)
	ri, rok := asInt(right)
	if lok && rok {
		return li == ri, nil
	}
	lf, lok := asFloat(left)
	rf, rok := asFloat(right)
	if lok && rok {
		return lf == rf, nil
	}
	if !reflect.TypeOf(left).Comparable() || !reflect.TypeOf(right).Comparable() {
		return false, fmt.Errorf("evaluate: equality on %T and %T: %w", left, right, specql.ErrNotSupported)
	}
	return left == right, nil
}

// order returns -1, 0 or 1; nil operands do not order.
func order(left, right any) (int, error) {
	li, lok := asInt(left)
	ri, rok := asInt(right)
	if lok && rok {
		switch {
		case li < ri:
			return -1, nil
		case li > ri:
			return 1, nil
		}
		return 0, nil
	}
	lf, lok := asFloat(left)
	rf, rok := asFloat(right)
	if lok && rok {
		switch {
		case lf < rf:
			return -1, nil
		case lf > rf:
			return 1, nil
		}
		return 0, nil
	}
	if ls, ok := left.(string); ok {
		if rs, ok := right.(string); ok {
			return strings.Compare(ls, rs), nil
		}
	}
	if lt, ok := left.(time.Time); ok {
		if rt, ok := right.(time.Time); ok {
			switch {
			case lt.Before(rt):
				return -1, nil
			case lt.After(rt):
				return 1, nil
			}
			return 0, nil
		}
	}
	return 0, fmt.Errorf("ordering %T against %T: %w", left, right, specql.ErrNotSupported)
}

func intArith(op BinaryOp, l, r int64) (any, error) {
	switch op {
	case OpAdd:
		return l + r, nil
	case OpSub:
		return l - r, nil
	case OpMul:
		return l * r, nil
	case OpDiv:
		if r == 0 {
			return nil, fmt.Errorf("evaluate: division by zero: %w", specql.ErrInvalidOperation)
		}
		return l / r, nil
	case OpMod:
		if r == 0 {
			return nil, fmt.Errorf("evaluate: division by zero: %w", specql.ErrInvalidOperation)
		}
		return l % r, nil
	}
	return nil, fmt.Errorf("evaluate: operator %s: %w", op.Token(), specql.ErrNotSupported)
}

func floatArith(op BinaryOp, l, r float64) (any, error) {
	switch op {
	case OpAdd:
		return l + r, nil
	case OpSub:
		return l - r, nil
	case OpMul:
		return l * r, nil
	case OpDiv:
		return l / r, nil
	}
	return nil, fmt.Errorf("evaluate: operator %s on floats: %w", op.Token(), specql.ErrNotSupported)
}

func asInt(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		return int64(t), true
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		return int64(t), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	if i, ok := asInt(v); ok {
		return float64(i), true
	}
	switch t := v.(type) {
	case float32:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}
