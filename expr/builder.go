package expr

import "reflect"

// Arg declares a lambda parameter standing for one row of T.
func Arg[T any](name string) *Param {
	return &Param{Name: name, Type: reflect.TypeOf((*T)(nil)).Elem()}
}

// Field accesses a field of the parameter's entity.
func (p *Param) Field(name string) *Member {
	return &Member{Target: p, Name: name}
}

// Field accesses a nested field, e.g. captured.Filter.MinPrice.
func (m *Member) Field(name string) *Member {
	return &Member{Target: m, Name: name}
}

// Field accesses a field of a captured value. The chain evaluates at
// compile time and feeds a statement parameter.
func (c *Constant) Field(name string) *Member {
	return &Member{Target: c, Name: name}
}

// Value wraps a literal.
func Value(v any) *Constant {
	return &Constant{Value: v}
}

// Null is the SQL NULL literal.
func Null() *Constant {
	return &Constant{Value: nil}
}

// Closure wraps a captured variable so member accesses on it evaluate at
// compile time instead of binding to a column.
func Closure(v any) *Constant {
	return &Constant{Value: v}
}

func Eq(left, right Node) *Binary  { return &Binary{Op: OpEq, Left: left, Right: right} }
func Ne(left, right Node) *Binary  { return &Binary{Op: OpNe, Left: left, Right: right} }
func Gt(left, right Node) *Binary  { return &Binary{Op: OpGt, Left: left, Right: right} }
func Ge(left, right Node) *Binary  { return &Binary{Op: OpGe, Left: left, Right: right} }
func Lt(left, right Node) *Binary  { return &Binary{Op: OpLt, Left: left, Right: right} }
func Le(left, right Node) *Binary  { return &Binary{Op: OpLe, Left: left, Right: right} }
func And(left, right Node) *Binary { return &Binary{Op: OpAnd, Left: left, Right: right} }
func Or(left, right Node) *Binary  { return &Binary{Op: OpOr, Left: left, Right: right} }
func Add(left, right Node) *Binary { return &Binary{Op: OpAdd, Left: left, Right: right} }
func Sub(left, right Node) *Binary { return &Binary{Op: OpSub, Left: left, Right: right} }
func Mul(left, right Node) *Binary { return &Binary{Op: OpMul, Left: left, Right: right} }
func Div(left, right Node) *Binary { return &Binary{Op: OpDiv, Left: left, Right: right} }
func Mod(left, right Node) *Binary { return &Binary{Op: OpMod, Left: left, Right: right} }

func Not(operand Node) *Unary { return &Unary{Op: OpNot, Operand: operand} }
func Neg(operand Node) *Unary { return &Unary{Op: OpNeg, Operand: operand} }

// Contains tests substring containment on a string operand.
func Contains(target, substr Node) *Call {
	return &Call{Target: target, Method: MethodContains, Args: []Node{substr}}
}

// StartsWith tests a string prefix.
func StartsWith(target, prefix Node) *Call {
	return &Call{Target: target, Method: MethodStartsWith, Args: []Node{prefix}}
}

// EndsWith tests a string suffix.
func EndsWith(target, suffix Node) *Call {
	return &Call{Target: target, Method: MethodEndsWith, Args: []Node{suffix}}
}

// ToLower lower-cases a string operand.
func ToLower(target Node) *Call {
	return &Call{Target: target, Method: MethodToLower}
}

// ToUpper upper-cases a string operand.
func ToUpper(target Node) *Call {
	return &Call{Target: target, Method: MethodToUpper}
}

// In tests membership of operand in a collection of values. The collection
// must be resolvable without query parameters, e.g. a captured slice.
func In(operand Node, values any) *Call {
	return &Call{Target: &Constant{Value: values}, Method: MethodContains, Args: []Node{operand}}
}

// InExpr is In with an arbitrary collection expression, such as a member
// access on a captured struct.
func InExpr(operand, collection Node) *Call {
	return &Call{Target: collection, Method: MethodContains, Args: []Node{operand}}
}

// New builds a Construct node from (name, value) pairs in order.
func New(fields ...FieldInit) *Construct {
	return &Construct{Fields: fields}
}

// Init is one field of a Construct.
func Init(name string, value Node) FieldInit {
	return FieldInit{Name: name, Value: value}
}

// NewLambda binds params to body.
func NewLambda(body Node, params ...*Param) *Lambda {
	return &Lambda{Params: params, Body: body}
}
