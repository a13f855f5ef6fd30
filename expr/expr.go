// Package expr defines the expression AST used for predicates, selectors,
// ordering keys and update values.
//
// Nodes are immutable once built. The compiler only reads them, so a node
// (or a whole lambda) can be shared between specifications and across
// goroutines.
package expr

import "reflect"

// Node is a node in the expression tree.
//
// The interface is sealed: only types in this package implement it, which
// keeps type switches in the translator exhaustive.
type Node interface {
	node()
}

// BinaryOp identifies a binary operator.
type BinaryOp int

const (
	OpEq BinaryOp = iota
	OpNe
	OpGt
	OpGe
	OpLt
	OpLe
	OpAnd
	OpOr
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
)

// Token returns the SQL token for the operator.
func (op BinaryOp) Token() string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "<>"
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	}
	return "?"
}

// UnaryOp identifies a unary operator.
type UnaryOp int

const (
	// OpNot is logical negation.
	OpNot UnaryOp = iota
	// OpNeg is arithmetic negation.
	OpNeg
	// OpConvert marks a type conversion. The translator passes the operand
	// through unchanged; the node only records caller intent.
	OpConvert
)

// Binary applies a binary operator to two operands.
type Binary struct {
	Op    BinaryOp
	Left  Node
	Right Node
}

// Unary applies a unary operator to one operand.
type Unary struct {
	Op      UnaryOp
	Operand Node
}

// Member accesses a named member of its target. When the target is a bound
// query parameter the member renders as a column reference; otherwise the
// access is evaluated at compile time.
type Member struct {
	Target Node
	Name   string
}

// Constant holds a literal value. A nil Value renders as the SQL literal
// NULL; any other value becomes a statement parameter.
type Constant struct {
	Value any
}

// Call represents a method invocation: string operations (Contains,
// StartsWith, EndsWith, ToLower, ToUpper) and collection membership
// (Contains over a value list).
type Call struct {
	Target Node
	Method string
	Args   []Node
}

// Param is a parameter slot: a stand-in for one row of the entity type it
// declares. Identity is pointer identity; two Params with the same name
// and type are still distinct slots.
type Param struct {
	Name string
	Type reflect.Type
}

// FieldInit is one (name, value) pair of a Construct node.
type FieldInit struct {
	Name  string
	Value Node
}

// Construct builds a value out of named fields, in declaration order. It is
// the selector shape for multi-member projections; each field renders as an
// aliased result column.
type Construct struct {
	Fields []FieldInit
}

// Lambda binds parameters to a body expression. Predicates use one or two
// parameters; selectors, ordering keys and update values use one.
type Lambda struct {
	Params []*Param
	Body   Node
}

func (*Binary) node()    {}
func (*Unary) node()     {}
func (*Member) node()    {}
func (*Constant) node()  {}
func (*Call) node()      {}
func (*Param) node()     {}
func (*Construct) node() {}

// Method names recognized by the translator.
const (
	MethodContains   = "Contains"
	MethodStartsWith = "StartsWith"
	MethodEndsWith   = "EndsWith"
	MethodToLower    = "ToLower"
	MethodToUpper    = "ToUpper"
)
