// Package compiler turns completed specifications into provider-specific
// SQL statements: it resolves table bindings, translates expression trees
// and assembles SELECT, COUNT, INSERT, UPDATE and DELETE statements.
package compiler

// Param is one ordered statement parameter. Names carry no dialect prefix;
// executors add "@", "$" or bind positionally as the driver requires.
type Param struct {
	Name  string
	Value any
}

// Statement is the immutable result of one compile call: the SQL text and
// its ordered parameter list. Parameter names are unique per statement
// (p0, p1, ...), in first-use order.
type Statement struct {
	SQL    string
	Params []Param
}

// Empty is the identity for "nothing to execute", e.g. a batch insert of
// zero entities.
var Empty = Statement{}

// IsEmpty reports whether the statement carries no SQL.
func (s Statement) IsEmpty() bool { return s.SQL == "" }

// Values returns just the parameter values, in order.
func (s Statement) Values() []any {
	if len(s.Params) == 0 {
		return nil
	}
	out := make([]any, len(s.Params))
	for i, p := range s.Params {
		out[i] = p.Value
	}
	return out
}
