package filter

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// The raw parse tree mirrors the grammar one struct per production;
// conversion to expression nodes happens afterwards.

// Expression is the root: or-separated clauses.
type Expression struct {
	Pos lexer.Position
	Or  []*AndClause `parser:"@@ ( \"or\" @@ )*"`
}

// AndClause groups and-separated conditions.
type AndClause struct {
	And []*Condition `parser:"@@ ( \"and\" @@ )*"`
}

// Condition is an optionally negated comparison.
type Condition struct {
	Not *Condition  `parser:"  \"not\" @@"`
	Cmp *Comparison `parser:"| @@"`
}

// Comparison relates an operand to a right-hand operand, a value list or
// nothing at all. A bare operand is a boolean member test.
type Comparison struct {
	Pos   lexer.Position
	Left  *Operand   `parser:"@@"`
	Op    string     `parser:"( @(\"==\" | \"!=\" | \"<=\" | \">=\" | \"<\" | \">\")"`
	Right *Operand   `parser:"  @@"`
	In    *ValueList `parser:"| \"in\" @@ )?"`
}

// ValueList is the bracketed collection of an "in" test.
type ValueList struct {
	Pos    lexer.Position
	Values []*Literal `parser:"\"[\" ( @@ ( \",\" @@ )* )? \"]\""`
}

// Operand is an additive chain over terms.
type Operand struct {
	Left *Term     `parser:"@@"`
	Rest []*OpTerm `parser:"@@*"`
}

type OpTerm struct {
	Op   string `parser:"@(\"+\" | \"-\")"`
	Term *Term  `parser:"@@"`
}

// Term is a multiplicative chain over factors.
type Term struct {
	Left *Factor     `parser:"@@"`
	Rest []*OpFactor `parser:"@@*"`
}

type OpFactor struct {
	Op     string  `parser:"@(\"*\" | \"/\" | \"%\")"`
	Factor *Factor `parser:"@@"`
}

// Factor is a call, a literal, a member path or a parenthesized expression.
type Factor struct {
	Pos     lexer.Position
	Call    *Call       `parser:"  @@"`
	Literal *Literal    `parser:"| @@"`
	Member  *MemberPath `parser:"| @@"`
	Paren   *Expression `parser:"| \"(\" @@ \")\""`
}

// Call applies one of the string functions.
type Call struct {
	Pos  lexer.Position
	Func string     `parser:"@Ident"`
	Args []*Operand `parser:"\"(\" @@ ( \",\" @@ )* \")\""`
}

// MemberPath names an entity field, optionally dotted.
type MemberPath struct {
	Pos  lexer.Position
	Path []string `parser:"@Ident ( \".\" @Ident )*"`
}

// Literal is a quoted string, a number, a boolean or null.
type Literal struct {
	Pos    lexer.Position
	Str    *string `parser:"  @String"`
	Number *Number `parser:"| @@"`
	True   bool    `parser:"| @\"true\""`
	False  bool    `parser:"| @\"false\""`
	Null   bool    `parser:"| @\"null\""`
}

// Number keeps the sign apart so the lexer's minus stays an operator.
type Number struct {
	Neg bool   `parser:"( @\"-\" )?"`
	Val string `parser:"@Number"`
}
