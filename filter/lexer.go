package filter

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// filterLexer tokenizes the textual predicate language.
var filterLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Keywords bind tighter than identifiers.
	{Name: "Keyword", Pattern: `\b(and|or|not|in|true|false|null)\b`},

	// Two-character comparison operators before the one-character ones.
	{Name: "Op", Pattern: `==|!=|<=|>=|<|>`},
	{Name: "Arith", Pattern: `[-+*/%]`},

	// Punctuation
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
	{Name: "LBracket", Pattern: `\[`},
	{Name: "RBracket", Pattern: `\]`},
	{Name: "Comma", Pattern: `,`},
	{Name: "Dot", Pattern: `\.`},

	// Literals
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Number", Pattern: `\d+(?:\.\d+)?`},

	// Identifiers name entity fields or functions.
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z_0-9]*`},

	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})
