package dialect

import (
	"fmt"
	"strings"
)

// PostgreDialect renders PostgreSQL syntax: double-quote quoting, $N
// markers and independent LIMIT/OFFSET clauses.
type PostgreDialect struct{}

func (PostgreDialect) Provider() Provider { return PostgreSql }
func (PostgreDialect) Name() string       { return "postgres" }

func (PostgreDialect) QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// Placeholder markers are one-based: ordinal 0 renders as $1.
func (PostgreDialect) Placeholder(ordinal int) string {
	return fmt.Sprintf("$%d", ordinal+1)
}

// EscapeLike doubles the backslash escape character before neutralizing the
// wildcards, the default LIKE escaping under standard_conforming_strings.
func (PostgreDialect) EscapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

func (PostgreDialect) Limit(skip, take *int) RowLimit {
	var parts []string
	if take != nil {
		parts = append(parts, fmt.Sprintf("LIMIT %d", *take))
	}
	if skip != nil {
		parts = append(parts, fmt.Sprintf("OFFSET %d", *skip))
	}
	return RowLimit{Clause: strings.Join(parts, " ")}
}
