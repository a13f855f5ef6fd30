package dialect

import (
	"fmt"
	"strings"
)

// MsDialect renders SQL Server syntax: bracket quoting, named @pN markers
// and TOP or OFFSET/FETCH row limiting.
type MsDialect struct{}

func (MsDialect) Provider() Provider { return SqlServer }
func (MsDialect) Name() string       { return "sqlserver" }

func (MsDialect) QuoteIdent(ident string) string {
	return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
}

func (MsDialect) Placeholder(ordinal int) string {
	return fmt.Sprintf("@p%d", ordinal)
}

// EscapeLike neutralizes wildcards with bracket character classes, the SQL
// Server form that needs no ESCAPE clause.
func (MsDialect) EscapeLike(s string) string {
	s = strings.ReplaceAll(s, "[", "[[]")
	s = strings.ReplaceAll(s, "%", "[%]")
	s = strings.ReplaceAll(s, "_", "[_]")
	return s
}

// Limit renders TOP when only a take is given. Any skip switches to
// OFFSET/FETCH, which SQL Server only accepts after an ORDER BY.
func (MsDialect) Limit(skip, take *int) RowLimit {
	if skip == nil && take == nil {
		return RowLimit{}
	}
	if skip == nil {
		return RowLimit{TopPrefix: fmt.Sprintf("TOP %d ", *take)}
	}
	clause := fmt.Sprintf("OFFSET %d ROWS", *skip)
	if take != nil {
		clause += fmt.Sprintf(" FETCH NEXT %d ROWS ONLY", *take)
	}
	return RowLimit{Clause: clause, RequireOrderBy: true}
}
