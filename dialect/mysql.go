package dialect

import (
	"fmt"
	"strings"
)

// maxRowCount stands in for "no upper bound": MySQL has no OFFSET without
// LIMIT, so offset-only queries limit to the largest row count the server
// accepts.
const maxRowCount = "18446744073709551615"

// MyDialect renders MySQL syntax: backtick quoting, positional ? markers
// and LIMIT/OFFSET row limiting.
type MyDialect struct{}

func (MyDialect) Provider() Provider { return MySql }
func (MyDialect) Name() string       { return "mysql" }

func (MyDialect) QuoteIdent(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (MyDialect) Placeholder(int) string { return "?" }

// EscapeLike doubles the backslash escape character before neutralizing the
// wildcards, MySQL's default LIKE escaping.
func (MyDialect) EscapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

func (MyDialect) Limit(skip, take *int) RowLimit {
	if skip == nil && take == nil {
		return RowLimit{}
	}
	var sb strings.Builder
	sb.WriteString("LIMIT ")
	if take != nil {
		fmt.Fprintf(&sb, "%d", *take)
	} else {
		sb.WriteString(maxRowCount)
	}
	if skip != nil {
		fmt.Fprintf(&sb, " OFFSET %d", *skip)
	}
	return RowLimit{Clause: sb.String()}
}
