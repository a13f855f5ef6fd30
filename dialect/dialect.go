// Package dialect renders the provider-specific fragments of a SQL
// statement: identifier quoting, parameter markers, LIKE escaping and row
// limiting. Everything else about statement shape is provider-neutral and
// lives in the compiler.
package dialect

import (
	"fmt"
	"strings"

	"github.com/specql/specql"
)

// Provider identifies a supported database provider.
type Provider int

const (
	SqlServer Provider = iota
	MySql
	PostgreSql
)

// String returns the canonical provider token.
func (p Provider) String() string {
	switch p {
	case SqlServer:
		return "sqlserver"
	case MySql:
		return "mysql"
	case PostgreSql:
		return "postgres"
	}
	return fmt.Sprintf("provider(%d)", int(p))
}

// RowLimit is the rendered form of a skip/take restriction.
type RowLimit struct {
	// TopPrefix is injected directly after SELECT or SELECT DISTINCT,
	// e.g. "TOP 20 ". Empty for most dialects.
	TopPrefix string
	// Clause is appended after ORDER BY, e.g. "LIMIT 20 OFFSET 40" or
	// "OFFSET 40 ROWS FETCH NEXT 20 ROWS ONLY".
	Clause string
	// RequireOrderBy reports that Clause is only valid after an ORDER BY,
	// so the statement must synthesize one when none was requested.
	RequireOrderBy bool
}

// Dialect renders provider-specific SQL fragments. Implementations are
// stateless values and safe for concurrent use.
type Dialect interface {
	// Provider identifies the dialect.
	Provider() Provider
	// Name returns the provider token, e.g. "sqlserver".
	Name() string
	// QuoteIdent quotes one unqualified identifier.
	QuoteIdent(ident string) string
	// Placeholder renders the marker for the zero-based parameter ordinal:
	// "@p0", "?" or "$1".
	Placeholder(ordinal int) string
	// EscapeLike escapes LIKE wildcards inside a literal fragment. It is
	// applied to parameter values before wildcards are appended, never to
	// SQL text.
	EscapeLike(s string) string
	// Limit renders the row restriction for the given skip and take row
	// counts; nil means the bound is absent. Both nil yields a zero
	// RowLimit. Skip and take are embedded as literals so that parameter
	// lists stay identical across dialects.
	Limit(skip, take *int) RowLimit
}

// ForProvider returns the dialect for p.
func ForProvider(p Provider) (Dialect, error) {
	switch p {
	case SqlServer:
		return MsDialect{}, nil
	case MySql:
		return MyDialect{}, nil
	case PostgreSql:
		return PostgreDialect{}, nil
	}
	return nil, fmt.Errorf("dialect: unknown provider %d (supported: sqlserver, mysql, postgres): %w",
		int(p), specql.ErrInvalidArgument)
}

// Parse resolves a provider from a free-form name: a canonical token, a Go
// driver name or an ADO-style invariant name. Matching is case-insensitive
// and tolerant of qualifiers, so "Microsoft.Data.SqlClient", "MariaDB" and
// "pgx/v5" all resolve.
func Parse(name string) (Provider, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch {
	case contains(n, "sqlserver", "mssql", "sqlclient", "microsoft"):
		return SqlServer, nil
	case contains(n, "mysql", "mariadb"):
		return MySql, nil
	case contains(n, "postgres", "npgsql", "pgx", "pgsql"):
		return PostgreSql, nil
	}
	return 0, fmt.Errorf("dialect: unknown provider %q (supported: sqlserver, mysql, postgres): %w",
		name, specql.ErrInvalidArgument)
}

// ForName is Parse followed by ForProvider.
func ForName(name string) (Dialect, error) {
	p, err := Parse(name)
	if err != nil {
		return nil, err
	}
	return ForProvider(p)
}

// QuoteParts quotes each part of a schema-qualified name and rejoins them:
// ["sales", "Order"] -> "[sales].[Order]".
func QuoteParts(d Dialect, parts []string) string {
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = d.QuoteIdent(p)
	}
	return strings.Join(quoted, ".")
}

func contains(s string, tokens ...string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
