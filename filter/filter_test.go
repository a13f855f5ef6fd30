package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specql/specql"
	"github.com/specql/specql/compiler"
	"github.com/specql/specql/dialect"
	"github.com/specql/specql/expr"
	"github.com/specql/specql/spec"
)

type Product struct {
	ID       int64   `db:"Id,identity"`
	Name     string  `db:"Name"`
	IsActive bool    `db:"IsActive"`
	Price    float64 `db:"Price"`
}

const selectProduct = "SELECT t0.[Id], t0.[Name], t0.[IsActive], t0.[Price] FROM [Product] t0"

// compileMs runs input through Predicate, a Product specification and the
// SQL Server compiler, so assertions can pin the full rendered statement.
func compileMs(t *testing.T, input string) compiler.Statement {
	t.Helper()
	pred, err := Predicate(input)
	require.NoError(t, err)
	s, err := spec.For[Product]().Where(pred).Select()
	require.NoError(t, err)
	stmt, err := compiler.New(dialect.MsDialect{}).Select(s.Definition())
	require.NoError(t, err)
	return stmt
}

func TestPredicateSQL(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		where  string
		params []compiler.Param
	}{
		{
			name:   "string equality",
			input:  `name == "anvil"`,
			where:  "(t0.[Name] = @p0)",
			params: []compiler.Param{{Name: "p0", Value: "anvil"}},
		},
		{
			name:   "and with bare boolean member",
			input:  `price > 3 and isactive`,
			where:  "((t0.[Price] > @p0) AND (t0.[IsActive] = @p1))",
			params: []compiler.Param{{Name: "p0", Value: int64(3)}, {Name: "p1", Value: true}},
		},
		{
			name:   "negated bare member",
			input:  `not isactive`,
			where:  "(NOT (t0.[IsActive] = @p0))",
			params: []compiler.Param{{Name: "p0", Value: true}},
		},
		{
			name:   "parenthesized bare member",
			input:  `(isactive)`,
			where:  "(t0.[IsActive] = @p0)",
			params: []compiler.Param{{Name: "p0", Value: true}},
		},
		{
			name:   "negated boolean group",
			input:  `not (isactive or price > 5)`,
			where:  "(NOT ((t0.[IsActive] = @p0) OR (t0.[Price] > @p1)))",
			params: []compiler.Param{{Name: "p0", Value: true}, {Name: "p1", Value: int64(5)}},
		},
		{
			name:   "contains renders LIKE",
			input:  `contains(name, "bolt")`,
			where:  "(t0.[Name] LIKE @p0)",
			params: []compiler.Param{{Name: "p0", Value: "%bolt%"}},
		},
		{
			name:   "endswith renders trailing wildcard only",
			input:  `endswith(name, "x")`,
			where:  "(t0.[Name] LIKE @p0)",
			params: []compiler.Param{{Name: "p0", Value: "%x"}},
		},
		{
			name:   "nested tolower inside startswith",
			input:  `startswith(tolower(name), "an")`,
			where:  "(LOWER(t0.[Name]) LIKE @p0)",
			params: []compiler.Param{{Name: "p0", Value: "an%"}},
		},
		{
			name:  "membership list",
			input: `id in [1, 2, 3]`,
			where: "(t0.[Id] IN (@p0, @p1, @p2))",
			params: []compiler.Param{
				{Name: "p0", Value: int64(1)},
				{Name: "p1", Value: int64(2)},
				{Name: "p2", Value: int64(3)},
			},
		},
		{
			name:   "arithmetic on the left side",
			input:  `price * 2 <= 10`,
			where:  "((t0.[Price] * @p0) <= @p1)",
			params: []compiler.Param{{Name: "p0", Value: int64(2)}, {Name: "p1", Value: int64(10)}},
		},
		{
			name:  "grouping overrides precedence",
			input: `(name == "a" or name == "b") and price > 1`,
			where: "(((t0.[Name] = @p0) OR (t0.[Name] = @p1)) AND (t0.[Price] > @p2))",
			params: []compiler.Param{
				{Name: "p0", Value: "a"},
				{Name: "p1", Value: "b"},
				{Name: "p2", Value: int64(1)},
			},
		},
		{
			name:  "null equality rewrites to IS NULL",
			input: `name == null`,
			where: "(t0.[Name] IS NULL)",
		},
		{
			name:  "null inequality rewrites to IS NOT NULL",
			input: `name != null`,
			where: "(t0.[Name] IS NOT NULL)",
		},
		{
			name:   "identifiers resolve case-insensitively",
			input:  `PRICE >= 1.5`,
			where:  "(t0.[Price] >= @p0)",
			params: []compiler.Param{{Name: "p0", Value: 1.5}},
		},
		{
			name:   "negative number literal",
			input:  `price > -2`,
			where:  "(t0.[Price] > @p0)",
			params: []compiler.Param{{Name: "p0", Value: int64(-2)}},
		},
		{
			name:   "false literal comparison",
			input:  `isactive == false`,
			where:  "(t0.[IsActive] = @p0)",
			params: []compiler.Param{{Name: "p0", Value: false}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := compileMs(t, tt.input)
			assert.Equal(t, selectProduct+" WHERE "+tt.where, stmt.SQL)
			if len(tt.params) == 0 {
				assert.Empty(t, stmt.Params)
			} else {
				assert.Equal(t, tt.params, stmt.Params)
			}
		})
	}
}

func TestPredicateErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty input", ""},
		{"blank input", "   "},
		{"dangling operator", `name ==`},
		{"unknown function", `foo(name)`},
		{"missing argument", `contains(name)`},
		{"extra argument", `tolower(name, "x")`},
		{"unclosed group", `(name == "a"`},
		{"unclosed list", `id in [1, 2`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Predicate(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, specql.ErrInvalidArgument)
		})
	}
}

func TestPredicateReusedAcrossDialects(t *testing.T) {
	pred, err := Predicate(`price > 3`)
	require.NoError(t, err)

	s1, err := spec.For[Product]().Where(pred).Select()
	require.NoError(t, err)
	s2, err := spec.For[Product]().Where(pred).Select()
	require.NoError(t, err)

	ms, err := compiler.New(dialect.MsDialect{}).Select(s1.Definition())
	require.NoError(t, err)
	pg, err := compiler.New(dialect.PostgreDialect{}).Select(s2.Definition())
	require.NoError(t, err)

	assert.Equal(t, selectProduct+" WHERE (t0.[Price] > @p0)", ms.SQL)
	assert.Equal(t,
		`SELECT t0."Id", t0."Name", t0."IsActive", t0."Price" FROM "Product" t0 WHERE (t0."Price" > $1)`,
		pg.SQL)
	assert.Equal(t, ms.Values(), pg.Values())
}

func TestParseBuildsLambda(t *testing.T) {
	lam, err := Parse(`price > 3 and not isactive`)
	require.NoError(t, err)
	require.Len(t, lam.Params, 1)

	root, ok := lam.Body.(*expr.Binary)
	require.True(t, ok)
	assert.Equal(t, expr.OpAnd, root.Op)

	_, ok = root.Right.(*expr.Unary)
	assert.True(t, ok, "not-clause should convert to a unary node")
}

func TestParsePrecedence(t *testing.T) {
	// or binds loosest, so the root of "a and b or c" is the or.
	lam, err := Parse(`isactive and price > 1 or name == "x"`)
	require.NoError(t, err)

	root, ok := lam.Body.(*expr.Binary)
	require.True(t, ok)
	assert.Equal(t, expr.OpOr, root.Op)

	left, ok := root.Left.(*expr.Binary)
	require.True(t, ok)
	assert.Equal(t, expr.OpAnd, left.Op)
}

func TestPredicateValidatesUpFront(t *testing.T) {
	// The returned closure is nil on error, so callers cannot build a
	// specification from an invalid predicate.
	pred, err := Predicate(`startswith(name)`)
	require.Error(t, err)
	assert.Nil(t, pred)
}
