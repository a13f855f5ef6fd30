package compiler

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specql/specql"
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

type Customer struct {
	ID   int64  `db:"Id,identity"`
	Name string `db:"Name"`
}

type Order struct {
	ID         int64   `db:"Id,identity"`
	CustomerID int64   `db:"CustomerId"`
	Total      float64 `db:"Total"`
}

type OrderSummary struct {
	OrderID      int64
	CustomerName string
}

func build[T any](t *testing.T, b spec.Builder[T]) *spec.Definition {
	t.Helper()
	s, err := b.Select()
	require.NoError(t, err)
	return s.Definition()
}

func isActive(p *expr.Param) expr.Node {
	return expr.Eq(p.Field("IsActive"), expr.Value(true))
}

func byName(p *expr.Param) expr.Node { return p.Field("Name") }

func ms() *Compiler { return New(dialect.MsDialect{}) }
func my() *Compiler { return New(dialect.MyDialect{}) }
func pg() *Compiler { return New(dialect.PostgreDialect{}) }

func TestSelectPagedSqlServer(t *testing.T) {
	def := build(t, spec.For[Product]().
		Where(isActive).
		OrderBy(byName).
		Skip(0).
		Take(20))

	stmt, err := ms().Select(def)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT t0.[Id], t0.[Name], t0.[IsActive], t0.[Price] FROM [Product] t0"+
			" WHERE (t0.[IsActive] = @p0) ORDER BY t0.[Name] ASC"+
			" OFFSET 0 ROWS FETCH NEXT 20 ROWS ONLY",
		stmt.SQL)
	assert.Equal(t, []Param{{Name: "p0", Value: true}}, stmt.Params)
}

func TestSelectBareBooleanMember(t *testing.T) {
	def := build(t, spec.For[Product]().
		Where(func(p *expr.Param) expr.Node { return p.Field("IsActive") }))

	stmt, err := ms().Select(def)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT t0.[Id], t0.[Name], t0.[IsActive], t0.[Price] FROM [Product] t0 WHERE (t0.[IsActive] = @p0)",
		stmt.SQL)
	assert.Equal(t, []Param{{Name: "p0", Value: true}}, stmt.Params)
}

type Invoice struct {
	ID    int64   `db:"Id,identity"`
	Total float64 `db:"Total"`
}

func (Invoice) TableName() string { return "sales.Invoice" }

func TestSelectQuotesQualifiedTableName(t *testing.T) {
	def := build(t, spec.For[Invoice]())

	stmt, err := ms().Select(def)
	require.NoError(t, err)
	assert.Equal(t, "SELECT t0.[Id], t0.[Total] FROM [sales].[Invoice] t0", stmt.SQL)

	pgStmt, err := pg().Select(def)
	require.NoError(t, err)
	assert.Contains(t, pgStmt.SQL, `FROM "sales"."Invoice" t0`)
}

func TestSelectTopWhenTakeOnly(t *testing.T) {
	def := build(t, spec.For[Product]().Take(10))

	stmt, err := ms().Select(def)
	require.NoError(t, err)

	assert.Equal(t, "SELECT TOP 10 t0.[Id], t0.[Name], t0.[IsActive], t0.[Price] FROM [Product] t0", stmt.SQL)
	assert.Empty(t, stmt.Params)
}

func TestSelectSynthesizesOrderByForOffset(t *testing.T) {
	def := build(t, spec.For[Product]().Skip(5))

	stmt, err := ms().Select(def)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, " ORDER BY (SELECT NULL) OFFSET 5 ROWS")
}

func TestSelectMySQLPaging(t *testing.T) {
	stmt, err := my().Select(build(t, spec.For[Product]().OrderBy(byName).Skip(40).Take(20)))
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT t0.`Id`, t0.`Name`, t0.`IsActive`, t0.`Price` FROM `Product` t0"+
			" ORDER BY t0.`Name` ASC LIMIT 20 OFFSET 40",
		stmt.SQL)

	offsetOnly, err := my().Select(build(t, spec.For[Product]().Skip(40)))
	require.NoError(t, err)
	assert.Contains(t, offsetOnly.SQL, " LIMIT 18446744073709551615 OFFSET 40")
}

func TestSelectPostgresPlaceholders(t *testing.T) {
	def := build(t, spec.For[Product]().
		Where(isActive).
		Where(func(p *expr.Param) expr.Node { return expr.Gt(p.Field("Price"), expr.Value(9.5)) }))

	stmt, err := pg().Select(def)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT t0."Id", t0."Name", t0."IsActive", t0."Price" FROM "Product" t0`+
			` WHERE ((t0."IsActive" = $1) AND (t0."Price" > $2))`,
		stmt.SQL)
	assert.Equal(t, []Param{{Name: "p0", Value: true}, {Name: "p1", Value: 9.5}}, stmt.Params)
}

// Paging renders as literals, so the parameter lists of the three dialects
// are identical for the same specification.
func TestParamsIdenticalAcrossDialects(t *testing.T) {
	def := build(t, spec.For[Product]().
		Where(isActive).
		Where(func(p *expr.Param) expr.Node {
			return expr.In(p.Field("ID"), []int64{1, 2, 3})
		}).
		OrderBy(byName).
		Page(2, 25))

	msStmt, err := ms().Select(def)
	require.NoError(t, err)
	myStmt, err := my().Select(def)
	require.NoError(t, err)
	pgStmt, err := pg().Select(def)
	require.NoError(t, err)

	want := []Param{
		{Name: "p0", Value: true},
		{Name: "p1", Value: int64(1)},
		{Name: "p2", Value: int64(2)},
		{Name: "p3", Value: int64(3)},
	}
	assert.Equal(t, want, msStmt.Params)
	assert.Equal(t, want, myStmt.Params)
	assert.Equal(t, want, pgStmt.Params)
	assert.NotEqual(t, msStmt.SQL, myStmt.SQL)
}

func TestSkipTakeEqualsPage(t *testing.T) {
	viaSkipTake, err := ms().Select(build(t, spec.For[Product]().OrderBy(byName).Skip(40).Take(20)))
	require.NoError(t, err)
	viaPage, err := ms().Select(build(t, spec.For[Product]().OrderBy(byName).Page(2, 20)))
	require.NoError(t, err)

	assert.Equal(t, viaSkipTake.SQL, viaPage.SQL)
	assert.Equal(t, viaSkipTake.Params, viaPage.Params)
}

func TestSelectMembershipList(t *testing.T) {
	def := build(t, spec.For[Product]().
		Where(func(p *expr.Param) expr.Node {
			return expr.In(p.Field("ID"), []int64{1, 2, 3})
		}))

	stmt, err := ms().Select(def)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "WHERE (t0.[Id] IN (@p0, @p1, @p2))")
	assert.Equal(t, []Param{
		{Name: "p0", Value: int64(1)},
		{Name: "p1", Value: int64(2)},
		{Name: "p2", Value: int64(3)},
	}, stmt.Params)
}

func TestSelectEmptyMembershipIsFalse(t *testing.T) {
	def := build(t, spec.For[Product]().
		Where(func(p *expr.Param) expr.Node {
			return expr.In(p.Field("ID"), []int64{})
		}))

	stmt, err := ms().Select(def)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "WHERE (1 = 0)")
	assert.Empty(t, stmt.Params)
}

func TestInnerJoinWithProjection(t *testing.T) {
	b := spec.InnerJoin[Order, Customer](spec.For[Order](), func(o, c *expr.Param) expr.Node {
		return expr.Eq(o.Field("CustomerID"), c.Field("ID"))
	})
	b = spec.WhereJoined[Customer](b, func(o, c *expr.Param) expr.Node {
		return expr.Eq(c.Field("Name"), expr.Value("ACME"))
	})
	s, err := spec.SelectJoinedAs[OrderSummary, Customer](b, func(o, c *expr.Param) expr.Node {
		return expr.New(
			expr.Init("OrderId", o.Field("ID")),
			expr.Init("CustomerName", c.Field("Name")),
		)
	})
	require.NoError(t, err)

	stmt, err := ms().Select(s.Definition())
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT t0.[Id] AS [OrderId], t1.[Name] AS [CustomerName]"+
			" FROM [Order] t0 INNER JOIN [Customer] t1 ON (t0.[CustomerId] = t1.[Id])"+
			" WHERE (t1.[Name] = @p0)",
		stmt.SQL)
	assert.Equal(t, []Param{{Name: "p0", Value: "ACME"}}, stmt.Params)
}

func TestJoinAliasOverride(t *testing.T) {
	b := spec.LeftJoin[Order, Customer](spec.For[Order](), func(o, c *expr.Param) expr.Node {
		return expr.Eq(o.Field("CustomerID"), c.Field("ID"))
	}).As("cust")

	stmt, err := ms().Select(build(t, b))
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "LEFT JOIN [Customer] cust ON (t0.[CustomerId] = cust.[Id])")
}

func TestCrossJoin(t *testing.T) {
	stmt, err := ms().Select(build(t, spec.CrossJoin[Customer](spec.For[Order]())))
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "FROM [Order] t0 CROSS JOIN [Customer] t1")
	assert.NotContains(t, stmt.SQL, " ON ")
}

func TestSingleMemberProjection(t *testing.T) {
	s, err := spec.SelectAs[string](spec.For[Product]().Where(isActive), func(p *expr.Param) expr.Node {
		return p.Field("Name")
	})
	require.NoError(t, err)

	stmt, err := ms().Select(s.Definition())
	require.NoError(t, err)
	assert.Equal(t, "SELECT t0.[Name] FROM [Product] t0 WHERE (t0.[IsActive] = @p0)", stmt.SQL)
}

func TestWhereJoinedWithoutJoinFailsBinding(t *testing.T) {
	b := spec.WhereJoined[Customer](spec.For[Order](), func(o, c *expr.Param) expr.Node {
		return expr.Eq(c.Field("Name"), expr.Value("x"))
	})

	_, err := ms().Select(build(t, b))
	require.ErrorIs(t, err, specql.ErrInvalidOperation)
	assert.Contains(t, err.Error(), "not enough bindings")
}

func TestSelfJoinBindsDistinctAliases(t *testing.T) {
	b := spec.InnerJoin[Order, Order](spec.For[Order](), func(l, r *expr.Param) expr.Node {
		return expr.Eq(l.Field("CustomerID"), r.Field("ID"))
	})
	b = spec.WhereJoined[Order](b, func(l, r *expr.Param) expr.Node {
		return expr.Gt(r.Field("Total"), l.Field("Total"))
	})

	stmt, err := ms().Select(build(t, b))
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "FROM [Order] t0 INNER JOIN [Order] t1 ON (t0.[CustomerId] = t1.[Id])")
	assert.Contains(t, stmt.SQL, "WHERE (t1.[Total] > t0.[Total])")
}

func TestGroupByHaving(t *testing.T) {
	def := build(t, spec.For[Order]().
		GroupBy(func(p *expr.Param) expr.Node { return p.Field("CustomerID") }).
		Having(func(p *expr.Param) expr.Node {
			return expr.Gt(p.Field("CustomerID"), expr.Value(int64(10)))
		}))

	stmt, err := ms().Select(def)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, " GROUP BY t0.[CustomerId]")
	assert.Contains(t, stmt.SQL, " HAVING (t0.[CustomerId] > @p0)")
}

func TestCountDropsOrderingAndPaging(t *testing.T) {
	def := build(t, spec.For[Product]().Where(isActive).OrderBy(byName).Page(3, 10))

	stmt, err := ms().Count(def)
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM [Product] t0 WHERE (t0.[IsActive] = @p0)", stmt.SQL)
	assert.Equal(t, []Param{{Name: "p0", Value: true}}, stmt.Params)
}

func TestCountWrapsGroupBy(t *testing.T) {
	def := build(t, spec.For[Order]().
		Where(func(p *expr.Param) expr.Node {
			return expr.Gt(p.Field("Total"), expr.Value(100.0))
		}).
		GroupBy(func(p *expr.Param) expr.Node { return p.Field("CustomerID") }))

	stmt, err := ms().Count(def)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT COUNT(*) FROM (SELECT 1 AS C FROM [Order] t0"+
			" WHERE (t0.[Total] > @p0) GROUP BY t0.[CustomerId]) AS CountQuery",
		stmt.SQL)
}

func TestCountWrapsDistinct(t *testing.T) {
	def := build(t, spec.For[Product]().Distinct().Where(isActive))

	stmt, err := ms().Count(def)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT COUNT(*) FROM (SELECT DISTINCT t0.[Id], t0.[Name], t0.[IsActive], t0.[Price]"+
			" FROM [Product] t0 WHERE (t0.[IsActive] = @p0)) AS CountQuery",
		stmt.SQL)
}

func TestInsertSkipsIdentity(t *testing.T) {
	stmt, err := ms().Insert(Product{Name: "widget", IsActive: true, Price: 9.99})
	require.NoError(t, err)

	assert.Equal(t, "INSERT INTO [Product] ([Name], [IsActive], [Price]) VALUES (@p0, @p1, @p2)", stmt.SQL)
	assert.Equal(t, []Param{
		{Name: "p0", Value: "widget"},
		{Name: "p1", Value: true},
		{Name: "p2", Value: 9.99},
	}, stmt.Params)
}

func TestInsertBatch(t *testing.T) {
	empty, err := ms().InsertBatch([]Product{})
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())

	single, err := ms().InsertBatch([]Product{{Name: "a"}})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO [Product] ([Name], [IsActive], [Price]) VALUES (@p0, @p1, @p2)", single.SQL)

	batch, err := my().InsertBatch([]Product{{Name: "a"}, {Name: "b"}, {Name: "c"}})
	require.NoError(t, err)
	assert.Equal(t,
		"INSERT INTO `Product` (`Name`, `IsActive`, `Price`) VALUES (?, ?, ?), (?, ?, ?), (?, ?, ?)",
		batch.SQL)
	require.Len(t, batch.Params, 9)
	assert.Equal(t, "p8", batch.Params[8].Name)
	assert.Equal(t, "b", batch.Params[3].Value)
}

func TestUpdateWithComputedValue(t *testing.T) {
	set, err := spec.Update[Product]().
		Set("Name", "renamed").
		SetExpr("Price", func(p *expr.Param) expr.Node {
			return expr.Mul(p.Field("Price"), expr.Value(1.1))
		}).
		Build()
	require.NoError(t, err)

	def := build(t, spec.For[Product]().
		Where(func(p *expr.Param) expr.Node {
			return expr.Eq(p.Field("ID"), expr.Value(int64(7)))
		}))

	stmt, err := ms().Update(def, set)
	require.NoError(t, err)
	assert.Equal(t,
		"UPDATE [Product] SET [Name] = @p0, [Price] = ([Price] * @p1) WHERE ([Id] = @p2)",
		stmt.SQL)
	assert.Equal(t, []Param{
		{Name: "p0", Value: "renamed"},
		{Name: "p1", Value: 1.1},
		{Name: "p2", Value: int64(7)},
	}, stmt.Params)
}

func TestUpdateValidation(t *testing.T) {
	set, err := spec.Update[Product]().Build()
	require.NoError(t, err)
	_, err = ms().Update(nil, set)
	assert.ErrorIs(t, err, specql.ErrInvalidOperation)

	identity, err := spec.Update[Product]().Set("ID", 1).Build()
	require.NoError(t, err)
	_, err = ms().Update(nil, identity)
	assert.ErrorIs(t, err, specql.ErrInvalidOperation)

	unmapped, err := spec.Update[Product]().Set("Missing", 1).Build()
	require.NoError(t, err)
	_, err = ms().Update(nil, unmapped)
	assert.ErrorIs(t, err, specql.ErrInvalidOperation)
}

func TestUpdateRejectsJoinReferencesInSet(t *testing.T) {
	set, err := spec.Update[Order]().Set("Total", 0.0).Build()
	require.NoError(t, err)

	p := &expr.Param{Name: "o", Type: reflect.TypeOf(Order{})}
	q := &expr.Param{Name: "c", Type: reflect.TypeOf(Customer{})}
	set.Updates[0] = spec.PropertyUpdate{
		Field: "Total",
		Expr:  expr.NewLambda(expr.Add(p.Field("Total"), q.Field("ID")), p, q),
	}

	_, err = ms().Update(nil, set)
	assert.ErrorIs(t, err, specql.ErrNotSupported)
}

func TestDelete(t *testing.T) {
	def := build(t, spec.For[Product]().Where(isActive))
	stmt, err := ms().Delete(def)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM [Product] WHERE ([IsActive] = @p0)", stmt.SQL)

	all, err := ms().Delete(build(t, spec.For[Product]()))
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM [Product]", all.SQL)
}

func TestUpdateAllRowsWithoutSpecification(t *testing.T) {
	set, err := spec.Update[Product]().Set("IsActive", false).Build()
	require.NoError(t, err)

	stmt, err := ms().Update(nil, set)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE [Product] SET [IsActive] = @p0", stmt.SQL)
}
