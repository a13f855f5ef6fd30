package spec

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specql/specql"
	"github.com/specql/specql/expr"
)

type Product struct {
	ID       int64 `db:"Id,identity"`
	Name     string
	Price    float64
	IsActive bool
}

type Category struct {
	ID   int64 `db:"Id,identity"`
	Name string
}

type ProductName struct {
	Name string
}

func active(p *expr.Param) expr.Node {
	return expr.Eq(p.Field("IsActive"), expr.Value(true))
}

func cheap(p *expr.Param) expr.Node {
	return expr.Lt(p.Field("Price"), expr.Value(10.0))
}

func byName(p *expr.Param) expr.Node { return p.Field("Name") }

func TestSelectCompletesWithIdentitySelector(t *testing.T) {
	s, err := For[Product]().Where(active).Select()
	require.NoError(t, err)

	def := s.Definition()
	assert.Equal(t, reflect.TypeOf(Product{}), def.Root)
	assert.Equal(t, reflect.TypeOf(Product{}), def.Result)
	require.NotNil(t, def.Selector)
	assert.True(t, def.IdentitySelector())
	require.NotNil(t, def.Where)
	require.Len(t, def.Where.Params, 1)
}

func TestWhereTwiceSplicesUnderAnd(t *testing.T) {
	s, err := For[Product]().Where(active).Where(cheap).Select()
	require.NoError(t, err)

	w := s.Definition().Where
	require.Len(t, w.Params, 1)
	shared := w.Params[0]

	and, ok := w.Body.(*expr.Binary)
	require.True(t, ok)
	require.Equal(t, expr.OpAnd, and.Op)

	left := and.Left.(*expr.Binary).Left.(*expr.Member)
	right := and.Right.(*expr.Binary).Left.(*expr.Member)
	assert.Same(t, shared, left.Target)
	assert.Same(t, shared, right.Target)
}

func TestWhereJoinedExtendsParamSet(t *testing.T) {
	b := InnerJoin[Product, Category](For[Product](), func(p, c *expr.Param) expr.Node {
		return expr.Eq(p.Field("ID"), c.Field("ID"))
	})
	b = b.Where(active)
	b = WhereJoined[Category](b, func(p, c *expr.Param) expr.Node {
		return expr.Eq(c.Field("Name"), expr.Value("tools"))
	})

	s, err := b.Select()
	require.NoError(t, err)

	w := s.Definition().Where
	require.Len(t, w.Params, 2)
	assert.Equal(t, reflect.TypeOf(Product{}), w.Params[0].Type)
	assert.Equal(t, reflect.TypeOf(Category{}), w.Params[1].Type)

	and := w.Body.(*expr.Binary)
	require.Equal(t, expr.OpAnd, and.Op)
	joined := and.Right.(*expr.Binary).Left.(*expr.Member)
	assert.Same(t, w.Params[1], joined.Target)
}

func TestJoinRecordsSidesAndAlias(t *testing.T) {
	b := LeftJoin[Product, Category](For[Product](), func(p, c *expr.Param) expr.Node {
		return expr.Eq(p.Field("ID"), c.Field("ID"))
	}).As("cat")

	s, err := b.Select()
	require.NoError(t, err)

	joins := s.Definition().Joins
	require.Len(t, joins, 1)
	assert.Equal(t, LeftJoinKind, joins[0].Kind)
	assert.Equal(t, reflect.TypeOf(Product{}), joins[0].Left)
	assert.Equal(t, reflect.TypeOf(Category{}), joins[0].Right)
	assert.Equal(t, "cat", joins[0].Alias)
	require.NotNil(t, joins[0].On)
}

func TestCrossJoinHasNoCondition(t *testing.T) {
	s, err := CrossJoin[Category](For[Product]()).Select()
	require.NoError(t, err)

	joins := s.Definition().Joins
	require.Len(t, joins, 1)
	assert.Equal(t, CrossJoinKind, joins[0].Kind)
	assert.Nil(t, joins[0].On)
}

func TestAsWithoutJoin(t *testing.T) {
	_, err := For[Product]().As("x").Select()
	assert.ErrorIs(t, err, specql.ErrInvalidOperation)
}

func TestOrderByReplacesThenByAppends(t *testing.T) {
	b := For[Product]().
		OrderBy(byName).
		OrderByDescending(func(p *expr.Param) expr.Node { return p.Field("Price") }).
		ThenBy(byName)

	s, err := b.Select()
	require.NoError(t, err)

	orderings := s.Definition().Orderings
	require.Len(t, orderings, 2)
	assert.Equal(t, Descending, orderings[0].Direction)
	assert.Equal(t, Ascending, orderings[1].Direction)
}

func TestThenByWithoutOrderBy(t *testing.T) {
	_, err := For[Product]().ThenBy(byName).Select()
	assert.ErrorIs(t, err, specql.ErrInvalidOperation)
}

func TestPageIsSkipTimesSizePlusTake(t *testing.T) {
	s, err := For[Product]().Page(2, 25).Select()
	require.NoError(t, err)

	def := s.Definition()
	require.NotNil(t, def.Skip)
	require.NotNil(t, def.Take)
	assert.Equal(t, 50, *def.Skip)
	assert.Equal(t, 25, *def.Take)
}

func TestBoundArgumentValidation(t *testing.T) {
	tests := []struct {
		name  string
		build func() Builder[Product]
	}{
		{"negative skip", func() Builder[Product] { return For[Product]().Skip(-1) }},
		{"negative take", func() Builder[Product] { return For[Product]().Take(-5) }},
		{"negative page index", func() Builder[Product] { return For[Product]().Page(-1, 10) }},
		{"zero page size", func() Builder[Product] { return For[Product]().Page(0, 0) }},
		{"nil predicate", func() Builder[Product] { return For[Product]().Where(nil) }},
		{"nil ordering key", func() Builder[Product] { return For[Product]().OrderBy(nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Select()
			assert.ErrorIs(t, err, specql.ErrInvalidArgument)
		})
	}
}

func TestFirstErrorSticks(t *testing.T) {
	b := For[Product]().Skip(-1).Take(-2)
	err := b.Err()
	require.ErrorIs(t, err, specql.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "Skip(-1)")
}

func TestBuilderValueSemantics(t *testing.T) {
	base := For[Product]().Where(active)

	withOrder := base.OrderBy(byName)
	withPage := base.Page(1, 10)

	s0, err := base.Select()
	require.NoError(t, err)
	assert.Empty(t, s0.Definition().Orderings)
	assert.Nil(t, s0.Definition().Skip)

	s1, err := withOrder.Select()
	require.NoError(t, err)
	assert.Len(t, s1.Definition().Orderings, 1)
	assert.Nil(t, s1.Definition().Skip)

	s2, err := withPage.Select()
	require.NoError(t, err)
	assert.Empty(t, s2.Definition().Orderings)
	require.NotNil(t, s2.Definition().Skip)
}

func TestIncludePaths(t *testing.T) {
	b := For[Product]().
		Include(byName).
		ThenInclude(func(p *expr.Param) expr.Node { return p.Field("Price") }).
		Include(func(p *expr.Param) expr.Node { return p.Field("IsActive") })

	s, err := b.Select()
	require.NoError(t, err)

	includes := s.Definition().Includes
	require.Len(t, includes, 2)
	assert.Len(t, includes[0].Steps, 2)
	assert.Len(t, includes[1].Steps, 1)
}

func TestThenIncludeWithoutInclude(t *testing.T) {
	_, err := For[Product]().ThenInclude(byName).Select()
	assert.ErrorIs(t, err, specql.ErrInvalidOperation)
}

func TestSelectAsSetsResultType(t *testing.T) {
	s, err := SelectAs[ProductName](For[Product](), func(p *expr.Param) expr.Node {
		return expr.New(expr.Init("Name", p.Field("Name")))
	})
	require.NoError(t, err)

	def := s.Definition()
	assert.Equal(t, reflect.TypeOf(Product{}), def.Root)
	assert.Equal(t, reflect.TypeOf(ProductName{}), def.Result)
	assert.False(t, def.IdentitySelector())
}

func TestUpdaterKeepsAssignmentOrder(t *testing.T) {
	set, err := Update[Product]().
		Set("Name", "renamed").
		SetExpr("Price", func(p *expr.Param) expr.Node {
			return expr.Mul(p.Field("Price"), expr.Value(1.1))
		}).
		Build()
	require.NoError(t, err)

	require.Len(t, set.Updates, 2)
	assert.Equal(t, "Name", set.Updates[0].Field)
	assert.True(t, set.Updates[0].Constant)
	assert.Equal(t, "renamed", set.Updates[0].Value)
	assert.Equal(t, "Price", set.Updates[1].Field)
	assert.False(t, set.Updates[1].Constant)
	require.NotNil(t, set.Updates[1].Expr)
}

func TestUpdaterValidation(t *testing.T) {
	_, err := Update[Product]().Set("", 1).Build()
	assert.ErrorIs(t, err, specql.ErrInvalidArgument)

	_, err = Update[Product]().SetExpr("Price", nil).Build()
	assert.ErrorIs(t, err, specql.ErrInvalidArgument)
}
