package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specql/specql"
	"github.com/specql/specql/expr"
	"github.com/specql/specql/spec"
)

func TestProjectIdentity(t *testing.T) {
	s, err := spec.For[Product]().Select()
	require.NoError(t, err)

	got, err := Project(s, productRow())
	require.NoError(t, err)
	assert.Equal(t, Product{Id: 7, Name: "gadget", Price: 3.5, IsActive: true}, got)
}

func TestProjectMemberSelector(t *testing.T) {
	s, err := spec.SelectAs[string](spec.For[Product](), func(p *expr.Param) expr.Node {
		return p.Field("Name")
	})
	require.NoError(t, err)

	got, err := Project(s, productRow())
	require.NoError(t, err)
	assert.Equal(t, "gadget", got)
}

type pricing struct {
	Name  string
	Total float64
}

func TestProjectConstructSelector(t *testing.T) {
	s, err := spec.SelectAs[pricing](spec.For[Product](), func(p *expr.Param) expr.Node {
		return expr.New(
			expr.Init("Name", p.Field("Name")),
			expr.Init("Total", expr.Mul(p.Field("Price"), expr.Value(2))),
		)
	})
	require.NoError(t, err)

	got, err := Project(s, productRow())
	require.NoError(t, err)
	assert.Equal(t, pricing{Name: "gadget", Total: 7.0}, got)
}

func TestProjectComputedExpression(t *testing.T) {
	s, err := spec.SelectAs[string](spec.For[Product](), func(p *expr.Param) expr.Node {
		return expr.ToLower(p.Field("Name"))
	})
	require.NoError(t, err)

	row := ValueRow{
		Names: []string{"Id", "Name", "Price", "IsActive"},
		Vals:  []any{int64(1), "GADGET", 1.0, int64(1)},
	}
	got, err := Project(s, row)
	require.NoError(t, err)
	assert.Equal(t, "gadget", got)
}

func TestProjectCachesCompiledSelector(t *testing.T) {
	s, err := spec.SelectAs[string](spec.For[Product](), func(p *expr.Param) expr.Node {
		return p.Field("Name")
	})
	require.NoError(t, err)

	_, err = Project(s, productRow())
	require.NoError(t, err)

	projMutex.RLock()
	_, cached := projections[s.Definition().Selector]
	projMutex.RUnlock()
	assert.True(t, cached)

	// Second pass hits the cache.
	got, err := Project(s, productRow())
	require.NoError(t, err)
	assert.Equal(t, "gadget", got)
}

func TestProjectUnknownFieldFailsCompile(t *testing.T) {
	s, err := spec.SelectAs[string](spec.For[Product](), func(p *expr.Param) expr.Node {
		return p.Field("Nope")
	})
	require.NoError(t, err)

	_, err = Project(s, productRow())
	assert.ErrorIs(t, err, specql.ErrInvalidOperation)
	assert.Contains(t, err.Error(), "Nope")
}

func TestProjectUnknownResultFieldFailsCompile(t *testing.T) {
	s, err := spec.SelectAs[pricing](spec.For[Product](), func(p *expr.Param) expr.Node {
		return expr.New(expr.Init("Missing", p.Field("Name")))
	})
	require.NoError(t, err)

	_, err = Project(s, productRow())
	assert.ErrorIs(t, err, specql.ErrInvalidOperation)
	assert.Contains(t, err.Error(), "Missing")
}

type wrapped struct {
	Inner inner
	Ptr   *inner
}

type inner struct {
	Depth int
}

func TestCompiledMemberChain(t *testing.T) {
	p := expr.Arg[wrapped]("w")
	fn, _, err := compileNode(p.Field("Inner").Field("Depth"), []*expr.Param{p})
	require.NoError(t, err)

	v, err := fn([]any{wrapped{Inner: inner{Depth: 3}}})
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestCompiledMemberNilPointerPropagates(t *testing.T) {
	p := expr.Arg[wrapped]("w")
	fn, _, err := compileNode(p.Field("Ptr").Field("Depth"), []*expr.Param{p})
	require.NoError(t, err)

	v, err := fn([]any{wrapped{}})
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = fn([]any{wrapped{Ptr: &inner{Depth: 5}}})
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}

func TestCompileRejectsUnboundParam(t *testing.T) {
	stray := expr.Arg[Product]("other")
	p := expr.Arg[Product]("p")
	_, _, err := compileNode(stray.Field("Name"), []*expr.Param{p})
	assert.ErrorIs(t, err, specql.ErrNotSupported)
}
