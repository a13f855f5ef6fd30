package commands

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specql/specql/compiler"
	"github.com/specql/specql/dialect"
	"github.com/specql/specql/schema"
	"github.com/specql/specql/spec"
)

func TestBuildEntity(t *testing.T) {
	typ, err := buildEntity("inv.Stock", []string{"Id:int", "Name", "Price:float", "Tag:uuid"})
	require.NoError(t, err)

	tbl, err := schema.For(typ)
	require.NoError(t, err)
	assert.Equal(t, "inv.Stock", tbl.Name)

	names := make([]string, len(tbl.Columns))
	for i, c := range tbl.Columns {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"Id", "Name", "Price", "Tag"}, names)

	price, ok := tbl.Column("price")
	require.True(t, ok)
	assert.Equal(t, reflect.Float64, price.Type.Kind())

	name, ok := tbl.Column("name")
	require.True(t, ok)
	assert.Equal(t, reflect.String, name.Type.Kind(), "kind defaults to string")
}

func TestBuildEntityErrors(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		columns []string
	}{
		{"no columns", "Product", nil},
		{"bad table name", "pro duct", []string{"Id:int"}},
		{"bad column name", "Product", []string{"or der:int"}},
		{"unknown kind", "Product", []string{"Id:int128"}},
		{"field collision", "Product", []string{"id:int", "Id:int"}},
		{"reserved column", "Product", []string{"tableName:string"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildEntity(tt.table, tt.columns)
			assert.Error(t, err)
		})
	}
}

func TestParseOrder(t *testing.T) {
	name, dir, err := parseOrder("Name")
	require.NoError(t, err)
	assert.Equal(t, "Name", name)
	assert.Equal(t, spec.Ascending, dir)

	name, dir, err = parseOrder("price:desc")
	require.NoError(t, err)
	assert.Equal(t, "price", name)
	assert.Equal(t, spec.Descending, dir)

	_, _, err = parseOrder("price:up")
	assert.Error(t, err)
	_, _, err = parseOrder(":desc")
	assert.Error(t, err)
}

func TestBuildDefinitionCompiles(t *testing.T) {
	entity, err := buildEntity("Product", []string{"Id:int", "Name", "Price:float"})
	require.NoError(t, err)

	skip, take := 40, 20
	def, err := buildDefinition(entity, queryOptions{
		filter: `price > 3 and contains(name, "bolt")`,
		order:  []string{"name:desc"},
		skip:   &skip,
		take:   &take,
	})
	require.NoError(t, err)

	stmt, err := compiler.New(dialect.PostgreDialect{}).Select(def)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT t0."Id", t0."Name", t0."Price" FROM "Product" t0`+
			` WHERE ((t0."Price" > $1) AND (t0."Name" LIKE $2))`+
			` ORDER BY t0."Name" DESC LIMIT 20 OFFSET 40`,
		stmt.SQL)
	assert.Equal(t, []any{int64(3), "%bolt%"}, stmt.Values())
}

func TestBuildDefinitionCount(t *testing.T) {
	entity, err := buildEntity("Product", []string{"Id:int"})
	require.NoError(t, err)

	def, err := buildDefinition(entity, queryOptions{filter: `id in [1, 2]`})
	require.NoError(t, err)

	stmt, err := compiler.New(dialect.MyDialect{}).Count(def)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "SELECT COUNT(*)")
	assert.Contains(t, stmt.SQL, "`Id` IN (?, ?)")
}

func TestBuildDefinitionRejectsBadInput(t *testing.T) {
	entity, err := buildEntity("Product", []string{"Id:int"})
	require.NoError(t, err)

	_, err = buildDefinition(entity, queryOptions{filter: `id ==`})
	assert.Error(t, err)

	neg := -1
	_, err = buildDefinition(entity, queryOptions{skip: &neg})
	assert.Error(t, err)
	_, err = buildDefinition(entity, queryOptions{take: &neg})
	assert.Error(t, err)
}
