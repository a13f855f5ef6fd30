// Package schema derives table and column metadata from Go struct types.
//
// Mapping follows the `db` struct tag:
//
//	type Product struct {
//		ID       int64  `db:"Id,identity"`
//		Name     string `db:"Name"`
//		Internal string `db:"-"`
//	}
//
// Untagged exported fields map to a column named after the field. Anonymous
// embedded structs are flattened. The table name defaults to the struct name
// and can be overridden by implementing TableNamer.
//
// Metadata is computed once per type and cached for the process lifetime.
package schema

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/specql/specql"
)

// TableNamer overrides the default table name for a mapped struct. The
// returned name may be schema-qualified, e.g. "sales.Order".
type TableNamer interface {
	TableName() string
}

// TableName is a zero-width marker. A struct field of this type names the
// table through its db tag, overriding the struct name:
//
//	type order struct {
//		TableName schema.TableName `db:"sales.Order"`
//		ID        int64            `db:"Id,identity"`
//	}
//
// Types built at run time with reflect.StructOf have no type name, so the
// marker field is how they name their table.
type TableName struct{}

var tableNameType = reflect.TypeOf(TableName{})

// Column maps one struct field to a database column.
type Column struct {
	// Name is the column name in the database.
	Name string
	// Field is the Go field name.
	Field string
	// Index is the field index path for reflect.Value.FieldByIndex;
	// longer than one entry for promoted fields of embedded structs.
	Index []int
	// Type is the field's Go type.
	Type reflect.Type
	// Identity marks a database-generated column. Identity columns are
	// excluded from INSERT column lists and from UPDATE set lists.
	Identity bool
}

// Table is the mapped metadata of one struct type. Instances are immutable
// and safe for concurrent use.
type Table struct {
	// Name is the table name, possibly schema-qualified.
	Name string
	// Type is the mapped struct type.
	Type reflect.Type
	// Columns lists mapped columns in field declaration order.
	Columns []*Column

	byName  map[string]*Column
	byField map[string]*Column
}

// Column looks up a column by database name, case-insensitively.
func (t *Table) Column(name string) (*Column, bool) {
	c, ok := t.byName[strings.ToLower(name)]
	return c, ok
}

// ColumnForField looks up a column by Go field name.
func (t *Table) ColumnForField(field string) (*Column, bool) {
	c, ok := t.byField[field]
	return c, ok
}

// InsertColumns returns the columns that participate in INSERT statements,
// i.e. every mapped column that is not an identity column.
func (t *Table) InsertColumns() []*Column {
	out := make([]*Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if !c.Identity {
			out = append(out, c)
		}
	}
	return out
}

// NameParts splits a schema-qualified table name into its parts so dialects
// can quote each separately: "sales.Order" -> ["sales", "Order"].
func (t *Table) NameParts() []string {
	return strings.Split(t.Name, ".")
}

var validColName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z_0-9]*$`)

var (
	cacheMutex sync.RWMutex
	cache      = map[reflect.Type]*Table{}
)

// Of returns the cached table metadata for T.
func Of[T any]() (*Table, error) {
	return For(reflect.TypeOf((*T)(nil)).Elem())
}

// For returns the cached table metadata for t, computing it on first use.
// Concurrent first uses may compute twice; the extra result is discarded.
func For(t reflect.Type) (*Table, error) {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema: cannot map %v, need a struct type: %w", t, specql.ErrInvalidArgument)
	}

	cacheMutex.RLock()
	tbl, ok := cache[t]
	cacheMutex.RUnlock()
	if ok {
		return tbl, nil
	}

	tbl, err := build(t)
	if err != nil {
		return nil, err
	}

	cacheMutex.Lock()
	if prior, ok := cache[t]; ok {
		tbl = prior
	} else {
		cache[t] = tbl
	}
	cacheMutex.Unlock()
	return tbl, nil
}

func build(t reflect.Type) (*Table, error) {
	tbl := &Table{
		Name:    tableName(t),
		Type:    t,
		byName:  map[string]*Column{},
		byField: map[string]*Column{},
	}
	if err := collect(tbl, t, nil); err != nil {
		return nil, err
	}
	if len(tbl.Columns) == 0 {
		return nil, fmt.Errorf("schema: type %s has no mapped columns: %w", t, specql.ErrInvalidArgument)
	}
	return tbl, nil
}

func collect(tbl *Table, t reflect.Type, prefix []int) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if f.Type == tableNameType {
			if len(prefix) == 0 {
				if tag, ok := f.Tag.Lookup("db"); ok && tag != "" && tag != "-" {
					tbl.Name = tag
				}
			}
			continue
		}
		index := append(append([]int{}, prefix...), i)

		if f.Anonymous && f.Type.Kind() == reflect.Struct && !hasTag(f) {
			if err := collect(tbl, f.Type, index); err != nil {
				return err
			}
			continue
		}

		col, err := parseField(f, index)
		if err != nil {
			return fmt.Errorf("schema: type %s: %w", t, err)
		}
		if col == nil {
			continue
		}
		key := strings.ToLower(col.Name)
		if dup, ok := tbl.byName[key]; ok {
			return fmt.Errorf("schema: type %s maps fields %s and %s to the same column %q: %w",
				t, dup.Field, col.Field, col.Name, specql.ErrInvalidArgument)
		}
		tbl.Columns = append(tbl.Columns, col)
		tbl.byName[key] = col
		tbl.byField[col.Field] = col
	}
	return nil
}

func hasTag(f reflect.StructField) bool {
	_, ok := f.Tag.Lookup("db")
	return ok
}

func parseField(f reflect.StructField, index []int) (*Column, error) {
	name := f.Name
	identity := false

	if tag, ok := f.Tag.Lookup("db"); ok {
		if tag == "-" {
			return nil, nil
		}
		parts := strings.Split(tag, ",")
		if parts[0] != "" {
			name = parts[0]
		}
		for _, opt := range parts[1:] {
			switch strings.TrimSpace(opt) {
			case "identity":
				identity = true
			case "omitempty", "":
				// accepted for compatibility with scan-only tags
			default:
				return nil, fmt.Errorf("field %s: unknown db tag option %q: %w", f.Name, opt, specql.ErrInvalidArgument)
			}
		}
	}
	if !validColName.MatchString(name) {
		return nil, fmt.Errorf("field %s: invalid column name %q: %w", f.Name, name, specql.ErrInvalidArgument)
	}
	return &Column{Name: name, Field: f.Name, Index: index, Type: f.Type, Identity: identity}, nil
}

// tableName resolves the table name: TableNamer when implemented on the
// value or its pointer, otherwise the bare struct name.
func tableName(t reflect.Type) string {
	v := reflect.New(t)
	if n, ok := v.Interface().(TableNamer); ok {
		return n.TableName()
	}
	if n, ok := v.Elem().Interface().(TableNamer); ok {
		return n.TableName()
	}
	return t.Name()
}
