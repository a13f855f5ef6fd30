package compiler

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/specql/specql"
	"github.com/specql/specql/dialect"
	"github.com/specql/specql/expr"
	"github.com/specql/specql/internal/debug"
	"github.com/specql/specql/schema"
	"github.com/specql/specql/spec"
)

// Compiler compiles specifications into SQL statements for one dialect.
// It keeps no per-call state and is safe for concurrent use; the
// positional parameter counter lives in the per-call translator.
type Compiler struct {
	d dialect.Dialect
}

// New returns a compiler for the given dialect.
func New(d dialect.Dialect) *Compiler {
	return &Compiler{d: d}
}

// ForProvider returns a compiler for the dialect registered under p.
func ForProvider(p dialect.Provider) (*Compiler, error) {
	d, err := dialect.ForProvider(p)
	if err != nil {
		return nil, err
	}
	return New(d), nil
}

// Dialect returns the dialect this compiler renders for.
func (c *Compiler) Dialect() dialect.Dialect { return c.d }

func (c *Compiler) ready() error {
	if c == nil || c.d == nil {
		return fmt.Errorf("compiler: no dialect configured: %w", specql.ErrInvalidArgument)
	}
	return nil
}

// Select compiles a completed specification into a SELECT statement.
func (c *Compiler) Select(def *spec.Definition) (Statement, error) {
	if err := c.ready(); err != nil {
		return Empty, err
	}
	if def == nil {
		return Empty, fmt.Errorf("compiler: nil specification: %w", specql.ErrInvalidArgument)
	}
	if def.Selector == nil {
		return Empty, fmt.Errorf("compiler: specification has no selector, complete it with Select: %w", specql.ErrInvalidOperation)
	}
	bs, err := ResolveBindings(def)
	if err != nil {
		return Empty, err
	}
	tr := newTranslator(c.d)

	cols, err := c.columnList(tr, bs, def)
	if err != nil {
		return Empty, err
	}
	from, err := c.fromClause(tr, bs, def)
	if err != nil {
		return Empty, err
	}
	where, err := c.predicate(tr, bs, def.Where)
	if err != nil {
		return Empty, err
	}
	groupBy, err := c.groupKeys(tr, bs, def)
	if err != nil {
		return Empty, err
	}
	having, err := c.predicate(tr, bs, def.Having)
	if err != nil {
		return Empty, err
	}
	orderBy, err := c.orderKeys(tr, bs, def)
	if err != nil {
		return Empty, err
	}

	limit := c.d.Limit(def.Skip, def.Take)
	if limit.RequireOrderBy && len(orderBy) == 0 {
		orderBy = []string{"(SELECT NULL)"}
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if def.Distinct {
		sb.WriteString("DISTINCT ")
	}
	sb.WriteString(limit.TopPrefix)
	sb.WriteString(cols)
	sb.WriteString(" FROM ")
	sb.WriteString(from)
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	if len(groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(groupBy, ", "))
	}
	if having != "" {
		sb.WriteString(" HAVING ")
		sb.WriteString(having)
	}
	if len(orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(orderBy, ", "))
	}
	if limit.Clause != "" {
		sb.WriteString(" ")
		sb.WriteString(limit.Clause)
	}
	return c.done("select", Statement{SQL: sb.String(), Params: tr.params}), nil
}

// Count compiles the specification into a row-count statement. Ordering,
// paging and the column projection are dropped. Grouping or DISTINCT make
// a flat COUNT(*) wrong, so those statements wrap the underlying query in
// a COUNT(*) subquery instead.
func (c *Compiler) Count(def *spec.Definition) (Statement, error) {
	if err := c.ready(); err != nil {
		return Empty, err
	}
	if def == nil {
		return Empty, fmt.Errorf("compiler: nil specification: %w", specql.ErrInvalidArgument)
	}
	bs, err := ResolveBindings(def)
	if err != nil {
		return Empty, err
	}
	tr := newTranslator(c.d)

	grouped := len(def.GroupBy) > 0

	var cols string
	if !grouped && def.Distinct {
		if def.Selector == nil {
			return Empty, fmt.Errorf("compiler: distinct count needs a completed specification: %w", specql.ErrInvalidOperation)
		}
		if cols, err = c.columnList(tr, bs, def); err != nil {
			return Empty, err
		}
	}
	from, err := c.fromClause(tr, bs, def)
	if err != nil {
		return Empty, err
	}
	where, err := c.predicate(tr, bs, def.Where)
	if err != nil {
		return Empty, err
	}

	var sb strings.Builder
	switch {
	case grouped:
		groupBy, err := c.groupKeys(tr, bs, def)
		if err != nil {
			return Empty, err
		}
		having, err := c.predicate(tr, bs, def.Having)
		if err != nil {
			return Empty, err
		}
		sb.WriteString("SELECT COUNT(*) FROM (SELECT 1 AS C FROM ")
		sb.WriteString(from)
		if where != "" {
			sb.WriteString(" WHERE ")
			sb.WriteString(where)
		}
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(groupBy, ", "))
		if having != "" {
			sb.WriteString(" HAVING ")
			sb.WriteString(having)
		}
		sb.WriteString(") AS CountQuery")
	case def.Distinct:
		sb.WriteString("SELECT COUNT(*) FROM (SELECT DISTINCT ")
		sb.WriteString(cols)
		sb.WriteString(" FROM ")
		sb.WriteString(from)
		if where != "" {
			sb.WriteString(" WHERE ")
			sb.WriteString(where)
		}
		sb.WriteString(") AS CountQuery")
	default:
		sb.WriteString("SELECT COUNT(*) FROM ")
		sb.WriteString(from)
		if where != "" {
			sb.WriteString(" WHERE ")
			sb.WriteString(where)
		}
	}
	return c.done("count", Statement{SQL: sb.String(), Params: tr.params}), nil
}

// Insert compiles an INSERT for one entity. Identity columns are skipped;
// every other mapped column becomes an ordered parameter.
func (c *Compiler) Insert(entity any) (Statement, error) {
	if err := c.ready(); err != nil {
		return Empty, err
	}
	rv, err := entityValue(entity)
	if err != nil {
		return Empty, err
	}
	tbl, err := schema.For(rv.Type())
	if err != nil {
		return Empty, err
	}
	cols := tbl.InsertColumns()
	if len(cols) == 0 {
		return Empty, fmt.Errorf("compiler: %s has no insertable columns: %w", tbl.Type, specql.ErrInvalidOperation)
	}
	tr := newTranslator(c.d)

	var sb strings.Builder
	c.writeInsertHeader(&sb, tbl, cols)
	sb.WriteString(" VALUES ")
	c.writeInsertRow(&sb, tr, rv, cols)
	return c.done("insert", Statement{SQL: sb.String(), Params: tr.params}), nil
}

// InsertBatch compiles a multi-row INSERT for a slice of entities. Zero
// entities yield the Empty statement; exactly one degrades to the
// single-row path.
func (c *Compiler) InsertBatch(entities any) (Statement, error) {
	if err := c.ready(); err != nil {
		return Empty, err
	}
	if entities == nil {
		return Empty, fmt.Errorf("compiler: nil entity slice: %w", specql.ErrInvalidArgument)
	}
	slice := reflect.ValueOf(entities)
	for slice.Kind() == reflect.Pointer {
		slice = slice.Elem()
	}
	if slice.Kind() != reflect.Slice && slice.Kind() != reflect.Array {
		return Empty, fmt.Errorf("compiler: batch insert needs a slice, got %T: %w", entities, specql.ErrInvalidArgument)
	}
	n := slice.Len()
	if n == 0 {
		return Empty, nil
	}
	if n == 1 {
		return c.Insert(slice.Index(0).Interface())
	}

	first, err := entityValue(slice.Index(0).Interface())
	if err != nil {
		return Empty, err
	}
	tbl, err := schema.For(first.Type())
	if err != nil {
		return Empty, err
	}
	cols := tbl.InsertColumns()
	if len(cols) == 0 {
		return Empty, fmt.Errorf("compiler: %s has no insertable columns: %w", tbl.Type, specql.ErrInvalidOperation)
	}
	tr := newTranslator(c.d)

	var sb strings.Builder
	c.writeInsertHeader(&sb, tbl, cols)
	sb.WriteString(" VALUES ")
	for i := 0; i < n; i++ {
		rv, err := entityValue(slice.Index(i).Interface())
		if err != nil {
			return Empty, err
		}
		if rv.Type() != tbl.Type {
			return Empty, fmt.Errorf("compiler: batch insert mixes %s and %s: %w", tbl.Type, rv.Type(), specql.ErrInvalidArgument)
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		c.writeInsertRow(&sb, tr, rv, cols)
	}
	return c.done("insert-batch", Statement{SQL: sb.String(), Params: tr.params}), nil
}

// Update compiles an UPDATE from an assignment list and an optional
// specification supplying the WHERE filter. Assignments translate against
// the base table only; nil def updates every row.
func (c *Compiler) Update(def *spec.Definition, set *spec.UpdateSet) (Statement, error) {
	if err := c.ready(); err != nil {
		return Empty, err
	}
	if set == nil {
		return Empty, fmt.Errorf("compiler: nil update set: %w", specql.ErrInvalidArgument)
	}
	if len(set.Updates) == 0 {
		return Empty, fmt.Errorf("compiler: update requires at least one property update: %w", specql.ErrInvalidOperation)
	}
	if def != nil && def.Root != set.Root {
		return Empty, fmt.Errorf("compiler: specification root %s does not match update root %s: %w",
			def.Root, set.Root, specql.ErrInvalidArgument)
	}
	bs, err := rootOnly(set.Root)
	if err != nil {
		return Empty, err
	}
	tbl := bs.Root().Table
	tr := newTranslator(c.d)

	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(dialect.QuoteParts(c.d, tbl.NameParts()))
	sb.WriteString(" SET ")
	for i, u := range set.Updates {
		col, ok := tbl.ColumnForField(u.Field)
		if !ok {
			col, ok = tbl.Column(u.Field)
		}
		if !ok {
			return Empty, fmt.Errorf("compiler: %s has no mapped property %s: %w", tbl.Type, u.Field, specql.ErrInvalidOperation)
		}
		if col.Identity {
			return Empty, fmt.Errorf("compiler: cannot update identity column %s: %w", col.Name, specql.ErrInvalidOperation)
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.d.QuoteIdent(col.Name))
		sb.WriteString(" = ")
		if u.Constant {
			tr.value(&sb, u.Value)
			continue
		}
		if u.Expr == nil {
			return Empty, fmt.Errorf("compiler: property update %s has no value: %w", u.Field, specql.ErrInvalidArgument)
		}
		if len(u.Expr.Params) > 1 {
			return Empty, fmt.Errorf("compiler: join references in SET clauses are not supported: %w", specql.ErrNotSupported)
		}
		binds, err := bs.ForLambda(u.Expr)
		if err != nil {
			return Empty, err
		}
		tr.use(binds)
		if err := tr.translate(&sb, u.Expr.Body); err != nil {
			return Empty, err
		}
	}
	if def != nil {
		where, err := c.predicate(tr, bs, def.Where)
		if err != nil {
			return Empty, err
		}
		if where != "" {
			sb.WriteString(" WHERE ")
			sb.WriteString(where)
		}
	}
	return c.done("update", Statement{SQL: sb.String(), Params: tr.params}), nil
}

// Delete compiles a DELETE against the specification's base table.
func (c *Compiler) Delete(def *spec.Definition) (Statement, error) {
	if err := c.ready(); err != nil {
		return Empty, err
	}
	if def == nil {
		return Empty, fmt.Errorf("compiler: nil specification: %w", specql.ErrInvalidArgument)
	}
	bs, err := rootOnly(def.Root)
	if err != nil {
		return Empty, err
	}
	tr := newTranslator(c.d)

	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(dialect.QuoteParts(c.d, bs.Root().Table.NameParts()))
	where, err := c.predicate(tr, bs, def.Where)
	if err != nil {
		return Empty, err
	}
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	return c.done("delete", Statement{SQL: sb.String(), Params: tr.params}), nil
}

// columnList renders the SELECT column projection from the selector shape:
// a bare parameter expands to all mapped columns of its table, a Construct
// emits one aliased expression per field in declaration order, and any
// other body renders as a single expression.
func (c *Compiler) columnList(tr *translator, bs *Bindings, def *spec.Definition) (string, error) {
	sel := def.Selector
	binds, err := bs.ForLambda(sel)
	if err != nil {
		return "", err
	}
	tr.use(binds)

	if p, ok := sel.Body.(*expr.Param); ok {
		b, bound := binds[p]
		if !bound {
			return "", fmt.Errorf("compiler: selector parameter %q is not bound: %w", p.Name, specql.ErrInvalidOperation)
		}
		parts := make([]string, len(b.Table.Columns))
		for i, col := range b.Table.Columns {
			var csb strings.Builder
			tr.writeColumn(&csb, b, col)
			parts[i] = csb.String()
		}
		return strings.Join(parts, ", "), nil
	}

	if cons, ok := sel.Body.(*expr.Construct); ok {
		if len(cons.Fields) == 0 {
			return "", fmt.Errorf("compiler: selector constructs no fields: %w", specql.ErrInvalidOperation)
		}
		parts := make([]string, len(cons.Fields))
		for i, f := range cons.Fields {
			frag, err := tr.render(f.Value)
			if err != nil {
				return "", err
			}
			parts[i] = frag + " AS " + c.d.QuoteIdent(f.Name)
		}
		return strings.Join(parts, ", "), nil
	}

	return tr.render(sel.Body)
}

// fromClause renders the root table and its joins, translating each join
// condition with the joined table pinned to its own alias.
func (c *Compiler) fromClause(tr *translator, bs *Bindings, def *spec.Definition) (string, error) {
	var sb strings.Builder
	root := bs.Root()
	sb.WriteString(dialect.QuoteParts(c.d, root.Table.NameParts()))
	sb.WriteString(" ")
	sb.WriteString(root.Alias)

	for i, j := range def.Joins {
		b := bs.List()[i+1]
		sb.WriteString(" ")
		sb.WriteString(j.Kind.Keyword())
		sb.WriteString(" ")
		sb.WriteString(dialect.QuoteParts(c.d, b.Table.NameParts()))
		sb.WriteString(" ")
		sb.WriteString(b.Alias)
		if j.Kind == spec.CrossJoinKind {
			continue
		}
		binds, err := bs.forJoin(i, j.On)
		if err != nil {
			return "", err
		}
		tr.use(binds)
		sb.WriteString(" ON ")
		if err := tr.translate(&sb, j.On.Body); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

func (c *Compiler) predicate(tr *translator, bs *Bindings, lam *expr.Lambda) (string, error) {
	if lam == nil {
		return "", nil
	}
	binds, err := bs.ForLambda(lam)
	if err != nil {
		return "", err
	}
	tr.use(binds)
	body := lam.Body
	// A bare boolean column as the whole predicate compares against true,
	// so "p.IsActive" compiles the same as "p.IsActive == true".
	if m, ok := body.(*expr.Member); ok && expr.ContainsParam(m) {
		body = expr.Eq(m, expr.Value(true))
	}
	return tr.render(body)
}

func (c *Compiler) groupKeys(tr *translator, bs *Bindings, def *spec.Definition) ([]string, error) {
	if len(def.GroupBy) == 0 {
		return nil, nil
	}
	keys := make([]string, len(def.GroupBy))
	for i, lam := range def.GroupBy {
		binds, err := bs.ForLambda(lam)
		if err != nil {
			return nil, err
		}
		tr.use(binds)
		frag, err := tr.render(lam.Body)
		if err != nil {
			return nil, err
		}
		keys[i] = frag
	}
	return keys, nil
}

func (c *Compiler) orderKeys(tr *translator, bs *Bindings, def *spec.Definition) ([]string, error) {
	if len(def.Orderings) == 0 {
		return nil, nil
	}
	keys := make([]string, len(def.Orderings))
	for i, o := range def.Orderings {
		binds, err := bs.ForLambda(o.Key)
		if err != nil {
			return nil, err
		}
		tr.use(binds)
		frag, err := tr.render(o.Key.Body)
		if err != nil {
			return nil, err
		}
		keys[i] = frag + " " + o.Direction.Keyword()
	}
	return keys, nil
}

func (c *Compiler) writeInsertHeader(sb *strings.Builder, tbl *schema.Table, cols []*schema.Column) {
	sb.WriteString("INSERT INTO ")
	sb.WriteString(dialect.QuoteParts(c.d, tbl.NameParts()))
	sb.WriteString(" (")
	for i, col := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.d.QuoteIdent(col.Name))
	}
	sb.WriteString(")")
}

func (c *Compiler) writeInsertRow(sb *strings.Builder, tr *translator, rv reflect.Value, cols []*schema.Column) {
	sb.WriteString("(")
	for i, col := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(tr.addParam(rv.FieldByIndex(col.Index).Interface()))
	}
	sb.WriteString(")")
}

func (c *Compiler) done(kind string, s Statement) Statement {
	if debug.Enabled() {
		debug.Debug("compiled statement", "kind", kind, "dialect", c.d.Name(), "sql", s.SQL, "params", len(s.Params))
	}
	return s
}

func entityValue(entity any) (reflect.Value, error) {
	if entity == nil {
		return reflect.Value{}, fmt.Errorf("compiler: nil entity: %w", specql.ErrInvalidArgument)
	}
	rv := reflect.ValueOf(entity)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, fmt.Errorf("compiler: nil entity: %w", specql.ErrInvalidArgument)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("compiler: entity must be a struct, got %T: %w", entity, specql.ErrInvalidArgument)
	}
	return rv, nil
}
