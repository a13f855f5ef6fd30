package compiler

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/specql/specql"
	"github.com/specql/specql/dialect"
	"github.com/specql/specql/expr"
	"github.com/specql/specql/schema"
)

// translator renders expression trees into SQL fragments while
// accumulating the statement's ordered parameter list. One translator
// serves one statement: the positional counter (p0, p1, ...) runs across
// every clause and never resets mid-statement.
type translator struct {
	d        dialect.Dialect
	params   []Param
	bindings map[*expr.Param]*TableBinding
}

func newTranslator(d dialect.Dialect) *translator {
	return &translator{d: d}
}

// use installs the parameter bindings for the next expression.
func (t *translator) use(b map[*expr.Param]*TableBinding) { t.bindings = b }

// addParam appends a parameter and returns its dialect placeholder.
func (t *translator) addParam(v any) string {
	ordinal := len(t.params)
	t.params = append(t.params, Param{Name: fmt.Sprintf("p%d", ordinal), Value: v})
	return t.d.Placeholder(ordinal)
}

// render translates n into a standalone fragment.
func (t *translator) render(n expr.Node) (string, error) {
	var sb strings.Builder
	if err := t.translate(&sb, n); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (t *translator) translate(sb *strings.Builder, n expr.Node) error {
	switch node := n.(type) {
	case *expr.Binary:
		return t.binary(sb, node)
	case *expr.Unary:
		return t.unary(sb, node)
	case *expr.Member:
		return t.member(sb, node)
	case *expr.Constant:
		t.value(sb, node.Value)
		return nil
	case *expr.Call:
		return t.call(sb, node)
	case *expr.Param:
		return fmt.Errorf("compiler: entity parameter %q cannot appear bare in this position: %w",
			node.Name, specql.ErrNotSupported)
	case *expr.Construct:
		return fmt.Errorf("compiler: object construction is only supported as a selector body: %w",
			specql.ErrNotSupported)
	}
	return fmt.Errorf("compiler: unrecognized node %T: %w", n, specql.ErrNotSupported)
}

func (t *translator) binary(sb *strings.Builder, b *expr.Binary) error {
	// Comparisons against a NULL-rendering right side rewrite to the SQL
	// null tests; "x = NULL" never matches and is always a caller mistake.
	if b.Op == expr.OpEq || b.Op == expr.OpNe {
		if t.rendersNull(b.Right) {
			sb.WriteString("(")
			if err := t.translate(sb, b.Left); err != nil {
				return err
			}
			if b.Op == expr.OpEq {
				sb.WriteString(" IS NULL)")
			} else {
				sb.WriteString(" IS NOT NULL)")
			}
			return nil
		}
	}
	token := b.Op.Token()
	if token == "?" {
		return fmt.Errorf("compiler: unrecognized binary operator %d: %w", int(b.Op), specql.ErrNotSupported)
	}
	operand := t.translate
	if b.Op == expr.OpAnd || b.Op == expr.OpOr {
		operand = t.boolOperand
	}
	sb.WriteString("(")
	if err := operand(sb, b.Left); err != nil {
		return err
	}
	sb.WriteString(" ")
	sb.WriteString(token)
	sb.WriteString(" ")
	if err := operand(sb, b.Right); err != nil {
		return err
	}
	sb.WriteString(")")
	return nil
}

// boolOperand translates a node standing in boolean position. A bare bound
// member there is shorthand for comparing against true; SQL Server has no
// boolean-valued column expressions, so the comparison form is the only
// rendering that works on every provider.
func (t *translator) boolOperand(sb *strings.Builder, n expr.Node) error {
	if m, ok := n.(*expr.Member); ok && expr.ContainsParam(m) {
		return t.translate(sb, expr.Eq(m, expr.Value(true)))
	}
	return t.translate(sb, n)
}

// rendersNull reports whether n would render as the literal NULL: a nil
// constant or a parameter-free subtree evaluating to nil.
func (t *translator) rendersNull(n expr.Node) bool {
	if c, ok := n.(*expr.Constant); ok {
		return isNilValue(c.Value)
	}
	if expr.ContainsParam(n) {
		return false
	}
	v, err := expr.Evaluate(n)
	return err == nil && isNilValue(v)
}

func (t *translator) unary(sb *strings.Builder, u *expr.Unary) error {
	switch u.Op {
	case expr.OpNot:
		sb.WriteString("(NOT ")
		if err := t.boolOperand(sb, u.Operand); err != nil {
			return err
		}
		sb.WriteString(")")
		return nil
	case expr.OpNeg:
		sb.WriteString("(-")
		if err := t.translate(sb, u.Operand); err != nil {
			return err
		}
		sb.WriteString(")")
		return nil
	case expr.OpConvert:
		return t.translate(sb, u.Operand)
	}
	return fmt.Errorf("compiler: unrecognized unary operator %d: %w", int(u.Op), specql.ErrNotSupported)
}

func (t *translator) member(sb *strings.Builder, m *expr.Member) error {
	root := expr.Node(m.Target)
	depth := 1
	for {
		mm, ok := root.(*expr.Member)
		if !ok {
			break
		}
		root = mm.Target
		depth++
	}
	if p, ok := root.(*expr.Param); ok {
		b, bound := t.bindings[p]
		if !bound {
			return fmt.Errorf("compiler: parameter %q is not bound to a table: %w",
				p.Name, specql.ErrInvalidOperation)
		}
		if depth > 1 {
			return fmt.Errorf("compiler: nested member access on %q is not translatable: %w",
				m.Name, specql.ErrNotSupported)
		}
		col, ok := b.Table.ColumnForField(m.Name)
		if !ok {
			col, ok = b.Table.Column(m.Name)
		}
		if !ok {
			return fmt.Errorf("compiler: %s has no mapped property %s: %w",
				b.Table.Type, m.Name, specql.ErrInvalidOperation)
		}
		t.writeColumn(sb, b, col)
		return nil
	}
	// Captured-value access: resolve now and bind as a parameter.
	v, err := expr.Evaluate(m)
	if err != nil {
		return err
	}
	t.value(sb, v)
	return nil
}

func (t *translator) writeColumn(sb *strings.Builder, b *TableBinding, col *schema.Column) {
	if b.Alias != "" {
		sb.WriteString(b.Alias)
		sb.WriteString(".")
	}
	sb.WriteString(t.d.QuoteIdent(col.Name))
}

func (t *translator) call(sb *strings.Builder, c *expr.Call) error {
	// Calls that never touch an entity parameter are plain values.
	if !expr.ContainsParam(c) {
		v, err := expr.Evaluate(c)
		if err != nil {
			return err
		}
		t.value(sb, v)
		return nil
	}
	switch c.Method {
	case expr.MethodToLower, expr.MethodToUpper:
		if len(c.Args) != 0 {
			return fmt.Errorf("compiler: %s takes no arguments: %w", c.Method, specql.ErrNotSupported)
		}
		fn := "LOWER"
		if c.Method == expr.MethodToUpper {
			fn = "UPPER"
		}
		sb.WriteString(fn)
		sb.WriteString("(")
		if err := t.translate(sb, c.Target); err != nil {
			return err
		}
		sb.WriteString(")")
		return nil
	case expr.MethodContains, expr.MethodStartsWith, expr.MethodEndsWith:
		if len(c.Args) != 1 {
			return fmt.Errorf("compiler: %s needs exactly one argument: %w", c.Method, specql.ErrNotSupported)
		}
		if expr.ContainsParam(c.Target) {
			if c.Method == expr.MethodContains && t.boundCollection(c.Target) {
				return fmt.Errorf("compiler: membership collection bound to an entity parameter cannot be resolved at compile time: %w",
					specql.ErrNotSupported)
			}
			return t.like(sb, c)
		}
		return t.membership(sb, c)
	}
	return fmt.Errorf("compiler: method %s is not translatable: %w", c.Method, specql.ErrNotSupported)
}

// boundCollection reports whether n is a column access whose Go type is a
// collection. Contains on such a column is a membership test over values
// the compiler cannot see, not a string search.
func (t *translator) boundCollection(n expr.Node) bool {
	m, ok := n.(*expr.Member)
	if !ok {
		return false
	}
	p, ok := m.Target.(*expr.Param)
	if !ok {
		return false
	}
	b, bound := t.bindings[p]
	if !bound {
		return false
	}
	col, ok := b.Table.ColumnForField(m.Name)
	if !ok {
		col, ok = b.Table.Column(m.Name)
	}
	if !ok {
		return false
	}
	ft := col.Type
	for ft.Kind() == reflect.Pointer {
		ft = ft.Elem()
	}
	if ft.Kind() == reflect.Slice && ft.Elem().Kind() == reflect.Uint8 {
		return false
	}
	return ft.Kind() == reflect.Slice || ft.Kind() == reflect.Array
}

// like renders string Contains/StartsWith/EndsWith. The pattern operand is
// resolved at compile time, wildcard-escaped for the dialect, then wrapped
// with the wildcards the method implies.
func (t *translator) like(sb *strings.Builder, c *expr.Call) error {
	v, err := expr.Evaluate(c.Args[0])
	if err != nil {
		return err
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("compiler: %s pattern must be a string, got %T: %w", c.Method, v, specql.ErrNotSupported)
	}
	escaped := t.d.EscapeLike(s)
	var pattern string
	switch c.Method {
	case expr.MethodContains:
		pattern = "%" + escaped + "%"
	case expr.MethodStartsWith:
		pattern = escaped + "%"
	case expr.MethodEndsWith:
		pattern = "%" + escaped
	}
	sb.WriteString("(")
	if err := t.translate(sb, c.Target); err != nil {
		return err
	}
	sb.WriteString(" LIKE ")
	sb.WriteString(t.addParam(pattern))
	sb.WriteString(")")
	return nil
}

// membership renders collection Contains as IN over statically resolved
// values. An empty collection short-circuits to a false predicate rather
// than emitting an empty IN list.
func (t *translator) membership(sb *strings.Builder, c *expr.Call) error {
	v, err := expr.Evaluate(c.Target)
	if err != nil {
		return fmt.Errorf("compiler: membership collection cannot be resolved at compile time: %w", err)
	}
	if v == nil {
		return fmt.Errorf("compiler: membership test against a nil collection: %w", specql.ErrNotSupported)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return fmt.Errorf("compiler: a string is not a membership collection: %w", specql.ErrNotSupported)
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("compiler: %T is not a membership collection: %w", v, specql.ErrNotSupported)
	}
	n := rv.Len()
	if n == 0 {
		sb.WriteString("(1 = 0)")
		return nil
	}
	if n == 1 {
		if _, isString := rv.Index(0).Interface().(string); isString {
			return fmt.Errorf("compiler: single-element string collection in membership test, use a string comparison instead: %w",
				specql.ErrNotSupported)
		}
	}
	sb.WriteString("(")
	if err := t.translate(sb, c.Args[0]); err != nil {
		return err
	}
	sb.WriteString(" IN (")
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(t.addParam(rv.Index(i).Interface()))
	}
	sb.WriteString("))")
	return nil
}

// value renders nil as the NULL literal and everything else as a new
// parameter.
func (t *translator) value(sb *strings.Builder, v any) {
	if isNilValue(v) {
		sb.WriteString("NULL")
		return
	}
	sb.WriteString(t.addParam(v))
}

func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
