// Package filter parses textual predicates into expression lambdas, giving
// the CLI and configuration-driven callers a way to state conditions
// without writing Go:
//
//	name == "anvil" and price > 3
//	contains(tolower(name), "bolt") or id in [1, 2, 3]
//
// Identifiers name entity fields and resolve against the mapped columns
// case-insensitively at compile time.
package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"

	"github.com/specql/specql"
	"github.com/specql/specql/expr"
)

var parser = participle.MustBuild[Expression](
	participle.Lexer(filterLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
	participle.UseLookahead(3),
)

// Parse compiles a predicate into a single-parameter lambda.
func Parse(input string) (*expr.Lambda, error) {
	p := expr.Arg[any]("p")
	body, err := parseInto(input, p)
	if err != nil {
		return nil, err
	}
	return expr.NewLambda(body, p), nil
}

// Predicate parses input once and returns a builder-ready predicate bound
// to the builder's own parameter.
func Predicate(input string) (func(p *expr.Param) expr.Node, error) {
	root, err := parseTree(input)
	if err != nil {
		return nil, err
	}
	// Conversion is deterministic, so probing with a throwaway parameter
	// validates the whole tree up front.
	if _, err := convertExpression(root, &expr.Param{Name: "p"}, true); err != nil {
		return nil, err
	}
	return func(p *expr.Param) expr.Node {
		n, _ := convertExpression(root, p, true)
		return n
	}, nil
}

func parseInto(input string, p *expr.Param) (expr.Node, error) {
	root, err := parseTree(input)
	if err != nil {
		return nil, err
	}
	return convertExpression(root, p, true)
}

func parseTree(input string) (*Expression, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("filter: empty input: %w", specql.ErrInvalidArgument)
	}
	root, err := parser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("filter: %v: %w", err, specql.ErrInvalidArgument)
	}
	return root, nil
}

// convertExpression folds or-clauses left to right. In boolean positions a
// bare member becomes an equality against true, so "not active" renders as
// well-formed SQL on every provider. The operands of or/and are boolean
// positions themselves, even inside a parenthesized value.
func convertExpression(e *Expression, p *expr.Param, boolean bool) (expr.Node, error) {
	var out expr.Node
	for _, clause := range e.Or {
		n, err := convertAnd(clause, p, boolean || len(e.Or) > 1)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = n
		} else {
			out = expr.Or(out, n)
		}
	}
	return out, nil
}

func convertAnd(a *AndClause, p *expr.Param, boolean bool) (expr.Node, error) {
	var out expr.Node
	for _, cond := range a.And {
		n, err := convertCondition(cond, p, boolean || len(a.And) > 1)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = n
		} else {
			out = expr.And(out, n)
		}
	}
	return out, nil
}

func convertCondition(c *Condition, p *expr.Param, boolean bool) (expr.Node, error) {
	if c.Not != nil {
		inner, err := convertCondition(c.Not, p, true)
		if err != nil {
			return nil, err
		}
		return expr.Not(inner), nil
	}
	return convertComparison(c.Cmp, p, boolean)
}

var comparisonOps = map[string]func(l, r expr.Node) *expr.Binary{
	"==": expr.Eq,
	"!=": expr.Ne,
	"<":  expr.Lt,
	"<=": expr.Le,
	">":  expr.Gt,
	">=": expr.Ge,
}

func convertComparison(c *Comparison, p *expr.Param, boolean bool) (expr.Node, error) {
	left, err := convertOperand(c.Left, p)
	if err != nil {
		return nil, err
	}
	switch {
	case c.Op != "":
		right, err := convertOperand(c.Right, p)
		if err != nil {
			return nil, err
		}
		build, ok := comparisonOps[c.Op]
		if !ok {
			return nil, fmt.Errorf("filter: %s: operator %q: %w", c.Pos, c.Op, specql.ErrInvalidArgument)
		}
		return build(left, right), nil
	case c.In != nil:
		values := make([]any, 0, len(c.In.Values))
		for _, lit := range c.In.Values {
			v, err := literalValue(lit)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return expr.In(left, values), nil
	}
	if boolean {
		if m, ok := left.(*expr.Member); ok {
			return expr.Eq(m, expr.Value(true)), nil
		}
	}
	return left, nil
}

func convertOperand(o *Operand, p *expr.Param) (expr.Node, error) {
	out, err := convertTerm(o.Left, p)
	if err != nil {
		return nil, err
	}
	for _, r := range o.Rest {
		rhs, err := convertTerm(r.Term, p)
		if err != nil {
			return nil, err
		}
		if r.Op == "+" {
			out = expr.Add(out, rhs)
		} else {
			out = expr.Sub(out, rhs)
		}
	}
	return out, nil
}

func convertTerm(t *Term, p *expr.Param) (expr.Node, error) {
	out, err := convertFactor(t.Left, p)
	if err != nil {
		return nil, err
	}
	for _, r := range t.Rest {
		rhs, err := convertFactor(r.Factor, p)
		if err != nil {
			return nil, err
		}
		switch r.Op {
		case "*":
			out = expr.Mul(out, rhs)
		case "/":
			out = expr.Div(out, rhs)
		default:
			out = expr.Mod(out, rhs)
		}
	}
	return out, nil
}

func convertFactor(f *Factor, p *expr.Param) (expr.Node, error) {
	switch {
	case f.Call != nil:
		return convertCall(f.Call, p)
	case f.Literal != nil:
		v, err := literalValue(f.Literal)
		if err != nil {
			return nil, err
		}
		return expr.Value(v), nil
	case f.Member != nil:
		return convertMember(f.Member, p)
	case f.Paren != nil:
		return convertExpression(f.Paren, p, false)
	}
	return nil, fmt.Errorf("filter: %s: empty factor: %w", f.Pos, specql.ErrInvalidArgument)
}

func convertMember(m *MemberPath, p *expr.Param) (expr.Node, error) {
	out := p.Field(m.Path[0])
	for _, part := range m.Path[1:] {
		out = out.Field(part)
	}
	return out, nil
}

// arity maps each function to its argument count.
var arity = map[string]int{
	"contains":   2,
	"startswith": 2,
	"endswith":   2,
	"tolower":    1,
	"toupper":    1,
}

func convertCall(c *Call, p *expr.Param) (expr.Node, error) {
	name := strings.ToLower(c.Func)
	want, ok := arity[name]
	if !ok {
		return nil, fmt.Errorf("filter: %s: unknown function %q: %w", c.Pos, c.Func, specql.ErrInvalidArgument)
	}
	if len(c.Args) != want {
		return nil, fmt.Errorf("filter: %s: %s takes %d argument(s), got %d: %w",
			c.Pos, name, want, len(c.Args), specql.ErrInvalidArgument)
	}
	args := make([]expr.Node, len(c.Args))
	for i, a := range c.Args {
		n, err := convertOperand(a, p)
		if err != nil {
			return nil, err
		}
		args[i] = n
	}
	switch name {
	case "contains":
		return expr.Contains(args[0], args[1]), nil
	case "startswith":
		return expr.StartsWith(args[0], args[1]), nil
	case "endswith":
		return expr.EndsWith(args[0], args[1]), nil
	case "tolower":
		return expr.ToLower(args[0]), nil
	default:
		return expr.ToUpper(args[0]), nil
	}
}

func literalValue(l *Literal) (any, error) {
	switch {
	case l.Str != nil:
		return *l.Str, nil
	case l.Number != nil:
		return numberValue(l.Number)
	case l.True:
		return true, nil
	case l.False:
		return false, nil
	case l.Null:
		return nil, nil
	}
	return nil, fmt.Errorf("filter: %s: empty literal: %w", l.Pos, specql.ErrInvalidArgument)
}

func numberValue(n *Number) (any, error) {
	if strings.Contains(n.Val, ".") {
		f, err := strconv.ParseFloat(n.Val, 64)
		if err != nil {
			return nil, fmt.Errorf("filter: bad number %q: %w", n.Val, specql.ErrInvalidArgument)
		}
		if n.Neg {
			return -f, nil
		}
		return f, nil
	}
	i, err := strconv.ParseInt(n.Val, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("filter: bad number %q: %w", n.Val, specql.ErrInvalidArgument)
	}
	if n.Neg {
		return -i, nil
	}
	return i, nil
}
