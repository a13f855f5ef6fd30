package compiler

import (
	"fmt"
	"reflect"

	"github.com/specql/specql"
	"github.com/specql/specql/expr"
	"github.com/specql/specql/schema"
	"github.com/specql/specql/spec"
)

// TableBinding pairs one bound table with its statement alias. An empty
// alias means columns render unqualified, the form UPDATE and DELETE need.
type TableBinding struct {
	Table *schema.Table
	Alias string
}

// Bindings is the ordered alias assignment for a specification: index 0 is
// the root entity as t0, join i follows as t{i+1} unless the join declared
// an alias override.
type Bindings struct {
	list []*TableBinding
	// byType resolves a parameter's declared entity type to its binding.
	// Types bound more than once (self-joins) are excluded; their
	// parameters fall back to positional assignment.
	byType    map[reflect.Type]*TableBinding
	typeCount map[reflect.Type]int
}

// ResolveBindings builds the binding list for a specification.
func ResolveBindings(def *spec.Definition) (*Bindings, error) {
	if def == nil {
		return nil, fmt.Errorf("compiler: nil specification: %w", specql.ErrInvalidArgument)
	}
	bs := &Bindings{
		byType:    map[reflect.Type]*TableBinding{},
		typeCount: map[reflect.Type]int{},
	}
	if err := bs.add(def.Root, "t0"); err != nil {
		return nil, err
	}
	for i, j := range def.Joins {
		alias := j.Alias
		if alias == "" {
			alias = fmt.Sprintf("t%d", i+1)
		}
		if err := bs.add(j.Right, alias); err != nil {
			return nil, err
		}
	}
	return bs, nil
}

// rootOnly binds just the entity's base table with no alias; UPDATE and
// DELETE statements translate their expressions against it.
func rootOnly(root reflect.Type) (*Bindings, error) {
	bs := &Bindings{
		byType:    map[reflect.Type]*TableBinding{},
		typeCount: map[reflect.Type]int{},
	}
	if err := bs.add(root, ""); err != nil {
		return nil, err
	}
	return bs, nil
}

func (bs *Bindings) add(entity reflect.Type, alias string) error {
	tbl, err := schema.For(entity)
	if err != nil {
		return err
	}
	b := &TableBinding{Table: tbl, Alias: alias}
	bs.list = append(bs.list, b)
	bs.typeCount[tbl.Type]++
	if bs.typeCount[tbl.Type] == 1 {
		bs.byType[tbl.Type] = b
	} else {
		delete(bs.byType, tbl.Type)
	}
	return nil
}

// Root returns the base table binding.
func (bs *Bindings) Root() *TableBinding { return bs.list[0] }

// List returns the bindings in alias order.
func (bs *Bindings) List() []*TableBinding { return bs.list }

// ForLambda assigns a binding to each of the lambda's parameters: by
// declared type when the type is bound exactly once, positionally
// otherwise. More parameters than bindings fails the compilation.
func (bs *Bindings) ForLambda(lam *expr.Lambda) (map[*expr.Param]*TableBinding, error) {
	if lam == nil {
		return nil, fmt.Errorf("compiler: nil expression: %w", specql.ErrInvalidArgument)
	}
	if len(lam.Params) > len(bs.list) {
		return nil, fmt.Errorf("compiler: not enough bindings: expression declares %d parameters but %d tables are bound: %w",
			len(lam.Params), len(bs.list), specql.ErrInvalidOperation)
	}
	out := make(map[*expr.Param]*TableBinding, len(lam.Params))
	for i, p := range lam.Params {
		t := p.Type
		for t != nil && t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if b, ok := bs.byType[t]; ok {
			out[p] = b
			continue
		}
		out[p] = bs.list[i]
	}
	return out, nil
}

// forJoin assigns the bindings for join i's on-condition: the second
// parameter is pinned to the joined table itself, the first resolves by
// type with the root as fallback. Pinning keeps self-joins correct where
// pure type matching would collapse both sides onto one alias.
func (bs *Bindings) forJoin(i int, lam *expr.Lambda) (map[*expr.Param]*TableBinding, error) {
	if lam == nil || len(lam.Params) != 2 {
		return nil, fmt.Errorf("compiler: join condition must declare two parameters: %w", specql.ErrInvalidOperation)
	}
	if i+1 >= len(bs.list) {
		return nil, fmt.Errorf("compiler: not enough bindings for join %d: %w", i, specql.ErrInvalidOperation)
	}
	out := make(map[*expr.Param]*TableBinding, 2)
	left := lam.Params[0]
	t := left.Type
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if b, ok := bs.byType[t]; ok {
		out[left] = b
	} else {
		out[left] = bs.list[0]
	}
	out[lam.Params[1]] = bs.list[i+1]
	return out, nil
}
