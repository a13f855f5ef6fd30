package expr

// ReplaceParams returns a copy of n with every parameter reference found in
// mapping substituted by its replacement. Parameters not in the mapping are
// kept. Subtrees without any mapped parameter are shared, not copied.
//
// Combining predicates built against separate lambdas relies on this: both
// bodies are re-pointed onto a single parameter set before they are joined.
func ReplaceParams(n Node, mapping map[*Param]*Param) Node {
	if len(mapping) == 0 {
		return n
	}
	out, _ := rewrite(n, mapping)
	return out
}

// rewrite reports whether the returned node differs from the input.
func rewrite(n Node, mapping map[*Param]*Param) (Node, bool) {
	switch t := n.(type) {
	case *Param:
		if repl, ok := mapping[t]; ok {
			return repl, true
		}
		return t, false
	case *Binary:
		left, lc := rewrite(t.Left, mapping)
		right, rc := rewrite(t.Right, mapping)
		if !lc && !rc {
			return t, false
		}
		return &Binary{Op: t.Op, Left: left, Right: right}, true
	case *Unary:
		operand, c := rewrite(t.Operand, mapping)
		if !c {
			return t, false
		}
		return &Unary{Op: t.Op, Operand: operand}, true
	case *Member:
		target, c := rewrite(t.Target, mapping)
		if !c {
			return t, false
		}
		return &Member{Target: target, Name: t.Name}, true
	case *Call:
		target := t.Target
		targetChanged := false
		if target != nil {
			target, targetChanged = rewrite(target, mapping)
		}
		args := t.Args
		argsChanged := false
		for i, a := range t.Args {
			ra, c := rewrite(a, mapping)
			if c && !argsChanged {
				args = make([]Node, len(t.Args))
				copy(args, t.Args[:i])
				argsChanged = true
			}
			if argsChanged {
				args[i] = ra
			}
		}
		if !targetChanged && !argsChanged {
			return t, false
		}
		return &Call{Target: target, Method: t.Method, Args: args}, true
	case *Construct:
		fields := t.Fields
		changed := false
		for i, f := range t.Fields {
			rv, c := rewrite(f.Value, mapping)
			if c && !changed {
				fields = make([]FieldInit, len(t.Fields))
				copy(fields, t.Fields[:i])
				changed = true
			}
			if changed {
				fields[i] = FieldInit{Name: f.Name, Value: rv}
			}
		}
		if !changed {
			return t, false
		}
		return &Construct{Fields: fields}, true
	case *Constant:
		return t, false
	}
	return n, false
}

// ContainsParam reports whether any parameter node is reachable from n.
func ContainsParam(n Node) bool {
	found := false
	Walk(n, func(node Node) bool {
		if _, ok := node.(*Param); ok {
			found = true
			return false
		}
		return true
	})
	return found
}

// Walk visits n and its children depth-first. The visitor returns false to
// prune the subtree.
func Walk(n Node, visit func(Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	switch t := n.(type) {
	case *Binary:
		Walk(t.Left, visit)
		Walk(t.Right, visit)
	case *Unary:
		Walk(t.Operand, visit)
	case *Member:
		Walk(t.Target, visit)
	case *Call:
		if t.Target != nil {
			Walk(t.Target, visit)
		}
		for _, a := range t.Args {
			Walk(a, visit)
		}
	case *Construct:
		for _, f := range t.Fields {
			Walk(f.Value, visit)
		}
	}
}
