package pattern

// Walk traverses the tree rooted at node in depth-first pre-order, left
// operand before right. If fn returns false the children of that node are
// skipped.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	switch n := node.(type) {
	case *Comparison:
	case *CompositeComparison:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *CompositePattern:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *QualifiedPattern:
		Walk(n.Pattern, fn)
	default:
		panic("pattern: unknown node type")
	}
}

// Comparisons returns every leaf comparison under node in source order.
func Comparisons(node Node) []*Comparison {
	var out []*Comparison
	Walk(node, func(n Node) bool {
		if c, ok := n.(*Comparison); ok {
			out = append(out, c)
		}
		return true
	})
	return out
}

// ObjectTypes returns the distinct object types referenced under node in
// order of first appearance.
func ObjectTypes(node Node) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range Comparisons(node) {
		if !seen[c.Path.ObjectType] {
			seen[c.Path.ObjectType] = true
			out = append(out, c.Path.ObjectType)
		}
	}
	return out
}
