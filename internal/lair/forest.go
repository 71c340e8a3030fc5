package lair

// Node is an element with its nested elements resolved.
type Node struct {
	Element  CodeElement
	Children []*Node
}

// Forest arranges elements into trees by parent reference. Elements whose
// parent is absent from the slice become roots. Order follows the input.
func Forest(elements []CodeElement) []*Node {
	nodes := make(map[string]*Node, len(elements))
	for _, e := range elements {
		nodes[e.ID] = &Node{Element: e}
	}

	var roots []*Node
	for _, e := range elements {
		n := nodes[e.ID]
		if p, ok := nodes[e.Parent]; ok && e.Parent != "" && p != n {
			p.Children = append(p.Children, n)
			continue
		}
		roots = append(roots, n)
	}
	return roots
}

// Walk visits n and its descendants depth-first.
func (n *Node) Walk(fn func(n *Node, depth int)) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int), depth int) {
	fn(n, depth)
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}
