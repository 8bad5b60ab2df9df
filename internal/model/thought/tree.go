package thought

// AppendReply returns a forest in which child is the last reply of every node whose id
// equals targetID, together with the number of such nodes.
//
// Only the nodes on a root-to-target path are reallocated. Every other node, including
// whole roots that do not contain the target, is carried over by reference. When nothing
// matches, the input slice itself is returned.
func AppendReply(forest []*Node, targetID string, child *Node) ([]*Node, int) {
	next, matches := rewriteAll(forest, targetID, child)
	if matches == 0 {
		return forest, 0
	}
	return next, matches
}

// rewriteAll maps rewrite over nodes. The returned slice is freshly allocated only when
// at least one element changed; otherwise nodes is returned as is.
func rewriteAll(nodes []*Node, targetID string, child *Node) ([]*Node, int) {
	var out []*Node
	matches := 0
	for i, n := range nodes {
		rewritten, m := rewrite(n, targetID, child)
		if m == 0 {
			if out != nil {
				out = append(out, n)
			}
			continue
		}
		matches += m
		if out == nil {
			out = make([]*Node, i, len(nodes))
			copy(out, nodes[:i])
		}
		out = append(out, rewritten)
	}
	if out == nil {
		return nodes, 0
	}
	return out, matches
}

// rewrite does not stop at the first match: descendants of a matching node are
// visited too, so a duplicated id would receive the child at every occurrence.
func rewrite(n *Node, targetID string, child *Node) (*Node, int) {
	replies, matches := rewriteAll(n.replies, targetID, child)
	if n.id == targetID {
		grown := make([]*Node, len(replies), len(replies)+1)
		copy(grown, replies)
		return n.withReplies(append(grown, child)), matches + 1
	}
	if matches == 0 {
		return n, 0
	}
	return n.withReplies(replies), matches
}

// Find locates the first node with the given id in pre-order.
func Find(forest []*Node, id string) (*Node, bool) {
	var found *Node
	Walk(forest, func(n *Node, _ int) bool {
		if n.id == id {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}

// Walk visits every node in pre-order with its depth (roots are depth 0). Returning
// false from fn stops the walk.
func Walk(forest []*Node, fn func(n *Node, depth int) bool) {
	for _, root := range forest {
		if !walk(root, 0, fn) {
			return
		}
	}
}

func walk(n *Node, depth int, fn func(*Node, int) bool) bool {
	if !fn(n, depth) {
		return false
	}
	for _, child := range n.replies {
		if !walk(child, depth+1, fn) {
			return false
		}
	}
	return true
}

// Count returns the number of nodes in the forest.
func Count(forest []*Node) int {
	total := 0
	Walk(forest, func(*Node, int) bool {
		total++
		return true
	})
	return total
}

// MaxDepth returns the deepest depth in the forest, or -1 for an empty forest.
func MaxDepth(forest []*Node) int {
	deepest := -1
	Walk(forest, func(_ *Node, depth int) bool {
		if depth > deepest {
			deepest = depth
		}
		return true
	})
	return deepest
}
