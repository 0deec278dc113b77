package domain

import "fmt"

// Validate checks the tree invariants of a node map: a single root under
// RootKey, every child resolving to a node that points back at its parent,
// no node reachable twice and no node left unreachable.
func Validate(nodes map[NodeKey]Node) error {
	root, ok := nodes[RootKey]
	if !ok {
		return &StructuralInvariantError{Reason: "missing root"}
	}
	if _, ok := root.(*RootNode); !ok {
		return &StructuralInvariantError{Key: RootKey, Reason: fmt.Sprintf("root has type %q", root.Type())}
	}
	if root.ParentKey() != "" {
		return &StructuralInvariantError{Key: RootKey, Reason: "root has a parent"}
	}

	seen := make(map[NodeKey]bool, len(nodes))
	seen[RootKey] = true
	stack := []Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		e, ok := n.(Element)
		if !ok {
			continue
		}
		for _, ck := range e.element().children {
			child, ok := nodes[ck]
			if !ok {
				return &StructuralInvariantError{Key: n.Key(), Reason: fmt.Sprintf("child %s does not exist", ck)}
			}
			if child.Key() != ck {
				return &StructuralInvariantError{Key: ck, Reason: fmt.Sprintf("stored under key of node %s", child.Key())}
			}
			if _, ok := child.(*RootNode); ok {
				return &StructuralInvariantError{Key: ck, Reason: "root node below the root"}
			}
			if seen[ck] {
				return &StructuralInvariantError{Key: ck, Reason: "node is reachable more than once"}
			}
			if child.ParentKey() != n.Key() {
				return &StructuralInvariantError{
					Key:    ck,
					Reason: fmt.Sprintf("parent is %q but listed under %s", string(child.ParentKey()), n.Key()),
				}
			}
			seen[ck] = true
			stack = append(stack, child)
		}
	}

	if len(seen) == len(nodes) {
		return nil
	}
	for k, n := range nodes {
		if n.Key() != k {
			return &StructuralInvariantError{Key: k, Reason: fmt.Sprintf("stored under key of node %s", n.Key())}
		}
		if !seen[k] {
			return &StructuralInvariantError{Key: k, Reason: "node is not attached to the tree"}
		}
	}
	return nil
}
