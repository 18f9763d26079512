package prompta

import (
	"errors"
	"fmt"
)

// Validate confirms every node reachable from root satisfies the branching
// invariant: a node with two or more children must have a condition on
// every child. A violation is a configuration defect, reported before any
// message is sent; the returned error joins one entry per offending node.
// The walk tolerates cycles (conditions may point back to an ancestor).
func Validate[T any](root *Node[T]) error {
	if root == nil {
		return errors.New("validate: nil root node")
	}

	var errs []error
	seen := make(map[*Node[T]]bool)
	queue := []*Node[T]{root}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if seen[node] {
			continue
		}
		seen[node] = true

		if !node.hasValidChildren() {
			errs = append(errs, fmt.Errorf("node %s: %w", node.prompt.label(), ErrAmbiguousChildren))
		}
		queue = append(queue, node.Children()...)
	}

	return errors.Join(errs...)
}
