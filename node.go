package prompta

import (
	"context"
	"fmt"
)

// Node places a Prompt in the conversation tree: it owns the ordered
// children and, when the node is one of several siblings, the branch
// condition that selects it. Trees carry per-run mutation (exit and
// inactivity clear a node's children), so build a fresh tree for each run.
type Node[T any] struct {
	TreeNode[*Node[T]]

	prompt    *Prompt[T]
	condition Condition[T]
}

// NewNode wraps a prompt into a tree node with no children and no
// condition.
func NewNode[T any](prompt *Prompt[T]) *Node[T] {
	return &Node[T]{prompt: prompt}
}

// When sets the branch condition that must hold for this node to be chosen
// among its siblings. Chainable.
func (n *Node[T]) When(cond Condition[T]) *Node[T] {
	n.condition = cond
	return n
}

// Prompt returns the wrapped prompt.
func (n *Node[T]) Prompt() *Prompt[T] { return n.prompt }

// SetChildren replaces the children wholesale. Chainable.
func (n *Node[T]) SetChildren(children ...*Node[T]) *Node[T] {
	n.TreeNode.SetChildren(children...)
	return n
}

// AddChild appends one child. Chainable.
func (n *Node[T]) AddChild(child *Node[T]) *Node[T] {
	n.TreeNode.AddChild(child)
	return n
}

// hasValidChildren reports whether the branching shape is unambiguous: at
// most one child, or a condition on every child.
func (n *Node[T]) hasValidChildren() bool {
	children := n.Children()
	if len(children) <= 1 {
		return true
	}
	for _, child := range children {
		if child.condition == nil {
			return false
		}
	}
	return true
}

// getNext returns the first child whose condition is absent or true for
// data, or nil when none qualifies. Declaration order decides ties; a
// conditionless child is always eligible and conventionally sits last.
func (n *Node[T]) getNext(ctx context.Context, data T) (*Node[T], error) {
	for _, child := range n.Children() {
		if child.condition == nil {
			return child, nil
		}
		ok, err := child.condition(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("condition for %s: %w", child.prompt.label(), err)
		}
		if ok {
			return child, nil
		}
	}
	return nil, nil
}

// collect runs the prompt's collection cycle and applies its tree effect:
// a voluntary exit or inactivity clears this node's children, so the
// traversal ends here.
func (n *Node[T]) collect(ctx context.Context, ch Channel, data T, env *runEnv[T]) (T, error) {
	newData, terminate, err := n.prompt.collect(ctx, ch, data, env)
	if err != nil {
		return data, err
	}
	if terminate {
		n.ClearChildren()
	}
	return newData, nil
}
