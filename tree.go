package prompta

// TreeNode holds an ordered, mutable list of children of element type N.
// It performs no validation; tree-shape invariants belong to the component
// that owns the tree (see Validate).
type TreeNode[N any] struct {
	children []N
}

// Children returns the ordered child list. The slice is the node's own
// backing storage under the single-owner model; callers that need to keep
// it across mutations should copy it.
func (t *TreeNode[N]) Children() []N {
	return t.children
}

// SetChildren replaces the children wholesale.
func (t *TreeNode[N]) SetChildren(children ...N) {
	t.children = children
}

// AddChild appends one child.
func (t *TreeNode[N]) AddChild(child N) {
	t.children = append(t.children, child)
}

// ClearChildren removes all children.
func (t *TreeNode[N]) ClearChildren() {
	t.children = nil
}
