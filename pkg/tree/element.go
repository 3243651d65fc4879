package tree

import "context"

// Element is an in-memory tree node. It is mostly useful for building small
// trees by hand, and for replaying a recorded traversal.
type Element struct {
	loc      *Locate
	Name     string
	Children []*Element
}

// El creates an unlocated [Element] with the given children.
func El(label string, children ...*Element) *Element {
	return &Element{Name: label, Children: children}
}

// At creates a located [Element] with the given children.
func At(label string, offset, length int, children ...*Element) *Element {
	return &Element{
		Name:     label,
		loc:      &Locate{Offset: offset, Len: length},
		Children: children,
	}
}

// Label implements [Node].
func (e *Element) Label() string {
	return e.Name
}

// Locate implements [Node].
func (e *Element) Locate() (Locate, bool) {
	if e.loc == nil {
		return Locate{}, false
	}

	return *e.loc, true
}

// Walk sends the traversal events for e and its descendants to v.
func (e *Element) Walk(v Visitor) {
	type frame struct {
		el   *Element
		next int
	}

	v.Enter(e)

	stack := []frame{{el: e}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next == len(top.el.Children) {
			v.Leave(top.el)
			stack = stack[:len(stack)-1]

			continue
		}

		child := top.el.Children[top.next]
		top.next++

		v.Enter(child)
		stack = append(stack, frame{el: child})
	}
}

// Parse implements [Parser] by walking e, ignoring the source.
func (e *Element) Parse(_ context.Context, _ []byte, v Visitor) error {
	e.Walk(v)

	return nil
}
