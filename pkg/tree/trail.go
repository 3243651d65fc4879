package tree

import (
	"slices"
	"strings"
)

// Crumb is a located node together with the labels of its open ancestors,
// outermost first, ending with the node's own label.
type Crumb struct {
	Path   []string
	Locate Locate
}

// String returns the breadcrumb path separated by spaces.
func (c Crumb) String() string {
	return strings.Join(c.Path, " ")
}

// Trail is a [Visitor] that records the breadcrumb path of every located
// node it sees.
type Trail struct {
	open   []string
	crumbs []Crumb
}

// NewTrail creates a new [Trail].
func NewTrail() *Trail {
	return &Trail{}
}

// Enter implements [Visitor].
func (t *Trail) Enter(n Node) {
	t.open = append(t.open, n.Label())

	loc, ok := n.Locate()
	if ok && loc.Len > 0 {
		t.crumbs = append(t.crumbs, Crumb{
			Path:   slices.Clone(t.open),
			Locate: loc,
		})
	}
}

// Leave implements [Visitor].
func (t *Trail) Leave(_ Node) {
	if len(t.open) > 0 {
		t.open = t.open[:len(t.open)-1]
	}
}

// Crumbs returns every located node seen so far, in traversal order.
func (t *Trail) Crumbs() []Crumb {
	return t.crumbs
}

// Leaves returns the crumbs that do not enclose the next crumb, i.e. the
// located nodes without located descendants.
func (t *Trail) Leaves() []Crumb {
	leaves := make([]Crumb, 0, len(t.crumbs))
	for i, c := range t.crumbs {
		if i+1 < len(t.crumbs) && encloses(c, t.crumbs[i+1]) {
			continue
		}

		leaves = append(leaves, c)
	}

	return leaves
}

func encloses(outer, inner Crumb) bool {
	if len(inner.Path) <= len(outer.Path) {
		return false
	}

	return slices.Equal(outer.Path, inner.Path[:len(outer.Path)]) &&
		inner.Locate.Offset >= outer.Locate.Offset &&
		inner.Locate.End() <= outer.Locate.End()
}
