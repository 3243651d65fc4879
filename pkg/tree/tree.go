// Package tree defines the node and traversal contracts shared by parsers and
// the syntax matcher.
//
// A [Parser] turns source bytes into a depth-first stream of paired
// [Visitor.Enter] and [Visitor.Leave] calls. Every Enter is followed by
// exactly one Leave for the same node, in nesting order.
package tree

import (
	"context"
	"fmt"
)

// Locate is a byte range within a source buffer.
type Locate struct {
	Offset int
	Len    int
}

// End returns the exclusive end offset of the range.
func (l Locate) End() int {
	return l.Offset + l.Len
}

// Slice returns the bytes covered by l, and false if l falls outside src.
func (l Locate) Slice(src []byte) ([]byte, bool) {
	if l.Offset < 0 || l.Len < 0 || l.End() > len(src) {
		return nil, false
	}

	return src[l.Offset:l.End()], true
}

func (l Locate) String() string {
	return fmt.Sprintf("%d+%d", l.Offset, l.Len)
}

// Node is a single syntax tree node as seen by a [Visitor].
type Node interface {
	// Label identifies the node kind.
	Label() string
	// Locate returns the node's source range, if it has one.
	Locate() (Locate, bool)
}

// Visitor receives traversal events.
type Visitor interface {
	Enter(n Node)
	Leave(n Node)
}

// Parser produces traversal events for a source buffer.
type Parser interface {
	Parse(ctx context.Context, src []byte, v Visitor) error
}

// Label is a [Node] without a source range.
type Label string

// Label implements [Node].
func (l Label) Label() string {
	return string(l)
}

// Locate implements [Node].
func (Label) Locate() (Locate, bool) {
	return Locate{}, false
}

// Leaf is a [Node] with a source range.
type Leaf struct {
	Name string
	Loc  Locate
}

// NewLeaf creates a [Leaf] covering length bytes starting at offset.
func NewLeaf(label string, offset, length int) Leaf {
	return Leaf{Name: label, Loc: Locate{Offset: offset, Len: length}}
}

// Label implements [Node].
func (l Leaf) Label() string {
	return l.Name
}

// Locate implements [Node].
func (l Leaf) Locate() (Locate, bool) {
	return l.Loc, true
}

// Visitors fans traversal events out to several [Visitor]s, in order.
type Visitors []Visitor

// Enter implements [Visitor].
func (vs Visitors) Enter(n Node) {
	for _, v := range vs {
		v.Enter(n)
	}
}

// Leave implements [Visitor].
func (vs Visitors) Leave(n Node) {
	for _, v := range vs {
		v.Leave(n)
	}
}

// ParserFunc adapts a function to the [Parser] interface.
type ParserFunc func(ctx context.Context, src []byte, v Visitor) error

// Parse implements [Parser].
func (f ParserFunc) Parse(ctx context.Context, src []byte, v Visitor) error {
	return f(ctx, src, v)
}
