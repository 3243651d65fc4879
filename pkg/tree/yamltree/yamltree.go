// Package yamltree produces traversal events for YAML documents.
//
// Labels are goccy/go-yaml node type names ("Document", "Mapping",
// "MappingValue", "String", ...). Each MappingValue has a "Key" and a "Value"
// child wrapping the key and value nodes, so that patterns can tell keys from
// values. Anchor, alias, tag and block scalar marks are emitted as
// "Indicator" leaves, and comments as "Comment" leaves inside a
// "CommentGroup".
package yamltree

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
	"github.com/goccy/go-yaml/token"

	"github.com/macropower/crumbs/pkg/tree"
)

// Synthetic labels.
const (
	LabelStream       = "Stream"
	LabelKey          = "Key"
	LabelValue        = "Value"
	LabelIndicator    = "Indicator"
	LabelCommentGroup = "CommentGroup"
	LabelComment      = "Comment"
)

// Parser implements [tree.Parser] for YAML.
type Parser struct{}

// New creates a new [Parser].
func New() *Parser {
	return &Parser{}
}

// Parse implements [tree.Parser]. All documents of a stream are children of
// a single [LabelStream] root.
func (p *Parser) Parse(ctx context.Context, src []byte, v tree.Visitor) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	file, err := parser.ParseBytes(src, parser.ParseComments)
	if err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	w := &walker{
		src:   src,
		lines: tree.NewLines(src),
		v:     v,
	}

	root := tree.Label(LabelStream)
	v.Enter(root)

	for _, doc := range file.Docs {
		err := ctx.Err()
		if err != nil {
			return err
		}

		w.walk(doc)
	}

	v.Leave(root)

	return nil
}

type walker struct {
	v     tree.Visitor
	lines *tree.Lines
	src   []byte
}

func (w *walker) walk(n ast.Node) {
	if n == nil {
		return
	}

	switch n := n.(type) {
	case *ast.CommentGroupNode:
		w.comments(n)

		return
	case *ast.CommentNode:
		w.leaf(LabelComment, n.Token)

		return
	}

	node := w.node(n)
	w.v.Enter(node)

	switch n := n.(type) {
	case *ast.DocumentNode:
		w.indicator(n.Start)
		w.walk(n.Body)
		w.indicator(n.End)
	case *ast.MappingNode:
		for _, mv := range n.Values {
			w.walk(mv)
		}

		w.walk(n.FootComment)
	case *ast.MappingKeyNode:
		w.indicator(n.Start)
		w.walk(n.Value)
	case *ast.MappingValueNode:
		w.wrap(LabelKey, n.Key)
		w.wrap(LabelValue, n.Value)
		w.walk(n.FootComment)
	case *ast.SequenceNode:
		for _, c := range n.ValueHeadComments {
			w.walk(c)
		}

		for _, value := range n.Values {
			w.walk(value)
		}

		w.walk(n.FootComment)
	case *ast.AnchorNode:
		w.indicator(n.Start)
		w.walk(n.Name)
		w.walk(n.Value)
	case *ast.AliasNode:
		w.indicator(n.Start)
		w.walk(n.Value)
	case *ast.TagNode:
		w.indicator(n.Start)
		w.walk(n.Value)
	case *ast.LiteralNode:
		w.indicator(n.Start)
		if n.Value != nil {
			w.walk(n.Value)
		}
	case *ast.DirectiveNode:
		w.indicator(n.Start)
		w.walk(n.Name)

		for _, value := range n.Values {
			w.walk(value)
		}
	}

	w.walk(comment(n))
	w.v.Leave(node)
}

// node returns the traversal node for n. Scalars are located when their
// token can be found in the source; containers are not.
func (w *walker) node(n ast.Node) tree.Node {
	label := n.Type().String()

	switch n.(type) {
	case *ast.DocumentNode, *ast.MappingNode, *ast.MappingKeyNode, *ast.MappingValueNode,
		*ast.SequenceNode, *ast.AnchorNode, *ast.AliasNode, *ast.TagNode,
		*ast.LiteralNode, *ast.DirectiveNode:
		return tree.Label(label)
	}

	loc, ok := w.locate(n.GetToken())
	if !ok {
		return tree.Label(label)
	}

	return tree.Leaf{Name: label, Loc: loc}
}

func (w *walker) wrap(label string, n ast.Node) {
	node := tree.Label(label)
	w.v.Enter(node)
	w.walk(n)
	w.v.Leave(node)
}

func (w *walker) comments(g *ast.CommentGroupNode) {
	if g == nil || len(g.Comments) == 0 {
		return
	}

	node := tree.Label(LabelCommentGroup)
	w.v.Enter(node)

	for _, c := range g.Comments {
		w.leaf(LabelComment, c.Token)
	}

	w.v.Leave(node)
}

func (w *walker) indicator(tk *token.Token) {
	w.leaf(LabelIndicator, tk)
}

func (w *walker) leaf(label string, tk *token.Token) {
	loc, ok := w.locate(tk)
	if !ok {
		return
	}

	node := tree.Leaf{Name: label, Loc: loc}
	w.v.Enter(node)
	w.v.Leave(node)
}

// locate finds the byte range of tk. The token's line and column only give
// a starting point, so the token text is checked against the source there.
func (w *walker) locate(tk *token.Token) (tree.Locate, bool) {
	if tk == nil || tk.Position == nil {
		return tree.Locate{}, false
	}

	off, ok := w.lines.RuneOffset(tk.Position.Line, tk.Position.Column)
	if !ok {
		return tree.Locate{}, false
	}

	rest := w.src[off:]
	for _, text := range candidates(tk) {
		if text != "" && bytes.HasPrefix(rest, []byte(text)) {
			return tree.Locate{Offset: off, Len: len(text)}, true
		}
	}

	return tree.Locate{}, false
}

func candidates(tk *token.Token) []string {
	origin := strings.TrimSpace(tk.Origin)

	out := []string{origin, tk.Value}
	if tk.Type == token.CommentType {
		out = append(out, "#"+tk.Value)
	}

	return out
}

func comment(n ast.Node) ast.Node {
	g := n.GetComment()
	if g == nil {
		return nil
	}

	return g
}
