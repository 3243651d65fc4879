// Package gotree produces traversal events for Go source files.
//
// Syntax nodes are labeled with their go/ast type name ("FuncDecl",
// "CallExpr", "Ident", ...) and located at their source range. Every lexical
// token is emitted as a located leaf under the innermost syntax node open at
// its position, labeled with its token name ("func", "IDENT", "STRING",
// "COMMENT", "{", ...). Automatically inserted semicolons are not emitted.
package gotree

import (
	"bytes"
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	gotoken "go/token"
	"strings"

	"github.com/macropower/crumbs/pkg/tree"
)

// Parser implements [tree.Parser] for Go.
type Parser struct{}

// New creates a new [Parser].
func New() *Parser {
	return &Parser{}
}

// Parse implements [tree.Parser]. The root is an unlocated "File" node
// spanning the whole buffer, so leading and trailing comments are inside it.
func (p *Parser) Parse(ctx context.Context, src []byte, v tree.Visitor) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	fset := gotoken.NewFileSet()

	file, err := parser.ParseFile(fset, "", src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return fmt.Errorf("parse go: %w", err)
	}

	toks, err := scan(src)
	if err != nil {
		return err
	}

	w := &walker{
		v:    v,
		file: fset.File(file.FileStart),
		toks: toks,
	}

	var (
		stack   []ast.Node
		visited []tree.Node
	)

	ast.Inspect(file, func(n ast.Node) bool {
		if n == nil {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			end := len(src)
			if _, ok := top.(*ast.File); !ok {
				end = w.offset(top.End())
			}

			w.emitUntil(end)
			v.Leave(visited[len(visited)-1])
			visited = visited[:len(visited)-1]

			return true
		}

		node := w.node(n)
		if _, ok := n.(*ast.File); !ok {
			if loc, ok := node.Locate(); ok {
				w.emitUntil(loc.Offset)
			}
		}

		v.Enter(node)
		stack = append(stack, n)
		visited = append(visited, node)

		return true
	})

	return nil
}

type lexeme struct {
	name string
	loc  tree.Locate
}

type walker struct {
	v    tree.Visitor
	file *gotoken.File
	toks []lexeme
	next int
}

func (w *walker) offset(p gotoken.Pos) int {
	if !p.IsValid() {
		return -1
	}

	return w.file.Offset(p)
}

func (w *walker) node(n ast.Node) tree.Node {
	label := strings.TrimPrefix(fmt.Sprintf("%T", n), "*ast.")

	if _, ok := n.(*ast.File); ok {
		return tree.Label(label)
	}

	start, end := w.offset(n.Pos()), w.offset(n.End())
	if start < 0 || end <= start {
		return tree.Label(label)
	}

	return tree.NewLeaf(label, start, end-start)
}

// emitUntil emits every pending token starting before end.
func (w *walker) emitUntil(end int) {
	for w.next < len(w.toks) && w.toks[w.next].loc.Offset < end {
		leaf := tree.Leaf{Name: w.toks[w.next].name, Loc: w.toks[w.next].loc}
		w.v.Enter(leaf)
		w.v.Leave(leaf)
		w.next++
	}
}

func scan(src []byte) ([]lexeme, error) {
	fset := gotoken.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))

	var errs scanner.ErrorList

	var s scanner.Scanner
	s.Init(file, src, func(pos gotoken.Position, msg string) {
		errs.Add(pos, msg)
	}, scanner.ScanComments)

	var toks []lexeme
	for {
		pos, tok, lit := s.Scan()
		if tok == gotoken.EOF {
			break
		}

		if tok == gotoken.SEMICOLON && lit == "\n" {
			continue
		}

		off := file.Offset(pos)
		toks = append(toks, lexeme{
			name: tok.String(),
			loc:  tree.Locate{Offset: off, Len: tokenLen(src[off:], tok, lit)},
		})
	}

	if errs.Len() > 0 {
		return nil, fmt.Errorf("scan go: %w", errs.Err())
	}

	return toks, nil
}

// tokenLen returns the length of the token at the start of rest. Comments and
// raw strings are measured in the source, since the scanner drops carriage
// returns from their literal text.
func tokenLen(rest []byte, tok gotoken.Token, lit string) int {
	switch {
	case tok == gotoken.COMMENT && bytes.HasPrefix(rest, []byte("/*")):
		if i := bytes.Index(rest[2:], []byte("*/")); i >= 0 {
			return i + 4
		}

		return len(rest)
	case tok == gotoken.COMMENT:
		n := len(rest)
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			n = i
		}

		if n > 0 && rest[n-1] == '\r' {
			n--
		}

		return n
	case tok == gotoken.STRING && len(rest) > 0 && rest[0] == '`':
		if i := bytes.IndexByte(rest[1:], '`'); i >= 0 {
			return i + 2
		}

		return len(rest)
	case lit != "":
		return len(lit)
	}

	return len(tok.String())
}
