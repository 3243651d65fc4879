// Package chromatree produces traversal events from chroma lexer token
// streams, giving breadcrumb patterns access to any language chroma knows.
//
// The root node is labeled with the lexer name. Each token is nested under
// its category, its subcategory and its own type, skipping levels that
// repeat the one above, so that a "KeywordDeclaration" token is reached
// through "Keyword KeywordDeclaration" and a plain "Keyword" token through
// "Keyword" alone. The innermost node is located.
package chromatree

import (
	"context"
	"errors"
	"fmt"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/macropower/crumbs/pkg/tree"
)

// ErrUnknownLanguage is returned when no lexer exists for a language name.
var ErrUnknownLanguage = errors.New("unknown language")

// Parser implements [tree.Parser] using a chroma lexer.
type Parser struct {
	// Language is a chroma lexer name or alias. If empty, the lexer is
	// chosen from Filename, then by analysing the source.
	Language string
	// Filename is used to pick a lexer when Language is empty.
	Filename string
}

// New creates a new [Parser] for the named language.
func New(language string) *Parser {
	return &Parser{Language: language}
}

// Lexer returns the chroma lexer used for src.
func (p *Parser) Lexer(src []byte) (chroma.Lexer, error) {
	if p.Language != "" {
		l := lexers.Get(p.Language)
		if l == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, p.Language)
		}

		return l, nil
	}

	if p.Filename != "" {
		if l := lexers.Match(p.Filename); l != nil {
			return l, nil
		}
	}

	if l := lexers.Analyse(string(src)); l != nil {
		return l, nil
	}

	return lexers.Fallback, nil
}

// Parse implements [tree.Parser].
func (p *Parser) Parse(ctx context.Context, src []byte, v tree.Visitor) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	lexer, err := p.Lexer(src)
	if err != nil {
		return err
	}

	it, err := chroma.Coalesce(lexer).Tokenise(&chroma.TokeniseOptions{State: "root"}, string(src))
	if err != nil {
		return fmt.Errorf("tokenise: %w", err)
	}

	root := tree.Label(lexer.Config().Name)
	v.Enter(root)

	off := 0
	for tok := it(); tok != chroma.EOF; tok = it() {
		emit(v, src, off, tok)
		off += len(tok.Value)
	}

	v.Leave(root)

	return nil
}

// Path returns the labels a token of type tt is nested under, outermost
// first, ending with the type's own name.
func Path(tt chroma.TokenType) []string {
	if tt < 0 {
		return []string{tt.String()}
	}

	path := []string{tt.Category().String()}
	if sub := tt.SubCategory(); sub != tt.Category() {
		path = append(path, sub.String())
	}

	if tt != tt.SubCategory() {
		path = append(path, tt.String())
	}

	return path
}

func emit(v tree.Visitor, src []byte, off int, tok chroma.Token) {
	path := Path(tok.Type)

	nodes := make([]tree.Node, len(path))
	for i, label := range path {
		nodes[i] = tree.Label(label)
	}

	// Lexers may append a final newline that is not part of src.
	end := off + len(tok.Value)
	if tok.Value != "" && end <= len(src) && string(src[off:end]) == tok.Value {
		nodes[len(nodes)-1] = tree.NewLeaf(path[len(path)-1], off, len(tok.Value))
	}

	for _, n := range nodes {
		v.Enter(n)
	}

	for i := len(nodes) - 1; i >= 0; i-- {
		v.Leave(nodes[i])
	}
}
