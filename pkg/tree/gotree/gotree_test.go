package gotree_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/crumbs/pkg/syntax"
	"github.com/macropower/crumbs/pkg/tree"
	"github.com/macropower/crumbs/pkg/tree/gotree"
)

const src = `package main

// main runs.
func main() {
	println("hi")
}
`

func crumbs(t *testing.T, src string) []string {
	t.Helper()

	trail := tree.NewTrail()
	err := gotree.New().Parse(context.Background(), []byte(src), trail)
	require.NoError(t, err)

	out := []string{}
	for _, c := range trail.Leaves() {
		text, ok := c.Locate.Slice([]byte(src))
		require.True(t, ok, c.String())

		out = append(out, c.String()+"|"+string(text))
	}

	return out
}

func TestParse(t *testing.T) {
	t.Parallel()

	got := crumbs(t, src)

	for _, want := range []string{
		"File package|package",
		"File Ident IDENT|main",
		"File COMMENT|// main runs.",
		"File FuncDecl func|func",
		"File FuncDecl Ident IDENT|main",
		"File FuncDecl FuncType FieldList (|(",
		"File FuncDecl FuncType FieldList )|)",
		"File FuncDecl BlockStmt {|{",
		"File FuncDecl BlockStmt ExprStmt CallExpr Ident IDENT|println",
		"File FuncDecl BlockStmt ExprStmt CallExpr (|(",
		`File FuncDecl BlockStmt ExprStmt CallExpr BasicLit STRING|"hi"`,
		"File FuncDecl BlockStmt }|}",
	} {
		assert.Contains(t, got, want)
	}

	for _, c := range got {
		assert.NotContains(t, c, ";", "automatic semicolons are skipped")
	}
}

func TestParseSourceText(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		src  string
		want string
	}{
		"block comment with crlf": {
			src:  "package p\r\n/* a\r\nb */\r\n",
			want: "File COMMENT|/* a\r\nb */",
		},
		"line comment with crlf": {
			src:  "package p // tail\r\n",
			want: "File COMMENT|// tail",
		},
		"raw string with crlf": {
			src:  "package p\r\nvar s = `a\r\nb`\r\n",
			want: "File GenDecl ValueSpec BasicLit STRING|`a\r\nb`",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Contains(t, crumbs(t, tc.src), tc.want)
		})
	}
}

func TestParseHighlight(t *testing.T) {
	t.Parallel()

	m := syntax.MustCompile([]*syntax.Rule{
		syntax.MustNewRule("Keyword", syntax.Condition{}, "package", "func"),
		syntax.MustNewRule("Call", syntax.Condition{}, "CallExpr Ident"),
	})

	spans, err := m.Walk(context.Background(), gotree.New(), []byte(src))
	require.NoError(t, err)

	records := make([]string, len(spans))
	for i, s := range spans {
		records[i] = s.String()
	}

	assert.Equal(t, []string{
		"Keyword 1 0 7 package",
		"Keyword 4 0 4 func",
		"Call 5 1 8 println",
	}, records)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	err := gotree.New().Parse(context.Background(), []byte("package"), tree.NewTrail())
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = gotree.New().Parse(ctx, []byte(src), tree.NewTrail())
	require.ErrorIs(t, err, context.Canceled)
}
