package syntax_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/crumbs/pkg/breadcrumb"
	"github.com/macropower/crumbs/pkg/syntax"
	"github.com/macropower/crumbs/pkg/tree"
)

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		err   error
		rules []*syntax.Rule
		msg   string
	}{
		"no patterns": {
			rules: []*syntax.Rule{{Name: "Keyword"}},
			err:   syntax.ErrNoPatterns,
			msg:   `rule "Keyword"`,
		},
		"empty pattern": {
			rules: []*syntax.Rule{{Name: "Keyword", Patterns: []breadcrumb.Pattern{{}}}},
			err:   breadcrumb.ErrEmptyPattern,
		},
		"empty name": {
			rules: []*syntax.Rule{syntax.MustNewRule("", syntax.Condition{}, "A")},
			err:   syntax.ErrEmptyName,
		},
		"duplicate": {
			rules: []*syntax.Rule{
				syntax.MustNewRule("Keyword", syntax.Condition{}, "A"),
				syntax.MustNewRule("Keyword", syntax.Condition{}, "B"),
			},
			err: syntax.ErrDuplicateRule,
		},
		"unknown group": {
			rules: []*syntax.Rule{
				syntax.MustNewRule("Keyword", syntax.Condition{}, "A"),
				syntax.MustNewRule("Call", syntax.RequiresGroup("Other"), "B"),
			},
			err: syntax.ErrUnknownGroup,
			msg: `"Other"`,
		},
		"unknown fallback with suggestion": {
			rules: []*syntax.Rule{
				syntax.MustNewRule("Keyword", syntax.Condition{}, "A"),
				syntax.MustNewRule("Identifier", syntax.Condition{}, "C"),
				syntax.MustNewRule("Call", syntax.RequiresGroupElse("Keyword", "Ident"), "B"),
			},
			err: syntax.ErrUnknownGroup,
			msg: `did you mean "Identifier"?`,
		},
		"missing fallback": {
			rules: []*syntax.Rule{
				syntax.MustNewRule("Keyword", syntax.Condition{}, "A"),
				syntax.MustNewRule("Call", syntax.Condition{Kind: syntax.IfDefinedElse, Group: "Keyword"}, "B"),
			},
			err: syntax.ErrUnknownGroup,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			m, err := syntax.Compile(tc.rules)
			require.ErrorIs(t, err, tc.err)
			assert.Nil(t, m)

			if tc.msg != "" {
				assert.Contains(t, err.Error(), tc.msg)
			}
		})
	}
}

func TestCompileJoinsErrors(t *testing.T) {
	t.Parallel()

	_, err := syntax.Compile([]*syntax.Rule{
		{Name: "A"},
		syntax.MustNewRule("B", syntax.RequiresGroup("Missing"), "X"),
	})

	require.ErrorIs(t, err, syntax.ErrNoPatterns)
	require.ErrorIs(t, err, syntax.ErrUnknownGroup)
}

func TestNewRule(t *testing.T) {
	t.Parallel()

	r, err := syntax.NewRule("Call", syntax.RequiresGroup("Func"), "CallExpr Ident", "SelectorExpr ^X Ident")
	require.NoError(t, err)
	assert.Equal(t, "Call", r.Name)
	require.Len(t, r.Patterns, 2)
	assert.Equal(t, "SelectorExpr ^X Ident", r.Patterns[1].String())

	_, err = syntax.NewRule("Call", syntax.Condition{}, "A", " ")
	require.ErrorIs(t, err, breadcrumb.ErrEmptyPattern)
	assert.Contains(t, err.Error(), "pattern 1")
}

var goSource = []byte("func main() { go main() }")

func goTree() *tree.Element {
	return tree.El("File",
		tree.At("FuncDecl", 0, 25,
			tree.At("func", 0, 4),
			tree.El("Name", tree.At("Ident", 5, 4)),
			tree.El("Body",
				tree.El("GoStmt",
					tree.At("go", 14, 2),
					tree.El("CallExpr", tree.At("Ident", 17, 4)),
				),
			),
		),
	)
}

func goRules(t *testing.T) []*syntax.Rule {
	t.Helper()

	return []*syntax.Rule{
		syntax.MustNewRule("Keyword", syntax.Condition{}, "func", "go"),
		syntax.MustNewRule("Function", syntax.Condition{}, "FuncDecl Name Ident"),
		syntax.MustNewRule("Call", syntax.RequiresGroupElse("Function", "Unknown"), "CallExpr Ident"),
		syntax.MustNewRule("TopLevel", syntax.Condition{}, "File ^Body Ident"),
	}
}

func TestMatcherTraversal(t *testing.T) {
	t.Parallel()

	m := syntax.MustCompile(goRules(t))
	assert.Equal(t, 5, m.Patterns())

	goTree().Walk(m)

	raw := m.RawSpans()
	assert.ElementsMatch(t, []syntax.RawSpan{
		{Group: "Keyword", Start: 0, End: 4},
		{Group: "Keyword", Start: 14, End: 16},
		{Group: "Function", Start: 5, End: 9},
		{Group: "TopLevel", Start: 5, End: 9},
		{
			Group: "Call", Start: 17, End: 21,
			Condition: syntax.RequiresGroupElse("Function", "Unknown"),
		},
	}, raw)

	spans, err := m.Resolve(goSource)
	require.NoError(t, err)

	records := make([]string, len(spans))
	for i, s := range spans {
		records[i] = s.String()
	}

	assert.Equal(t, []string{
		"Keyword 1 0 4 func",
		"Function 1 5 9 main",
		"TopLevel 1 5 9 main",
		"Keyword 1 14 16 go",
		"Call 1 17 21 main",
	}, records)

	assert.Empty(t, m.RawSpans(), "resolve resets the matcher")
}

func TestMatcherDescendantsMatch(t *testing.T) {
	t.Parallel()

	m := syntax.MustCompile([]*syntax.Rule{
		syntax.MustNewRule("String", syntax.Condition{}, "BasicLit"),
	})

	tree.El("File",
		tree.At("BasicLit", 0, 5,
			tree.At("Quote", 0, 1),
			tree.At("Text", 1, 3),
			tree.At("Quote", 4, 1),
			tree.El("Unlocated"),
			tree.At("Empty", 5, 0),
		),
	).Walk(m)

	assert.Len(t, m.RawSpans(), 4)
}

func TestMatcherConcurrency(t *testing.T) {
	t.Parallel()

	serial := syntax.MustCompile(goRules(t))
	parallel := syntax.MustCompile(goRules(t), syntax.WithConcurrency(3))

	want, err := serial.Walk(context.Background(), goTree(), goSource)
	require.NoError(t, err)

	for range 20 {
		got, err := parallel.Walk(context.Background(), goTree(), goSource)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestMatcherWalkReuse(t *testing.T) {
	t.Parallel()

	m := syntax.MustCompile(goRules(t))

	first, err := m.Walk(context.Background(), goTree(), goSource)
	require.NoError(t, err)

	second, err := m.Walk(context.Background(), goTree(), goSource)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestMatcherWalkErrors(t *testing.T) {
	t.Parallel()

	m := syntax.MustCompile(goRules(t))
	errParse := errors.New("boom")

	_, err := m.Walk(context.Background(), tree.ParserFunc(func(_ context.Context, _ []byte, v tree.Visitor) error {
		v.Enter(tree.Label("File"))

		return errParse
	}), goSource)
	require.ErrorIs(t, err, errParse)

	_, err = m.Walk(context.Background(), tree.ParserFunc(func(_ context.Context, _ []byte, v tree.Visitor) error {
		v.Enter(tree.Label("File"))

		return nil
	}), goSource)
	require.ErrorIs(t, err, breadcrumb.ErrUnbalanced)

	_, err = m.Walk(context.Background(), tree.At("func", 0, 100), goSource)
	require.ErrorIs(t, err, syntax.ErrSpanOutOfRange)
}

func TestMatcherUnbalancedLeavePanics(t *testing.T) {
	t.Parallel()

	m := syntax.MustCompile(goRules(t), syntax.WithConcurrency(2))
	m.Enter(tree.Label("File"))

	assert.Panics(t, func() {
		m.Leave(tree.Label("FuncDecl"))
	})
}
