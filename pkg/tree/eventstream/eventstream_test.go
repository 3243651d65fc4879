package eventstream_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/crumbs/pkg/execs"
	"github.com/macropower/crumbs/pkg/syntax"
	"github.com/macropower/crumbs/pkg/tree"
	"github.com/macropower/crumbs/pkg/tree/eventstream"
)

func TestEncoder(t *testing.T) {
	t.Parallel()

	var sb strings.Builder

	enc := eventstream.NewEncoder(&sb)
	tree.El("File",
		tree.At("func", 0, 4),
		tree.El("Body", tree.At("Ident", 5, 4)),
	).Walk(enc)

	require.NoError(t, enc.Err())
	assert.Equal(t, `enter File
  enter func 0 4
  leave func
  enter Body
    enter Ident 5 4
    leave Ident
  leave Body
leave File
`, sb.String())
}

func TestDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	el := tree.El("File",
		tree.At("func", 0, 4),
		tree.El("Body", tree.At("Ident", 5, 4), tree.El("Empty")),
	)

	var sb strings.Builder

	enc := eventstream.NewEncoder(&sb)
	el.Walk(enc)
	require.NoError(t, enc.Err())

	want := tree.NewTrail()
	el.Walk(want)

	got := tree.NewTrail()
	err := eventstream.Decode(strings.NewReader(sb.String()), got)
	require.NoError(t, err)

	assert.Equal(t, want.Crumbs(), got.Crumbs())
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		err   error
		input string
		msg   string
	}{
		"unknown verb": {
			input: "open File\n",
			err:   eventstream.ErrSyntax,
			msg:   "line 1",
		},
		"missing label": {
			input: "enter\n",
			err:   eventstream.ErrSyntax,
		},
		"bad offset": {
			input: "enter File x 3\n",
			err:   eventstream.ErrSyntax,
		},
		"negative length": {
			input: "enter File 0 -3\n",
			err:   eventstream.ErrSyntax,
		},
		"leave with extra fields": {
			input: "enter File\nleave File 0 1\n",
			err:   eventstream.ErrSyntax,
			msg:   "line 2",
		},
		"mismatched leave": {
			input: "enter File\nenter Ident 0 1\nleave File\n",
			err:   eventstream.ErrUnbalanced,
			msg:   "line 3",
		},
		"leave without enter": {
			input: "# comment\n\nleave File\n",
			err:   eventstream.ErrUnbalanced,
			msg:   "line 3",
		},
		"left open": {
			input: "enter File\n",
			err:   eventstream.ErrUnbalanced,
			msg:   `"File" left open`,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := eventstream.Decode(strings.NewReader(tc.input), tree.NewTrail())
			require.ErrorIs(t, err, tc.err)

			if tc.msg != "" {
				assert.Contains(t, err.Error(), tc.msg)
			}
		})
	}
}

func TestParser(t *testing.T) {
	t.Parallel()

	events := "enter File\\n  enter Ident 0 3\\n  leave Ident\\n  enter Ident 4 3\\n  leave Ident\\nleave File\\n"

	p := &eventstream.Parser{
		Environ: []string{"PATH=/usr/bin:/bin"},
		Command: execs.Command{
			Command: "sh",
			Args:    []string{"-c", "cat >/dev/null; printf '" + events + "'"},
		},
	}

	m := syntax.MustCompile([]*syntax.Rule{
		syntax.MustNewRule("Ident", syntax.Condition{}, "File Ident"),
	})

	spans, err := m.Walk(context.Background(), p, []byte("foo bar"))
	require.NoError(t, err)

	assert.Equal(t, []syntax.Span{
		{Group: "Ident", Line: 1, ColStart: 0, ColEnd: 3, Text: "foo"},
		{Group: "Ident", Line: 1, ColStart: 4, ColEnd: 7, Text: "bar"},
	}, spans)
}

func TestParserErrors(t *testing.T) {
	t.Parallel()

	p := &eventstream.Parser{
		Environ: []string{"PATH=/usr/bin:/bin"},
		Command: execs.Command{Command: "sh", Args: []string{"-c", "echo 'enter File'"}},
	}

	err := p.Parse(context.Background(), nil, tree.NewTrail())
	require.ErrorIs(t, err, eventstream.ErrUnbalanced)

	p.Command = execs.Command{Command: "sh", Args: []string{"-c", "exit 1"}}
	err = p.Parse(context.Background(), nil, tree.NewTrail())
	require.ErrorIs(t, err, execs.ErrCommandExecution)
}
