package termtest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/macropower/crumbs/pkg/termtest"
)

func TestSegments(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		in   string
		want []termtest.Segment
	}{
		"plain": {
			in:   "plain text",
			want: []termtest.Segment{{Text: "plain text"}},
		},
		"basic color and reset": {
			in: "\x1b[1;33mfunc\x1b[0m main",
			want: []termtest.Segment{
				{Text: "func", Attrs: termtest.Attrs{Foreground: "3", Bold: true}},
				{Text: " main"},
			},
		},
		"bright and 256 colors": {
			in: "\x1b[91ma\x1b[48;5;208mb",
			want: []termtest.Segment{
				{Text: "a", Attrs: termtest.Attrs{Foreground: "9"}},
				{Text: "b", Attrs: termtest.Attrs{Foreground: "9", Background: "208"}},
			},
		},
		"rgb": {
			in: "\x1b[38;2;255;136;0;4mx\x1b[24my",
			want: []termtest.Segment{
				{Text: "x", Attrs: termtest.Attrs{Foreground: "FF8800", Underline: true}},
				{Text: "y", Attrs: termtest.Attrs{Foreground: "FF8800"}},
			},
		},
		"reverse": {
			in: "\x1b[7mr\x1b[27ms",
			want: []termtest.Segment{
				{Text: "r", Attrs: termtest.Attrs{Reverse: true}},
				{Text: "s"},
			},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, termtest.Segments(tc.in))
		})
	}
}

func TestAssertStyled(t *testing.T) {
	t.Parallel()

	termtest.AssertStyled(t, "\x1b[1;33mfunc\x1b[0m main", "func", termtest.Want{
		Foreground: termtest.Ptr("3"),
		Bold:       termtest.Ptr(true),
		Italic:     termtest.Ptr(false),
	})
	termtest.AssertStyled(t, "\x1b[1;33mfunc\x1b[0m main", "main", termtest.Want{
		Bold: termtest.Ptr(false),
	})
}
