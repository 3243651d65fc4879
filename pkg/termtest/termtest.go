// Package termtest provides test helpers for styled terminal output.
//
// [Segments] splits output into runs of text sharing one set of SGR
// attributes, so that tests can check how a span was rendered without
// comparing raw escape sequences:
//
//	func TestOverlay(t *testing.T) {
//	    termtest.SetupColorProfile()
//
//	    out := printer.Overlay(src, spans)
//	    termtest.AssertStyled(t, out, "func", termtest.Want{
//	        Foreground: termtest.Ptr("3"),
//	        Bold:       termtest.Ptr(true),
//	    })
//	}
package termtest

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var updateGolden = flag.Bool("update-golden", false, "update golden files")

// SetupColorProfile sets the color profile to TrueColor for consistent test
// output. It changes global state, so callers must not run in parallel with
// tests that depend on another profile.
func SetupColorProfile() {
	lipgloss.SetColorProfile(termenv.TrueColor)
}

// Attrs are the SGR attributes in effect for a [Segment].
//
// Colors are ANSI palette indexes ("3", "208") or uppercase hex without a
// leading "#" ("FF8800").
type Attrs struct {
	Foreground string
	Background string
	Bold       bool
	Italic     bool
	Underline  bool
	Reverse    bool
}

// Segment is a run of printable text rendered with one set of [Attrs].
type Segment struct {
	Text  string
	Attrs Attrs
}

// Want lists the attributes to check. Nil fields are not checked.
type Want struct {
	Foreground *string
	Background *string
	Bold       *bool
	Italic     *bool
	Underline  *bool
	Reverse    *bool
}

// Segments splits out into styled runs of printable text.
func Segments(out string) []Segment {
	var (
		segments []Segment
		current  Attrs
		text     strings.Builder
		state    byte
	)

	flush := func() {
		if text.Len() > 0 {
			segments = append(segments, Segment{Text: text.String(), Attrs: current})
			text.Reset()
		}
	}

	p := ansi.GetParser()
	defer ansi.PutParser(p)

	input := []byte(out)
	for len(input) > 0 {
		seq, width, n, next := ansi.DecodeSequence(input, state, p)

		switch {
		case ansi.HasCsiPrefix(seq) && seq[len(seq)-1] == 'm':
			flush()

			params := p.Params()

			values := make([]int, len(params))
			for i := range params {
				values[i] = params[i].Param(0)
			}

			current = applySGR(current, values)
		case width > 0:
			text.Write(seq)
		}

		input = input[n:]
		state = next
	}

	flush()

	return segments
}

// AssertStyled checks that the first segment containing text has the wanted
// attributes.
func AssertStyled(t *testing.T, out, text string, want Want) {
	t.Helper()

	for _, seg := range Segments(out) {
		if !strings.Contains(seg.Text, text) {
			continue
		}

		got := seg.Attrs
		check := func(name string, want *bool, got bool) {
			if want != nil {
				assert.Equal(t, *want, got, "%q: %s", text, name)
			}
		}

		check("bold", want.Bold, got.Bold)
		check("italic", want.Italic, got.Italic)
		check("underline", want.Underline, got.Underline)
		check("reverse", want.Reverse, got.Reverse)

		if want.Foreground != nil {
			assert.Equal(t, *want.Foreground, got.Foreground, "%q: foreground", text)
		}

		if want.Background != nil {
			assert.Equal(t, *want.Background, got.Background, "%q: background", text)
		}

		return
	}

	t.Errorf("no segment contains %q in %q", text, ansi.Strip(out))
}

// AssertGolden compares got against testdata/golden/<name>.golden.
// Run with -update-golden to rewrite the file.
func AssertGolden(t *testing.T, name, got string) {
	t.Helper()

	path := GoldenPath(name)

	if *updateGolden {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
		require.NoError(t, os.WriteFile(path, []byte(got), 0o600))

		return
	}

	want, err := os.ReadFile(path) //nolint:gosec // Path constructed from test name.
	require.NoError(t, err, "golden file not found, run with -update-golden to create")
	require.Equal(t, string(want), got)
}

// GoldenPath returns the path of the golden file for name.
func GoldenPath(name string) string {
	return filepath.Join("testdata", "golden", name+".golden")
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

func applySGR(a Attrs, params []int) Attrs {
	for i := 0; i < len(params); i++ {
		switch param := params[i]; {
		case param == 0:
			a = Attrs{}
		case param == 1:
			a.Bold = true
		case param == 3:
			a.Italic = true
		case param == 4:
			a.Underline = true
		case param == 7:
			a.Reverse = true
		case param == 22:
			a.Bold = false
		case param == 23:
			a.Italic = false
		case param == 24:
			a.Underline = false
		case param == 27:
			a.Reverse = false
		case param == 38, param == 48:
			c, skip := extendedColor(params[i+1:])
			i += skip

			if param == 38 {
				a.Foreground = c
			} else {
				a.Background = c
			}
		case param == 39:
			a.Foreground = ""
		case param == 49:
			a.Background = ""
		case param >= 30 && param <= 37:
			a.Foreground = fmt.Sprint(param - 30)
		case param >= 40 && param <= 47:
			a.Background = fmt.Sprint(param - 40)
		case param >= 90 && param <= 97:
			a.Foreground = fmt.Sprint(param - 90 + 8)
		case param >= 100 && param <= 107:
			a.Background = fmt.Sprint(param - 100 + 8)
		}
	}

	return a
}

// extendedColor reads a 256 color or RGB color following 38 or 48, and
// returns how many parameters it consumed.
func extendedColor(params []int) (string, int) {
	if len(params) == 0 {
		return "", 0
	}

	switch params[0] {
	case 5:
		if len(params) > 1 {
			return fmt.Sprint(params[1]), 2
		}
	case 2:
		if len(params) > 3 {
			return fmt.Sprintf("%02X%02X%02X", params[1], params[2], params[3]), 4
		}
	}

	return "", 1
}
