package style_test

import (
	"testing"

	"github.com/alecthomas/chroma/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/crumbs/pkg/style"
	"github.com/macropower/crumbs/pkg/theme"
)

func TestParse(t *testing.T) {
	t.Parallel()

	th := theme.New("github")

	tcs := map[string]struct {
		err       error
		check     func(t *testing.T, s lipgloss.Style)
		directive string
	}{
		"empty": {
			directive: "",
			check: func(t *testing.T, s lipgloss.Style) {
				t.Helper()
				assert.Equal(t, lipgloss.NoColor{}, s.GetForeground())
			},
		},
		"terminal palette": {
			directive: "ctermfg=4 ctermbg=0",
			check: func(t *testing.T, s lipgloss.Style) {
				t.Helper()
				assert.Equal(t, lipgloss.Color("4"), s.GetForeground())
				assert.Equal(t, lipgloss.Color("0"), s.GetBackground())
			},
		},
		"hex and ansi": {
			directive: "fg=#ff8800 bg=236",
			check: func(t *testing.T, s lipgloss.Style) {
				t.Helper()
				assert.Equal(t, lipgloss.Color("#ff8800"), s.GetForeground())
				assert.Equal(t, lipgloss.Color("236"), s.GetBackground())
			},
		},
		"attributes": {
			directive: "cterm=bold,italic,underline,reverse",
			check: func(t *testing.T, s lipgloss.Style) {
				t.Helper()
				assert.True(t, s.GetBold())
				assert.True(t, s.GetItalic())
				assert.True(t, s.GetUnderline())
				assert.True(t, s.GetReverse())
			},
		},
		"none clears attributes": {
			directive: "cterm=bold cterm=none",
			check: func(t *testing.T, s lipgloss.Style) {
				t.Helper()
				assert.False(t, s.GetBold())
			},
		},
		"token is the base": {
			directive: "ctermfg=1 token=Keyword",
			check: func(t *testing.T, s lipgloss.Style) {
				t.Helper()
				assert.Equal(t, lipgloss.Color("1"), s.GetForeground())
				assert.Equal(t, th.TokenStyle(chroma.Keyword).GetBold(), s.GetBold())
			},
		},
		"palette out of range": {
			directive: "ctermfg=16",
			err:       style.ErrInvalidValue,
		},
		"bad hex": {
			directive: "fg=#ff88",
			err:       style.ErrInvalidValue,
		},
		"unknown attribute": {
			directive: "cterm=blink",
			err:       style.ErrInvalidValue,
		},
		"unknown token": {
			directive: "token=NotAToken",
			err:       style.ErrInvalidValue,
		},
		"missing value": {
			directive: "ctermfg",
			err:       style.ErrInvalidValue,
		},
		"unknown command": {
			directive: "guifg=#ffffff",
			err:       style.ErrUnknownDirective,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s, err := style.Parse(tc.directive, th)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)

				return
			}

			require.NoError(t, err)
			tc.check(t, s)
		})
	}
}

func TestTable(t *testing.T) {
	t.Parallel()

	th := theme.New("github")

	table, err := style.NewTable(th, map[string]string{
		"Call":    "ctermfg=2",
		"Comment": "cterm=italic",
	})
	require.NoError(t, err)

	s, ok := table.Style("Call")
	require.True(t, ok)
	assert.Equal(t, lipgloss.Color("2"), s.GetForeground())

	_, ok = table.Style("NameFunction")
	assert.True(t, ok, "token type names fall back to the theme")

	_, ok = table.Style("Unstyled")
	assert.False(t, ok)
	assert.Equal(t, "text", table.Render("Unstyled", "text"))
	assert.Contains(t, table.Render("Call", "text"), "text")
	assert.Same(t, th, table.Theme())

	_, err = style.NewTable(th, map[string]string{
		"A": "ctermfg=99",
		"B": "what=ever",
	})
	require.ErrorIs(t, err, style.ErrInvalidValue)
	require.ErrorIs(t, err, style.ErrUnknownDirective)
	assert.Contains(t, err.Error(), `style "A"`)
	assert.Contains(t, err.Error(), `style "B"`)
}
