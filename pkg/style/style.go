// Package style turns style directives into terminal styles.
//
// A directive is a space-separated list of key=value commands:
//
//	ctermfg=N ctermbg=N    foreground/background from the 16-color palette (0-15)
//	fg=C bg=C              foreground/background as #rrggbb, #rgb or an ANSI number (0-255)
//	cterm=A,B              text attributes: bold, italic, underline, strikethrough,
//	                       reverse, faint, or none
//	token=T                the theme's style for a chroma token type, e.g. NameFunction
//
// A token command provides the base style, which the other commands refine.
package style

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/macropower/crumbs/pkg/theme"
)

var (
	// ErrUnknownDirective is returned for an unknown command.
	ErrUnknownDirective = errors.New("unknown directive")

	// ErrInvalidValue is returned for a command with an invalid value.
	ErrInvalidValue = errors.New("invalid value")
)

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Parse parses a directive. The theme resolves token commands.
func Parse(directive string, th *theme.Theme) (lipgloss.Style, error) {
	s := lipgloss.NewStyle()

	fields := strings.Fields(directive)

	// Token commands come first, whatever their position.
	slices.SortStableFunc(fields, func(a, b string) int {
		return boolInt(!strings.HasPrefix(a, "token=")) - boolInt(!strings.HasPrefix(b, "token="))
	})

	for _, field := range fields {
		key, value, ok := strings.Cut(field, "=")
		if !ok || value == "" {
			return s, fmt.Errorf("%w: %q", ErrInvalidValue, field)
		}

		var err error

		switch key {
		case "ctermfg", "ctermbg":
			var c lipgloss.Color

			c, err = paletteColor(value, 15)
			if key == "ctermfg" {
				s = s.Foreground(c)
			} else {
				s = s.Background(c)
			}
		case "fg", "bg":
			var c lipgloss.Color

			c, err = color(value)
			if key == "fg" {
				s = s.Foreground(c)
			} else {
				s = s.Background(c)
			}
		case "cterm":
			s, err = attributes(s, value)
		case "token":
			var tt chroma.TokenType

			tt, err = chroma.TokenTypeString(value)
			if err != nil {
				err = fmt.Errorf("%w: token %q", ErrInvalidValue, value)
			} else {
				s = th.TokenStyle(tt)
			}
		default:
			err = fmt.Errorf("%w: %q", ErrUnknownDirective, key)
		}

		if err != nil {
			return lipgloss.NewStyle(), err
		}
	}

	return s, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}

	return 0
}

func paletteColor(value string, maxIndex int) (lipgloss.Color, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 || n > maxIndex {
		return "", fmt.Errorf("%w: color %q not in 0-%d", ErrInvalidValue, value, maxIndex)
	}

	return lipgloss.Color(strconv.Itoa(n)), nil
}

func color(value string) (lipgloss.Color, error) {
	if strings.HasPrefix(value, "#") {
		if !hexColor.MatchString(value) {
			return "", fmt.Errorf("%w: color %q", ErrInvalidValue, value)
		}

		return lipgloss.Color(value), nil
	}

	return paletteColor(value, 255)
}

func attributes(s lipgloss.Style, value string) (lipgloss.Style, error) {
	for attr := range strings.SplitSeq(value, ",") {
		switch attr {
		case "bold":
			s = s.Bold(true)
		case "italic":
			s = s.Italic(true)
		case "underline":
			s = s.Underline(true)
		case "strikethrough":
			s = s.Strikethrough(true)
		case "reverse":
			s = s.Reverse(true)
		case "faint":
			s = s.Faint(true)
		case "none":
			s = s.UnsetBold().UnsetItalic().UnsetUnderline().
				UnsetStrikethrough().UnsetReverse().UnsetFaint()
		default:
			return s, fmt.Errorf("%w: attribute %q", ErrInvalidValue, attr)
		}
	}

	return s, nil
}

// Table maps groups to styles.
type Table struct {
	theme  *theme.Theme
	styles map[string]lipgloss.Style
}

// NewTable parses a directive per group. Errors name the group and are
// joined.
func NewTable(th *theme.Theme, directives map[string]string) (*Table, error) {
	t := &Table{
		theme:  th,
		styles: make(map[string]lipgloss.Style, len(directives)),
	}

	var errs []error
	for _, group := range slices.Sorted(maps.Keys(directives)) {
		s, err := Parse(directives[group], th)
		if err != nil {
			errs = append(errs, fmt.Errorf("style %q: %w", group, err))

			continue
		}

		t.styles[group] = s
	}

	err := errors.Join(errs...)
	if err != nil {
		return nil, err
	}

	return t, nil
}

// Style returns the style for group. Groups without a directive that are
// named after a chroma token type get the theme's style for it.
func (t *Table) Style(group string) (lipgloss.Style, bool) {
	if s, ok := t.styles[group]; ok {
		return s, true
	}

	if tt, err := chroma.TokenTypeString(group); err == nil {
		return t.theme.TokenStyle(tt), true
	}

	return lipgloss.Style{}, false
}

// Render renders text in the style of group, or returns it unchanged.
func (t *Table) Render(group, text string) string {
	s, ok := t.Style(group)
	if !ok {
		return text
	}

	return s.Render(text)
}

// Theme returns the theme the table was built with.
func (t *Table) Theme() *theme.Theme {
	return t.theme
}
