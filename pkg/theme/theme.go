// Package theme derives terminal styles from chroma styles.
//
// A [Theme] backs the overlay presentation (line numbers, the fallback text
// style and the "token=" style directive) and the colors of CLI help and
// error output.
package theme

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	// ErrInvalidName is returned when registering a style without a name.
	ErrInvalidName = errors.New("invalid theme name")

	// ErrRegisterStyles is returned when style entries cannot be parsed.
	ErrRegisterStyles = errors.New("register styles")
)

// Default is the theme used when none is configured.
var Default = New("github")

// Theme is a set of lipgloss styles derived from a chroma style.
type Theme struct {
	ChromaStyle *chroma.Style

	ErrorTitleStyle     lipgloss.Style
	GenericTextStyle    lipgloss.Style
	LineNumberStyle     lipgloss.Style
	LogoStyle           lipgloss.Style
	ResultTitleStyle    lipgloss.Style
	SelectedStyle       lipgloss.Style
	SelectedSubtleStyle lipgloss.Style
	SubtleStyle         lipgloss.Style
	InsertedStyle       lipgloss.Style
	DeletedStyle        lipgloss.Style
}

// New creates a [Theme] from the named chroma style. The names "auto",
// "dark" and "light" pick a github style matching the terminal; unknown
// names fall back to chroma's default style.
func New(name string) *Theme {
	cs := newChromaStyle(name)

	generic := lipgloss.NewStyle().Foreground(cs.fg(chroma.Background))
	subtle := lipgloss.NewStyle().Foreground(cs.fg(chroma.Comment))
	selected := lipgloss.NewStyle().Foreground(cs.fg(chroma.NameTag))

	return &Theme{
		ChromaStyle: cs.style,

		ErrorTitleStyle:  generic.Background(cs.fg(chroma.GenericDeleted)),
		GenericTextStyle: generic,
		LineNumberStyle:  subtle,
		LogoStyle: lipgloss.NewStyle().
			Foreground(cs.bg(chroma.Background)).
			Background(cs.fg(chroma.NameTag)).
			Bold(true),
		ResultTitleStyle:    generic.Background(cs.fg(chroma.GenericInserted)),
		SelectedStyle:       selected,
		SelectedSubtleStyle: lipgloss.NewStyle().Foreground(cs.fgFactor(chroma.NameTag, 0.3)),
		SubtleStyle:         subtle,
		InsertedStyle:       lipgloss.NewStyle().Foreground(cs.fg(chroma.GenericInserted)),
		DeletedStyle:        lipgloss.NewStyle().Foreground(cs.fg(chroma.GenericDeleted)),
	}
}

// TokenStyle returns the style the chroma style assigns to a token type,
// including inherited colors and text attributes.
func (t *Theme) TokenStyle(tt chroma.TokenType) lipgloss.Style {
	e := t.ChromaStyle.Get(tt)

	s := lipgloss.NewStyle()
	if e.Colour.IsSet() { //nolint:misspell // Chroma naming.
		s = s.Foreground(lipgloss.Color(e.Colour.String())) //nolint:misspell // Chroma naming.
	}

	if e.Background.IsSet() && tt != chroma.Background {
		bg := t.ChromaStyle.Get(chroma.Background).Background
		if e.Background != bg {
			s = s.Background(lipgloss.Color(e.Background.String()))
		}
	}

	if e.Bold == chroma.Yes {
		s = s.Bold(true)
	}

	if e.Italic == chroma.Yes {
		s = s.Italic(true)
	}

	if e.Underline == chroma.Yes {
		s = s.Underline(true)
	}

	return s
}

// Register adds a chroma style so that [New] can find it by name.
func Register(name string, entries chroma.StyleEntries) error {
	if name == "" {
		return ErrInvalidName
	}

	style, err := chroma.NewStyle(name, entries)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRegisterStyles, err)
	}

	styles.Register(style)

	return nil
}

type chromaStyle struct {
	style *chroma.Style
}

func newChromaStyle(name string) chromaStyle {
	s := styles.Get(styleName(name))
	if s == nil {
		s = styles.Fallback
	}

	return chromaStyle{style: s}
}

func (cs chromaStyle) fg(tt chroma.TokenType) lipgloss.Color {
	return lipgloss.Color(cs.style.Get(tt).Colour.String()) //nolint:misspell // Chroma naming.
}

func (cs chromaStyle) bg(tt chroma.TokenType) lipgloss.Color {
	return lipgloss.Color(cs.style.Get(tt).Background.String())
}

func (cs chromaStyle) fgFactor(tt chroma.TokenType, factor float64) lipgloss.Color {
	c := cs.style.Get(tt).Colour.BrightenOrDarken(factor) //nolint:misspell // Chroma naming.

	return lipgloss.Color(c.String())
}

func styleName(name string) string {
	switch name {
	case "dark":
		return "github-dark"
	case "light":
		return "github"
	case "auto", "":
		return defaultStyle()
	default:
		return name
	}
}

func defaultStyle() string {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return "" // Fallback.
	}

	if termenv.HasDarkBackground() {
		return "github-dark"
	}

	return "github"
}
