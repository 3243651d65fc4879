package highlight

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/cellbuf"

	"github.com/macropower/crumbs/pkg/style"
	"github.com/macropower/crumbs/pkg/syntax"
	"github.com/macropower/crumbs/pkg/theme"
	"github.com/macropower/crumbs/pkg/tree"
	"github.com/macropower/crumbs/pkg/yaml"
)

const wrapOnCharacters = " /-"

// Printer writes spans in a [Format].
type Printer struct {
	styles      *style.Table
	format      Format
	width       int
	lineNumbers bool
}

// PrinterOpt configures a [Printer].
type PrinterOpt func(*Printer)

// WithStyles sets the style table used by [FormatOverlay].
func WithStyles(t *style.Table) PrinterOpt {
	return func(p *Printer) {
		p.styles = t
	}
}

// WithLineNumbers prefixes overlay lines with their number.
func WithLineNumbers(enabled bool) PrinterOpt {
	return func(p *Printer) {
		p.lineNumbers = enabled
	}
}

// WithWidth wraps overlay lines at width cells. Zero disables wrapping.
func WithWidth(width int) PrinterOpt {
	return func(p *Printer) {
		p.width = max(0, width)
	}
}

// NewPrinter creates a new [Printer]. Without [WithStyles], the overlay uses
// the default theme's token styles.
func NewPrinter(format Format, opts ...PrinterOpt) *Printer {
	p := &Printer{format: format}
	for _, opt := range opts {
		opt(p)
	}

	if p.styles == nil {
		p.styles, _ = style.NewTable(theme.Default, nil) //nolint:errcheck // No directives to parse.
	}

	return p
}

// Print writes spans found in src to w.
func (p *Printer) Print(w io.Writer, src []byte, spans []syntax.Span) error {
	switch p.format {
	case FormatRecords, "":
		return p.printRecords(w, spans, syntax.Span.String)
	case FormatDebug:
		return p.printRecords(w, spans, func(s syntax.Span) string {
			return fmt.Sprintf("%s %d %d %d\t: %q", s.Group, s.Line, s.ColStart, s.ColEnd, s.Text)
		})
	case FormatJSON:
		return printJSON(w, spans)
	case FormatYAML:
		return printYAML(w, spans)
	case FormatOverlay:
		_, err := io.WriteString(w, p.Overlay(src, spans))
		if err != nil {
			return fmt.Errorf("write overlay: %w", err)
		}

		return nil
	}

	return fmt.Errorf("%w: %q", ErrUnknownFormat, p.format)
}

func (p *Printer) printRecords(w io.Writer, spans []syntax.Span, record func(syntax.Span) string) error {
	bw := bufio.NewWriter(w)
	for _, s := range spans {
		_, err := bw.WriteString(record(s) + "\n")
		if err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	err := bw.Flush()
	if err != nil {
		return fmt.Errorf("write records: %w", err)
	}

	return nil
}

func printJSON(w io.Writer, spans []syntax.Span) error {
	if spans == nil {
		spans = []syntax.Span{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(spans)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

func printYAML(w io.Writer, spans []syntax.Span) error {
	if spans == nil {
		spans = []syntax.Span{}
	}

	enc := yaml.NewEncoder(w)

	err := enc.Encode(spans)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	return nil
}

// Overlay returns src with every span rendered in its group's style.
//
// Spans are applied per line from the highest column down, so earlier
// insertions never shift later ones. A span overlapping one already applied
// on the same line is skipped.
func (p *Printer) Overlay(src []byte, spans []syntax.Span) string {
	ordered := slices.Clone(spans)
	syntax.SortForOverlay(ordered)

	lines := tree.NewLines(src)
	count := lines.Count()

	// A trailing newline does not start another line of output.
	if count > 1 && len(lines.Text(count-1)) == 0 {
		count--
	}

	numWidth := len(strconv.Itoa(count))

	var sb strings.Builder

	next := 0
	for i := range count {
		text := string(lines.Text(i))
		limit := len(text)

		for next < len(ordered) && ordered[next].Line < i+1 {
			next++
		}

		for next < len(ordered) && ordered[next].Line == i+1 {
			s := ordered[next]
			next++

			if s.ColEnd > limit || s.ColStart >= s.ColEnd {
				continue
			}

			text = text[:s.ColStart] + p.styles.Render(s.Group, text[s.ColStart:s.ColEnd]) + text[s.ColEnd:]
			limit = s.ColStart
		}

		sb.WriteString(p.formatLine(text, i+1, numWidth))
		sb.WriteByte('\n')
	}

	return sb.String()
}

func (p *Printer) formatLine(text string, num, numWidth int) string {
	var prefix, cont string
	if p.lineNumbers {
		lns := p.styles.Theme().LineNumberStyle
		prefix = lns.Render(fmt.Sprintf("%*d  ", numWidth, num))
		cont = lns.Render(fmt.Sprintf("%*s  ", numWidth, "-"))
	}

	width := p.width
	if width > 0 && p.lineNumbers {
		width = max(1, width-ansi.StringWidth(prefix))
	}

	if width == 0 || ansi.StringWidth(text) <= width {
		return prefix + text
	}

	wrapped := strings.Split(cellbuf.Wrap(text, width, wrapOnCharacters), "\n")
	for i, ln := range wrapped {
		if i == 0 {
			wrapped[i] = prefix + ln
		} else {
			wrapped[i] = cont + ln
		}
	}

	return strings.Join(wrapped, "\n")
}
