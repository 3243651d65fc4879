package syntax

import (
	"cmp"
	"fmt"
	"slices"
)

// RawSpan is a byte range recorded during traversal, before resolution.
type RawSpan struct {
	Group     string
	Condition Condition
	Start     int
	End       int
}

func (r RawSpan) String() string {
	return fmt.Sprintf("%s [%d,%d) %s", r.Group, r.Start, r.End, r.Condition)
}

// Span is a resolved, single-line highlight span.
//
// Line is one-based. ColStart and ColEnd are zero-based byte offsets within
// the line, ColEnd exclusive.
type Span struct {
	Group    string `json:"group"    yaml:"group"`
	Text     string `json:"text"     yaml:"text"`
	Line     int    `json:"line"     yaml:"line"`
	ColStart int    `json:"colStart" yaml:"colStart"`
	ColEnd   int    `json:"colEnd"   yaml:"colEnd"`
}

// String returns the record form of s: group, line, start and end column,
// then the matched text, separated by single spaces.
func (s Span) String() string {
	return fmt.Sprintf("%s %d %d %d %s", s.Group, s.Line, s.ColStart, s.ColEnd, s.Text)
}

// Compare orders spans by line, start column, end column, then group.
func Compare(a, b Span) int {
	return cmp.Or(
		cmp.Compare(a.Line, b.Line),
		cmp.Compare(a.ColStart, b.ColStart),
		cmp.Compare(a.ColEnd, b.ColEnd),
		cmp.Compare(a.Group, b.Group),
	)
}

// SortForOverlay orders spans by line ascending and start column
// descending, so that rewriting a line in place from the first span onward
// never shifts the columns of a span still to be applied.
func SortForOverlay(spans []Span) {
	slices.SortStableFunc(spans, func(a, b Span) int {
		return cmp.Or(
			cmp.Compare(a.Line, b.Line),
			cmp.Compare(b.ColStart, a.ColStart),
			cmp.Compare(b.ColEnd, a.ColEnd),
		)
	})
}
