package syntax

import (
	"fmt"
	"slices"

	"github.com/macropower/crumbs/pkg/tree"
)

// Resolve turns raw spans into line-addressed spans over src.
//
// Identical raw spans are collapsed. Conditional spans are resolved against
// the text matched by unconditional spans of the referenced group: an
// [IfDefined] span is dropped when its text was not matched there, an
// [IfDefinedElse] span is reported under its fallback group instead. Spans
// crossing line boundaries are split into one span per non-empty line piece.
//
// The result is deduplicated and sorted with [Compare].
func Resolve(src []byte, raw []RawSpan) ([]Span, error) {
	unique := make([]RawSpan, 0, len(raw))
	seen := make(map[RawSpan]bool, len(raw))

	for _, r := range raw {
		if seen[r] {
			continue
		}

		if r.Start < 0 || r.End <= r.Start || r.End > len(src) {
			return nil, fmt.Errorf("%w: %s in %d bytes", ErrSpanOutOfRange, r, len(src))
		}

		seen[r] = true
		unique = append(unique, r)
	}

	known := make(map[string]map[string]bool)
	for _, r := range unique {
		if r.Condition.IsConditional() {
			continue
		}

		texts, ok := known[r.Group]
		if !ok {
			texts = make(map[string]bool)
			known[r.Group] = texts
		}

		texts[string(src[r.Start:r.End])] = true
	}

	lines := tree.NewLines(src)
	out := make([]Span, 0, len(unique))
	dedup := make(map[Span]bool, len(unique))

	for _, r := range unique {
		group, keep := resolveGroup(r, src, known)
		if !keep {
			continue
		}

		for _, s := range split(lines, src, group, r.Start, r.End) {
			if dedup[s] {
				continue
			}

			dedup[s] = true
			out = append(out, s)
		}
	}

	slices.SortFunc(out, Compare)

	return out, nil
}

// resolveGroup returns the group r is reported under, and false if r is
// dropped.
func resolveGroup(r RawSpan, src []byte, known map[string]map[string]bool) (string, bool) {
	if !r.Condition.IsConditional() {
		return r.Group, true
	}

	// A group with no unconditional matches has no entry, which reads as
	// "not defined" below.
	defined := known[r.Condition.Group][string(src[r.Start:r.End])]

	switch r.Condition.Kind {
	case IfDefined:
		return r.Group, defined
	case IfDefinedElse:
		if defined {
			return r.Group, true
		}

		return r.Condition.Fallback, true
	}

	return r.Group, true
}

// split cuts [start,end) into one span per line, skipping pieces that are
// empty once line terminators are excluded.
func split(lines *tree.Lines, src []byte, group string, start, end int) []Span {
	var out []Span

	for line := lines.Line(start); line < lines.Count(); line++ {
		lineStart := lines.Start(line)
		if lineStart >= end {
			break
		}

		from := max(start, lineStart)
		to := min(end, lines.ContentEnd(line))

		if from < to {
			out = append(out, Span{
				Group:    group,
				Line:     line + 1,
				ColStart: from - lineStart,
				ColEnd:   to - lineStart,
				Text:     string(src[from:to]),
			})
		}
	}

	return out
}
