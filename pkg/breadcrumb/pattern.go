// Package breadcrumb matches ordered label patterns against the path of open
// nodes during a depth-first traversal.
//
// A [Pattern] is a sequence of [Term]s. Required terms must be satisfied, in
// order, by a strictly descending chain of open nodes. Excluded terms never
// hold the chain back; instead they suppress matches while a node bearing
// their label is open below the node that satisfied the preceding Required
// term.
//
// In text form a pattern is a whitespace-separated list of labels, where a
// label prefixed with [ExcludeMarker] is Excluded:
//
//	FuncDecl ^FuncLit Ident
package breadcrumb

import (
	"errors"
	"fmt"
	"strings"
)

// ExcludeMarker prefixes an Excluded label in the text form of a [Pattern].
const ExcludeMarker = "^"

var (
	// ErrEmptyPattern is returned for a pattern without terms.
	ErrEmptyPattern = errors.New("empty pattern")
	// ErrEmptyLabel is returned for a term without a label.
	ErrEmptyLabel = errors.New("empty label")
)

// Term is a single element of a [Pattern].
type Term struct {
	Label    string
	Excluded bool
}

// Required returns a Required [Term] for label.
func Required(label string) Term {
	return Term{Label: label}
}

// Excluded returns an Excluded [Term] for label.
func Excluded(label string) Term {
	return Term{Label: label, Excluded: true}
}

func (t Term) String() string {
	if t.Excluded {
		return ExcludeMarker + t.Label
	}

	return t.Label
}

// Pattern is an ordered sequence of [Term]s.
type Pattern []Term

// ParsePattern parses the text form of a [Pattern].
func ParsePattern(s string) (Pattern, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, ErrEmptyPattern
	}

	p := make(Pattern, 0, len(fields))
	for _, f := range fields {
		t := Required(f)
		if label, ok := strings.CutPrefix(f, ExcludeMarker); ok {
			t = Excluded(label)
		}

		if t.Label == "" {
			return nil, fmt.Errorf("%w in %q", ErrEmptyLabel, s)
		}

		p = append(p, t)
	}

	return p, nil
}

// MustParsePattern is like [ParsePattern] but panics on error.
func MustParsePattern(s string) Pattern {
	p, err := ParsePattern(s)
	if err != nil {
		panic(err)
	}

	return p
}

// Validate checks that p has at least one term and no empty labels.
func (p Pattern) Validate() error {
	if len(p) == 0 {
		return ErrEmptyPattern
	}

	for i, t := range p {
		if t.Label == "" {
			return fmt.Errorf("term %d: %w", i, ErrEmptyLabel)
		}
	}

	return nil
}

// Required returns the number of Required terms in p.
func (p Pattern) Required() int {
	n := 0
	for _, t := range p {
		if !t.Excluded {
			n++
		}
	}

	return n
}

func (p Pattern) String() string {
	parts := make([]string, len(p))
	for i, t := range p {
		parts[i] = t.String()
	}

	return strings.Join(parts, " ")
}
