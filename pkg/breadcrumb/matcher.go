package breadcrumb

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnbalanced is the panic value (wrapped) when Leave does not pair with
// the most recent open Enter.
var ErrUnbalanced = errors.New("unbalanced traversal")

// Mark binds a pattern position to the depth of the open node that
// satisfied (Required) or triggered (Excluded) it.
type Mark struct {
	Pos   int
	Depth int
}

// State is a snapshot of a [Matcher]'s traversal state.
type State struct {
	// Confirmed holds the depth of the node satisfying each leading Required
	// term, outermost first.
	Confirmed []Mark
	// Active holds the currently triggered Excluded terms, in push order.
	Active []Mark
	Depth  int
}

type exclusion struct {
	label string
	// segment is the number of Required terms preceding the term.
	segment int
	pos     int
}

// Matcher tracks a single [Pattern] across one traversal.
//
// Callers must pair every Enter with exactly one Leave for the same label, in
// nesting order. A Matcher is not safe for concurrent use.
type Matcher struct {
	pattern    Pattern
	required   []string
	reqPos     []int
	exclusions []exclusion
	open       []string
	confirmed  []int
	active     []Mark
}

// NewMatcher creates a [Matcher] for p.
func NewMatcher(p Pattern) (*Matcher, error) {
	err := p.Validate()
	if err != nil {
		return nil, err
	}

	m := &Matcher{pattern: slices.Clone(p)}
	for pos, t := range p {
		if t.Excluded {
			m.exclusions = append(m.exclusions, exclusion{
				label:   t.Label,
				segment: len(m.required),
				pos:     pos,
			})

			continue
		}

		m.required = append(m.required, t.Label)
		m.reqPos = append(m.reqPos, pos)
	}

	return m, nil
}

// MustNewMatcher is like [NewMatcher] but panics on error.
func MustNewMatcher(p Pattern) *Matcher {
	m, err := NewMatcher(p)
	if err != nil {
		panic(err)
	}

	return m
}

// Pattern returns the matcher's pattern.
func (m *Matcher) Pattern() Pattern {
	return m.pattern
}

// Enter advances the state for a node being entered.
func (m *Matcher) Enter(label string) {
	m.open = append(m.open, label)
	depth := len(m.open)

	// Exclusions are checked before the chain advances, so the node that
	// satisfies a Required term never triggers the terms that follow it.
	// Every confirmed depth belongs to a strict ancestor here, so any open
	// node is below the Required term preceding an eligible exclusion.
	for _, ex := range m.exclusions {
		if ex.label == label && ex.segment <= len(m.confirmed) {
			m.active = append(m.active, Mark{Pos: ex.pos, Depth: depth})
		}
	}

	n := len(m.confirmed)
	if n < len(m.required) && m.required[n] == label {
		m.confirmed = append(m.confirmed, depth)
	}
}

// Leave retracts the state of the most recently entered open node.
// It panics with [ErrUnbalanced] if label is not that node's label.
func (m *Matcher) Leave(label string) {
	depth := len(m.open)
	if depth == 0 {
		panic(fmt.Errorf("%w: leave %q without an open node", ErrUnbalanced, label))
	}

	if m.open[depth-1] != label {
		panic(fmt.Errorf("%w: leave %q while %q is open", ErrUnbalanced, label, m.open[depth-1]))
	}

	for len(m.active) > 0 && m.active[len(m.active)-1].Depth == depth {
		m.active = m.active[:len(m.active)-1]
	}

	if n := len(m.confirmed); n > 0 && m.confirmed[n-1] == depth {
		m.confirmed = m.confirmed[:n-1]
	}

	m.open = m.open[:depth-1]
}

// IsFullMatch reports whether every Required term is satisfied by the open
// path and no Excluded term is triggered.
func (m *Matcher) IsFullMatch() bool {
	return len(m.confirmed) == len(m.required) && len(m.active) == 0
}

// Depth returns the number of open nodes.
func (m *Matcher) Depth() int {
	return len(m.open)
}

// Reset discards all traversal state.
func (m *Matcher) Reset() {
	m.open = m.open[:0]
	m.confirmed = m.confirmed[:0]
	m.active = m.active[:0]
}

// State returns a snapshot of the traversal state.
func (m *Matcher) State() State {
	s := State{Depth: len(m.open)}
	if len(m.active) > 0 {
		s.Active = slices.Clone(m.active)
	}

	for i, depth := range m.confirmed {
		s.Confirmed = append(s.Confirmed, Mark{Pos: m.reqPos[i], Depth: depth})
	}

	return s
}
