// Package syntax classifies source spans into highlight groups.
//
// A [Matcher] is compiled from a set of [Rule]s, each naming a group and one
// or more alternative [breadcrumb.Pattern]s. It is driven as a [tree.Visitor]
// through one traversal, recording a [RawSpan] for every located node where
// a pattern fully matches. [Matcher.Resolve] then deduplicates the raw spans,
// resolves conditional groups against the text matched by unconditional
// ones, and splits the result into line-addressed [Span]s.
package syntax

import (
	"errors"
	"fmt"

	"github.com/macropower/crumbs/pkg/breadcrumb"
)

var (
	// ErrEmptyName is returned for a rule without a name.
	ErrEmptyName = errors.New("empty rule name")
	// ErrDuplicateRule is returned when two rules share a name.
	ErrDuplicateRule = errors.New("duplicate rule")
	// ErrNoPatterns is returned for a rule without alternative patterns.
	ErrNoPatterns = errors.New("no patterns")
	// ErrUnknownGroup is returned when a condition references a group that
	// is not defined in the rule set.
	ErrUnknownGroup = errors.New("unknown group")
	// ErrSpanOutOfRange is returned when a raw span does not fit the source.
	ErrSpanOutOfRange = errors.New("span out of range")
)

// ConditionKind selects how a rule's matches depend on another group.
type ConditionKind uint8

const (
	// Unconditional matches are always reported.
	Unconditional ConditionKind = iota
	// IfDefined matches are reported only if their text was also matched,
	// unconditionally, by the referenced group.
	IfDefined
	// IfDefinedElse matches are reported under the rule's own name if their
	// text was matched by the referenced group, and under the fallback group
	// otherwise.
	IfDefinedElse
)

func (k ConditionKind) String() string {
	switch k {
	case Unconditional:
		return "unconditional"
	case IfDefined:
		return "ifDefined"
	case IfDefinedElse:
		return "ifDefinedElse"
	}

	return fmt.Sprintf("ConditionKind(%d)", uint8(k))
}

// Condition is the conditionality of a [Rule]. The zero value is
// unconditional.
type Condition struct {
	// Group is the group whose matched text gates this rule.
	Group string
	// Fallback is the group reported when the gate fails. Only used by
	// [IfDefinedElse].
	Fallback string
	Kind     ConditionKind
}

// RequiresGroup returns an [IfDefined] condition on group.
func RequiresGroup(group string) Condition {
	return Condition{Kind: IfDefined, Group: group}
}

// RequiresGroupElse returns an [IfDefinedElse] condition on group, falling
// back to fallback.
func RequiresGroupElse(group, fallback string) Condition {
	return Condition{Kind: IfDefinedElse, Group: group, Fallback: fallback}
}

// IsConditional reports whether c depends on another group.
func (c Condition) IsConditional() bool {
	return c.Kind != Unconditional
}

// References returns the groups that c refers to.
func (c Condition) References() []string {
	switch c.Kind {
	case IfDefined:
		return []string{c.Group}
	case IfDefinedElse:
		return []string{c.Group, c.Fallback}
	}

	return nil
}

func (c Condition) String() string {
	switch c.Kind {
	case IfDefined:
		return "ifDefined(" + c.Group + ")"
	case IfDefinedElse:
		return "ifDefined(" + c.Group + ") orElse(" + c.Fallback + ")"
	}

	return c.Kind.String()
}

// Rule describes one highlight group.
type Rule struct {
	Name      string
	Patterns  []breadcrumb.Pattern
	Condition Condition
}

// NewRule creates a [Rule] from the text form of its patterns.
func NewRule(name string, cond Condition, patterns ...string) (*Rule, error) {
	r := &Rule{Name: name, Condition: cond}
	for i, s := range patterns {
		p, err := breadcrumb.ParsePattern(s)
		if err != nil {
			return nil, fmt.Errorf("rule %q: pattern %d: %w", name, i, err)
		}

		r.Patterns = append(r.Patterns, p)
	}

	return r, nil
}

// MustNewRule is like [NewRule] but panics on error.
func MustNewRule(name string, cond Condition, patterns ...string) *Rule {
	r, err := NewRule(name, cond, patterns...)
	if err != nil {
		panic(err)
	}

	return r
}

// Validate checks the rule in isolation. References to other groups are
// checked by [Compile].
func (r *Rule) Validate() error {
	if r.Name == "" {
		return ErrEmptyName
	}

	if len(r.Patterns) == 0 {
		return fmt.Errorf("rule %q: %w", r.Name, ErrNoPatterns)
	}

	for i, p := range r.Patterns {
		err := p.Validate()
		if err != nil {
			return fmt.Errorf("rule %q: pattern %d: %w", r.Name, i, err)
		}
	}

	if r.Condition.Kind == IfDefinedElse && r.Condition.Fallback == "" {
		return fmt.Errorf("rule %q: %w: empty fallback", r.Name, ErrUnknownGroup)
	}

	return nil
}
