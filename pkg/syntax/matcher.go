package syntax

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/sahilm/fuzzy"
	"golang.org/x/sync/errgroup"

	"github.com/macropower/crumbs/pkg/breadcrumb"
	"github.com/macropower/crumbs/pkg/tree"
)

type compiled struct {
	rule *Rule
	m    *breadcrumb.Matcher
}

// Matcher is a compiled rule set. It implements [tree.Visitor].
//
// A Matcher processes one traversal at a time. With [WithConcurrency], the
// fan-out of each event to the compiled patterns is split across goroutines,
// but the Matcher itself must still be driven from a single goroutine.
type Matcher struct {
	rules  []*Rule
	shards [][]compiled
	open   []string
	raw    []RawSpan
	mu     sync.Mutex
}

// Option configures a [Matcher].
type Option func(*options)

type options struct {
	concurrency int
}

// WithConcurrency splits the per-event fan-out into n shards processed in
// parallel. Values below 2 disable parallelism.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// Compile validates rules and builds a [Matcher] with one breadcrumb matcher
// per alternative pattern.
func Compile(rules []*Rule, opts ...Option) (*Matcher, error) {
	o := &options{concurrency: 1}
	for _, opt := range opts {
		opt(o)
	}

	err := validate(rules)
	if err != nil {
		return nil, err
	}

	var all []compiled
	for _, r := range rules {
		for _, p := range r.Patterns {
			all = append(all, compiled{rule: r, m: breadcrumb.MustNewMatcher(p)})
		}
	}

	n := max(1, min(o.concurrency, len(all)))
	shards := make([][]compiled, n)
	for i, c := range all {
		shards[i%n] = append(shards[i%n], c)
	}

	return &Matcher{
		rules:  slices.Clone(rules),
		shards: shards,
	}, nil
}

// MustCompile is like [Compile] but panics on error.
func MustCompile(rules []*Rule, opts ...Option) *Matcher {
	m, err := Compile(rules, opts...)
	if err != nil {
		panic(err)
	}

	return m
}

func validate(rules []*Rule) error {
	names := make([]string, 0, len(rules))
	seen := make(map[string]bool, len(rules))

	var errs []error
	for _, r := range rules {
		if r.Name != "" && seen[r.Name] {
			errs = append(errs, fmt.Errorf("rule %q: %w", r.Name, ErrDuplicateRule))

			continue
		}

		err := r.Validate()
		if err != nil {
			errs = append(errs, err)
		}

		if r.Name != "" {
			seen[r.Name] = true
			names = append(names, r.Name)
		}
	}

	for _, r := range rules {
		for _, ref := range r.Condition.References() {
			if ref == "" || seen[ref] {
				continue
			}

			err := fmt.Errorf("rule %q: %w %q", r.Name, ErrUnknownGroup, ref)
			if s := suggest(ref, names); s != "" {
				err = fmt.Errorf("%w, did you mean %q?", err, s)
			}

			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// suggest returns the name closest to ref, if any is close enough.
func suggest(ref string, names []string) string {
	matches := fuzzy.Find(ref, names)
	if len(matches) > 0 {
		return matches[0].Str
	}

	// Names abbreviated by ref did not match, try names contained in ref.
	best, bestScore := "", 0
	for _, name := range names {
		for _, match := range fuzzy.Find(name, []string{ref}) {
			if best == "" || match.Score > bestScore {
				best, bestScore = name, match.Score
			}
		}
	}

	return best
}

// Rules returns the compiled rules.
func (m *Matcher) Rules() []*Rule {
	return m.rules
}

// Patterns returns the number of compiled patterns.
func (m *Matcher) Patterns() int {
	n := 0
	for _, s := range m.shards {
		n += len(s)
	}

	return n
}

// Enter implements [tree.Visitor].
func (m *Matcher) Enter(n tree.Node) {
	label := n.Label()
	m.open = append(m.open, label)

	loc, located := n.Locate()
	located = located && loc.Len > 0

	m.each(func(c compiled) {
		c.m.Enter(label)
		if located && c.m.IsFullMatch() {
			m.record(RawSpan{
				Group:     c.rule.Name,
				Start:     loc.Offset,
				End:       loc.End(),
				Condition: c.rule.Condition,
			})
		}
	})
}

// Leave implements [tree.Visitor]. It panics with
// [breadcrumb.ErrUnbalanced] if n is not the most recently entered open
// node.
func (m *Matcher) Leave(n tree.Node) {
	label := n.Label()

	depth := len(m.open)
	if depth == 0 || m.open[depth-1] != label {
		panic(fmt.Errorf("%w: leave %q", breadcrumb.ErrUnbalanced, label))
	}

	m.open = m.open[:depth-1]

	m.each(func(c compiled) {
		c.m.Leave(label)
	})
}

func (m *Matcher) each(fn func(c compiled)) {
	if len(m.shards) == 1 {
		for _, c := range m.shards[0] {
			fn(c)
		}

		return
	}

	var g errgroup.Group
	for _, shard := range m.shards {
		g.Go(func() error {
			for _, c := range shard {
				fn(c)
			}

			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // Shard functions never fail.
}

func (m *Matcher) record(s RawSpan) {
	m.mu.Lock()
	m.raw = append(m.raw, s)
	m.mu.Unlock()
}

// RawSpans returns a copy of the spans recorded so far.
func (m *Matcher) RawSpans() []RawSpan {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.raw)
}

// Reset discards all traversal state and recorded spans.
func (m *Matcher) Reset() {
	m.open = m.open[:0]
	m.raw = nil

	m.each(func(c compiled) {
		c.m.Reset()
	})
}

// Resolve resolves the recorded spans against src and resets the matcher
// for the next traversal.
func (m *Matcher) Resolve(src []byte) ([]Span, error) {
	raw := m.RawSpans()
	m.Reset()

	return Resolve(src, raw)
}

// Walk runs p over src with m as the visitor and resolves the result.
func (m *Matcher) Walk(ctx context.Context, p tree.Parser, src []byte) ([]Span, error) {
	m.Reset()

	err := p.Parse(ctx, src, m)
	if err != nil {
		m.Reset()

		return nil, fmt.Errorf("parse: %w", err)
	}

	if len(m.open) > 0 {
		open := len(m.open)
		m.Reset()

		return nil, fmt.Errorf("%w: %d nodes left open", breadcrumb.ErrUnbalanced, open)
	}

	return m.Resolve(src)
}
