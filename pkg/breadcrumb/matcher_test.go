package breadcrumb_test

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/crumbs/pkg/breadcrumb"
)

// enterPath enters each label in turn, nesting each below the previous one,
// and returns whether the matcher reported a full match after each Enter.
func enterPath(m *breadcrumb.Matcher, labels ...string) []bool {
	got := make([]bool, len(labels))
	for i, l := range labels {
		m.Enter(l)
		got[i] = m.IsFullMatch()
	}

	return got
}

func leavePath(m *breadcrumb.Matcher, labels ...string) {
	for i := len(labels) - 1; i >= 0; i-- {
		m.Leave(labels[i])
	}
}

func TestMatcherPaths(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		pattern string
		path    []string
		want    []bool
	}{
		"single label": {
			pattern: "A",
			path:    []string{"X", "A", "Y"},
			want:    []bool{false, true, true},
		},
		"ordered chain": {
			pattern: "A B",
			path:    []string{"A", "X", "B", "Y"},
			want:    []bool{false, false, true, true},
		},
		"out of order": {
			pattern: "A B",
			path:    []string{"B", "A"},
			want:    []bool{false, false},
		},
		"distinct nodes": {
			pattern: "A A",
			path:    []string{"A", "B", "A"},
			want:    []bool{false, false, true},
		},
		"excluded between": {
			pattern: "A ^B C",
			path:    []string{"A", "B", "C"},
			want:    []bool{false, false, false},
		},
		"excluded below last required": {
			pattern: "A ^B C",
			path:    []string{"A", "C", "B", "D"},
			want:    []bool{false, true, false, false},
		},
		"excluded above required ancestor": {
			pattern: "A ^B C",
			path:    []string{"B", "A", "C"},
			want:    []bool{false, false, true},
		},
		"trailing exclusion": {
			pattern: "A ^B",
			path:    []string{"A", "X", "B", "Y"},
			want:    []bool{true, true, false, false},
		},
		"leading exclusion": {
			pattern: "^Comment Ident",
			path:    []string{"Comment", "Ident"},
			want:    []bool{false, false},
		},
		"only exclusions": {
			pattern: "^B",
			path:    []string{"A", "B", "C"},
			want:    []bool{true, false, false},
		},
		"required node does not trigger following exclusion": {
			pattern: "A ^A",
			path:    []string{"A", "X", "A"},
			want:    []bool{true, true, false},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			m := breadcrumb.MustNewMatcher(breadcrumb.MustParsePattern(tc.pattern))
			assert.Equal(t, tc.want, enterPath(m, tc.path...))

			leavePath(m, tc.path...)
			assert.Equal(t, breadcrumb.State{}, m.State())
		})
	}
}

func TestMatcherExclusionRelease(t *testing.T) {
	t.Parallel()

	m := breadcrumb.MustNewMatcher(breadcrumb.Pattern{
		breadcrumb.Required("A"),
		breadcrumb.Excluded("B"),
		breadcrumb.Required("C"),
	})

	m.Enter("A")
	m.Enter("B")
	m.Enter("C")
	assert.False(t, m.IsFullMatch(), "inside B")

	m.Leave("C")
	m.Leave("B")
	m.Enter("C")
	assert.True(t, m.IsFullMatch(), "B released")
}

func TestMatcherSiblingSubtrees(t *testing.T) {
	t.Parallel()

	m := breadcrumb.MustNewMatcher(breadcrumb.MustParsePattern("A ^B C"))

	m.Enter("Root")
	for range 2 {
		assert.Equal(t, []bool{false, false, true}, enterPath(m, "A", "X", "C"))
		leavePath(m, "A", "X", "C")
	}

	// A triggered sibling does not leak into the next one.
	assert.Equal(t, []bool{false, false, false}, enterPath(m, "A", "B", "C"))
	leavePath(m, "A", "B", "C")
	assert.Equal(t, []bool{false, true}, enterPath(m, "A", "C"))
}

func TestMatcherNestedExclusions(t *testing.T) {
	t.Parallel()

	m := breadcrumb.MustNewMatcher(breadcrumb.MustParsePattern("A ^B C"))

	m.Enter("A")
	m.Enter("B")
	m.Enter("B")
	m.Enter("C")
	assert.False(t, m.IsFullMatch())

	m.Leave("C")
	m.Leave("B")

	// The outer B is still open.
	m.Enter("C")
	assert.False(t, m.IsFullMatch())
	assert.Len(t, m.State().Active, 1)

	m.Leave("C")
	m.Leave("B")
	m.Enter("C")
	assert.True(t, m.IsFullMatch())
}

func TestMatcherEveryDescendantMatches(t *testing.T) {
	t.Parallel()

	m := breadcrumb.MustNewMatcher(breadcrumb.MustParsePattern("Call"))

	matches := 0
	for _, l := range []string{"Call", "Args", "Ident"} {
		m.Enter(l)
		if m.IsFullMatch() {
			matches++
		}
	}

	assert.Equal(t, 3, matches)
}

func TestMatcherRequiredOnlyProperty(t *testing.T) {
	t.Parallel()

	alphabet := []string{"A", "B", "C"}
	rng := rand.New(rand.NewPCG(1, 2))

	for range 500 {
		pattern := make(breadcrumb.Pattern, 1+rng.IntN(3))
		for i := range pattern {
			pattern[i] = breadcrumb.Required(alphabet[rng.IntN(len(alphabet))])
		}

		path := make([]string, rng.IntN(7))
		for i := range path {
			path[i] = alphabet[rng.IntN(len(alphabet))]
		}

		m := breadcrumb.MustNewMatcher(pattern)
		got := enterPath(m, path...)

		for i := range path {
			want := isSubsequence(pattern, path[:i+1])
			require.Equal(t, want, got[i], "pattern %q path %q", pattern, path[:i+1])
		}
	}
}

func TestMatcherEnterLeaveRestoresState(t *testing.T) {
	t.Parallel()

	alphabet := []string{"A", "B", "C", "D"}
	rng := rand.New(rand.NewPCG(3, 4))

	for range 300 {
		m := breadcrumb.MustNewMatcher(breadcrumb.MustParsePattern("^D A ^B C ^A"))

		path := make([]string, rng.IntN(6))
		for i := range path {
			path[i] = alphabet[rng.IntN(len(alphabet))]
		}

		enterPath(m, path...)

		before := m.State()
		beforeMatch := m.IsFullMatch()

		x := alphabet[rng.IntN(len(alphabet))]
		m.Enter(x)
		m.Leave(x)

		require.Equal(t, before, m.State(), "path %q then %q", path, x)
		require.Equal(t, beforeMatch, m.IsFullMatch())
	}
}

func TestMatcherUnbalancedLeave(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		enter []string
		leave string
	}{
		"nothing open":  {leave: "A"},
		"wrong label":   {enter: []string{"A", "B"}, leave: "A"},
		"after balance": {enter: []string{"A"}, leave: "B"},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			m := breadcrumb.MustNewMatcher(breadcrumb.MustParsePattern("A"))
			enterPath(m, tc.enter...)

			defer func() {
				r := recover()
				require.NotNil(t, r)

				err, ok := r.(error)
				require.True(t, ok)
				assert.True(t, errors.Is(err, breadcrumb.ErrUnbalanced))
			}()

			m.Leave(tc.leave)
		})
	}
}

func TestMatcherReset(t *testing.T) {
	t.Parallel()

	m := breadcrumb.MustNewMatcher(breadcrumb.MustParsePattern("A ^B"))
	enterPath(m, "A", "B")
	require.Equal(t, 2, m.Depth())

	m.Reset()
	assert.Equal(t, 0, m.Depth())
	assert.Equal(t, breadcrumb.State{}, m.State())
	assert.Equal(t, []bool{true}, enterPath(m, "A"))
}

func TestNewMatcherErrors(t *testing.T) {
	t.Parallel()

	_, err := breadcrumb.NewMatcher(nil)
	require.ErrorIs(t, err, breadcrumb.ErrEmptyPattern)

	assert.Panics(t, func() {
		breadcrumb.MustNewMatcher(breadcrumb.Pattern{breadcrumb.Excluded("")})
	})
}

// isSubsequence reports whether the Required labels of p appear in order in
// path.
func isSubsequence(p breadcrumb.Pattern, path []string) bool {
	i := 0
	for _, l := range path {
		if i < len(p) && p[i].Label == l {
			i++
		}
	}

	return i == len(p)
}
