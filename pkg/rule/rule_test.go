package rule_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/crumbs/pkg/profile"
	"github.com/macropower/crumbs/pkg/rule"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		err     error
		match   string
		profile string
		wantErr bool
	}{
		"valid rule": {
			match:   `pathExt(file) == ".go"`,
			profile: "go",
		},
		"content rule": {
			match:   `shebang(content) == "sh"`,
			profile: "shell",
		},
		"invalid CEL expression": {
			match:   "path.invalidFunction()",
			profile: "test",
			wantErr: true,
		},
		"empty match": {
			profile: "test",
			err:     rule.ErrEmptyMatch,
			wantErr: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r, err := rule.New(tc.profile, tc.match)
			if tc.wantErr {
				require.Error(t, err)
				assert.Nil(t, r)

				if tc.err != nil {
					require.ErrorIs(t, err, tc.err)
				}

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.match, r.Match)
			assert.Equal(t, tc.profile, r.Profile)
		})
	}

	assert.Panics(t, func() {
		rule.MustNew("x", "(")
	})
}

func TestMatchFile(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		match   string
		path    string
		content string
		want    bool
	}{
		"extension": {
			match: `pathExt(file) in [".yaml", ".yml"]`,
			path:  "/repo/config.yml",
			want:  true,
		},
		"extension mismatch": {
			match: `pathExt(file) == ".go"`,
			path:  "/repo/config.yml",
			want:  false,
		},
		"directory": {
			match: `dir.endsWith("/hack")`,
			path:  "/repo/hack/build",
			want:  true,
		},
		"shebang": {
			match:   `shebang(content) in ["sh", "bash"]`,
			path:    "/repo/hack/build",
			content: "#!/usr/bin/env bash\nset -e\n",
			want:    true,
		},
		"non-boolean is a non-match": {
			match: `pathBase(file)`,
			path:  "/repo/a.go",
			want:  false,
		},
		"always": {
			match: "true",
			path:  "/repo/a",
			want:  true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := rule.MustNew("p", tc.match)
			assert.Equal(t, tc.want, r.MatchFile(tc.path, []byte(tc.content)))
		})
	}
}

func TestRuleProfile(t *testing.T) {
	t.Parallel()

	r := rule.MustNew("go", `pathExt(file) == ".go"`)
	assert.Equal(t, `go: pathExt(file) == ".go"`, r.String())
	assert.Panics(t, func() { r.GetProfile() })

	p := profile.MustNew(profile.ParserGo, "builtin:go")
	r.SetProfile(p)
	assert.Same(t, p, r.GetProfile())
	assert.Equal(t, "go: go (builtin:go)", r.String())

	var unset rule.Rule
	assert.Panics(t, func() { unset.MatchFile("a", nil) })
}
