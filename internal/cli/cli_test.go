package cli_test

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/crumbs/api/v1beta1/configs"
	"github.com/macropower/crumbs/internal/cli"
)

const goSource = "package main\n\nfunc main() {\n\tmain()\n}\n"

const keyRuleSet = `apiVersion: crumbs.jacobcolvin.com/v1beta1
kind: RuleSet
rules:
  MyKey:
    patterns:
      - Key String
`

type project struct {
	dir    string
	config string
}

func (p project) path(name string) string {
	return filepath.Join(p.dir, name)
}

func newProject(t *testing.T) project {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		"config.yaml": string(configs.DefaultYAML()),
		"main.go":     goSource,
		"a.yaml":      "a: b\n",
		"keys.yaml":   keyRuleSet,
		"bad.yaml":    "apiVersion: crumbs.jacobcolvin.com/v1beta1\nkind: RuleSet\nrules:\n  Bad:\n    patterns:\n      - Key ^\n",
		"want":        "MyKey 1 0 1 a\n",
		"wrong":       "MyKey 1 0 1 x\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}

	return project{dir: dir, config: filepath.Join(dir, "config.yaml")}
}

func execute(t *testing.T, p project, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd := cli.NewRootCmd()
	cmd.SetArgs(append([]string{"--config", p.config, "--log-level", "error"}, args...))
	cmd.SetIn(bytes.NewBufferString("a: b\n"))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)

	err := cmd.ExecuteContext(t.Context())

	return out.String(), err
}

func TestHighlight(t *testing.T) {
	t.Parallel()

	p := newProject(t)

	tcs := map[string]struct {
		check func(t *testing.T, out string)
		args  []string
		err   bool
	}{
		"root command defaults to records": {
			args: []string{p.path("main.go")},
			check: func(t *testing.T, out string) {
				t.Helper()
				assert.Contains(t, out, "Keyword 1 0 7 package\n")
				assert.Contains(t, out, "Keyword 3 0 4 func\n")
			},
		},
		"highlight subcommand": {
			args: []string{"highlight", p.path("main.go"), "-f", "records"},
			check: func(t *testing.T, out string) {
				t.Helper()
				assert.Contains(t, out, "Keyword 1 0 7 package\n")
			},
		},
		"json": {
			args: []string{p.path("main.go"), "--format", "json"},
			check: func(t *testing.T, out string) {
				t.Helper()

				var spans []map[string]any
				require.NoError(t, json.Unmarshal([]byte(out), &spans))
				assert.NotEmpty(t, spans)
			},
		},
		"rules override": {
			args: []string{p.path("a.yaml"), "--rules", p.path("keys.yaml")},
			check: func(t *testing.T, out string) {
				t.Helper()
				assert.Equal(t, "MyKey 1 0 1 a\n", out)
			},
		},
		"stdin with profile": {
			args: []string{"-", "--profile", "yaml", "--rules", p.path("keys.yaml")},
			check: func(t *testing.T, out string) {
				t.Helper()
				assert.Equal(t, "MyKey 1 0 1 a\n", out)
			},
		},
		"show config": {
			args: []string{"--show-config", "--format", "records"},
			check: func(t *testing.T, out string) {
				t.Helper()
				assert.Contains(t, out, "apiVersion")
			},
		},
		"missing source": {
			args: []string{},
			err:  true,
		},
		"unknown format": {
			args: []string{p.path("main.go"), "--format", "nope"},
			err:  true,
		},
		"unknown profile": {
			args: []string{p.path("main.go"), "--profile", "nope"},
			err:  true,
		},
		"watch stdin": {
			args: []string{"-", "--watch"},
			err:  true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			out, err := execute(t, p, tc.args...)
			if tc.err {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			tc.check(t, out)
		})
	}
}

func TestWriteConfig(t *testing.T) {
	t.Parallel()

	p := newProject(t)
	path := p.path("written.yaml")

	_, err := execute(t, project{dir: p.dir, config: path}, "--write-config")
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, configs.DefaultYAML(), got)
}

func TestFind(t *testing.T) {
	t.Parallel()

	p := newProject(t)

	out, err := execute(t, p, "find", p.path("main.go"), "main")
	require.NoError(t, err)
	assert.Contains(t, out, "Line: package main\n")
	assert.Contains(t, out, "FuncDecl")
	assert.Contains(t, out, "CallExpr")

	out, err = execute(t, p, "find", p.path("main.go"), "absent")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCheck(t *testing.T) {
	t.Parallel()

	p := newProject(t)

	tcs := map[string]struct {
		want error
		out  string
		args []string
		err  bool
	}{
		"valid rule set": {
			args: []string{"check", p.path("keys.yaml")},
		},
		"builtin rule set": {
			args: []string{"check", "builtin:go"},
		},
		"invalid pattern": {
			args: []string{"check", p.path("bad.yaml")},
			err:  true,
		},
		"records": {
			args: []string{"check", p.path("keys.yaml"), "--source", p.path("a.yaml")},
			out:  "MyKey 1 0 1 a\n",
		},
		"expected records match": {
			args: []string{"check", p.path("keys.yaml"), "--source", p.path("a.yaml"), "--expect", p.path("want")},
		},
		"expected records differ": {
			args: []string{"check", p.path("keys.yaml"), "--source", p.path("a.yaml"), "--expect", p.path("wrong")},
			want: cli.ErrMismatch,
			err:  true,
		},
		"expect without source": {
			args: []string{"check", p.path("keys.yaml"), "--expect", p.path("want")},
			err:  true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			out, err := execute(t, p, tc.args...)
			if tc.err {
				require.Error(t, err)
				if tc.want != nil {
					require.ErrorIs(t, err, tc.want)
					assert.Contains(t, out, "-MyKey 1 0 1 x")
					assert.Contains(t, out, "+MyKey 1 0 1 a")
				}

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.out, out)
		})
	}
}

func TestSchema(t *testing.T) {
	t.Parallel()

	p := newProject(t)

	for _, kind := range []string{"ruleset", "config"} {
		out, err := execute(t, p, "schema", kind)
		require.NoError(t, err)
		assert.True(t, json.Valid([]byte(out)), kind)
	}

	out, err := execute(t, p, "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "RuleSet")

	_, err = execute(t, p, "schema", "nope")
	require.Error(t, err)
}
