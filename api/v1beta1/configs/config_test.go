package configs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/crumbs/api/v1beta1"
	"github.com/macropower/crumbs/api/v1beta1/configs"
	"github.com/macropower/crumbs/api/v1beta1/rulesets"
	"github.com/macropower/crumbs/pkg/profile"
	"github.com/macropower/crumbs/pkg/yaml"
)

func decode(t *testing.T, src string) *configs.Config {
	t.Helper()

	cfg := &configs.Config{}
	require.NoError(t, yaml.Unmarshal([]byte(src), cfg))
	cfg.EnsureDefaults()

	return cfg
}

func TestNew(t *testing.T) {
	t.Parallel()

	cfg := configs.New()
	assert.Equal(t, v1beta1.APIVersion, cfg.GetAPIVersion())
	assert.Equal(t, configs.Kind, cfg.GetKind())
	assert.Equal(t, configs.DefaultTheme, cfg.Theme)
	assert.Equal(t, []string{"go", "text", "yaml"}, cfg.ProfileNames())
	require.NoError(t, cfg.Validate())
}

func TestDefaultYAML(t *testing.T) {
	t.Parallel()

	data := configs.DefaultYAML()
	require.NoError(t, configs.DefaultValidator.ValidateDocument(data))

	cfg := decode(t, string(data))
	require.NoError(t, cfg.Validate())

	defaults := configs.New()
	require.NoError(t, defaults.Validate())

	assert.Equal(t, defaults.ProfileNames(), cfg.ProfileNames())
	for _, name := range cfg.ProfileNames() {
		assert.Equal(t, defaults.Profiles[name].String(), cfg.Profiles[name].String())
	}

	require.Len(t, cfg.Rules, len(defaults.Rules))
	for i := range cfg.Rules {
		assert.Equal(t, defaults.Rules[i].String(), cfg.Rules[i].String())
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()

	cfg := configs.New()
	require.NoError(t, cfg.Validate())

	tcs := map[string]struct {
		path   string
		want   string
		parser profile.ParserKind
	}{
		"go":     {path: "/src/main.go", want: "go", parser: profile.ParserGo},
		"yml":    {path: "/src/a.yml", want: "yaml", parser: profile.ParserYAML},
		"other":  {path: "/src/Makefile", want: "text", parser: profile.ParserChroma},
		"no ext": {path: "README", want: "text", parser: profile.ParserChroma},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, p, ok := cfg.Match(tc.path, nil)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.parser, p.Parser)
		})
	}

	never := decode(t, "apiVersion: crumbs.jacobcolvin.com/v1beta1\nkind: Configuration\nrules:\n  - match: 'false'\n    profile: go\n")
	require.NoError(t, never.Validate())

	_, _, ok := never.Match("/src/main.go", nil)
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	const header = "apiVersion: crumbs.jacobcolvin.com/v1beta1\nkind: Configuration\n"

	tcs := map[string]struct {
		err  error
		src  string
		path string
	}{
		"wrong kind": {
			src:  "apiVersion: crumbs.jacobcolvin.com/v1beta1\nkind: RuleSet\n",
			err:  v1beta1.ErrKind,
			path: "$.kind",
		},
		"unknown parser": {
			src:  header + "profiles:\n  x:\n    parser: cobol\n    ruleset: builtin:go\n",
			err:  profile.ErrUnknownParser,
			path: "$.profiles.x",
		},
		"unknown builtin": {
			src:  header + "profiles:\n  x:\n    parser: go\n    ruleset: builtin:cobol\n",
			err:  rulesets.ErrUnknownBuiltin,
			path: "$.profiles.x.ruleset",
		},
		"command without command": {
			src:  header + "profiles:\n  x:\n    parser: command\n    ruleset: ./x.yaml\n",
			err:  profile.ErrMissingCommand,
			path: "$.profiles.x",
		},
		"bad match": {
			src:  header + "rules:\n  - match: 'pathExt('\n    profile: go\n",
			path: "$.rules[0].match",
		},
		"unknown profile": {
			src:  header + "rules:\n  - match: 'true'\n    profile: nope\n",
			path: "$.rules[0].profile",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := decode(t, tc.src).Validate()
			require.Error(t, err)

			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
			}

			var yamlErr *yaml.Error
			require.ErrorAs(t, err, &yamlErr)
			require.NotNil(t, yamlErr.Path)
			assert.Equal(t, tc.path, yamlErr.Path.String())
		})
	}
}

func TestMarshalYAML(t *testing.T) {
	t.Parallel()

	b, err := configs.New().MarshalYAML()
	require.NoError(t, err)
	require.NoError(t, configs.DefaultValidator.ValidateDocument(b))

	cfg := decode(t, string(b))
	require.NoError(t, cfg.Validate())
	assert.Equal(t, configs.New().ProfileNames(), cfg.ProfileNames())
}

func TestWriteDefault(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "crumbs", "config.yaml")
	require.NoError(t, configs.WriteDefault(path, false))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, configs.DefaultYAML(), got)
}
