// Package configs provides the global Configuration type for crumbs.
package configs

import (
	"fmt"
	"maps"
	"slices"

	"github.com/invopop/jsonschema"

	_ "embed"

	"github.com/macropower/crumbs/api"
	"github.com/macropower/crumbs/api/v1beta1"
	"github.com/macropower/crumbs/api/v1beta1/rulesets"
	"github.com/macropower/crumbs/pkg/profile"
	"github.com/macropower/crumbs/pkg/rule"
	"github.com/macropower/crumbs/pkg/yaml"
)

//go:generate go run ../../../internal/schemagen -kind config -o configs.v1beta1.json

// Kind is the kind of configuration documents.
const Kind = "Configuration"

// DefaultTheme picks a light or dark theme matching the terminal.
const DefaultTheme = "auto"

var (
	//go:embed config.yaml
	defaultConfigYAML []byte

	//go:embed configs.v1beta1.json
	schemaJSON []byte

	// ValidKinds contains the valid kind values for global configurations.
	ValidKinds = []string{Kind}

	// DefaultValidator validates global configuration against the JSON schema.
	DefaultValidator = yaml.MustNewValidator("/configs.v1beta1.json", schemaJSON)

	// Compile-time interface checks.
	_ v1beta1.Object = (*Config)(nil)
)

func defaultProfiles() map[string]*profile.Profile {
	return map[string]*profile.Profile{
		"go":   profile.MustNew(profile.ParserGo, "builtin:go"),
		"yaml": profile.MustNew(profile.ParserYAML, "builtin:yaml"),
		"text": profile.MustNew(profile.ParserChroma, "builtin:chroma"),
	}
}

func defaultRules() []*rule.Rule {
	return []*rule.Rule{
		rule.MustNew("go", `pathExt(file) == ".go"`),
		rule.MustNew("yaml", `pathExt(file) in [".yaml", ".yml"]`),
		rule.MustNew("text", "true"),
	}
}

// Schema returns the embedded JSON schema.
func Schema() []byte {
	return schemaJSON
}

// Config represents the global crumbs configuration.
//
//nolint:recvcheck // Must satisfy the jsonschema interface.
type Config struct {
	// Profiles contains a map of profile names to profile configurations.
	Profiles map[string]*profile.Profile `json:"profiles,omitempty" jsonschema:"title=Profiles"`
	// Theme is the chroma style used for overlay output and CLI colors.
	// "auto", "light" and "dark" pick a github style.
	Theme string `json:"theme,omitempty" jsonschema:"title=Theme"`
	// Rules select the profile for a source file. The first match wins.
	Rules            []*rule.Rule `json:"rules,omitempty" jsonschema:"title=Rules"`
	v1beta1.TypeMeta `json:",inline"`
}

// New creates a new global [Config] with default values.
func New() *Config {
	c := &Config{TypeMeta: v1beta1.NewTypeMeta(Kind)}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults initializes unset fields to their default values.
func (c *Config) EnsureDefaults() {
	if c.Theme == "" {
		c.Theme = DefaultTheme
	}

	if c.Profiles == nil {
		c.Profiles = defaultProfiles()
	}

	if c.Rules == nil {
		c.Rules = defaultRules()
	}
}

// Validate checks the document kind, compiles the profiles and rules and
// links each rule to its profile. Errors are located in the document.
func (c *Config) Validate() error {
	pb := yaml.NewPathBuilder()

	err := c.TypeMeta.Check(ValidKinds...)
	if err != nil {
		return yaml.NewError(err, yaml.WithPath(pb.Root().Child("kind").Build()))
	}

	for _, name := range c.ProfileNames() {
		p := c.Profiles[name]
		if p == nil {
			return yaml.NewError(
				fmt.Errorf("profile %q is empty", name),
				yaml.WithPath(pb.Root().Child("profiles").Child(name).Build()),
			)
		}

		err := p.Build()
		if err != nil {
			return yaml.NewError(
				fmt.Errorf("invalid profile %q: %w", name, err),
				yaml.WithPath(pb.Root().Child("profiles").Child(name).Build()),
			)
		}

		if rulesets.IsBuiltin(p.RuleSet) {
			_, err := rulesets.Builtin(p.RuleSet)
			if err != nil {
				return yaml.NewError(
					fmt.Errorf("invalid profile %q: %w", name, err),
					yaml.WithPath(pb.Root().Child("profiles").Child(name).Child("ruleset").Build()),
				)
			}
		}
	}

	for i, r := range c.Rules {
		uIdx := uint(i) //nolint:gosec // G115: integer overflow conversion int -> uint.

		err := r.CompileMatch()
		if err != nil {
			return yaml.NewError(
				fmt.Errorf("invalid match: %w", err),
				yaml.WithPath(pb.Root().Child("rules").Index(uIdx).Child("match").Build()),
			)
		}

		p, ok := c.Profiles[r.Profile]
		if !ok || p == nil {
			return yaml.NewError(
				fmt.Errorf("profile %q not found", r.Profile),
				yaml.WithPath(pb.Root().Child("rules").Index(uIdx).Child("profile").Build()),
			)
		}

		r.SetProfile(p)
	}

	return nil
}

// ProfileNames returns the profile names in order.
func (c *Config) ProfileNames() []string {
	return slices.Sorted(maps.Keys(c.Profiles))
}

// Match returns the profile selected by the first rule matching the source
// file. [Config.Validate] must have been called.
func (c *Config) Match(path string, content []byte) (string, *profile.Profile, bool) {
	for _, r := range c.Rules {
		if r.MatchFile(path, content) {
			return r.Profile, r.GetProfile(), true
		}
	}

	return "", nil, false
}

func (c Config) JSONSchemaExtend(jss *jsonschema.Schema) {
	v1beta1.ExtendSchemaWithEnums(jss, v1beta1.ValidAPIVersions, ValidKinds)
}

// MarshalYAML serializes the config to YAML.
func (c Config) MarshalYAML() ([]byte, error) {
	type alias Config

	b, err := api.MarshalYAML(alias(c))
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	return b, nil
}

// WriteDefault writes the embedded default config.yaml to the specified path.
func WriteDefault(path string, force bool) error {
	err := api.WriteDefaultFile(path, defaultConfigYAML, force, "configuration")
	if err != nil {
		return fmt.Errorf("write default config: %w", err)
	}

	return nil
}

// DefaultYAML returns the embedded default config.yaml.
func DefaultYAML() []byte {
	return defaultConfigYAML
}

// GetPath returns the path to the global configuration file.
func GetPath() string {
	return api.ConfigPath("config.yaml")
}
