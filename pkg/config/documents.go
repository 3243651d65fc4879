package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/macropower/crumbs/api"
	"github.com/macropower/crumbs/api/v1beta1"
	"github.com/macropower/crumbs/api/v1beta1/configs"
	"github.com/macropower/crumbs/api/v1beta1/rulesets"
)

// NewConfigLoaderFromFile creates a [Loader] for a global configuration file.
func NewConfigLoaderFromFile(path string, opts ...LoaderOpt) (*Loader[*configs.Config], error) {
	return NewLoaderFromFile(path, configs.New, configs.DefaultValidator, opts...)
}

// NewConfigLoaderFromBytes creates a [Loader] for global configuration data.
func NewConfigLoaderFromBytes(data []byte, opts ...LoaderOpt) *Loader[*configs.Config] {
	return NewLoaderFromBytes(data, configs.New, configs.DefaultValidator, opts...)
}

// NewRuleSetLoaderFromBytes creates a [Loader] for rule set data.
func NewRuleSetLoaderFromBytes(data []byte, opts ...LoaderOpt) *Loader[*rulesets.RuleSet] {
	return NewLoaderFromBytes(data, rulesets.New, rulesets.DefaultValidator, opts...)
}

// LoadConfig validates and loads a global configuration file.
func LoadConfig(path string, opts ...LoaderOpt) (*configs.Config, error) {
	cl, err := NewConfigLoaderFromFile(path, opts...)
	if err != nil {
		return nil, err
	}

	return load(cl, path)
}

// LoadRuleSet loads the rule set named by ref: an embedded rule set
// ("builtin:<name>"), or a YAML or TOML file. Relative paths are resolved
// against baseDir.
func LoadRuleSet(ref, baseDir string, opts ...LoaderOpt) (*rulesets.RuleSet, error) {
	if rulesets.IsBuiltin(ref) {
		data, err := rulesets.Builtin(ref)
		if err != nil {
			return nil, err //nolint:wrapcheck // Return the original error.
		}

		return load(NewRuleSetLoaderFromBytes(data, opts...), ref)
	}

	path := ref
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}

	data, err := api.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rule set %q: %w", ref, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		rs, err := rulesets.DecodeTOML(data)
		if err != nil {
			return nil, fmt.Errorf("rule set %q: %w", path, err)
		}

		err = rs.Validate()
		if err != nil {
			return nil, fmt.Errorf("rule set %q: %w", path, err)
		}

		return rs, nil
	}

	return load(NewRuleSetLoaderFromBytes(data, opts...), path)
}

//nolint:ireturn // Generic type parameter return is intentional.
func load[T v1beta1.Object](l *Loader[T], name string) (T, error) {
	var zero T

	err := l.Validate()
	if err != nil {
		return zero, fmt.Errorf("invalid %s: %w", name, err)
	}

	v, err := l.Load()
	if err != nil {
		return zero, fmt.Errorf("invalid %s: %w", name, err)
	}

	return v, nil
}
