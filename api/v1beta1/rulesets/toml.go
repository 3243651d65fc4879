package rulesets

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/pelletier/go-toml/v2"
)

// ErrTOML is returned for TOML rule sets that do not have the expected
// layout.
var ErrTOML = errors.New("invalid toml rule set")

// styleTables name the TOML tables holding style directives.
var styleTables = []string{"colors", "styles"}

// DecodeTOML decodes a rule set in TOML form.
//
// Each table is a rule named by its key, with "patterns", "ifDefined" and
// "orElse" keys. A table with a "group" key instead names a single pattern
// of that group by its key:
//
//	["FuncDecl ^BlockStmt Ident"]
//	group = "Function"
//
// The "colors" (or "styles") table maps groups to style directives.
// Optional top-level "apiVersion" and "kind" keys are kept.
func DecodeTOML(data []byte) (*RuleSet, error) {
	var raw map[string]any

	err := toml.Unmarshal(data, &raw)
	if err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()

			return nil, fmt.Errorf("[%d:%d] %w", row, col, err)
		}

		return nil, fmt.Errorf("decode toml: %w", err)
	}

	rs := New()

	var errs []error
	for _, key := range slices.Sorted(maps.Keys(raw)) {
		err := rs.addTOML(key, raw[key])
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %w", ErrTOML, key, err))
		}
	}

	err = errors.Join(errs...)
	if err != nil {
		return nil, err
	}

	return rs, nil
}

func (rs *RuleSet) addTOML(key string, value any) error {
	switch key {
	case "apiVersion":
		return tomlString(value, &rs.APIVersion)
	case "kind":
		return tomlString(value, &rs.Kind)
	}

	table, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("want table, got %T", value)
	}

	if slices.Contains(styleTables, key) {
		for group, directive := range table {
			var s string

			err := tomlString(directive, &s)
			if err != nil {
				return fmt.Errorf("style %q: %w", group, err)
			}

			rs.Styles[group] = s
		}

		return nil
	}

	if group, ok := table["group"]; ok {
		var name string

		err := tomlString(group, &name)
		if err != nil {
			return fmt.Errorf("group: %w", err)
		}

		r := rs.rule(name)
		r.Patterns = append(r.Patterns, key)

		return nil
	}

	r := rs.rule(key)
	for field, v := range table {
		var err error

		switch field {
		case "patterns":
			var patterns []string

			err = tomlStrings(v, &patterns)
			r.Patterns = append(r.Patterns, patterns...)
		case "ifDefined":
			err = tomlString(v, &r.IfDefined)
		case "orElse":
			err = tomlString(v, &r.OrElse)
		default:
			err = errors.New("unknown field")
		}

		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}

	return nil
}

func (rs *RuleSet) rule(name string) *Rule {
	r, ok := rs.Rules[name]
	if !ok {
		r = &Rule{}
		rs.Rules[name] = r
	}

	return r
}

func tomlString(v any, dst *string) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("want string, got %T", v)
	}

	*dst = s

	return nil
}

func tomlStrings(v any, dst *[]string) error {
	items, ok := v.([]any)
	if !ok {
		return fmt.Errorf("want array, got %T", v)
	}

	for i, item := range items {
		var s string

		err := tomlString(item, &s)
		if err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}

		*dst = append(*dst, s)
	}

	return nil
}
