// Package rulesets provides the RuleSet document type: named highlight
// groups described by breadcrumb patterns, with their styles.
package rulesets

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/invopop/jsonschema"

	_ "embed"

	"github.com/macropower/crumbs/api"
	"github.com/macropower/crumbs/api/v1beta1"
	"github.com/macropower/crumbs/pkg/style"
	"github.com/macropower/crumbs/pkg/syntax"
	"github.com/macropower/crumbs/pkg/theme"
	"github.com/macropower/crumbs/pkg/yaml"
)

//go:generate go run ../../../internal/schemagen -kind ruleset -o rulesets.v1beta1.json

// Kind is the kind of rule set documents.
const Kind = "RuleSet"

var (
	//go:embed rulesets.v1beta1.json
	schemaJSON []byte

	// ValidKinds contains the valid kind values for rule sets.
	ValidKinds = []string{Kind}

	// DefaultValidator validates rule sets against the JSON schema.
	DefaultValidator = yaml.MustNewValidator("/rulesets.v1beta1.json", schemaJSON)

	// ErrOrElseWithoutIfDefined is returned for a rule with a fallback group
	// but no condition.
	ErrOrElseWithoutIfDefined = errors.New("orElse requires ifDefined")

	// Compile-time interface checks.
	_ v1beta1.Object = (*RuleSet)(nil)
)

// Schema returns the embedded JSON schema.
func Schema() []byte {
	return schemaJSON
}

// RuleSet is a set of highlight groups.
//
//nolint:recvcheck // Must satisfy the jsonschema interface.
type RuleSet struct {
	// Rules maps group names to their rules.
	Rules map[string]*Rule `json:"rules" jsonschema:"required,title=Rules"`
	// Styles maps group names to style directives.
	Styles           map[string]string `json:"styles,omitempty" jsonschema:"title=Styles"`
	v1beta1.TypeMeta `json:",inline"`
}

// Rule describes one highlight group.
type Rule struct {
	// IfDefined reports matches only if their text is also matched by this
	// group.
	IfDefined string `json:"ifDefined,omitempty" jsonschema:"title=If Defined"`
	// OrElse reports failed IfDefined matches under this group instead of
	// dropping them.
	OrElse string `json:"orElse,omitempty" jsonschema:"title=Or Else"`
	// Patterns are alternative breadcrumb patterns, e.g. "FuncDecl ^BlockStmt Ident".
	Patterns []string `json:"patterns" jsonschema:"required,minItems=1,title=Patterns"`
}

// New creates an empty [RuleSet].
func New() *RuleSet {
	rs := &RuleSet{TypeMeta: v1beta1.NewTypeMeta(Kind)}
	rs.EnsureDefaults()

	return rs
}

// EnsureDefaults initializes nil fields to their default values.
func (rs *RuleSet) EnsureDefaults() {
	if rs.Rules == nil {
		rs.Rules = map[string]*Rule{}
	}

	if rs.Styles == nil {
		rs.Styles = map[string]string{}
	}
}

// Condition returns the [syntax.Condition] of the rule.
func (r *Rule) Condition() (syntax.Condition, error) {
	switch {
	case r.IfDefined == "" && r.OrElse != "":
		return syntax.Condition{}, ErrOrElseWithoutIfDefined
	case r.OrElse != "":
		return syntax.RequiresGroupElse(r.IfDefined, r.OrElse), nil
	case r.IfDefined != "":
		return syntax.RequiresGroup(r.IfDefined), nil
	}

	return syntax.Condition{}, nil
}

// Names returns the group names in order.
func (rs *RuleSet) Names() []string {
	return slices.Sorted(maps.Keys(rs.Rules))
}

// SyntaxRules converts the rules, sorted by name. Errors are located in the
// document.
func (rs *RuleSet) SyntaxRules() ([]*syntax.Rule, error) {
	rules := make([]*syntax.Rule, 0, len(rs.Rules))

	var errs []error
	for _, name := range rs.Names() {
		r := rs.Rules[name]
		if r == nil {
			errs = append(errs, yaml.NewError(syntax.ErrNoPatterns, yaml.WithPath(rulePath(name).Build())))

			continue
		}

		sr, err := r.syntaxRule(name)
		if err != nil {
			errs = append(errs, err)

			continue
		}

		rules = append(rules, sr)
	}

	err := errors.Join(errs...)
	if err != nil {
		return nil, err
	}

	return rules, nil
}

func (r *Rule) syntaxRule(name string) (*syntax.Rule, error) {
	cond, err := r.Condition()
	if err != nil {
		return nil, yaml.NewError(fmt.Errorf("rule %q: %w", name, err),
			yaml.WithPath(rulePath(name).Child("orElse").Build()))
	}

	sr, err := syntax.NewRule(name, cond, r.Patterns...)
	if err != nil {
		return nil, yaml.NewError(err, yaml.WithPath(rulePath(name).Child("patterns").Build()))
	}

	err = sr.Validate()
	if err != nil {
		return nil, yaml.NewError(err, yaml.WithPath(rulePath(name).Build()))
	}

	return sr, nil
}

// Compile converts the rules and compiles them into a [syntax.Matcher].
func (rs *RuleSet) Compile(opts ...syntax.Option) (*syntax.Matcher, error) {
	rules, err := rs.SyntaxRules()
	if err != nil {
		return nil, err
	}

	m, err := syntax.Compile(rules, opts...)
	if err != nil {
		return nil, fmt.Errorf("compile rules: %w", err)
	}

	return m, nil
}

// Validate checks the document kind, the rules, including references
// between groups, and the style directives.
func (rs *RuleSet) Validate() error {
	err := rs.TypeMeta.Check(ValidKinds...)
	if err != nil {
		return yaml.NewError(err, yaml.WithPath(yaml.NewPathBuilder().Root().Child("kind").Build()))
	}

	_, err = rs.SyntaxRules()
	if err != nil {
		return err
	}

	var errs []error
	for _, name := range rs.Names() {
		r := rs.Rules[name]
		for field, ref := range map[string]string{"ifDefined": r.IfDefined, "orElse": r.OrElse} {
			if ref == "" {
				continue
			}

			if _, ok := rs.Rules[ref]; !ok {
				errs = append(errs, yaml.NewError(
					fmt.Errorf("rule %q: %w %q", name, syntax.ErrUnknownGroup, ref),
					yaml.WithPath(rulePath(name).Child(field).Build()),
				))
			}
		}
	}

	for _, group := range slices.Sorted(maps.Keys(rs.Styles)) {
		_, err := style.Parse(rs.Styles[group], theme.Default)
		if err != nil {
			errs = append(errs, yaml.NewError(
				fmt.Errorf("style %q: %w", group, err),
				yaml.WithPath(yaml.NewPathBuilder().Root().Child("styles").Child(group).Build()),
			))
		}
	}

	return errors.Join(errs...)
}

// StyleTable builds the style table of the rule set. Directives in
// overrides replace those of the same group.
func (rs *RuleSet) StyleTable(th *theme.Theme, overrides map[string]string) (*style.Table, error) {
	directives := maps.Clone(rs.Styles)
	if directives == nil {
		directives = map[string]string{}
	}

	maps.Copy(directives, overrides)

	t, err := style.NewTable(th, directives)
	if err != nil {
		return nil, fmt.Errorf("styles: %w", err)
	}

	return t, nil
}

func (rs RuleSet) JSONSchemaExtend(jss *jsonschema.Schema) {
	v1beta1.ExtendSchemaWithEnums(jss, v1beta1.ValidAPIVersions, ValidKinds)
}

// MarshalYAML serializes the rule set to YAML.
func (rs RuleSet) MarshalYAML() ([]byte, error) {
	type alias RuleSet

	b, err := api.MarshalYAML(alias(rs))
	if err != nil {
		return nil, fmt.Errorf("marshal rule set: %w", err)
	}

	return b, nil
}

func rulePath(name string) *yaml.PathBuilder {
	return yaml.NewPathBuilder().Root().Child("rules").Child(name)
}
