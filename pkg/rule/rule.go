package rule

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"

	"github.com/macropower/crumbs/pkg/expr"
	"github.com/macropower/crumbs/pkg/profile"
)

// ErrEmptyMatch is returned for a rule without a match expression.
var ErrEmptyMatch = errors.New("empty match expression")

// Rule uses a CEL matcher to determine if its profile should be applied.
//
// CEL expressions have access to variables:
//   - `file` (string): The source file path
//   - `dir` (string): The directory containing the file
//   - `content` (string): The source file content
//
// CEL expressions must return a boolean value:
//   - pathExt(file) == ".go" - Go source files
//   - pathExt(file) in [".yaml", ".yml"] - YAML files
//   - pathBase(file).matches("^Dockerfile") - Dockerfiles
//   - shebang(content) in ["sh", "bash"] - shell scripts without an extension
//   - yamlPath(file, "$.kind") == "RuleSet" - crumbs rule sets
//   - true - always matches, useful as a final fallback
//
// CEL functions available:
//   - pathBase(string): Returns the last element of the path (filename)
//   - pathDir(string): Returns all but the last element of the path (directory)
//   - pathExt(string): Returns the file extension including the dot
//   - firstLine(string): Returns the first line of a string
//   - shebang(string): Returns the interpreter of a "#!" line
//   - yamlPath(file, path): Reads a YAML file and extracts value at path (returns null if not found)
//
// CEL also provides standard functions like `endsWith`, `contains`,
// `startsWith`, `matches`, along with logical operators like `&&`, `||`,
// and `!`.
type Rule struct {
	matchProgram cel.Program      // Compiled CEL program for matching files.
	pfl          *profile.Profile // Profile associated with the rule.

	// Match is a CEL expression to match source files.
	Match string `json:"match" jsonschema:"required,title=Match Expression"`
	// Profile is the name of the profile to use when this rule matches.
	Profile string `json:"profile" jsonschema:"required,title=Profile Name"`
}

// New creates a new rule with the given profile name and match expression.
func New(profileName, match string) (*Rule, error) {
	r := &Rule{
		Match:   match,
		Profile: profileName,
	}

	err := r.CompileMatch()
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", match, err)
	}

	return r, nil
}

// MustNew creates a new rule and panics if there's an error.
func MustNew(profileName, match string) *Rule {
	r, err := New(profileName, match)
	if err != nil {
		panic(err)
	}

	return r
}

// CompileMatch compiles the rule's match expression into a CEL program.
func (r *Rule) CompileMatch() error {
	if r.matchProgram != nil {
		return nil
	}

	if r.Match == "" {
		return ErrEmptyMatch
	}

	env, err := expr.NewFileEnvironment()
	if err != nil {
		return fmt.Errorf("create CEL environment: %w", err)
	}

	program, err := env.Compile(r.Match)
	if err != nil {
		return fmt.Errorf("match: %w", err)
	}

	r.matchProgram = program

	return nil
}

// MatchFile evaluates the rule against a source file. Evaluation errors and
// non-boolean results are treated as a non-match.
func (r *Rule) MatchFile(path string, content []byte) bool {
	if r.matchProgram == nil {
		panic(errors.New("rule missing a match expression"))
	}

	ok, err := expr.EvalBool(r.matchProgram, expr.FileVars(path, content, 0))
	if err != nil {
		slog.Debug("rule evaluation failed",
			slog.String("match", r.Match),
			slog.String("file", path),
			slog.Any("error", err),
		)

		return false
	}

	return ok
}

// GetProfile returns the profile set by [Rule.SetProfile].
func (r *Rule) GetProfile() *profile.Profile {
	if r.pfl == nil {
		panic(errors.New("rule missing a profile"))
	}

	return r.pfl
}

// SetProfile associates the resolved profile with the rule.
func (r *Rule) SetProfile(p *profile.Profile) {
	r.pfl = p
}

func (r *Rule) String() string {
	if r.pfl == nil {
		return fmt.Sprintf("%s: %s", r.Profile, r.Match)
	}

	return fmt.Sprintf("%s: %s", r.Profile, r.pfl)
}
