package profile

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/google/cel-go/cel"

	"github.com/macropower/crumbs/pkg/execs"
	"github.com/macropower/crumbs/pkg/expr"
	"github.com/macropower/crumbs/pkg/tree"
	"github.com/macropower/crumbs/pkg/tree/chromatree"
	"github.com/macropower/crumbs/pkg/tree/eventstream"
	"github.com/macropower/crumbs/pkg/tree/gotree"
	"github.com/macropower/crumbs/pkg/tree/yamltree"
)

// ParserKind selects the tree producer of a [Profile].
type ParserKind string

const (
	// ParserGo parses Go source with go/parser.
	ParserGo ParserKind = "go"
	// ParserYAML parses YAML with goccy/go-yaml.
	ParserYAML ParserKind = "yaml"
	// ParserChroma tokenizes any language chroma has a lexer for.
	ParserChroma ParserKind = "chroma"
	// ParserCommand runs an external command speaking the event stream
	// protocol.
	ParserCommand ParserKind = "command"
)

// AllParsers lists every [ParserKind].
var AllParsers = []string{
	string(ParserGo),
	string(ParserYAML),
	string(ParserChroma),
	string(ParserCommand),
}

var (
	// ErrUnknownParser is returned for an unknown [ParserKind].
	ErrUnknownParser = errors.New("unknown parser")

	// ErrMissingCommand is returned when a command profile has no command.
	ErrMissingCommand = errors.New("command parser requires a command")

	// ErrMissingRuleSet is returned when a profile names no rule set.
	ErrMissingRuleSet = errors.New("missing rule set")
)

// Profile represents a highlighting profile.
type Profile struct {
	reloadProgram cel.Program

	// Command is the external parser run by the command parser. It receives
	// the source on stdin and writes events to stdout.
	Command *execs.Command `json:"command,omitempty" jsonschema:"title=Command"`

	// Styles overrides the rule set's style directives per group.
	Styles map[string]string `json:"styles,omitempty" jsonschema:"title=Style Overrides"`

	// Parser selects the tree producer.
	Parser ParserKind `json:"parser" jsonschema:"required,title=Parser,enum=go,enum=yaml,enum=chroma,enum=command"`

	// Language is the chroma lexer name for the chroma parser. When empty,
	// the lexer is chosen by file name, then by content.
	Language string `json:"language,omitempty" jsonschema:"title=Language"`

	// RuleSet is the rule set to use: "builtin:<name>" for an embedded rule
	// set, otherwise a path to a YAML or TOML rule set, relative to the
	// configuration file.
	RuleSet string `json:"ruleset" jsonschema:"required,title=Rule Set"`

	// Reload contains a CEL expression that is evaluated on file events in
	// watch mode. If it returns false, the event is ignored. The expression
	// has access to:
	//   - `file` (string): The file path that triggered the event
	//   - `dir` (string): The directory containing the file
	//   - `content` (string): Always empty
	//   - `op` (int): The event, at least one of `fs.CREATE`, `fs.WRITE`, `fs.REMOVE`, `fs.RENAME`, `fs.CHMOD`
	//
	// Examples:
	//   - `op.has(fs.WRITE, fs.CREATE)` - reload on writes and new files only
	//   - `pathExt(file) != ".swp"` - ignore editor swap files
	//
	// If no Reload expression is provided, every event reloads.
	Reload string `json:"reload,omitempty" jsonschema:"title=Reload"`
}

// ProfileOpt is a functional option for configuring a [Profile].
type ProfileOpt func(*Profile)

// New creates a new profile with the given parser and rule set.
func New(parser ParserKind, ruleSet string, opts ...ProfileOpt) (*Profile, error) {
	p := &Profile{
		Parser:  parser,
		RuleSet: ruleSet,
	}
	for _, opt := range opts {
		opt(p)
	}

	err := p.Build()
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", parser, err)
	}

	return p, nil
}

// MustNew creates a new profile and panics if there's an error.
func MustNew(parser ParserKind, ruleSet string, opts ...ProfileOpt) *Profile {
	p, err := New(parser, ruleSet, opts...)
	if err != nil {
		panic(err)
	}

	return p
}

// WithLanguage sets the chroma lexer name.
func WithLanguage(language string) ProfileOpt {
	return func(p *Profile) {
		p.Language = language
	}
}

// WithCommand sets the external parser command.
func WithCommand(cmd execs.Command) ProfileOpt {
	return func(p *Profile) {
		p.Command = &cmd
	}
}

// WithStyles sets style overrides.
func WithStyles(styles map[string]string) ProfileOpt {
	return func(p *Profile) {
		p.Styles = styles
	}
}

// WithReload sets the reload expression.
func WithReload(expression string) ProfileOpt {
	return func(p *Profile) {
		p.Reload = expression
	}
}

// Build validates the profile and compiles its expressions.
func (p *Profile) Build() error {
	if !slices.Contains(AllParsers, string(p.Parser)) {
		return fmt.Errorf("%w: %q (want one of %s)", ErrUnknownParser, p.Parser, strings.Join(AllParsers, ", "))
	}

	if strings.TrimSpace(p.RuleSet) == "" {
		return ErrMissingRuleSet
	}

	if p.Parser == ParserCommand {
		if p.Command == nil {
			return ErrMissingCommand
		}

		err := p.Command.Validate()
		if err != nil {
			return fmt.Errorf("command: %w", err)
		}
	}

	return p.CompileReload()
}

// CompileReload compiles the reload expression, if any.
func (p *Profile) CompileReload() error {
	if p.Reload == "" || p.reloadProgram != nil {
		return nil
	}

	env, err := expr.NewFileEnvironment()
	if err != nil {
		return fmt.Errorf("create CEL environment: %w", err)
	}

	program, err := env.Compile(p.Reload)
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}

	p.reloadProgram = program

	return nil
}

// NewParser returns the tree producer for a source file. The file name is
// used to choose a chroma lexer when no language is set.
//
//nolint:ireturn // Parsers are selected at runtime.
func (p *Profile) NewParser(filename string) (tree.Parser, error) {
	switch p.Parser {
	case ParserGo:
		return gotree.New(), nil
	case ParserYAML:
		return yamltree.New(), nil
	case ParserChroma:
		return &chromatree.Parser{Language: p.Language, Filename: filename}, nil
	case ParserCommand:
		if p.Command == nil {
			return nil, ErrMissingCommand
		}

		return eventstream.New(*p.Command), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownParser, p.Parser)
}

// ShouldReload reports whether a file event should trigger highlighting
// again. Without a reload expression, every event does.
func (p *Profile) ShouldReload(file string, op fsnotify.Op) bool {
	if p.Reload == "" {
		return true
	}

	err := p.CompileReload()
	if err != nil {
		slog.Error("compile reload expression", slog.Any("error", err))

		return true
	}

	ok, err := expr.EvalBool(p.reloadProgram, expr.FileVars(file, nil, int64(op)))
	if err != nil {
		slog.Debug("reload expression failed, reloading",
			slog.String("file", file),
			slog.Any("error", err),
		)

		return true
	}

	return ok
}

func (p *Profile) String() string {
	s := fmt.Sprintf("%s (%s)", p.Parser, p.RuleSet)
	if p.Parser == ParserCommand && p.Command != nil {
		s = fmt.Sprintf("%s: %s", s, p.Command)
	}

	return s
}
