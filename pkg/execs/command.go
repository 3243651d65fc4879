package execs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os/exec"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/macropower/crumbs/pkg/log"
)

var (
	// ErrCommandExecution is returned when command execution fails.
	ErrCommandExecution = errors.New("run")

	// ErrEmptyCommand is returned when a command is empty.
	ErrEmptyCommand = errors.New("empty command")
)

// Variables passed to every command when present in the caller environment.
var essentialVars = []string{"PATH", "HOME", "USER", "TERM", "COLORTERM", "LANG", "TMPDIR"}

// EnvVar is a static environment variable.
type EnvVar struct {
	// Name is the environment variable name.
	Name string `json:"name" jsonschema:"required,title=Name"`
	// Value is the environment variable value.
	Value string `json:"value,omitempty" jsonschema:"title=Value"`
}

// Command is an external program invocation.
type Command struct {
	// Command is the program to execute.
	Command string `json:"command" jsonschema:"required,title=Command,pattern=^\\S+$"`
	// Args contains the command line arguments.
	Args []string `json:"args,omitempty" jsonschema:"title=Arguments" yaml:"args,flow,omitempty"`
	// Env contains static environment variables.
	Env []EnvVar `json:"env,omitempty" jsonschema:"title=Environment Variables"`
	// Inherit contains regular expressions selecting caller environment
	// variables, by name, to pass on in addition to the essential ones.
	Inherit []string `json:"inherit,omitempty" jsonschema:"title=Inherited Variables,format=regex"`
}

// ParseCommand splits a shell-style command line into a [Command].
func ParseCommand(line string) (Command, error) {
	words, err := shellwords.Parse(line)
	if err != nil {
		return Command{}, fmt.Errorf("parse command %q: %w", line, err)
	}

	if len(words) == 0 {
		return Command{}, ErrEmptyCommand
	}

	return Command{Command: words[0], Args: words[1:]}, nil
}

// Validate checks that the command can be run.
func (c *Command) Validate() error {
	if c.Command == "" {
		return ErrEmptyCommand
	}

	for i, p := range c.Inherit {
		_, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("inherit[%d]: %w", i, err)
		}
	}

	return nil
}

// Environ builds the command environment from the caller environment base,
// given as "key=value" pairs. The result is sorted by name.
func (c *Command) Environ(base []string) ([]string, error) {
	caller := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			caller[k] = v
		}
	}

	patterns := make([]*regexp.Regexp, 0, len(c.Inherit))
	for i, p := range c.Inherit {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("inherit[%d]: %w", i, err)
		}

		patterns = append(patterns, re)
	}

	env := make(map[string]string)
	for k, v := range caller {
		if slices.Contains(essentialVars, k) || slices.ContainsFunc(patterns, func(re *regexp.Regexp) bool {
			return re.MatchString(k)
		}) {
			env[k] = v
		}
	}

	for _, e := range c.Env {
		if e.Name != "" {
			env[e.Name] = e.Value
		}
	}

	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		out = append(out, k+"="+env[k])
	}

	return out, nil
}

// Run executes the command with stdin and returns its standard output. On
// failure, the error includes the command's standard error.
func (c *Command) Run(ctx context.Context, base []string, stdin []byte) ([]byte, error) {
	ctx, span := otel.Tracer("execs").Start(ctx, "exec")
	defer span.End()

	span.SetAttributes(attribute.String("command", c.String()))

	if c.Command == "" {
		return nil, ErrEmptyCommand
	}

	env, err := c.Environ(base)
	if err != nil {
		return nil, err
	}

	logger := log.WithContext(ctx).With(slog.String("command", c.String()))
	start := time.Now()

	//nolint:gosec // G204: The command comes from user configuration.
	cmd := exec.CommandContext(ctx, c.Command, c.Args...)
	cmd.Env = env
	cmd.Stdin = bytes.NewReader(stdin)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "command failed")
		logger.DebugContext(ctx, "command failed",
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err),
		)

		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %w: %s", ErrCommandExecution, err, msg)
		}

		return nil, fmt.Errorf("%w: %w", ErrCommandExecution, err)
	}

	logger.DebugContext(ctx, "command executed",
		slog.Duration("duration", time.Since(start)),
		slog.Int("stdout_bytes", stdout.Len()),
	)

	return stdout.Bytes(), nil
}

func (c *Command) String() string {
	return strings.TrimSpace(c.Command + " " + strings.Join(c.Args, " "))
}
