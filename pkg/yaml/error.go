package yaml

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
	"github.com/goccy/go-yaml/printer"
	"github.com/goccy/go-yaml/token"
)

type (
	// Path locates a node in a YAML document.
	Path = yaml.Path
	// PathBuilder builds a [Path].
	PathBuilder = yaml.PathBuilder
)

// NewPathBuilder returns a builder for a [Path].
func NewPathBuilder() *PathBuilder {
	return &yaml.PathBuilder{}
}

// ErrorWrapper applies a fixed set of options to every [Error] it wraps.
type ErrorWrapper struct {
	Opts []ErrorOpt
}

// NewErrorWrapper creates a new [ErrorWrapper].
func NewErrorWrapper(opts ...ErrorOpt) *ErrorWrapper {
	return &ErrorWrapper{Opts: opts}
}

// Wrap applies the wrapper's options, then opts, to every [Error] in err's
// tree, including joined errors. The error is returned unmodified
// otherwise.
func (ew *ErrorWrapper) Wrap(err error, opts ...ErrorOpt) error {
	if err == nil {
		return nil
	}

	for _, yamlErr := range collect(err) {
		for _, opt := range ew.Opts {
			opt(yamlErr)
		}

		for _, opt := range opts {
			opt(yamlErr)
		}
	}

	return err
}

func collect(err error) []*Error {
	if yamlErr, ok := err.(*Error); ok { //nolint:errorlint // Walking the tree.
		return []*Error{yamlErr}
	}

	switch u := err.(type) { //nolint:errorlint // Walking the tree.
	case interface{ Unwrap() []error }:
		var errs []*Error
		for _, e := range u.Unwrap() {
			errs = append(errs, collect(e)...)
		}

		return errs
	case interface{ Unwrap() error }:
		if inner := u.Unwrap(); inner != nil {
			return collect(inner)
		}
	}

	return nil
}

// Error is an error located in a YAML document, either by the token where
// it occurred or by a path into the document. When the source is known, the
// message includes the surrounding source lines.
type Error struct {
	Err     error
	Path    *yaml.Path
	Token   *token.Token
	Source  []byte
	Colored bool
}

// NewError creates a new [Error].
func NewError(err error, opts ...ErrorOpt) *Error {
	e := &Error{Err: err}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ErrorOpt configures an [Error].
type ErrorOpt func(e *Error)

// WithPath locates the error by path.
func WithPath(path *yaml.Path) ErrorOpt {
	return func(e *Error) {
		e.Path = path
	}
}

// WithToken locates the error by token.
func WithToken(tk *token.Token) ErrorOpt {
	return func(e *Error) {
		e.Token = tk
	}
}

// WithSource sets the document the error occurred in.
func WithSource(source []byte) ErrorOpt {
	return func(e *Error) {
		e.Source = source
	}
}

// WithColor enables ANSI colors in the annotated source.
func WithColor(colored bool) ErrorOpt {
	return func(e *Error) {
		e.Colored = colored
	}
}

func (e Error) Error() string {
	if e.Err == nil {
		return ""
	}

	if e.Path == nil && e.Token == nil {
		return e.Err.Error()
	}

	msg, err := e.annotate()
	if err != nil {
		slog.Debug("annotate yaml error",
			slog.String("path", e.pathString()),
			slog.Any("error", err),
		)

		return fmt.Sprintf("error at %s: %v", e.pathString(), e.Err)
	}

	return msg
}

// Unwrap returns the underlying error.
func (e Error) Unwrap() error {
	return e.Err
}

func (e Error) pathString() string {
	if e.Path == nil {
		return "$"
	}

	return e.Path.String()
}

func (e Error) annotate() (string, error) {
	tk := e.Token
	if tk == nil {
		if len(e.Source) == 0 {
			return "", errors.New("no source")
		}

		var err error

		tk, err = tokenFromPath(e.Source, e.Path)
		if err != nil {
			return "", err
		}
	}

	if tk == nil || tk.Position == nil {
		return "", errors.New("no token position")
	}

	var pp printer.Printer

	src := pp.PrintErrorToken(tk, e.Colored)

	return fmt.Sprintf("[%d:%d] %v:\n\n%s", tk.Position.Line, tk.Position.Column, e.Err, src), nil
}

// tokenFromPath returns the token of the key at path, or of the value when
// the path has no key.
func tokenFromPath(source []byte, path *yaml.Path) (*token.Token, error) {
	file, err := parser.ParseBytes(source, 0)
	if err != nil {
		return nil, fmt.Errorf("parse source: %w", err)
	}

	node, err := path.FilterFile(file)
	if err != nil {
		return nil, fmt.Errorf("filter by path: %w", err)
	}

	if tk := keyToken(file, path); tk != nil {
		return tk, nil
	}

	return node.GetToken(), nil
}

func keyToken(file *ast.File, path *yaml.Path) *token.Token {
	s := path.String()

	dot := strings.LastIndex(s, ".")
	if dot == -1 || dot < strings.LastIndex(s, "[") {
		return nil
	}

	parent, err := yaml.PathString(s[:dot])
	if err != nil {
		return nil
	}

	node, err := parent.FilterFile(file)
	if err != nil {
		return nil
	}

	mapping, ok := node.(*ast.MappingNode)
	if !ok {
		return nil
	}

	for _, mv := range mapping.Values {
		if mv.Key.String() == s[dot+1:] {
			return mv.Key.GetToken()
		}
	}

	return nil
}
