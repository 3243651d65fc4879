package config

import (
	"bytes"
	"log/slog"
	"regexp"
	"strings"

	"github.com/macropower/crumbs/api"
	"github.com/macropower/crumbs/api/v1beta1"
	"github.com/macropower/crumbs/pkg/theme"
	"github.com/macropower/crumbs/pkg/yaml"
)

// Validator validates configuration data against a schema.
type Validator interface {
	Validate(data any) error
}

// LoaderOpt configures a [Loader].
type LoaderOpt func(*loaderOptions)

type loaderOptions struct {
	validator    Validator
	extractTheme bool
	color        bool
}

// WithValidator sets a custom validator.
func WithValidator(v Validator) LoaderOpt {
	return func(o *loaderOptions) {
		o.validator = v
	}
}

// WithThemeFromData reads the theme from the document, so that it can be
// used even when the document is invalid.
func WithThemeFromData() LoaderOpt {
	return func(o *loaderOptions) {
		o.extractTheme = true
	}
}

// WithColor enables colored source excerpts in errors.
func WithColor(color bool) LoaderOpt {
	return func(o *loaderOptions) {
		o.color = color
	}
}

// Loader is a generic document loader that handles schema validation, YAML
// parsing, Go validation and error formatting for any document type T.
type Loader[T v1beta1.Object] struct {
	validator Validator
	newFunc   func() T
	theme     *theme.Theme
	yamlError *yaml.ErrorWrapper
	data      []byte
}

// NewLoaderFromBytes creates a [Loader] from byte data.
// The newFunc parameter is the constructor for type T (e.g., configs.New).
func NewLoaderFromBytes[T v1beta1.Object](
	data []byte,
	newFunc func() T,
	defaultValidator Validator,
	opts ...LoaderOpt,
) *Loader[T] {
	options := &loaderOptions{
		validator: defaultValidator,
	}
	for _, opt := range opts {
		opt(options)
	}

	t := theme.Default
	if options.extractTheme {
		t = getTheme(data)
	}

	return &Loader[T]{
		data:      data,
		newFunc:   newFunc,
		validator: options.validator,
		theme:     t,
		yamlError: yaml.NewErrorWrapper(
			yaml.WithSource(data),
			yaml.WithColor(options.color),
		),
	}
}

// NewLoaderFromFile creates a [Loader] from a file path.
func NewLoaderFromFile[T v1beta1.Object](
	path string,
	newFunc func() T,
	defaultValidator Validator,
	opts ...LoaderOpt,
) (*Loader[T], error) {
	data, err := api.ReadFile(path)
	if err != nil {
		return nil, err //nolint:wrapcheck // Return the original error.
	}

	return NewLoaderFromBytes(data, newFunc, defaultValidator, opts...), nil
}

// Validate validates the document against the schema.
func (l *Loader[T]) Validate() error {
	var anyConfig any

	dec := yaml.NewDecoder(bytes.NewReader(l.data))

	err := dec.Decode(&anyConfig)
	if err != nil {
		return l.yamlError.Wrap(err)
	}

	if l.validator != nil {
		err = l.validator.Validate(anyConfig)
		if err != nil {
			return l.yamlError.Wrap(err)
		}
	}

	return nil
}

// Load parses the document, fills in defaults and, when T implements
// Validate() error, validates it.
//
//nolint:ireturn // Generic type parameter return is intentional.
func (l *Loader[T]) Load() (T, error) {
	var zero T

	cfg := l.newFunc()

	dec := yaml.NewDecoder(bytes.NewReader(l.data))

	err := dec.Decode(cfg)
	if err != nil {
		return zero, l.yamlError.Wrap(err)
	}

	cfg.EnsureDefaults()

	if v, ok := any(cfg).(interface{ Validate() error }); ok {
		err = v.Validate()
		if err != nil {
			return zero, l.yamlError.Wrap(err)
		}
	}

	return cfg, nil
}

// GetTheme returns the theme for error formatting.
func (l *Loader[T]) GetTheme() *theme.Theme {
	return l.theme
}

func getTheme(data []byte) *theme.Theme {
	var themeName string

	path := yaml.NewPathBuilder().Root().Child("theme").Build()

	err := path.Read(bytes.NewReader(data), &themeName)
	if err == nil && themeName != "" {
		return theme.New(themeName)
	}

	slog.Debug("could not read theme, config might be invalid")

	// Fall back to a regex, so that errors for documents that are not valid
	// YAML are still styled.
	themeName = extractThemeWithRegex(data)
	if themeName != "" {
		slog.Debug("extracted theme using regex fallback", slog.String("theme", themeName))

		return theme.New(themeName)
	}

	return theme.Default
}

// themePattern matches a top-level theme key with a quoted or unquoted
// value.
var themePattern = regexp.MustCompile(`(?m)^theme:[ \t]*(?:"([^"#\n]+)"|'([^'#\n]+)'|([^\s#\n]+))`)

func extractThemeWithRegex(data []byte) string {
	m := themePattern.FindSubmatch(data)
	if m == nil {
		return ""
	}

	for _, g := range m[1:] {
		if len(g) > 0 {
			return strings.TrimSpace(string(g))
		}
	}

	return ""
}
