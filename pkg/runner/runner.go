// Package runner resolves the profile, rule set and styles for a source file
// and runs the highlighting pipeline over it.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/crumbs/api"
	"github.com/macropower/crumbs/api/v1beta1/configs"
	"github.com/macropower/crumbs/api/v1beta1/rulesets"
	"github.com/macropower/crumbs/pkg/config"
	"github.com/macropower/crumbs/pkg/highlight"
	"github.com/macropower/crumbs/pkg/log"
	"github.com/macropower/crumbs/pkg/profile"
	"github.com/macropower/crumbs/pkg/style"
	"github.com/macropower/crumbs/pkg/syntax"
	"github.com/macropower/crumbs/pkg/theme"
	"github.com/macropower/crumbs/pkg/tree"
)

var (
	// ErrNoProfile is returned when no rule selects a profile for a path.
	ErrNoProfile = errors.New("no profile for path")

	// ErrUnknownProfile is returned when a requested profile does not exist.
	ErrUnknownProfile = errors.New("unknown profile")
)

// Runner turns source files into spans. It manages:
//   - Profile selection, by name or by the configured rules.
//   - Loading and caching of rule sets.
//   - Style tables built from the theme and profile overrides.
//
// A Runner is safe for concurrent use.
type Runner struct {
	tracer   trace.Tracer
	cfg      *configs.Config
	theme    *theme.Theme
	rulesets map[string]*rulesets.RuleSet

	// Relative rule set paths in profiles are resolved against the
	// directory of the configuration file.
	configDir string

	profileName string
	rulesPath   string
	loaderOpts  []config.LoaderOpt
	concurrency int
	mu          sync.Mutex
}

// RunnerOpt configures a [Runner].
type RunnerOpt func(r *Runner) error

// New creates a new [Runner]. Without [WithConfig], the default
// configuration is used.
func New(opts ...RunnerOpt) (*Runner, error) {
	r := &Runner{
		tracer:      otel.Tracer("runner"),
		rulesets:    make(map[string]*rulesets.RuleSet),
		concurrency: 1,
	}

	err := r.Configure(opts...)
	if err != nil {
		return nil, err
	}

	if r.cfg == nil {
		cfg := configs.New()

		err := cfg.Validate()
		if err != nil {
			return nil, fmt.Errorf("default config: %w", err)
		}

		r.cfg = cfg
	}

	if r.theme == nil {
		r.theme = theme.New(r.cfg.Theme)
	}

	return r, nil
}

// Configure applies options to an existing runner and drops cached rule
// sets.
func (r *Runner) Configure(opts ...RunnerOpt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, opt := range opts {
		err := opt(r)
		if err != nil {
			return fmt.Errorf("apply option: %w", err)
		}
	}

	clear(r.rulesets)

	return nil
}

// With returns a copy of the runner with opts applied. The copy has its
// own rule set cache.
func (r *Runner) With(opts ...RunnerOpt) (*Runner, error) {
	r.mu.Lock()
	c := &Runner{
		tracer:      r.tracer,
		cfg:         r.cfg,
		theme:       r.theme,
		rulesets:    make(map[string]*rulesets.RuleSet),
		configDir:   r.configDir,
		profileName: r.profileName,
		rulesPath:   r.rulesPath,
		loaderOpts:  r.loaderOpts,
		concurrency: r.concurrency,
	}
	r.mu.Unlock()

	err := c.Configure(opts...)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// WithConfig sets the configuration, and the directory relative rule set
// paths are resolved against. The configuration must be validated.
func WithConfig(cfg *configs.Config, dir string) RunnerOpt {
	return func(r *Runner) error {
		r.cfg = cfg
		r.configDir = dir
		if r.theme == nil || cfg.Theme != "" {
			r.theme = theme.New(cfg.Theme)
		}

		return nil
	}
}

// WithProfile selects a profile by name instead of by rules. An empty name
// restores selection by rules.
func WithProfile(name string) RunnerOpt {
	return func(r *Runner) error {
		if name != "" && r.cfg != nil {
			if _, ok := r.cfg.Profiles[name]; !ok {
				return fmt.Errorf("%w: %q", ErrUnknownProfile, name)
			}
		}

		r.profileName = name

		return nil
	}
}

// WithRuleSet overrides the rule set of every profile. Relative paths are
// resolved against the working directory.
func WithRuleSet(ref string) RunnerOpt {
	return func(r *Runner) error {
		r.rulesPath = ref

		return nil
	}
}

// WithConcurrency sets the number of goroutines the rule engine fans
// traversal events out to.
func WithConcurrency(n int) RunnerOpt {
	return func(r *Runner) error {
		r.concurrency = max(n, 1)

		return nil
	}
}

// WithTheme sets the theme styles are derived from.
func WithTheme(th *theme.Theme) RunnerOpt {
	return func(r *Runner) error {
		r.theme = th

		return nil
	}
}

// WithLoaderOpts sets options used when loading rule set files.
func WithLoaderOpts(opts ...config.LoaderOpt) RunnerOpt {
	return func(r *Runner) error {
		r.loaderOpts = opts

		return nil
	}
}

// Pipeline is everything needed to highlight and present one source.
type Pipeline struct {
	Profile     *profile.Profile
	RuleSet     *rulesets.RuleSet
	Styles      *style.Table
	Parser      tree.Parser
	Highlighter *highlight.Highlighter
	ProfileName string

	// RuleSetPath is the file the rule set was read from. It is empty for
	// embedded rule sets.
	RuleSetPath string
}

// Config returns the runner's configuration.
func (r *Runner) Config() *configs.Config {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.cfg
}

// FindProfile returns the profile for a source file: the one selected by
// [WithProfile], or the one selected by the first matching rule.
func (r *Runner) FindProfile(path string, content []byte) (string, *profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.findProfile(path, content)
}

func (r *Runner) findProfile(path string, content []byte) (string, *profile.Profile, error) {
	if r.profileName != "" {
		p, ok := r.cfg.Profiles[r.profileName]
		if !ok {
			return "", nil, fmt.Errorf("%w: %q", ErrUnknownProfile, r.profileName)
		}

		return r.profileName, p, nil
	}

	name, p, ok := r.cfg.Match(path, content)
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", ErrNoProfile, path)
	}

	return name, p, nil
}

// Resolve builds the pipeline for a source file.
func (r *Runner) Resolve(ctx context.Context, path string, content []byte) (*Pipeline, error) {
	ctx, span := r.tracer.Start(ctx, "resolve", trace.WithAttributes(
		attribute.String("path", path),
	))
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	pl, err := r.resolve(path, content)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	span.SetAttributes(
		attribute.String("profile", pl.ProfileName),
		attribute.String("ruleset", pl.Profile.RuleSet),
	)

	log.WithContext(ctx).DebugContext(ctx, "resolved pipeline",
		slog.String("path", path),
		slog.String("profile", pl.ProfileName),
		slog.String("ruleset", ruleSetName(pl)),
	)

	return pl, nil
}

func (r *Runner) resolve(path string, content []byte) (*Pipeline, error) {
	name, p, err := r.findProfile(path, content)
	if err != nil {
		return nil, err
	}

	ref, baseDir := p.RuleSet, r.configDir
	if r.rulesPath != "" {
		ref, baseDir = r.rulesPath, ""
	}

	rs, rsPath, err := r.loadRuleSet(ref, baseDir)
	if err != nil {
		return nil, err
	}

	matcher, err := rs.Compile(syntax.WithConcurrency(r.concurrency))
	if err != nil {
		return nil, fmt.Errorf("compile rule set %q: %w", ref, err)
	}

	styles, err := rs.StyleTable(r.theme, p.Styles)
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", name, err)
	}

	filename := ""
	if path != api.StdinPath {
		filename = filepath.Base(path)
	}

	parser, err := p.NewParser(filename)
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", name, err)
	}

	return &Pipeline{
		Profile:     p,
		ProfileName: name,
		RuleSet:     rs,
		RuleSetPath: rsPath,
		Styles:      styles,
		Parser:      parser,
		Highlighter: highlight.New(parser, matcher),
	}, nil
}

func (r *Runner) loadRuleSet(ref, baseDir string) (*rulesets.RuleSet, string, error) {
	path := ""
	if !rulesets.IsBuiltin(ref) {
		path = ref
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}

		abs, err := filepath.Abs(path)
		if err == nil {
			path = abs
		}
	}

	key := ref
	if path != "" {
		key = path
	}

	if rs, ok := r.rulesets[key]; ok {
		return rs, path, nil
	}

	rs, err := config.LoadRuleSet(ref, baseDir, r.loaderOpts...)
	if err != nil {
		return nil, "", fmt.Errorf("load rule set: %w", err)
	}

	r.rulesets[key] = rs

	return rs, path, nil
}

// Reload drops cached rule sets, so that the next call reads them again.
func (r *Runner) Reload() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.rulesets)
}

// Highlight resolves the pipeline for a source file and highlights content.
func (r *Runner) Highlight(ctx context.Context, path string, content []byte) (*Pipeline, []syntax.Span, error) {
	pl, err := r.Resolve(ctx, path, content)
	if err != nil {
		return nil, nil, err
	}

	spans, err := pl.Highlighter.Highlight(ctx, content)
	if err != nil {
		return pl, nil, fmt.Errorf("highlight %s: %w", path, err)
	}

	return pl, spans, nil
}

// Breadcrumbs resolves the parser for a source file and returns every
// located leaf with its breadcrumb path.
func (r *Runner) Breadcrumbs(ctx context.Context, path string, content []byte) ([]tree.Crumb, error) {
	pl, err := r.Resolve(ctx, path, content)
	if err != nil {
		return nil, err
	}

	crumbs, err := highlight.Breadcrumbs(ctx, pl.Parser, content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return crumbs, nil
}

func (r *Runner) String() string {
	if r.profileName != "" {
		return fmt.Sprintf("profile %s", r.profileName)
	}

	return fmt.Sprintf("%d rules", len(r.cfg.Rules))
}

func ruleSetName(pl *Pipeline) string {
	if pl.RuleSetPath != "" {
		return pl.RuleSetPath
	}

	return pl.Profile.RuleSet
}

// ConfigPath returns the configuration file to use: explicit if set, else
// the nearest project configuration above start, else the global one.
func ConfigPath(explicit, start string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	if start != "" && start != api.StdinPath {
		found, err := api.FindUp(start, api.ProjectConfigNames)
		if err != nil {
			return "", fmt.Errorf("find project config: %w", err)
		}

		if found != "" {
			return found, nil
		}
	}

	return configs.GetPath(), nil
}

// LoadConfig loads the configuration file chosen by [ConfigPath]. The global
// configuration is written with defaults when it does not exist yet.
func LoadConfig(ctx context.Context, explicit, start string, opts ...config.LoaderOpt) (*configs.Config, string, error) {
	path, err := ConfigPath(explicit, start)
	if err != nil {
		return nil, "", err
	}

	logger := log.WithContext(ctx)

	if explicit == "" && path == configs.GetPath() {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			err := configs.WriteDefault(path, false)
			if err != nil {
				logger.WarnContext(ctx, "could not write default config, using defaults",
					slog.String("path", path),
					slog.Any("error", err),
				)

				cfg := configs.New()

				err := cfg.Validate()
				if err != nil {
					return nil, "", fmt.Errorf("default config: %w", err)
				}

				return cfg, "", nil
			}

			logger.InfoContext(ctx, "wrote default config", slog.String("path", path))
		}
	}

	cfg, err := config.LoadConfig(path, opts...)
	if err != nil {
		return nil, path, err //nolint:wrapcheck // Already names the file.
	}

	logger.DebugContext(ctx, "loaded config", slog.String("path", path))

	return cfg, path, nil
}
