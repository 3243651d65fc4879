package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/x/ansi"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/macropower/crumbs/api"
	"github.com/macropower/crumbs/api/v1beta1/configs"
	"github.com/macropower/crumbs/pkg/config"
	"github.com/macropower/crumbs/pkg/highlight"
	"github.com/macropower/crumbs/pkg/log"
	"github.com/macropower/crumbs/pkg/runner"
	"github.com/macropower/crumbs/pkg/watch"
)

const (
	highlightExamples = `  # Highlight a file, choosing the profile by the configured rules:
  crumbs main.go

  # Print span records for an editor integration:
  crumbs main.go --format records

  # Use a specific profile and rule set:
  crumbs ./design.sv --profile sv --rules ./sv.yaml

  # Read from stdin:
  cat config.yaml | crumbs - --profile yaml

  # Highlight again whenever the file or its rule set changes:
  crumbs main.go --watch`
)

// ErrWatchStdin is returned when watch mode is requested for stdin.
var ErrWatchStdin = errors.New("cannot watch stdin")

type HighlightArgs struct {
	*RootArgs

	Source      string
	Rules       string
	Profile     string
	Format      string
	Width       int
	Concurrency int
	LineNumbers bool
	Watch       bool
	WriteConfig bool
	ShowConfig  bool
}

func NewHighlightArgs(rootArgs *RootArgs) *HighlightArgs {
	return &HighlightArgs{
		RootArgs: rootArgs,
	}
}

func (ha *HighlightArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&ha.Rules, "rules", "r", "", "Rule set file, or builtin:<name>, overriding the profile's rule set")
	cmd.Flags().StringVarP(&ha.Profile, "profile", "p", "", "Profile to use instead of selecting one by the configured rules")
	cmd.Flags().StringVarP(&ha.Format, "format", "f", "",
		fmt.Sprintf("Output format, one of: %s (default overlay on a terminal, records otherwise)", highlight.AllFormats))
	cmd.Flags().IntVar(&ha.Width, "width", 0, "Wrap overlay output at this width (default terminal width)")
	cmd.Flags().IntVarP(&ha.Concurrency, "concurrency", "j", 1, "Number of goroutines matching rules")
	cmd.Flags().BoolVarP(&ha.LineNumbers, "line-numbers", "n", false, "Show line numbers in overlay output")
	cmd.Flags().BoolVarP(&ha.Watch, "watch", "w", false, "Watch for changes and highlight again")
	cmd.Flags().BoolVar(&ha.WriteConfig, "write-config", false, "Write the default configuration file and exit")
	cmd.Flags().BoolVar(&ha.ShowConfig, "show-config", false, "Print the active configuration and exit")

	must(cmd.RegisterFlagCompletionFunc("format",
		cobra.FixedCompletions(highlight.AllFormats, cobra.ShellCompDirectiveNoFileComp),
	))
	must(cmd.RegisterFlagCompletionFunc("profile", profileCompletion(ha.RootArgs)))
	must(cmd.MarkFlagFilename("rules", "yaml", "yml", "toml"))
}

func NewHighlightCmd(ha *HighlightArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "highlight [source]",
		Short:             "Default command, highlight a source file",
		Example:           highlightExamples,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: highlightCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				ha.Source = args[0]
			}

			return ha.run(cmd)
		},
	}
	ha.AddFlags(cmd)

	return cmd
}

func highlightCompletion(_ *cobra.Command, args []string, _ string) ([]cobra.Completion, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return nil, cobra.ShellCompDirectiveDefault
	}

	return nil, cobra.ShellCompDirectiveNoFileComp
}

// Try to load the config to get available profiles.
func profileCompletion(ra *RootArgs) func(*cobra.Command, []string, string) ([]cobra.Completion, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, args []string, _ string) ([]cobra.Completion, cobra.ShellCompDirective) {
		source := ""
		if len(args) > 0 {
			source = args[0]
		}

		path, err := runner.ConfigPath(ra.ConfigPath, source)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		cfg, err := config.LoadConfig(path)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		completions := make([]cobra.Completion, 0, len(cfg.Profiles))
		for _, name := range cfg.ProfileNames() {
			completions = append(completions, cobra.CompletionWithDesc(name, cfg.Profiles[name].String()))
		}

		return completions, cobra.ShellCompDirectiveNoFileComp
	}
}

func (ha *HighlightArgs) run(cmd *cobra.Command) error {
	ctx := cmd.Context()

	if ha.WriteConfig {
		path := ha.ConfigPath
		if path == "" {
			path = configs.GetPath()
		}

		err := configs.WriteDefault(path, true)
		if err != nil {
			return err //nolint:wrapcheck // Already wrapped.
		}

		slog.InfoContext(ctx, "wrote default config", slog.String("path", path))

		return nil
	}

	if ha.Source == "" && !ha.ShowConfig {
		return errors.New("invalid argument: a source file is required, use - for stdin")
	}

	r, cfgPath, err := ha.newRunner(ctx, ha.Source,
		runner.WithProfile(ha.Profile),
		runner.WithRuleSet(ha.Rules),
		runner.WithConcurrency(ha.Concurrency),
	)
	if err != nil {
		return err
	}

	if ha.ShowConfig {
		return ha.showConfig(ctx, cmd.OutOrStdout(), r, cfgPath)
	}

	if !ha.Watch {
		_, err := ha.render(ctx, cmd, r)

		return err
	}

	if ha.Source == api.StdinPath {
		return ErrWatchStdin
	}

	return ha.watch(ctx, cmd, r, cfgPath)
}

func (ha *HighlightArgs) format(w io.Writer) (highlight.Format, error) {
	if ha.Format != "" {
		f, err := highlight.ParseFormat(ha.Format)
		if err != nil {
			return "", fmt.Errorf("invalid argument: %w", err)
		}

		return f, nil
	}

	if f, ok := w.(*os.File); ok && isTerminal(f) {
		return highlight.FormatOverlay, nil
	}

	return highlight.FormatRecords, nil
}

func (ha *HighlightArgs) printer(w io.Writer, pl *runner.Pipeline) (*highlight.Printer, error) {
	format, err := ha.format(w)
	if err != nil {
		return nil, err
	}

	width := ha.Width
	if f, ok := w.(*os.File); ok && width == 0 && format == highlight.FormatOverlay {
		if tw, _, err := term.GetSize(int(f.Fd())); err == nil {
			width = tw
		}
	}

	return highlight.NewPrinter(format,
		highlight.WithStyles(pl.Styles),
		highlight.WithLineNumbers(ha.LineNumbers),
		highlight.WithWidth(width),
	), nil
}

// render highlights the source once and prints the result.
func (ha *HighlightArgs) render(ctx context.Context, cmd *cobra.Command, r *runner.Runner) (*runner.Pipeline, error) {
	src, err := api.ReadSource(ha.Source, cmd.InOrStdin())
	if err != nil {
		return nil, err //nolint:wrapcheck // Names the file.
	}

	pl, spans, err := r.Highlight(ctx, ha.Source, src)
	if err != nil {
		return pl, err //nolint:wrapcheck // Already wrapped.
	}

	p, err := ha.printer(cmd.OutOrStdout(), pl)
	if err != nil {
		return pl, err
	}

	err = p.Print(cmd.OutOrStdout(), src, spans)
	if err != nil {
		return pl, fmt.Errorf("print: %w", err)
	}

	return pl, nil
}

// showConfig prints the active configuration, highlighted with the yaml
// profile when printing to a terminal.
func (ha *HighlightArgs) showConfig(ctx context.Context, w io.Writer, r *runner.Runner, path string) error {
	slog.InfoContext(ctx, "active configuration", slog.String("path", path))

	b, err := r.Config().MarshalYAML()
	if err != nil {
		return fmt.Errorf("marshal config yaml: %w", err)
	}

	f, ok := w.(*os.File)
	if !ok || !isTerminal(f) {
		mustN(w.Write(b))

		return nil
	}

	yr, err := r.With(runner.WithProfile("yaml"), runner.WithRuleSet("builtin:yaml"))
	if err != nil {
		mustN(w.Write(b))

		return nil //nolint:nilerr // Fall back to plain output.
	}

	pl, spans, err := yr.Highlight(ctx, "config.yaml", b)
	if err != nil {
		mustN(w.Write(b))

		return err //nolint:wrapcheck // Already wrapped.
	}

	err = highlight.NewPrinter(highlight.FormatOverlay, highlight.WithStyles(pl.Styles)).Print(w, b, spans)
	if err != nil {
		return fmt.Errorf("print: %w", err)
	}

	return nil
}

// watch highlights the source, then again whenever the source, its rule
// set or the configuration changes, until ctx is done.
func (ha *HighlightArgs) watch(ctx context.Context, cmd *cobra.Command, r *runner.Runner, cfgPath string) error {
	out := cmd.OutOrStdout()

	format, err := ha.format(out)
	if err != nil {
		return err
	}

	redraw := format == highlight.FormatOverlay

	// The terminal is redrawn on every change, so logs are held until exit.
	if redraw {
		logBuf := log.NewBuffer(log.DefaultBufferSize)

		logHandler, err := log.CreateHandlerWithStrings(logBuf, ha.LogLevel, ha.LogFormat)
		if err != nil {
			return fmt.Errorf("create log handler: %w", err)
		}

		prev := slog.Default()
		slog.SetDefault(slog.New(logHandler))

		defer func() {
			slog.SetDefault(prev)
			flushLogs(cmd.ErrOrStderr(), logBuf)
		}()
	}

	var pl *runner.Pipeline

	w, err := watch.New(watch.WithFilter(func(path string, op fsnotify.Op) bool {
		if pl == nil {
			return true
		}

		return pl.Profile.ShouldReload(path, op)
	}))
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	defer func() {
		err := w.Close()
		if err != nil {
			slog.Error("close watcher", slog.Any("error", err))
		}
	}()

	absConfig := ""
	if cfgPath != "" {
		absConfig, _ = filepath.Abs(cfgPath)
	}

	draw := func(ctx context.Context) {
		if redraw {
			mustN(io.WriteString(out, ansi.EraseEntireScreen+ansi.CursorHomePosition))
		}

		next, err := ha.render(ctx, cmd, r)
		if err != nil {
			mustN(fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", err))
		}

		if next != nil {
			pl = next
		}

		files := []string{ha.Source, absConfig}
		if pl != nil {
			files = append(files, pl.RuleSetPath)
		}

		w.Reset()

		err = w.Add(files...)
		if err != nil {
			slog.ErrorContext(ctx, "watch files", slog.Any("error", err))
		}
	}

	draw(ctx)

	w.Run(ctx, func(ctx context.Context, e watch.Event) {
		if absConfig != "" && slices.Contains(e.Paths, absConfig) {
			err := ha.reloadConfig(ctx, r, cfgPath)
			if err != nil {
				slog.ErrorContext(ctx, "reload config", slog.Any("error", err))
			}
		}

		if pl != nil && pl.RuleSetPath != "" && slices.Contains(e.Paths, pl.RuleSetPath) {
			r.Reload()
		}

		draw(ctx)
	}, func(ctx context.Context, err error) {
		mustN(fmt.Fprintf(cmd.ErrOrStderr(), "watch: %v\n", err))
	})

	return nil
}

func (ha *HighlightArgs) reloadConfig(ctx context.Context, r *runner.Runner, path string) error {
	cfg, err := config.LoadConfig(path, config.WithColor(isTerminal(os.Stderr)))
	if err != nil {
		return err //nolint:wrapcheck // Names the file.
	}

	err = r.Configure(runner.WithConfig(cfg, filepath.Dir(path)), runner.WithProfile(ha.Profile))
	if err != nil {
		return fmt.Errorf("configure runner: %w", err)
	}

	slog.InfoContext(ctx, "reloaded config", slog.String("path", path))

	return nil
}

func flushLogs(w io.Writer, buf *log.Buffer) {
	slog.Debug("flush logs to console",
		slog.Int("count", buf.Len()),
		slog.Int("dropped", buf.Dropped()),
	)

	_, err := buf.WriteTo(w)
	if err != nil {
		panic(err)
	}
}
