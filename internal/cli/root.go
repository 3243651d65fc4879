// Package cli implements the crumbs command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/macropower/crumbs/pkg/config"
	"github.com/macropower/crumbs/pkg/log"
	"github.com/macropower/crumbs/pkg/runner"
)

const (
	cmdName = "crumbs"
	cmdDesc = `Highlight source files by matching breadcrumb patterns against their syntax trees.`
)

type RootArgs struct {
	LogLevel   string
	LogFormat  string
	ConfigPath string
}

func NewRootArgs() *RootArgs {
	return &RootArgs{}
}

func (ra *RootArgs) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVar(&ra.LogLevel, "log-level", "info", fmt.Sprintf("Log level, one of: %s", log.AllLevels))
	cmd.PersistentFlags().
		StringVar(&ra.LogFormat, "log-format", "text", fmt.Sprintf("Log format, one of: %s", log.AllFormats))
	cmd.PersistentFlags().
		StringVar(&ra.ConfigPath, "config", "", "Path to the crumbs configuration file")

	must(cmd.RegisterFlagCompletionFunc("log-format",
		cobra.FixedCompletions(log.AllFormats, cobra.ShellCompDirectiveNoFileComp),
	))
	must(cmd.RegisterFlagCompletionFunc("log-level",
		cobra.FixedCompletions(log.AllLevels, cobra.ShellCompDirectiveNoFileComp),
	))
	must(cmd.MarkPersistentFlagFilename("config", "yaml", "yml"))
}

// newRunner loads the configuration that applies to source and creates a
// runner for it.
func (ra *RootArgs) newRunner(ctx context.Context, source string, opts ...runner.RunnerOpt) (*runner.Runner, string, error) {
	cfg, path, err := runner.LoadConfig(ctx, ra.ConfigPath, source, config.WithColor(isTerminal(os.Stderr)))
	if err != nil {
		return nil, path, err //nolint:wrapcheck // Names the file.
	}

	dir := ""
	if path != "" {
		dir = filepath.Dir(path)
	}

	opts = append([]runner.RunnerOpt{
		runner.WithConfig(cfg, dir),
		runner.WithLoaderOpts(config.WithColor(isTerminal(os.Stderr))),
	}, opts...)

	r, err := runner.New(opts...)
	if err != nil {
		return nil, path, fmt.Errorf("create runner: %w", err)
	}

	return r, path, nil
}

func NewRootCmd() *cobra.Command {
	args := NewRootArgs()
	highlightArgs := NewHighlightArgs(args)

	highlightCmd := NewHighlightCmd(highlightArgs)
	cmd := &cobra.Command{
		Use:               cmdName + " [source]",
		Short:             cmdDesc,
		Example:           highlightExamples,
		PersistentPreRunE: setupLogging(args),
		ValidArgsFunction: highlightCompletion,
		Args:              highlightCmd.Args,
		RunE:              highlightCmd.RunE,
		SilenceUsage:      true,
	}

	args.AddFlags(cmd)
	highlightArgs.AddFlags(cmd)

	cmd.AddCommand(
		highlightCmd,
		NewFindCmd(NewFindArgs(args)),
		NewCheckCmd(NewCheckArgs(args)),
		NewSchemaCmd(),
		NewServeMCPCmd(NewServeMCPArgs(args)),
	)

	bindEnvVars(cmd)

	return cmd
}

func setupLogging(ra *RootArgs) func(cmd *cobra.Command, _ []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		logHandler, err := log.CreateHandlerWithStrings(cmd.ErrOrStderr(), ra.LogLevel, ra.LogFormat)
		if err != nil {
			return fmt.Errorf("create log handler: %w", err)
		}

		slog.SetDefault(slog.New(logHandler))

		return nil
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
