package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/macropower/crumbs/api"
	"github.com/macropower/crumbs/pkg/highlight"
	"github.com/macropower/crumbs/pkg/runner"
)

const findExamples = `  # Show the breadcrumb paths of every "main" token:
  crumbs find main.go main

  # Match tokens containing the characters in order:
  crumbs find main.go mn --fuzzy`

type FindArgs struct {
	*RootArgs

	Source  string
	Text    string
	Profile string
	Fuzzy   bool
}

func NewFindArgs(rootArgs *RootArgs) *FindArgs {
	return &FindArgs{
		RootArgs: rootArgs,
	}
}

func (fa *FindArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&fa.Profile, "profile", "p", "", "Profile to use instead of selecting one by the configured rules")
	cmd.Flags().BoolVar(&fa.Fuzzy, "fuzzy", false, "Match tokens containing the characters of text in order")

	must(cmd.RegisterFlagCompletionFunc("profile", profileCompletion(fa.RootArgs)))
}

func NewFindCmd(fa *FindArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "find <source> <text>",
		Short:   "Print the breadcrumb paths of tokens matching text",
		Example: findExamples,
		Args:    cobra.ExactArgs(2),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]cobra.Completion, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return nil, cobra.ShellCompDirectiveDefault
			}

			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			fa.Source = args[0]
			fa.Text = args[1]

			return fa.run(cmd)
		},
	}
	fa.AddFlags(cmd)

	return cmd
}

func (fa *FindArgs) run(cmd *cobra.Command) error {
	ctx := cmd.Context()

	r, _, err := fa.newRunner(ctx, fa.Source, runner.WithProfile(fa.Profile))
	if err != nil {
		return err
	}

	src, err := api.ReadSource(fa.Source, cmd.InOrStdin())
	if err != nil {
		return err //nolint:wrapcheck // Names the file.
	}

	crumbs, err := r.Breadcrumbs(ctx, fa.Source, src)
	if err != nil {
		return err //nolint:wrapcheck // Already wrapped.
	}

	matches, err := highlight.Find(crumbs, src, fa.Text, fa.Fuzzy)
	if err != nil {
		return fmt.Errorf("find %q: %w", fa.Text, err)
	}

	out := cmd.OutOrStdout()
	for i, m := range matches {
		if i > 0 {
			mustN(fmt.Fprintln(out))
		}

		mustN(fmt.Fprintln(out, m.String()))
	}

	return nil
}
