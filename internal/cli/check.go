package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/spf13/cobra"

	"github.com/macropower/crumbs/api"
	"github.com/macropower/crumbs/pkg/config"
	"github.com/macropower/crumbs/pkg/highlight"
	"github.com/macropower/crumbs/pkg/runner"
	"github.com/macropower/crumbs/pkg/theme"
)

const checkExamples = `  # Validate a rule set:
  crumbs check ./sv.yaml

  # Print the records a rule set produces for a source file:
  crumbs check ./sv.yaml --source ./testdata/counter.sv

  # Compare them against expected records:
  crumbs check ./sv.yaml --source ./testdata/counter.sv --expect ./testdata/counter.records`

// ErrMismatch is returned when produced records differ from the expected
// ones.
var ErrMismatch = errors.New("records differ from expected")

type CheckArgs struct {
	*RootArgs

	RuleSet string
	Source  string
	Expect  string
	Profile string
}

func NewCheckArgs(rootArgs *RootArgs) *CheckArgs {
	return &CheckArgs{
		RootArgs: rootArgs,
	}
}

func (ca *CheckArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&ca.Source, "source", "s", "", "Source file to highlight with the rule set")
	cmd.Flags().StringVarP(&ca.Expect, "expect", "e", "", "File with the expected records for the source")
	cmd.Flags().StringVarP(&ca.Profile, "profile", "p", "", "Profile to use instead of selecting one by the configured rules")

	must(cmd.RegisterFlagCompletionFunc("profile", profileCompletion(ca.RootArgs)))
}

func NewCheckCmd(ca *CheckArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "check <ruleset>",
		Short:   "Validate a rule set, and optionally compare its output against expected records",
		Example: checkExamples,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ca.RuleSet = args[0]

			return ca.run(cmd)
		},
	}
	ca.AddFlags(cmd)

	return cmd
}

func (ca *CheckArgs) run(cmd *cobra.Command) error {
	ctx := cmd.Context()

	rs, err := config.LoadRuleSet(ca.RuleSet, "", config.WithColor(isTerminal(os.Stderr)))
	if err != nil {
		return err //nolint:wrapcheck // Names the file.
	}

	m, err := rs.Compile()
	if err != nil {
		return fmt.Errorf("compile %s: %w", ca.RuleSet, err)
	}

	slog.InfoContext(ctx, "rule set is valid",
		slog.String("ruleset", ca.RuleSet),
		slog.Int("groups", len(m.Rules())),
		slog.Int("patterns", m.Patterns()),
	)

	if ca.Source == "" {
		if ca.Expect != "" {
			return errors.New("invalid argument: --expect requires --source")
		}

		return nil
	}

	r, _, err := ca.newRunner(ctx, ca.Source,
		runner.WithProfile(ca.Profile),
		runner.WithRuleSet(ca.RuleSet),
	)
	if err != nil {
		return err
	}

	src, err := api.ReadSource(ca.Source, cmd.InOrStdin())
	if err != nil {
		return err //nolint:wrapcheck // Names the file.
	}

	_, spans, err := r.Highlight(ctx, ca.Source, src)
	if err != nil {
		return err //nolint:wrapcheck // Already wrapped.
	}

	var buf strings.Builder

	err = highlight.NewPrinter(highlight.FormatRecords).Print(&buf, src, spans)
	if err != nil {
		return fmt.Errorf("print: %w", err)
	}

	got := buf.String()

	if ca.Expect == "" {
		mustN(io.WriteString(cmd.OutOrStdout(), got))

		return nil
	}

	want, err := api.ReadFile(ca.Expect)
	if err != nil {
		return err //nolint:wrapcheck // Names the file.
	}

	diff := udiff.Unified(ca.Expect, "actual", normalizeRecords(string(want)), got)
	if diff == "" {
		slog.InfoContext(ctx, "records match", slog.String("expect", ca.Expect))

		return nil
	}

	out := cmd.OutOrStdout()
	color := false
	if f, ok := out.(*os.File); ok {
		color = isTerminal(f)
	}

	mustN(io.WriteString(out, colorDiff(diff, color)))

	return fmt.Errorf("%w: %s", ErrMismatch, ca.Expect)
}

// normalizeRecords drops carriage returns and blank lines from expected
// records.
func normalizeRecords(s string) string {
	var sb strings.Builder
	for line := range strings.Lines(strings.ReplaceAll(s, "\r\n", "\n")) {
		if strings.TrimSpace(line) == "" {
			continue
		}

		sb.WriteString(strings.TrimSuffix(line, "\n"))
		sb.WriteString("\n")
	}

	return sb.String()
}

func colorDiff(diff string, color bool) string {
	if !color {
		return diff
	}

	th := theme.Default

	var sb strings.Builder
	for line := range strings.Lines(diff) {
		text := strings.TrimSuffix(line, "\n")

		switch {
		case strings.HasPrefix(text, "+++"), strings.HasPrefix(text, "---"), strings.HasPrefix(text, "@@"):
			text = th.SubtleStyle.Render(text)
		case strings.HasPrefix(text, "+"):
			text = th.InsertedStyle.Render(text)
		case strings.HasPrefix(text, "-"):
			text = th.DeletedStyle.Render(text)
		}

		sb.WriteString(text)
		sb.WriteString("\n")
	}

	return sb.String()
}
