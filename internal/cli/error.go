package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/fang"

	"github.com/macropower/crumbs/pkg/runner"
)

func ErrorHandler(w io.Writer, styles fang.Styles, err error) {
	mustN(fmt.Fprintln(w, styles.ErrorHeader.String()))

	details := lipgloss.NewStyle().MarginLeft(2)
	for _, line := range errorLines(err) {
		mustN(fmt.Fprintln(w, details.Render(line)))
	}

	mustN(fmt.Fprintln(w))

	switch {
	case isUsageError(err):
		mustN(fmt.Fprintln(w, hint(styles, "Try", "--help", "for usage.")))
		mustN(fmt.Fprintln(w))
	case errors.Is(err, runner.ErrNoProfile):
		mustN(fmt.Fprintln(w, hint(styles, "Try", "--profile", "to pick one, or add a rule to your configuration.")))
		mustN(fmt.Fprintln(w))
	}
}

func hint(styles fang.Styles, before, flag, after string) string {
	return lipgloss.JoinHorizontal(
		lipgloss.Left,
		styles.ErrorText.UnsetWidth().Render(before),
		styles.Program.Flag.Render(flag),
		styles.ErrorText.UnsetWidth().UnsetMargins().UnsetTransform().PaddingLeft(1).Render(after),
	)
}

// errorLines splits joined errors so that each is printed on its own line.
func errorLines(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok { //nolint:errorlint // Only the top level.
		var lines []string
		for _, e := range joined.Unwrap() {
			lines = append(lines, errorLines(e)...)
		}

		return lines
	}

	return strings.Split(err.Error(), "\n")
}

// XXX: this is a hack to detect usage errors.
// See: https://github.com/spf13/cobra/pull/2266
func isUsageError(err error) bool {
	s := err.Error()
	for _, prefix := range []string{
		"flag needs an argument:",
		"unknown flag:",
		"unknown shorthand flag:",
		"unknown command",
		"invalid argument",
	} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}

	return false
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func mustN(_ int, err error) {
	must(err)
}
