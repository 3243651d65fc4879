package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/macropower/crumbs/internal/cli"
	"github.com/macropower/crumbs/pkg/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	shutdown, err := cli.SetupTracing(ctx)
	if err != nil {
		slog.Warn("tracing disabled", slog.Any("err", err))
	}

	defer func() {
		err := shutdown(ctx)
		if err != nil {
			slog.Warn("flush traces", slog.Any("err", err))
		}
	}()

	err = fang.Execute(ctx, cli.NewRootCmd(),
		fang.WithVersion(version.GetVersion()),
		fang.WithCommit(version.Revision),
		fang.WithColorSchemeFunc(cli.ColorSchemeFunc),
		fang.WithErrorHandler(cli.ErrorHandler),
		fang.WithNotifySignal(os.Interrupt),
	)
	if err != nil {
		return 1
	}

	return 0
}
