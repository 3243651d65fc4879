package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/macropower/crumbs/pkg/mcp"
	"github.com/macropower/crumbs/pkg/runner"
)

type ServeMCPArgs struct {
	*RootArgs

	Address     string
	Concurrency int
}

func NewServeMCPArgs(rootArgs *RootArgs) *ServeMCPArgs {
	return &ServeMCPArgs{
		RootArgs: rootArgs,
	}
}

func (sa *ServeMCPArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&sa.Address, "address", "", "Serve streamable HTTP at this address instead of stdio")
	cmd.Flags().IntVarP(&sa.Concurrency, "concurrency", "j", 1, "Number of goroutines matching rules")
}

func NewServeMCPCmd(sa *ServeMCPArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve the highlight and breadcrumbs tools over the Model Context Protocol",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return sa.run(cmd)
		},
	}
	sa.AddFlags(cmd)

	return cmd
}

func (sa *ServeMCPArgs) run(cmd *cobra.Command) error {
	ctx := cmd.Context()

	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get current working directory: %w", err)
	}

	r, _, err := sa.newRunner(ctx, root, runner.WithConcurrency(sa.Concurrency))
	if err != nil {
		return err
	}

	err = mcp.NewServer(sa.Address, r, root).Serve(ctx)
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}

	return nil
}
