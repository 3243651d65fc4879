package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/macropower/crumbs/api/v1beta1/configs"
	"github.com/macropower/crumbs/api/v1beta1/rulesets"
)

var schemas = map[string]func() []byte{
	"ruleset": rulesets.Schema,
	"config":  configs.Schema,
}

func NewSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "schema [ruleset|config]",
		Short:     "Print the JSON schema of a document kind",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []cobra.Completion{"ruleset", "config"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := "ruleset"
			if len(args) > 0 {
				kind = args[0]
			}

			schema, ok := schemas[kind]
			if !ok {
				return fmt.Errorf("invalid argument %q: want ruleset or config", kind)
			}

			mustN(cmd.OutOrStdout().Write(schema()))

			return nil
		},
	}
}
