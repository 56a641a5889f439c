package cmd

import (
	"fmt"

	"github.com/dmorgan81/imagine/internal/prompt"
	"github.com/samber/do"
	"github.com/spf13/cobra"
)

var examplesCmd = &cobra.Command{
	Use:   "examples",
	Short: "List the example prompts used by --random",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, p := range do.MustInvoke[*prompt.Randomizer](injector).Prompts() {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}
