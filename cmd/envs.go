package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) envsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "envs",
		Short: "List registered environments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range a.registry.List() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
