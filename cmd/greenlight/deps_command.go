package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"greenlight/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check availability of external render binaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				state := "ok"
				if !status.Available {
					state = status.Detail
				}
				required := "yes"
				if status.Optional {
					required = "no"
				}
				rows = append(rows, []string{status.Name, status.Command, required, state})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Dependency", "Command", "Required", "Status"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))

			if !deps.Satisfied(statuses) {
				return fmt.Errorf("required dependencies are missing")
			}
			return nil
		},
	}
}
