package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"greenlight/internal/gates"
)

func newGatesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "gates <brief-id>",
		Short: "Evaluate compliance gates for a production without rendering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			briefID := args[0]
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			defer store.Close()

			p, err := store.GetProduction(cmd.Context(), briefID)
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("production %s not found", briefID)
			}

			input := gates.BuildInput(p)
			out := cmd.OutOrStdout()

			check := gates.CheckArtefacts(input)
			if !check.CanProceed {
				fmt.Fprintf(out, "Artefacts incomplete, gates cannot run: missing %s\n", strings.Join(check.Missing, ", "))
				return nil
			}

			outcome := gates.EvaluateAll(input)
			score := gates.QualityScore(outcome.Flags)

			rows := make([][]string, 0, len(outcome.Gates))
			for _, result := range outcome.Gates {
				details := "-"
				if len(result.Details) > 0 {
					details = strings.Join(result.Details, "; ")
				}
				rows = append(rows, []string{
					humanizeLabel(result.Gate),
					string(result.Verdict),
					formatMeasured(result.Measured),
					details,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Gate", "Verdict", "Measured", "Details"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))

			fmt.Fprintf(out, "\nCan publish:   %v\n", outcome.CanPublish)
			fmt.Fprintf(out, "Quality score: %d\n", score)
			fmt.Fprintf(out, "Flags:         %s\n", formatFlags(outcome.Flags))
			return nil
		},
	}
}
