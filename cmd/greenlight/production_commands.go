package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"greenlight/internal/production"
)

func newProductionCommand(ctx *commandContext) *cobra.Command {
	productionCmd := &cobra.Command{
		Use:   "production",
		Short: "Inspect video productions",
	}

	productionCmd.AddCommand(newProductionListCommand(ctx))
	productionCmd.AddCommand(newProductionShowCommand(ctx))

	return productionCmd
}

func newProductionListCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List productions, optionally filtered by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var statuses []production.Status
			for _, raw := range statusFilters {
				status, ok := production.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				statuses = append(statuses, status)
			}

			items, err := store.ListProductions(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No productions found")
				return nil
			}

			rows := make([][]string, 0, len(items))
			for _, p := range items {
				rows = append(rows, []string{
					p.BriefID,
					p.Title,
					humanizeLabel(string(p.VideoType)),
					humanizeLabel(string(p.ContentRole)),
					humanizeLabel(string(p.Status)),
					formatIntPtr(p.QualityScore),
					formatTime(p.UpdatedAt),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Brief ID", "Title", "Type", "Role", "Status", "Score", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statusFilters, "status", nil, "Filter by production status (repeatable)")
	return cmd
}

func newProductionShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <brief-id>",
		Short: "Show a production with its gate results and execution history",
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

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s\n", p.BriefID, p.Title)
			fmt.Fprintf(out, "  type:       %s\n", humanizeLabel(string(p.VideoType)))
			fmt.Fprintf(out, "  role:       %s\n", humanizeLabel(string(p.ContentRole)))
			fmt.Fprintf(out, "  status:     %s\n", humanizeLabel(string(p.Status)))
			fmt.Fprintf(out, "  vertical:   %s\n", p.Vertical)
			fmt.Fprintf(out, "  template:   %s\n", p.TemplateID)
			if p.ParentBriefID != "" {
				fmt.Fprintf(out, "  parent:     %s (derivative %s)\n", p.ParentBriefID, formatIntPtr(p.DerivativeIndex))
			}
			fmt.Fprintf(out, "  score:      %s\n", formatIntPtr(p.QualityScore))
			fmt.Fprintf(out, "  flags:      %s\n", formatFlags(p.QualityFlags))
			fmt.Fprintf(out, "  updated:    %s\n", formatTime(p.UpdatedAt))

			if len(p.GateResults) > 0 {
				rows := make([][]string, 0, len(p.GateResults))
				for _, result := range p.GateResults {
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
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable(
					[]string{"Gate", "Verdict", "Measured", "Details"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
				))
			}

			executions, err := store.ExecutionsByBrief(cmd.Context(), briefID)
			if err != nil {
				return err
			}
			if len(executions) > 0 {
				rows := make([][]string, 0, len(executions))
				for _, log := range executions {
					rows = append(rows, []string{
						fmt.Sprintf("%d", log.ID),
						humanizeLabel(string(log.Status)),
						formatBoolPtr(log.CanPublish),
						formatIntPtr(log.QualityScore),
						formatDurationMs(log.DurationMs),
						formatTimePtr(log.CompletedAt),
					})
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable(
					[]string{"Execution", "Status", "Publish", "Score", "Duration", "Completed"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
			}

			if p.IsMaster() {
				derived, err := store.DerivativesOf(cmd.Context(), briefID)
				if err != nil {
					return err
				}
				if len(derived) > 0 {
					fmt.Fprintf(out, "\nDerivatives: %d\n", len(derived))
					for _, d := range derived {
						fmt.Fprintf(out, "  %s (%s)\n", d.BriefID, humanizeLabel(string(d.Status)))
					}
				}
			}
			return nil
		},
	}
}
