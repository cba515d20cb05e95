package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"greenlight/internal/executor"
	"greenlight/internal/render"
)

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	var processNow bool

	cmd := &cobra.Command{
		Use:   "enqueue <brief-id>",
		Short: "Queue an execution attempt for a production",
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

			log, err := store.EnqueueExecution(cmd.Context(), briefID)
			if err != nil {
				return fmt.Errorf("enqueue execution: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued execution %d for %s\n", log.ID, briefID)

			if !processNow {
				return nil
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.consoleLogger()
			if err != nil {
				return err
			}
			selector := render.NewSelector(cfg, logger)
			processor := executor.New(store, selector, cfg, logger)

			outcome, err := processor.Process(cmd.Context(), log.ID)
			if err != nil {
				return fmt.Errorf("process execution %d: %w", log.ID, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Execution %d finished: %s\n", log.ID, humanizeLabel(string(outcome.Status)))
			fmt.Fprintf(out, "  can publish:   %s\n", formatBoolPtr(outcome.CanPublish))
			fmt.Fprintf(out, "  quality score: %s\n", formatIntPtr(outcome.QualityScore))
			if len(outcome.QualityFlags) > 0 {
				fmt.Fprintf(out, "  flags:         %s\n", formatFlags(outcome.QualityFlags))
			}
			if outcome.ErrorMessage != "" {
				fmt.Fprintf(out, "  error:         %s\n", outcome.ErrorMessage)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&processNow, "process", false, "Process the execution immediately instead of waiting for the worker")
	return cmd
}
