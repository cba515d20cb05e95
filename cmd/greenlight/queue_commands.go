package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"greenlight/internal/production"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the execution queue",
	}

	queueCmd.AddCommand(newQueueStatsCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))

	return queueCmd
}

func newQueueStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show execution counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.ExecutionStats(cmd.Context())
			if err != nil {
				return err
			}

			statuses := []production.ExecutionStatus{
				production.ExecutionQueued,
				production.ExecutionProcessing,
				production.ExecutionCompleted,
				production.ExecutionFailed,
			}
			total := 0
			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				count := stats[status]
				total += count
				rows = append(rows, []string{humanizeLabel(string(status)), strconv.Itoa(count)})
			}
			rows = append(rows, []string{"Total", strconv.Itoa(total)})

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Status", "Count"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [execution-id...]",
		Short: "Requeue failed executions, all of them when no ids are given",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid execution id %q", arg)
				}
				ids = append(ids, id)
			}

			retried, err := store.RetryFailedExecutions(cmd.Context(), ids...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d executions\n", retried)
			return nil
		},
	}
}
