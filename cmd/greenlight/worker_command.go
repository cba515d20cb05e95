package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"greenlight/internal/deps"
	"greenlight/internal/executor"
	"greenlight/internal/logging"
	"greenlight/internal/notifications"
	"greenlight/internal/render"
	"greenlight/internal/worker"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the execution worker until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.serviceLogger()
			if err != nil {
				return err
			}
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			defer store.Close()

			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			for _, status := range statuses {
				if !status.Available {
					logger.Warn("external dependency unavailable",
						logging.String("dependency", status.Name),
						logging.String("detail", status.Detail))
				}
			}

			selector := render.NewSelector(cfg, logger)
			processor := executor.New(store, selector, cfg, logger)
			notifier := notifications.NewService(cfg)

			w, err := worker.New(cfg, store, processor, notifier, logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := w.Start(runCtx); err != nil {
				return fmt.Errorf("start worker: %w", err)
			}
			<-runCtx.Done()
			w.Stop()
			return nil
		},
	}
}
