package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"greenlight/internal/derivatives"
	"greenlight/internal/notifications"
	"greenlight/internal/production"
)

func newDeriveCommand(ctx *commandContext) *cobra.Command {
	var maxDerivatives int
	var videoType string
	var claimKinds []string
	var templateID string

	cmd := &cobra.Command{
		Use:   "derive <master-brief-id>",
		Short: "Generate short derivative productions from a master",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			masterBriefID := args[0]
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			defer store.Close()
			logger, err := ctx.consoleLogger()
			if err != nil {
				return err
			}

			override := &production.DerivativePolicy{
				MaxDerivatives: maxDerivatives,
				TemplateID:     templateID,
			}
			if videoType != "" {
				parsed, ok := production.ParseVideoType(videoType)
				if !ok {
					return fmt.Errorf("unknown video type %q", videoType)
				}
				override.VideoType = parsed
			}
			for _, raw := range claimKinds {
				override.ClaimKinds = append(override.ClaimKinds, production.ClaimKind(raw))
			}

			generator := derivatives.NewGenerator(store, logger)
			result, err := generator.Generate(cmd.Context(), masterBriefID, override)
			if err != nil {
				return err
			}

			notifier := notifications.NewService(cfg)
			_ = notifier.NotifyDerivativesCreated(cmd.Context(), result.MasterBriefID, result.DerivativesCreated, result.Skipped)

			out := cmd.OutOrStdout()
			if result.DerivativesCreated == 0 {
				fmt.Fprintf(out, "No new derivatives for %s (skipped %d)\n", result.MasterBriefID, result.Skipped)
				return nil
			}

			rows := make([][]string, 0, len(result.Derivatives))
			for _, created := range result.Derivatives {
				rows = append(rows, []string{
					created.BriefID,
					fmt.Sprintf("%d", created.DerivativeIndex),
					created.ClaimID,
					created.ClaimText,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Brief ID", "Index", "Claim", "Text"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
			))
			fmt.Fprintf(out, "\nCreated %d derivatives (skipped %d)\n", result.DerivativesCreated, result.Skipped)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxDerivatives, "max", 0, "Maximum derivatives to create in this run")
	cmd.Flags().StringVar(&videoType, "video-type", "", "Video type for generated derivatives")
	cmd.Flags().StringSliceVar(&claimKinds, "claim-kinds", nil, "Restrict eligible claims to these kinds")
	cmd.Flags().StringVar(&templateID, "template", "", "Template for generated derivatives")
	return cmd
}
