package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payment_batch_service/internal/app"
	"payment_batch_service/internal/domain/payment"

	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all due payments once and hand the file to the outbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			date := a.export.Today()
			if asOf != "" {
				if date, err = time.Parse(payment.DateLayout, asOf); err != nil {
					return fmt.Errorf("invalid --as-of: %w", err)
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.ExportTimeout)
			defer cancel()

			result, err := a.export.RunExport(ctx, date)
			var herr *app.HandoffError
			if errors.As(err, &herr) {
				return fmt.Errorf("%w\nrecover with: paymentsd handoff %s", err, herr.StagedPath)
			}
			if err != nil {
				return err
			}
			if result.Count == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending payments to export.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d payments to %s\n", result.Count, result.FilePath)
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "Reference date YYYY-MM-DD (default: today in BUSINESS_TIMEZONE)")
	return cmd
}

func handoffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "handoff [staged-path]",
		Short: "Move a committed export file that failed handoff into the outbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			outboxPath, err := a.export.RetryHandoff(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to %s\n", args[0], outboxPath)
			return nil
		},
	}
}
