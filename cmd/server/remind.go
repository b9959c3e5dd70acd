package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Run one reminder pass now",
	Long: `Run a single reminder pass against the configured store and exit.

Missed scheduler runs are not caught up automatically; use this after
downtime. Batches already sent are recorded per event and never repeated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		st, err := openStore(ctx, cfg)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer st.Close()

		worker, err := newReminderWorker(cfg, st, newSender(cfg))
		if err != nil {
			return err
		}

		stats, err := worker.RunTick(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Events scanned:  %d\n", stats.Events)
		fmt.Fprintf(out, "Batches sent:    %d\n", stats.Batches)
		fmt.Fprintf(out, "Reminders sent:  %d\n", stats.Sent)
		fmt.Fprintf(out, "Failed sends:    %d\n", stats.Failed)
		if stats.Errors > 0 {
			return fmt.Errorf("%d events could not be processed", stats.Errors)
		}
		return nil
	},
}
