package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func (r *runner) syncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Deliver queued changes to the backend",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Deliver due changes and refresh the profile",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				res, err := r.app.sync.Sync(cmd.Context())
				fmt.Fprintf(r.app.out, "Delivered %d, retrying %d, failed %d\n", res.Delivered, res.Retried, res.Failed)
				return err
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show queued, delivered and failed changes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				rep, err := r.app.sync.Status(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(r.app.out, "Pending: %d\nSynced:  %d\nFailed:  %d\nLast sync: %s\n",
					rep.Outbox.Pending, rep.Outbox.Synced, rep.Outbox.Failed, formatTime(rep.LastSyncAt))
				return nil
			},
		},
		&cobra.Command{
			Use:   "retry",
			Short: "Queue failed changes again",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				n, err := r.app.sync.RetryFailed(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(r.app.out, "Requeued %d change(s)\n", n)
				return nil
			},
		},
	)
	return cmd
}

func (r *runner) daemonCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Sync in the background until interrupted",
		Long: `Run the sync daemon: deliver changes on the configured schedule and
whenever the backend comes back online, import new health data as the export
file changes and apply meal analysis results pushed by the backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d, err := r.app.newDaemon()
			if err != nil {
				return err
			}
			return d.Run(ctx)
		},
	}
}
