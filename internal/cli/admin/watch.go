package admin

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// WatchCmd returns the watch command
func WatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Ingest bundles dropped into the inbox directory",
		Long: `Watch the inbox directory and ingest every *.json bundle that appears.

Ingested bundles move to done/, bundles that fail repeatedly move to failed/.
Write bundles under a .tmp name and rename them once complete; a bundle whose
JSON ends early is retried rather than failed.
The directory is also polled every PLANCHECK_INBOX_POLL_INTERVAL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
				cfg.InboxDir = dir
			}
			if !cfg.HasInbox() {
				return errInboxRequired
			}

			app, err := NewApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer app.Close()

			stopInbox, err := startInbox(ctx, app)
			if err != nil {
				return err
			}
			<-ctx.Done()
			stopInbox()
			return nil
		},
	}

	cmd.Flags().String("dir", "", "Inbox directory (overrides PLANCHECK_INBOX_DIR)")

	return cmd
}
