package admin

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloo-solutions/plancheck/internal/domain"
	"github.com/cloo-solutions/plancheck/internal/logger"
	"github.com/cloo-solutions/plancheck/internal/repository"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <bundle>...",
		Short: "Ingest regulation element bundles",
		Long: `Ingest one or more element bundles into the regulation index.

Each argument is a local JSON file or an s3://bucket/key reference
(s3:///key uses PLANCHECK_S3_BUCKET).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			app, err := NewApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer app.Close()

			if _, inMemory := app.Store.(*repository.MemoryChunkStore); inMemory {
				log.Warn("ingesting into the in-memory store, chunks are discarded on exit")
			}

			total, err := ingestRefs(logger.ContextWithLogger(ctx, log), app, args)
			fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d parents, %d children (%d tables), %d already stored\n",
				total.Parents, total.Children, total.Tables, total.Skipped)
			return err
		},
	}
}

// ingestRefs ingests refs in order and stops at the first failure.
func ingestRefs(ctx context.Context, app *App, refs []string) (domain.IngestResult, error) {
	var total domain.IngestResult
	for _, ref := range refs {
		res, err := app.Ingestion.IngestRef(ctx, ref)
		if err != nil {
			app.Logger.Error("ingest failed", zap.String("ref", ref), zap.Error(err))
			return total, fmt.Errorf("ingest %s: %w", ref, err)
		}
		total.Add(res)
	}
	return total, nil
}
