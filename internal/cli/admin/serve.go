package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloo-solutions/plancheck/internal/api/handlers"
	"github.com/cloo-solutions/plancheck/internal/jobs"
	"github.com/cloo-solutions/plancheck/internal/server"
	"github.com/cloo-solutions/plancheck/internal/service"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the plancheck API server, and the inbox ingestion worker when PLANCHECK_INBOX_DIR is set",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides PLANCHECK_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().String("migrations", defaultMigrationsSource, "Migration source URL")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	defer initTelemetry(cfg, log)()

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if cfg.HasDatabase() && !noMigrate {
		source, _ := cmd.Flags().GetString("migrations")
		if err := runMigrations(cfg.DatabaseURL, source, "up", log); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	app, err := NewApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()
	app.logCounts(ctx)

	auth, err := service.NewKeyAuthenticator(cfg.APIKeys)
	if err != nil {
		return fmt.Errorf("invalid PLANCHECK_API_KEYS: %w", err)
	}

	routerCfg := server.RouterConfig{
		Logger:            log,
		CheckHandler:      handlers.NewCheckHandler(app.Workflow, drawingSource(app)),
		RegulationHandler: handlers.NewRegulationHandler(app.Ingestion, app.Retrieval, cfg.RetrievalK),
	}
	if auth.Enabled() {
		routerCfg.AuthValidator = auth
	} else {
		log.Warn("no API keys configured, the API is open")
	}

	var stopInbox func()
	if cfg.HasInbox() {
		stopInbox, err = startInbox(ctx, app)
		if err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewRouter(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down...")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	if stopInbox != nil {
		stopInbox()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}

// drawingSource avoids handing the handler a typed nil.
func drawingSource(app *App) handlers.DrawingSource {
	if app.Drawings == nil {
		return nil
	}
	return app.Drawings
}

// startInbox runs the inbox worker and its watcher until the returned func
// is called or ctx ends.
func startInbox(ctx context.Context, app *App) (func(), error) {
	cfg := app.Config
	processor, err := jobs.NewInboxProcessor(cfg.InboxDir, app.Ingestion, app.Logger)
	if err != nil {
		return nil, err
	}
	worker := jobs.NewWorker(processor, cfg.InboxPollInterval, app.Logger.Named("inbox"))

	watcher, err := jobs.NewInboxWatcher(cfg.InboxDir, worker, app.Logger.Named("inbox"))
	if err != nil {
		return nil, err
	}

	go worker.Start(ctx)
	go watcher.Run(ctx)
	worker.Trigger()
	app.Logger.Info("inbox worker started", zap.String("dir", cfg.InboxDir))

	return func() {
		_ = watcher.Close()
		worker.Stop()
	}, nil
}
