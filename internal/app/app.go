package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"PageVault/internal/config"
	"PageVault/internal/infrastructure/extraction"
	"PageVault/internal/infrastructure/llm"
	"PageVault/internal/infrastructure/storage"
	"PageVault/internal/server"
	"PageVault/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration. It
// owns the long-lived database handle; nothing else holds process-wide
// mutable state.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	db      *sql.DB
	server  *server.Server
	sweeper *usecase.Sweeper
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	repository := storage.NewPostgresRepository(db)
	extractor := extraction.NewClient(cfg.Extraction)
	summarizer := llm.NewOpenRouterClient(cfg.OpenRouter)

	importer := usecase.NewImporter(usecase.ImporterDeps{
		Repository: repository,
		Extractor:  extractor,
		Logger:     baseLogger.With("component", "importer"),
	})

	summaries := usecase.NewSummaries(usecase.SummariesDeps{
		Repository: repository,
		Summarizer: summarizer,
		Logger:     baseLogger.With("component", "summaries"),
	})

	sweeper := usecase.NewSweeper(
		repository,
		cfg.Sweeper.Interval.Std(),
		cfg.Sweeper.TTL.Std(),
		baseLogger.With("component", "sweeper"),
	)

	handlers := server.NewHandlers(importer, summaries, baseLogger.With("component", "http"))
	auth := server.NewAuthMiddleware(cfg.Auth, baseLogger.With("component", "auth"))
	srv := server.New(cfg, handlers, auth, baseLogger)

	return &Application{
		cfg:     cfg,
		logger:  baseLogger,
		db:      db,
		server:  srv,
		sweeper: sweeper,
	}, nil
}

// Run serves HTTP until the context is cancelled or a signal arrives.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.db.PingContext(ctx); err != nil {
		a.logger.Warn("database not reachable at startup", "error", err)
	}

	a.sweeper.Start(ctx)
	defer a.sweeper.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start()
	}()

	a.logger.Info("server started", "addr", a.cfg.Server.Addr)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Std())
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	if err := a.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	return nil
}
