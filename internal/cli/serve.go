package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/training-registration/internal/config"
	"github.com/Shivanand-hulikatti/training-registration/internal/database"
	"github.com/Shivanand-hulikatti/training-registration/internal/handler"
	"github.com/Shivanand-hulikatti/training-registration/internal/repository"
	"github.com/Shivanand-hulikatti/training-registration/internal/service"
	"github.com/Shivanand-hulikatti/training-registration/internal/token"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API configured from the environment.

STORE=postgres (default) connects using DB_URL or DB_HOST/DB_PORT/...;
STORE=memory keeps everything in process memory.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
}

func runServe(ctx context.Context, cfg config.Config) error {
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	setupLogger(level)

	// ── 1. Storage ───────────────────────────────────────────────────────
	var store repository.Store
	switch cfg.Store {
	case "memory":
		store = repository.NewMemoryStore(cfg.LockTimeout)
		slog.Info("using in-memory store")
	default:
		pool, err := database.NewPool(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()
		if cfg.Database.ApplySchema {
			if err := database.ApplySchema(ctx, pool); err != nil {
				return err
			}
		}
		store = repository.NewPostgresStore(pool, cfg.LockTimeout)
		slog.Info("connected to postgres")
	}

	// ── 2. Wire up layers ────────────────────────────────────────────────
	score, err := cfg.DefaultPriorityScore()
	if err != nil {
		return err
	}
	svc := service.NewSessionService(store, token.NewGenerator(nil), service.StaticPriority{Score: score})
	router := handler.NewRouter(handler.NewSessionHandler(svc))

	// ── 3. Start server with graceful shutdown ───────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	slog.Info("server stopped")
	return nil
}
