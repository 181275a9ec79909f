package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/printshop-tools/kdpcover/internal/storage"
)

func newServeCmd() *cobra.Command {
	var addr string
	var memory bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the cover service",
		Long: `Starts the kdpcover HTTP service.

The service exposes the dimension calculator, the same-origin image proxy,
colour extraction, full-wrap assembly, cover image generation and the
generation history used by the cover editor.`,
		Example: `  # Start server on the configured address (default :8888)
  kdpcover serve

  # Start server on a custom address with an in-memory history
  kdpcover serve --addr :3000 --memory`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}

			var history storage.HistoryStore
			if memory {
				history = storage.NewMemoryStore()
			} else {
				store, err := storage.NewSQLiteStore(cfg.HistoryDB)
				if err != nil {
					return fmt.Errorf("failed to open history database: %w", err)
				}
				history = store
			}
			defer history.Close()

			svc := newServices(cfg, true)
			handler := svc.handler(history)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go handler.Cleanup(ctx, time.Minute)

			server := &http.Server{
				Addr:              cfg.Addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("kdpcover service available", "addr", cfg.Addr, "history", cfg.HistoryDB, "proxy_base", cfg.ProxyBaseURL)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-ctx.Done():
				slog.Info("Shutting down server...")
				// Give in-flight assemblies time to finish
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (overrides config)")
	cmd.Flags().BoolVar(&memory, "memory", false, "Keep history in memory instead of SQLite")

	return cmd
}
