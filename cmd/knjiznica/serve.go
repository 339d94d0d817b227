package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/erazemk/knjiznica/internal/api"
	"github.com/erazemk/knjiznica/internal/covers"
	"github.com/erazemk/knjiznica/internal/desk"
	"github.com/erazemk/knjiznica/internal/metrics"
	"github.com/erazemk/knjiznica/internal/session"
	"github.com/erazemk/knjiznica/internal/web"
)

func newServeCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web desk and JSON API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, f)
		},
	}
	cmd.Flags().StringVarP(&f.addr, "addr", "a", "", "listen address")
	return cmd
}

func runServe(cmd *cobra.Command, f *flags) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}

	// INFO/WARN → stdout, ERROR → stderr, optionally mirrored to a file.
	closeLog, err := setupLogger(cfg.LogPath)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := context.Background()
	recorder := metrics.New()

	library := openStore(ctx, cfg, recorder)
	defer library.Backend().Close()

	secret, err := session.LoadSecret(ctx, library.Backend())
	if err != nil {
		return fmt.Errorf("loading session secret: %w", err)
	}

	shelf := covers.NewShelf(library.Backend(), library)
	desks := desk.NewRegistry(func() *desk.Desk {
		return desk.New(library, desk.WithBannerTTL(cfg.BannerTTL))
	}, cfg.SessionTTL)

	webRouter, err := web.NewRouter(desks, shelf, secret, cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("setting up web router: %w", err)
	}

	// API routes take priority, web routes handle the rest.
	mux := http.NewServeMux()
	mux.Handle("/api/", api.NewRouter(library, shelf))
	mux.Handle("GET /metrics", recorder.Handler())
	mux.Handle("/", webRouter)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(recorder, mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("server stopped, closing storage")
	return nil
}
