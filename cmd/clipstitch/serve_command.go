package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpalmer/clipstitch/internal/bootstrap"
	"github.com/mpalmer/clipstitch/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP upload/merge/convert server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateServer(); err != nil {
				return err
			}

			logger := cfg.NewLogger()
			slog.SetDefault(logger)

			deps, err := bootstrap.NewDependencies(cfg, logger)
			if err != nil {
				return fmt.Errorf("initialize dependencies: %w", err)
			}
			defer func() { _ = deps.Close() }()

			sweepCtx, stopSweeper := context.WithCancel(context.Background())
			defer stopSweeper()
			go deps.Sweeper.Run(sweepCtx, cfg.SweepInterval())

			handlers := server.NewHandlers(deps.Service, deps.Uploads, deps.Artifacts, deps.Storage, deps.Health, logger)
			routerCfg := server.DefaultConfig()
			routerCfg.MaxTotalSize = cfg.MaxTotalSize
			router := server.NewRouter(handlers, logger, routerCfg)

			srv := &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.Port),
				Handler:      router,
				ReadTimeout:  5 * time.Minute,
				WriteTimeout: cfg.RequestTimeout() + time.Minute,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("HTTP server listening", slog.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- fmt.Errorf("server failed: %w", err)
				}
			}()

			select {
			case <-cmd.Context().Done():
			case err := <-errCh:
				return err
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
