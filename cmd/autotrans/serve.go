package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ZaguanLabs/autotrans/server"
)

// shutdownTimeout bounds the wait for in-flight requests on shutdown.
const shutdownTimeout = 10 * time.Second

func (a *app) serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the translation backend",
		Long: `Serve the translation endpoints pages call:

  POST /api/translate-text
  POST /api/translate-batch
  GET  /api/languages
  POST /api/detect-language
  GET  /health`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			svc, closeSvc, err := a.service(ctx)
			if err != nil {
				return err
			}
			defer closeSvc()

			if addr == "" {
				addr = a.cfg.Server.Address
			}
			srv := server.NewServer(&server.Options{
				Address:      addr,
				Service:      svc,
				Logger:       a.logger,
				AllowOrigins: a.cfg.Server.AllowOrigins,
				Debug:        a.debug || a.cfg.Debug,
			})

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				a.logger.Error("shutdown failed", zap.Error(err))
				return err
			}
			return <-errCh
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8000)")
	return cmd
}
