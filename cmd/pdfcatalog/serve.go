package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/pyhub-apps/pdfcatalog-golang/pkg/boxes"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the region and price endpoints over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.HTTP.Addr
			}
			orch, err := a.cfg.Orchestrator(a.logger)
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr: addr,
				Handler: newRouter(&server{
					logger:    a.logger,
					orch:      orch,
					rewriter:  a.cfg.Rewriter(a.logger),
					pref:      boxes.NewPreference(),
					maxUpload: int64(a.cfg.HTTP.MaxUploadMB) << 20,
				}),
				ReadTimeout:  a.cfg.HTTP.ReadTimeout,
				WriteTimeout: a.cfg.HTTP.WriteTimeout,
			}

			serverErrors := make(chan error, 1)
			go func() {
				a.logger.Info().Str("addr", addr).Strs("strategies", orch.Strategies()).Msg("HTTP server listening")
				serverErrors <- srv.ListenAndServe()
			}()

			select {
			case err := <-serverErrors:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-cmd.Context().Done():
				a.logger.Info().Msg("shutdown signal received")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				a.logger.Error().Err(err).Msg("graceful shutdown failed")
				return srv.Close()
			}
			a.logger.Info().Msg("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
