package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/CreativeUnicorns/morestickers/api"
)

func newServeCmd(appFn func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve preferences, localization and the proxy rewrite over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFn()
			srv, err := api.NewServer(api.Config{
				ListenAddress: a.cfg.ListenAddr,
				Store:         a.store,
				Localizer:     a.localizer,
				Proxy:         a.proxyClient(),
				Logger:        a.logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("Shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				return err
			}
			return <-errCh
		},
	}
}
