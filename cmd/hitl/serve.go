package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reviewer HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			srv, err := opts.newService(ctx)
			if err != nil {
				return err
			}
			defer srv.Close()
			handler, err := srv.Handler()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = srv.Config().API.Addr
			}
			server := &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 5 * time.Second,
				WriteTimeout:      10 * time.Second,
			}
			errs := make(chan error, 1)
			go func() { errs <- server.ListenAndServe() }()
			srv.Logger().Info("reviewer api started", zap.String("addr", addr))

			select {
			case err = <-errs:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			srv.Logger().Info("reviewer api stopping")
			return server.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default api.addr)")
	return cmd
}
