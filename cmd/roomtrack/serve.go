package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"roomtrack/internal/core"
	"roomtrack/internal/httpapi"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string
	var seed bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.HTTPAddr
			}
			return a.run(cmd, true, func(ctx context.Context, svc *core.Service) error {
				logger := core.NewLogger(a.log)
				if seed {
					summary, err := svc.InitializeDemoData(ctx)
					if err != nil {
						return err
					}
					logger.Info(summary.Message)
				}
				if !a.cfg.LogDevelopment {
					gin.SetMode(gin.ReleaseMode)
				}
				router := httpapi.NewRouter(svc, httpapi.Options{
					Logger:      logger,
					CORSOrigins: a.cfg.CORSOrigins,
					Metrics:     a.metricsHTTP,
				})
				return listen(ctx, logger, &http.Server{
					Addr:              addr,
					Handler:           router,
					ReadHeaderTimeout: 10 * time.Second,
					// streams end with the command context
					BaseContext: func(net.Listener) context.Context { return ctx },
				})
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default ROOMTRACK_HTTP_ADDR)")
	cmd.Flags().BoolVar(&seed, "seed", false, "Seed the demo dataset when the store is empty")
	return cmd
}

// listen serves until ctx ends, then shuts down gracefully.
func listen(ctx context.Context, logger core.Logger, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
