package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"payment_batch_service/internal/infra/httpapi"
	"payment_batch_service/internal/infra/logger"
	"payment_batch_service/internal/infra/scheduler"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	var noScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the intake API and run scheduled exports",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			log := logger.Component("main")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			router := httpapi.NewRouter(a.auth, a.ingest, a.registry, logger.Component("http"))
			server := httpapi.NewServer(a.cfg.HTTPAddr, router)

			var exportScheduler *scheduler.ExportScheduler
			if !noScheduler {
				exportScheduler = scheduler.NewExportScheduler(
					a.export,
					logger.Component("scheduler"),
					a.cfg.BusinessLocation,
					a.cfg.ExportCronSpec,
					a.cfg.ExportTimeout,
				)
				if err := exportScheduler.Start(); err != nil {
					return err
				}
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.WithField("addr", a.cfg.HTTPAddr).Info("HTTP server listening")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				log.Info("Shutting down application...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				if exportScheduler != nil {
					exportScheduler.Stop()
				}
				return server.Shutdown(shutdownCtx)
			})

			err = g.Wait()
			log.Info("Application shut down gracefully.")
			return err
		},
	}

	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "Serve intake only; exports are triggered externally")
	return cmd
}
