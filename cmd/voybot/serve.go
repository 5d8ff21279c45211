package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/voybot/internal/api"
	"github.com/dgallion1/voybot/internal/confirm"
	"github.com/dgallion1/voybot/internal/pipeline"
)

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP control surface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.ValidateServe(); err != nil {
				return err
			}
			ctx := cmd.Context()

			// Nobody answers prompts over HTTP: confirm recipes save only
			// with assume_yes.
			runner, wd, progress, cleanup, err := a.runner(ctx, pipeline.Deps{Confirmer: confirm.Always(false)})
			if err != nil {
				return err
			}
			defer cleanup()

			orch := pipeline.NewOrchestrator(runner, a.cfg.MaxQueueSize, a.cfg.RunTTL, a.log)
			orch.Start(ctx)

			srv := api.NewServer(orch, wd.Stats(), progress, a.log, a.cfg)
			httpServer := &http.Server{
				Addr:         ":" + a.cfg.Port,
				Handler:      srv,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 120 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("starting voybot", "port", a.cfg.Port, "dry_run", a.cfg.DryRun)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					orch.Stop()
					return fmt.Errorf("http server: %w", err)
				}
			case <-ctx.Done():
				a.log.Info("shutting down...")
			}

			orch.Stop()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}
}
