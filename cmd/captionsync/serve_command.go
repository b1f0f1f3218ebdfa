package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"captionsync/internal/api"
	"captionsync/internal/clock"
	"captionsync/internal/logging"
	"captionsync/internal/refresh"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the caption HTTP API and overlay server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(bind) != "" {
				cfg.Server.Bind = strings.TrimSpace(bind)
			}
			logger, err := ctx.loggerFor(cmd)
			if err != nil {
				return err
			}
			resolver, err := ctx.resolver(cmd)
			if err != nil {
				return err
			}
			pipeline, err := ctx.pipeline(cmd)
			if err != nil {
				return err
			}

			var playlists api.PlaylistSource
			var refresher *refresh.Refresher
			if cfg.RequireSigning() == nil {
				store, err := ctx.cacheStore()
				if err != nil {
					return err
				}
				refresher, err = refresh.FromConfig(cfg, store, clock.System{}, logger)
				if err != nil {
					return err
				}
				playlists = refresher
			} else {
				logging.WarnWithContext(logger, "playlist signing not configured", "serve_no_signing",
					logging.String(logging.FieldErrorHint, "set bunny.cdn_hostname and bunny.token_security_key"),
					logging.String(logging.FieldImpact, "playlist and overlay routes answer 503"),
				)
			}

			srv, err := api.FromConfig(cfg, resolver, pipeline, playlists, ctx.metrics, logger)
			if err != nil {
				return err
			}
			runCtx := cmd.Context()
			if err := srv.Start(runCtx); err != nil {
				return err
			}
			defer srv.Stop()
			fmt.Fprintf(cmd.ErrOrStderr(), "Serving on http://%s\n", srv.Addr())

			if refresher != nil && len(cfg.Refresh.VideoIDs) > 0 {
				interval := time.Duration(cfg.Refresh.IntervalMinutes) * time.Minute
				go func() {
					if err := refresher.Loop(runCtx, cfg.Refresh.VideoIDs, interval); err != nil {
						logging.ErrorWithContext(logger, "playlist refresh loop stopped", "refresh_loop_failed",
							logging.Error(err),
							logging.String(logging.FieldErrorHint, "check bunny signing settings and the lock path"),
						)
					}
				}()
			}

			<-runCtx.Done()
			logger.Info("shutting down")
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (default server.bind)")
	return cmd
}
