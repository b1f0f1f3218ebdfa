package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"captionsync/internal/clock"
	"captionsync/internal/refresh"
)

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	var loop bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "refresh [video-id...]",
		Short: "Re-sign cached HLS playlist URLs that are due",
		Long: "Signs playlist URLs for the given videos (default refresh.video_ids) and caches\n" +
			"them. Entries younger than refresh.ttl_minutes are left alone. Only one refresher\n" +
			"runs at a time; a concurrent run exits without doing anything.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.loggerFor(cmd)
			if err != nil {
				return err
			}
			store, err := ctx.cacheStore()
			if err != nil {
				return err
			}
			refresher, err := refresh.FromConfig(cfg, store, clock.System{}, logger)
			if err != nil {
				return err
			}
			ids := args
			if len(ids) == 0 {
				ids = cfg.Refresh.VideoIDs
			}
			if len(ids) == 0 {
				return errors.New("no video ids given and refresh.video_ids is empty")
			}

			if loop {
				if interval <= 0 {
					interval = time.Duration(cfg.Refresh.IntervalMinutes) * time.Minute
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Refreshing %d videos every %s (Ctrl+C to stop)\n", len(ids), interval)
				return refresher.Loop(cmd.Context(), ids, interval)
			}

			results, err := refresher.Run(cmd.Context(), ids)
			if errors.Is(err, refresh.ErrLocked) {
				fmt.Fprintln(cmd.OutOrStdout(), "Another refresh is already running; nothing to do")
				return nil
			}
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(results))
			failed := 0
			for _, r := range results {
				detail := ""
				if r.Err != nil {
					failed++
					detail = r.Err.Error()
				}
				expires := ""
				if !r.Entry.Expires.IsZero() {
					expires = r.Entry.Expires.Local().Format(time.DateTime)
				}
				rows = append(rows, []string{r.VideoID, string(r.Outcome), expires, truncate(detail, 60)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable("",
				[]string{"Video", "Outcome", "Expires", "Error"},
				rows,
				nil,
			))
			if failed > 0 {
				return fmt.Errorf("%d of %d videos failed to refresh", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&loop, "loop", false, "Keep refreshing on an interval")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Loop interval (default refresh.interval_minutes)")
	return cmd
}
