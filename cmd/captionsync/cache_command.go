package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"captionsync/internal/captions"
	"captionsync/internal/refresh"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or prune the local caption and playlist cache",
	}
	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCachePurgeCommand(ctx))
	return cacheCmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list [namespace...]",
		Short: "List cached entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.cacheStore()
			if err != nil {
				return err
			}
			namespaces := args
			if len(namespaces) == 0 {
				namespaces = []string{captions.CacheNamespace, refresh.Namespace}
			}
			now := time.Now()
			var rows [][]string
			for _, ns := range namespaces {
				entries, err := store.List(cmd.Context(), ns)
				if err != nil {
					return err
				}
				for _, e := range entries {
					rows = append(rows, []string{
						ns,
						e.Key,
						e.Age(now).Truncate(time.Second).String(),
						strconv.Itoa(len(e.Value)),
					})
				}
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "Cache is empty")
				return nil
			}
			fmt.Fprintln(out, renderTable(store.Path(),
				[]string{"Namespace", "Key", "Age", "Bytes"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
}

func newCachePurgeCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete entries older than a duration",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.cacheStore()
			if err != nil {
				return err
			}
			removed, err := store.Purge(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries older than %s\n", removed, olderThan)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "Minimum age of entries to delete (0 clears everything)")
	return cmd
}
