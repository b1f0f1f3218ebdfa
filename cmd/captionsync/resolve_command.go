package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"captionsync/internal/captions"
	"captionsync/internal/language"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var langs string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resolve <video-id>",
		Short: "Discover caption tracks for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			resolver, err := ctx.resolver(cmd)
			if err != nil {
				return err
			}
			requested := language.SplitList(langs)
			if len(requested) == 0 {
				requested = cfg.Captions.Languages
			}

			result, err := resolver.Resolve(cmd.Context(), args[0], requested)
			unavailable := errors.Is(err, captions.ErrCaptionsUnavailable)
			if err != nil && !unavailable {
				return err
			}
			if asJSON {
				return writeJSON(cmd, result)
			}

			out := cmd.OutOrStdout()
			if unavailable || result.Empty() {
				fmt.Fprintf(out, "No captions available for %s\n", args[0])
				if unavailable {
					fmt.Fprintf(out, "Reason: %v\n", err)
				}
				return nil
			}
			rows := make([][]string, 0, len(result.Sources))
			for _, lang := range result.Languages() {
				src := result.Sources[lang]
				location := src.URL
				if src.Inline {
					location = "(inline)"
				}
				rows = append(rows, []string{
					language.DisplayName(lang),
					string(src.Method),
					src.Backend,
					strconv.Itoa(len(result.Tracks[lang])),
					yesNo(src.Cached),
					location,
				})
			}
			fmt.Fprintln(out, renderTable("Captions for "+args[0],
				[]string{"Language", "Method", "Backend", "Cues", "Cached", "Source"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			if len(result.Missing) > 0 {
				fmt.Fprintf(out, "Missing: %s\n", strings.Join(result.Missing, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&langs, "lang", "l", "", "Comma separated languages (default captions.languages)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}
