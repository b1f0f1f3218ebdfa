package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"captionsync/internal/language"
	"captionsync/internal/subtitles"
)

func newParseCommand() *cobra.Command {
	var format string
	var lang string
	var output string
	var asJSON bool
	var videoSeconds float64

	cmd := &cobra.Command{
		Use:         "parse <file|->",
		Short:       "Parse a WebVTT or SRT file, optionally converting it",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			cues := subtitles.Parse(string(data))

			switch strings.ToLower(strings.TrimSpace(format)) {
			case "vtt":
				return writeOutput(cmd, output, subtitles.FormatVTT(cues, language.Normalize(lang)))
			case "srt":
				return writeOutput(cmd, output, subtitles.FormatSRT(cues))
			case "":
			default:
				return fmt.Errorf("unsupported output format %q (use vtt or srt)", format)
			}

			if asJSON {
				return writeJSON(cmd, cues)
			}
			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(cues))
			for i, c := range cues {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					subtitles.FormatTimestamp(c.Start),
					subtitles.FormatTimestamp(c.End),
					truncate(c.Text, 60),
				})
			}
			fmt.Fprintln(out, renderTable("",
				[]string{"#", "Start", "End", "Text"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			start, end := subtitles.Bounds(cues)
			fmt.Fprintf(out, "%d cues spanning %s to %s\n", len(cues), subtitles.FormatTimestamp(start), subtitles.FormatTimestamp(end))
			for _, issue := range subtitles.ValidateContent(cues, videoSeconds) {
				fmt.Fprintf(out, "warning: %s\n", issue)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Convert to vtt or srt instead of listing cues")
	cmd.Flags().StringVar(&lang, "lang", "", "Language header for vtt output")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write converted output to a file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print cues as JSON")
	cmd.Flags().Float64Var(&videoSeconds, "duration", 0, "Video duration in seconds for overrun checks")
	return cmd
}
