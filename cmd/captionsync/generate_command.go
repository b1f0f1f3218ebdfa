package main

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"captionsync/internal/config"
	"captionsync/internal/language"
	"captionsync/internal/subtitles"
	"captionsync/internal/transcription"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var audioURL string
	var wordsPath string
	var lang string
	var targets string
	var publish bool
	var outDir string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "generate <video-id>",
		Short: "Transcribe, translate and optionally publish captions for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(audioURL) == "" && strings.TrimSpace(wordsPath) == "" {
				return errors.New("either --audio-url or --words is required")
			}
			pipeline, err := ctx.pipeline(cmd)
			if err != nil {
				return err
			}

			req := transcription.GenerateRequest{
				VideoID:  args[0],
				AudioURL: audioURL,
				Language: lang,
				Targets:  language.SplitList(targets),
				Publish:  publish,
			}
			if len(req.Targets) == 0 {
				req.Targets = cfg.Translate.Targets
			}
			if strings.TrimSpace(wordsPath) != "" {
				data, err := readInput(cmd, wordsPath)
				if err != nil {
					return err
				}
				words, detected, err := decodeTranscript(data)
				if err != nil {
					return err
				}
				req.Words = words
				if detected != "" && !cmd.Flags().Changed("language") {
					req.Language = detected
				}
			}

			result, err := pipeline.Generate(cmd.Context(), req)
			if err != nil {
				return err
			}
			if strings.TrimSpace(outDir) != "" {
				dir, err := config.ExpandPath(outDir)
				if err != nil {
					return err
				}
				for lang, doc := range result.Documents {
					if err := writeOutput(cmd, filepath.Join(dir, subtitles.FileName(lang)), doc); err != nil {
						return err
					}
				}
			}
			if asJSON {
				return writeJSON(cmd, result)
			}

			published := make(map[string]bool, len(result.Published))
			for _, file := range result.Published {
				published[file] = true
			}
			rows := make([][]string, 0, len(result.Documents))
			for _, lang := range slices.Sorted(maps.Keys(result.Documents)) {
				stats := result.Stats[lang]
				role := "translated"
				if lang == result.Source {
					role = "source"
				}
				rows = append(rows, []string{
					language.DisplayName(lang),
					subtitles.FileName(lang),
					role,
					strconv.Itoa(stats.Translated),
					strconv.Itoa(stats.Kept),
					yesNo(published[subtitles.FileName(lang)]),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(fmt.Sprintf("%s: %d cues", args[0], result.Cues),
				[]string{"Language", "File", "Role", "Translated", "Kept", "Published"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&audioURL, "audio-url", "", "Audio or video URL to transcribe")
	cmd.Flags().StringVar(&wordsPath, "words", "", "Transcript file instead of transcribing (- for stdin)")
	cmd.Flags().StringVarP(&lang, "language", "l", "en", "Spoken language of the audio")
	cmd.Flags().StringVarP(&targets, "targets", "t", "", "Comma separated translation targets (default translate.targets)")
	cmd.Flags().BoolVar(&publish, "publish", false, "Upload every document to the storage backend")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Also write documents to this directory")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}
