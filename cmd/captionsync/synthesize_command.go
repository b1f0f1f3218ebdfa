package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"captionsync/internal/config"
	"captionsync/internal/language"
	"captionsync/internal/logging"
	"captionsync/internal/transcription"
	"captionsync/internal/transcription/deepgram"
)

// decodeTranscript accepts either a bare JSON array of words or a stored
// Deepgram response.
func decodeTranscript(data []byte) ([]transcription.WordTimestamp, string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var words []transcription.WordTimestamp
		if err := json.Unmarshal(trimmed, &words); err != nil {
			return nil, "", fmt.Errorf("decode words: %w", err)
		}
		return words, "", nil
	}
	return deepgram.Decode(trimmed)
}

func newSynthesizeCommand(ctx *commandContext) *cobra.Command {
	var lang string
	var output string
	var watchDir string

	cmd := &cobra.Command{
		Use:   "synthesize [transcript.json|-]",
		Short: "Build WebVTT from word timestamps",
		Long: "Segments word-level timestamps into numbered WebVTT cues.\n\n" +
			"The input is a JSON array of {word,start,end} objects or a stored Deepgram\n" +
			"response. With --watch, every Deepgram response written into the directory\n" +
			"is converted to a sibling .vtt file until interrupted.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fallback := language.Normalize(lang)
			if strings.TrimSpace(watchDir) != "" {
				return runWatch(cmd, ctx, watchDir, fallback)
			}
			if len(args) == 0 {
				return errors.New("a transcript file (or - for stdin) is required without --watch")
			}
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			words, detected, err := decodeTranscript(data)
			if err != nil {
				return err
			}
			if code := language.Normalize(detected); code != "" {
				fallback = code
			}
			return writeOutput(cmd, output, transcription.Synthesize(words, fallback))
		},
	}

	cmd.Flags().StringVarP(&lang, "language", "l", "en", "Language tag when the transcript does not carry one")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the document to a file instead of stdout")
	cmd.Flags().StringVar(&watchDir, "watch", "", "Watch a directory for Deepgram responses")
	return cmd
}

func runWatch(cmd *cobra.Command, ctx *commandContext, dir, fallback string) error {
	logger, err := ctx.loggerFor(cmd)
	if err != nil {
		return err
	}
	expanded, err := config.ExpandPath(dir)
	if err != nil {
		return err
	}
	watcher := transcription.NewWatcher(expanded, deepgram.Decode, fallback, logger)
	watcher.OnProcessed(func(vttPath string) {
		logger.Info("caption file written", logging.String("path", vttPath))
	})
	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for transcripts (Ctrl+C to stop)\n", expanded)
	return watcher.Run(cmd.Context())
}
