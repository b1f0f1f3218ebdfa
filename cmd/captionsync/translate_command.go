package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"captionsync/internal/config"
	"captionsync/internal/language"
	"captionsync/internal/subtitles"
	"captionsync/internal/transcription"
)

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var targets string
	var source string
	var output string
	var outDir string

	cmd := &cobra.Command{
		Use:   "translate <file.vtt|->",
		Short: "Translate a WebVTT document line by line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			langs := language.SplitList(targets)
			if len(langs) == 0 {
				langs = language.NormalizeList(cfg.Translate.Targets)
			}
			if len(langs) == 0 {
				return errors.New("at least one --to language is required")
			}
			if len(langs) > 1 && strings.TrimSpace(output) != "" {
				return errors.New("--output takes a single target; use --out-dir for several")
			}
			from := language.Normalize(source)
			if from == "" {
				return fmt.Errorf("invalid source language %q", source)
			}

			translateFn, err := ctx.translator(cmd)
			if err != nil {
				return err
			}
			if translateFn == nil {
				return cfg.RequireTranslate()
			}
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			for _, target := range langs {
				doc, stats := transcription.TranslateDocumentStats(cmd.Context(), string(data), target, from, translateFn)
				dest := output
				if strings.TrimSpace(outDir) != "" {
					dir, err := config.ExpandPath(outDir)
					if err != nil {
						return err
					}
					dest = filepath.Join(dir, subtitles.FileName(target))
				}
				if err := writeOutput(cmd, dest, doc); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d lines translated, %d kept\n", language.DisplayName(target), stats.Translated, stats.Kept)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&targets, "to", "t", "", "Comma separated target languages (default translate.targets)")
	cmd.Flags().StringVarP(&source, "from", "f", "en", "Source language of the document")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file for a single target")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Directory for per-language files named like EN.vtt")
	return cmd
}
