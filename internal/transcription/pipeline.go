package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"captionsync/internal/language"
	"captionsync/internal/logging"
	"captionsync/internal/services"
	"captionsync/internal/subtitles"
)

// Transcriber produces word timestamps for an audio location.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL, language string) ([]WordTimestamp, error)
}

// Publisher stores a generated caption file next to the video.
type Publisher interface {
	Put(ctx context.Context, videoID, file string, body []byte) error
}

// GenerateRequest describes one caption generation run. When Words is set
// the transcriber is skipped.
type GenerateRequest struct {
	VideoID  string
	AudioURL string
	Words    []WordTimestamp
	Language string
	Targets  []string
	Publish  bool
}

// GenerateResult holds the documents produced per language.
type GenerateResult struct {
	Source    string            `json:"source"`
	Documents map[string]string `json:"documents"`
	Stats     map[string]Stats  `json:"stats,omitempty"`
	Cues      int               `json:"cues"`
	Published []string          `json:"published,omitempty"`
}

// Pipeline wires transcription, synthesis, translation and publishing.
type Pipeline struct {
	transcriber Transcriber
	translate   TranslateFunc
	publisher   Publisher
	logger      *slog.Logger
}

// NewPipeline builds a Pipeline. Any dependency may be nil when the
// corresponding step is never requested.
func NewPipeline(transcriber Transcriber, translate TranslateFunc, publisher Publisher, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		transcriber: transcriber,
		translate:   translate,
		publisher:   publisher,
		logger:      logging.NewComponentLogger(logger, "transcription"),
	}
}

// Generate runs the pipeline. Translation failures never fail the run; a
// publish failure does.
func (p *Pipeline) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	source := language.Normalize(req.Language)
	if source == "" {
		return GenerateResult{}, services.Wrap(services.ErrValidation, "transcription", "generate", "source language is required", nil)
	}
	ctx = services.WithVideoID(ctx, req.VideoID)
	logger := logging.WithContext(ctx, p.logger)

	words := req.Words
	if len(words) == 0 {
		if strings.TrimSpace(req.AudioURL) == "" {
			return GenerateResult{}, services.Wrap(services.ErrValidation, "transcription", "generate", "audio url or words are required", nil)
		}
		if p.transcriber == nil {
			return GenerateResult{}, services.Wrap(services.ErrConfiguration, "transcription", "generate", "no transcriber configured", nil)
		}
		var err error
		words, err = p.transcriber.Transcribe(ctx, req.AudioURL, source)
		if err != nil {
			return GenerateResult{}, fmt.Errorf("transcribe: %w", err)
		}
	}

	doc := Synthesize(words, source)
	result := GenerateResult{
		Source:    source,
		Documents: map[string]string{source: doc},
		Stats:     map[string]Stats{},
		Cues:      len(subtitles.Parse(doc)),
	}
	logger.Info("captions synthesized",
		logging.Language(source),
		logging.Int("words", len(words)),
		logging.Int("cues", result.Cues),
	)

	for _, target := range language.NormalizeList(req.Targets) {
		if target == source {
			continue
		}
		if p.translate == nil {
			return result, services.Wrap(services.ErrConfiguration, "transcription", "translate", "no translator configured", nil)
		}
		translated, stats := TranslateDocumentStats(ctx, doc, target, source, p.translate)
		result.Documents[target] = translated
		result.Stats[target] = stats
		attrs := []logging.Attr{
			logging.Language(target),
			logging.Int("translated", stats.Translated),
			logging.Int("kept", stats.Kept),
		}
		if stats.Kept > 0 {
			logging.WarnWithContext(logger, "translation kept original lines", "translation_partial",
				append(attrs,
					logging.String(logging.FieldErrorHint, "check translate.api_key and vendor quota"),
					logging.String(logging.FieldImpact, "some cues remain in the source language"),
				)...,
			)
		} else {
			logger.Info("captions translated", logging.Args(attrs...)...)
		}
	}

	if req.Publish {
		if err := p.publish(ctx, req.VideoID, &result); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (p *Pipeline) publish(ctx context.Context, videoID string, result *GenerateResult) error {
	if p.publisher == nil {
		return services.Wrap(services.ErrConfiguration, "transcription", "publish", "no storage backend configured", nil)
	}
	if strings.TrimSpace(videoID) == "" {
		return services.Wrap(services.ErrValidation, "transcription", "publish", "video id is required", nil)
	}
	var errs []error
	for _, lang := range slices.Sorted(maps.Keys(result.Documents)) {
		file := subtitles.FileName(lang)
		if err := p.publisher.Put(ctx, videoID, file, []byte(result.Documents[lang])); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", file, err))
			continue
		}
		result.Published = append(result.Published, file)
	}
	return errors.Join(errs...)
}
