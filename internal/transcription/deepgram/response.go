package deepgram

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"captionsync/internal/transcription"
)

// Response is the subset of a /v1/listen response captionsync reads.
type Response struct {
	Metadata struct {
		RequestID string  `json:"request_id"`
		Duration  float64 `json:"duration"`
	} `json:"metadata"`
	Results struct {
		Channels []Channel `json:"channels"`
	} `json:"results"`
}

// Channel is one audio channel's recognition output.
type Channel struct {
	DetectedLanguage string        `json:"detected_language"`
	Alternatives     []Alternative `json:"alternatives"`
}

// Alternative is one transcript hypothesis.
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words"`
}

// Word carries both the raw and the punctuated form of a word.
type Word struct {
	Word           string  `json:"word"`
	PunctuatedWord string  `json:"punctuated_word"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Confidence     float64 `json:"confidence"`
}

// ParseResponse decodes a stored or live /v1/listen JSON response.
func ParseResponse(data []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, fmt.Errorf("deepgram: decode response: %w", err)
	}
	return resp, nil
}

// LoadResponse reads and decodes a response file.
func LoadResponse(path string) (Response, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Response{}, err
	}
	return ParseResponse(data)
}

// Words returns the first channel's best alternative as word timestamps,
// preferring the punctuated form of each word.
func (r Response) Words() []transcription.WordTimestamp {
	if len(r.Results.Channels) == 0 || len(r.Results.Channels[0].Alternatives) == 0 {
		return nil
	}
	words := r.Results.Channels[0].Alternatives[0].Words
	out := make([]transcription.WordTimestamp, 0, len(words))
	for _, w := range words {
		text := strings.TrimSpace(w.PunctuatedWord)
		if text == "" {
			text = strings.TrimSpace(w.Word)
		}
		if text == "" {
			continue
		}
		out = append(out, transcription.WordTimestamp{Word: text, Start: w.Start, End: w.End})
	}
	return out
}

// Language returns the detected language of the first channel, if any.
func (r Response) Language() string {
	if len(r.Results.Channels) == 0 {
		return ""
	}
	return r.Results.Channels[0].DetectedLanguage
}

// Decode adapts ParseResponse for transcription.Watcher.
func Decode(data []byte) ([]transcription.WordTimestamp, string, error) {
	resp, err := ParseResponse(data)
	if err != nil {
		return nil, "", err
	}
	return resp.Words(), resp.Language(), nil
}
