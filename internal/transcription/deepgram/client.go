// Package deepgram calls the Deepgram pre-recorded transcription API and
// extracts word timestamps from its responses.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"captionsync/internal/retry"
	"captionsync/internal/services"
	"captionsync/internal/transcription"
)

const (
	defaultBaseURL     = "https://api.deepgram.com"
	defaultModel       = "nova-2"
	defaultHTTPTimeout = 5 * time.Minute
	maxResponseBytes   = 64 << 20
)

// Config describes the Deepgram client configuration.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	// Retry applies to transport failures and retriable statuses.
	Retry retry.Policy
}

// Client wraps the Deepgram /v1/listen endpoint.
type Client struct {
	apiKey  string
	model   string
	baseURL *url.URL
	http    *http.Client
	policy  retry.Policy
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("deepgram: api key is required")
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("deepgram: parse base url: %w", err)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	policy := cfg.Retry
	if policy.Attempts <= 0 {
		policy = retry.Exponential(3, time.Second, 8*time.Second)
	}
	policy.Retriable = func(err error) bool { return errors.Is(err, services.ErrTransient) }
	return &Client{apiKey: apiKey, model: model, baseURL: baseURL, http: client, policy: policy}, nil
}

// Transcribe asks Deepgram to fetch and transcribe audioURL.
func (c *Client) Transcribe(ctx context.Context, audioURL, language string) ([]transcription.WordTimestamp, error) {
	payload, err := json.Marshal(map[string]string{"url": audioURL})
	if err != nil {
		return nil, fmt.Errorf("deepgram: encode request: %w", err)
	}
	resp, err := c.listen(ctx, language, "application/json", func() io.Reader { return bytes.NewReader(payload) })
	if err != nil {
		return nil, err
	}
	return resp.Words(), nil
}

// TranscribeAudio uploads raw audio bytes of the given content type.
func (c *Client) TranscribeAudio(ctx context.Context, audio []byte, contentType, language string) ([]transcription.WordTimestamp, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	resp, err := c.listen(ctx, language, contentType, func() io.Reader { return bytes.NewReader(audio) })
	if err != nil {
		return nil, err
	}
	return resp.Words(), nil
}

func (c *Client) listen(ctx context.Context, language, contentType string, body func() io.Reader) (Response, error) {
	endpoint := c.baseURL.JoinPath("v1", "listen")
	params := url.Values{}
	params.Set("model", c.model)
	params.Set("punctuate", "true")
	params.Set("smart_format", "true")
	if language = strings.TrimSpace(language); language != "" {
		params.Set("language", language)
	} else {
		params.Set("detect_language", "true")
	}
	endpoint.RawQuery = params.Encode()

	return retry.Do(ctx, c.policy, func(ctx context.Context) (Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), body())
		if err != nil {
			return Response{}, retry.Permanent(fmt.Errorf("deepgram: build request: %w", err))
		}
		req.Header.Set("Authorization", "Token "+c.apiKey)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return Response{}, services.Wrap(services.ErrTransient, "deepgram", "listen", "request failed", err)
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return Response{}, services.Wrap(services.ErrTransient, "deepgram", "listen", "read response", err)
		}
		if resp.StatusCode >= 300 {
			marker := services.ErrVendor
			if retry.IsRetriableStatus(resp.StatusCode) {
				marker = services.ErrTransient
			}
			detail := strings.TrimSpace(string(data))
			if len(detail) > 4096 {
				detail = detail[:4096]
			}
			return Response{}, services.Wrap(marker, "deepgram", "listen", fmt.Sprintf("status %s", resp.Status), errors.New(detail))
		}
		return ParseResponse(data)
	}, nil)
}
