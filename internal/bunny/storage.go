package bunny

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"captionsync/internal/services"
	"captionsync/internal/subtitles"
)

const defaultStorageBaseURL = "https://storage.bunnycdn.com"

// StorageConfig describes a Bunny storage zone.
type StorageConfig struct {
	BaseURL    string
	Zone       string
	AccessKey  string
	HTTPClient *http.Client
}

// Storage reads and writes raw caption files in a storage zone laid out as
// {zone}/{videoId}/captions/{FILE}.
type Storage struct {
	baseURL   *url.URL
	zone      string
	accessKey string
	http      *http.Client
}

// NewStorage creates a Storage from the supplied configuration.
func NewStorage(cfg StorageConfig) (*Storage, error) {
	zone := strings.Trim(strings.TrimSpace(cfg.Zone), "/")
	if zone == "" {
		return nil, errors.New("bunny storage: zone is required")
	}
	accessKey := strings.TrimSpace(cfg.AccessKey)
	if accessKey == "" {
		return nil, errors.New("bunny storage: access key is required")
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultStorageBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("bunny storage: parse base url: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Storage{baseURL: baseURL, zone: zone, accessKey: accessKey, http: client}, nil
}

// Name identifies the backend in logs and metrics.
func (s *Storage) Name() string { return "bunny" }

func (s *Storage) objectURL(videoID, file string) *url.URL {
	return s.baseURL.JoinPath(s.zone, videoID, "captions", file)
}

// Candidates returns the probe URLs for lang in order, each carrying the
// access key as a query parameter.
func (s *Storage) Candidates(videoID, lang string) []string {
	files := subtitles.FileNames(lang)
	out := make([]string, 0, len(files))
	for _, file := range files {
		u := s.objectURL(videoID, file)
		u.RawQuery = url.Values{"accessKey": {s.accessKey}}.Encode()
		out = append(out, u.String())
	}
	return out
}

// Fetch downloads one candidate.
func (s *Storage) Fetch(ctx context.Context, location string) services.Result[string] {
	return fetchText(ctx, s.http, location, nil)
}

// Put uploads a caption file for videoID.
func (s *Storage) Put(ctx context.Context, videoID, file string, body []byte) error {
	endpoint := s.objectURL(videoID, file)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("bunny storage: build upload: %w", err)
	}
	req.Header.Set("AccessKey", s.accessKey)
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := s.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "bunny storage", "put", file, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return services.Wrap(services.ErrVendor, "bunny storage", "put", file, statusError("storage upload", resp))
	}
	return nil
}

// Redact strips query parameters (and with them the access key) from a
// storage URL for logging.
func Redact(location string) string {
	u, err := url.Parse(location)
	if err != nil {
		return location
	}
	u.RawQuery = ""
	return u.String()
}
