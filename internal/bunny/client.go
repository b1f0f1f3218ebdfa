package bunny

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"captionsync/internal/language"
	"captionsync/internal/services"
)

const (
	defaultAPIBaseURL  = "https://video.bunnycdn.com"
	defaultHTTPTimeout = 30 * time.Second
	maxBodyBytes       = 8 << 20
	errorBodyBytes     = 4096
)

// Config describes the Stream API client configuration.
type Config struct {
	APIKey           string
	LibraryID        string
	BaseURL          string
	CDNHostname      string
	TokenSecurityKey string
	HTTPClient       *http.Client
}

// Client wraps the Bunny Stream REST API.
type Client struct {
	apiKey      string
	libraryID   string
	baseURL     *url.URL
	cdnHost     string
	securityKey string
	http        *http.Client
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("bunny: api key is required")
	}
	libraryID := strings.TrimSpace(cfg.LibraryID)
	if libraryID == "" {
		return nil, errors.New("bunny: library id is required")
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultAPIBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("bunny: parse base url: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		apiKey:      apiKey,
		libraryID:   libraryID,
		baseURL:     baseURL,
		cdnHost:     strings.TrimSpace(cfg.CDNHostname),
		securityKey: strings.TrimSpace(cfg.TokenSecurityKey),
		http:        client,
	}, nil
}

// CaptionEntry is one caption listed in video metadata. Vendors use either
// srclang or language for the tag; Text is present when captions are inlined.
type CaptionEntry struct {
	SrcLang  string `json:"srclang"`
	Language string `json:"language"`
	Label    string `json:"label"`
	URL      string `json:"url"`
	Text     string `json:"text"`
	Default  bool   `json:"default"`
}

// Code returns the entry's language normalized to a 2-letter code.
func (e CaptionEntry) Code() string {
	if code := language.Normalize(e.SrcLang); code != "" {
		return code
	}
	return language.Normalize(e.Language)
}

// Video is the subset of Stream video metadata captionsync reads.
type Video struct {
	GUID     string         `json:"guid"`
	Title    string         `json:"title"`
	Length   float64        `json:"length"`
	Status   int            `json:"status"`
	Captions []CaptionEntry `json:"captions"`
}

// Video fetches metadata for one video. Caption entries without a URL get
// the CDN caption location when a CDN hostname is configured.
func (c *Client) Video(ctx context.Context, videoID string) services.Result[Video] {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return services.VendorError[Video](services.Wrap(services.ErrValidation, "bunny", "video", "video id is required", nil), 0)
	}
	endpoint := c.baseURL.JoinPath("library", c.libraryID, "videos", videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return services.VendorError[Video](fmt.Errorf("bunny: build video request: %w", err), 0)
	}
	c.applyHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return services.VendorError[Video](fmt.Errorf("bunny: video request failed: %w", err), 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return services.NotFound[Video](resp.StatusCode)
	}
	if resp.StatusCode >= 300 {
		return services.VendorError[Video](statusError("video lookup", resp), resp.StatusCode)
	}
	var video Video
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&video); err != nil {
		return services.VendorError[Video](fmt.Errorf("bunny: decode video response: %w", err), resp.StatusCode)
	}
	for i := range video.Captions {
		entry := &video.Captions[i]
		if entry.URL == "" && entry.Text == "" && c.cdnHost != "" {
			tag := strings.TrimSpace(entry.SrcLang)
			if tag == "" {
				tag = entry.Code()
			}
			if tag != "" {
				entry.URL = c.CaptionURL(videoID, tag)
			}
		}
	}
	return services.Success(video, resp.StatusCode)
}

// Fetch downloads a caption document from an absolute URL.
func (c *Client) Fetch(ctx context.Context, rawURL string) services.Result[string] {
	return fetchText(ctx, c.http, rawURL, nil)
}

// CaptionURL returns the CDN location of a caption file for tag.
func (c *Client) CaptionURL(videoID, tag string) string {
	return (&url.URL{Scheme: "https", Host: c.cdnHost, Path: "/" + videoID + "/captions/" + tag + ".vtt"}).String()
}

// PlaylistURL returns the unsigned HLS playlist location.
func (c *Client) PlaylistURL(videoID string) string {
	return PlaylistURL(c.cdnHost, videoID)
}

// SignURL appends Bunny CDN token authentication to rawURL, valid until expires.
// The token is base64url(sha256(securityKey + path + expires)) without padding.
func (c *Client) SignURL(rawURL string, expires time.Time) (string, error) {
	if c.securityKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "bunny", "sign url", "token security key is not configured", nil)
	}
	return SignURL(c.securityKey, rawURL, expires)
}

// UploadCaption attaches a WebVTT document to the video as tag.
func (c *Client) UploadCaption(ctx context.Context, videoID, tag, label, vtt string) error {
	payload, err := json.Marshal(map[string]string{
		"srclang":      tag,
		"label":        label,
		"captionsFile": base64.StdEncoding.EncodeToString([]byte(vtt)),
	})
	if err != nil {
		return fmt.Errorf("bunny: encode caption upload: %w", err)
	}
	endpoint := c.baseURL.JoinPath("library", c.libraryID, "videos", videoID, "captions", tag)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("bunny: build caption upload: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.applyHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "bunny", "upload caption", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return services.Wrap(services.ErrVendor, "bunny", "upload caption", tag, statusError("caption upload", resp))
	}
	return nil
}

func (c *Client) applyHeaders(req *http.Request) {
	req.Header.Set("AccessKey", c.apiKey)
	req.Header.Set("Accept", "application/json")
}

func statusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyBytes))
	return fmt.Errorf("bunny: %s failed (%s): %s", operation, resp.Status, strings.TrimSpace(string(body)))
}

// fetchText GETs rawURL and returns the body. 404 and 410 are NotFound; any
// other non-2xx status or transport failure is a VendorError.
func fetchText(ctx context.Context, client *http.Client, rawURL string, headers map[string]string) services.Result[string] {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return services.VendorError[string](fmt.Errorf("bunny: build fetch request: %w", err), 0)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return services.VendorError[string](fmt.Errorf("bunny: fetch failed: %w", err), 0)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return services.NotFound[string](resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return services.VendorError[string](statusError("fetch", resp), resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return services.VendorError[string](fmt.Errorf("bunny: read body: %w", err), resp.StatusCode)
	}
	return services.Success(string(body), resp.StatusCode)
}
