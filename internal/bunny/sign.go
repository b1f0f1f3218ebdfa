package bunny

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// SignURL applies Bunny CDN token authentication to rawURL using
// securityKey. Existing query parameters are kept.
func SignURL(securityKey, rawURL string, expires time.Time) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("bunny: parse url to sign: %w", err)
	}
	exp := strconv.FormatInt(expires.Unix(), 10)
	sum := sha256.Sum256([]byte(securityKey + u.Path + exp))
	token := base64.RawURLEncoding.EncodeToString(sum[:])

	q := u.Query()
	q.Set("token", token)
	q.Set("expires", exp)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// PlaylistURL returns the unsigned HLS playlist location on cdnHost.
func PlaylistURL(cdnHost, videoID string) string {
	return (&url.URL{Scheme: "https", Host: cdnHost, Path: "/" + videoID + "/playlist.m3u8"}).String()
}

// Expiry extracts the expires parameter from a signed URL.
func Expiry(signedURL string) (time.Time, bool) {
	u, err := url.Parse(signedURL)
	if err != nil {
		return time.Time{}, false
	}
	raw := u.Query().Get("expires")
	if raw == "" {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(secs, 0), true
}
