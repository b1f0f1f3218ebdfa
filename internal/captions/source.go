package captions

import (
	"errors"
	"sort"

	"captionsync/internal/subtitles"
)

// Method records how a caption track was discovered.
type Method string

const (
	MethodVendorMetadata Method = "vendor_metadata"
	MethodStorageDirect  Method = "storage_direct"
)

// ErrCaptionsUnavailable is returned when the metadata API could not be
// reached and no language resolved through any path.
var ErrCaptionsUnavailable = errors.New("captions unavailable for this video")

// Source describes where a track came from. Storage URLs are logged and
// reported without their query string.
type Source struct {
	Language string `json:"language"`
	URL      string `json:"url,omitempty"`
	Inline   bool   `json:"inline,omitempty"`
	Method   Method `json:"method"`
	Backend  string `json:"backend,omitempty"`
	Cached   bool   `json:"cached,omitempty"`
}

// Result is the outcome of one Resolve call. Languages that no method found
// are listed in Missing; that is a partial result, not an error.
type Result struct {
	VideoID string            `json:"video_id"`
	Tracks  subtitles.Tracks  `json:"tracks"`
	Sources map[string]Source `json:"sources"`
	Missing []string          `json:"missing,omitempty"`
}

// Languages returns the resolved languages in sorted order.
func (r Result) Languages() []string {
	return r.Tracks.Languages()
}

// Empty reports whether nothing resolved.
func (r Result) Empty() bool {
	return len(r.Tracks.Languages()) == 0
}

func newResult(videoID string) Result {
	return Result{
		VideoID: videoID,
		Tracks:  subtitles.Tracks{},
		Sources: map[string]Source{},
	}
}

func sortedCopy(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}
