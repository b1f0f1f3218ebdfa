package subtitles

import (
	"math"
	"slices"
	"sort"
)

// Cue is one timed caption. End is never before Start; zero-length cues are
// valid and displayable.
type Cue struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Identifier string  `json:"identifier,omitempty"`
	// Styles carries WebVTT cue settings verbatim. Nothing interprets them.
	Styles string `json:"styles,omitempty"`
}

// Duration returns End-Start.
func (c Cue) Duration() float64 {
	return c.End - c.Start
}

// Midpoint returns the centre of the cue's interval.
func (c Cue) Midpoint() float64 {
	return (c.Start + c.End) / 2
}

// Same reports whether two cues have identical timing and text.
func (c Cue) Same(other Cue) bool {
	return c.Start == other.Start && c.End == other.End && c.Text == other.Text
}

// Tracks maps a 2-letter language code to that language's cues. A Tracks
// value is replaced wholesale, never patched in place.
type Tracks map[string][]Cue

// Languages returns the languages with at least one cue, sorted.
func (t Tracks) Languages() []string {
	out := make([]string, 0, len(t))
	for lang, cues := range t {
		if len(cues) > 0 {
			out = append(out, lang)
		}
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy.
func (t Tracks) Clone() Tracks {
	if t == nil {
		return nil
	}
	out := make(Tracks, len(t))
	for lang, cues := range t {
		out[lang] = slices.Clone(cues)
	}
	return out
}

// Sorted returns a copy of cues ordered by start then end. Input order is
// preserved for ties.
func Sorted(cues []Cue) []Cue {
	out := slices.Clone(cues)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}

// Bounds returns the earliest start and latest end across cues. Both are zero
// for an empty list.
func Bounds(cues []Cue) (float64, float64) {
	if len(cues) == 0 {
		return 0, 0
	}
	first := math.Inf(1)
	var last float64
	for _, c := range cues {
		if c.Start < first {
			first = c.Start
		}
		if c.End > last {
			last = c.End
		}
	}
	return first, last
}
