package subtitles

import "fmt"

// durationSlack is how far past the video end the last cue may run before it
// is reported.
const durationSlack = 5.0

// ValidateContent checks parsed cues for problems worth surfacing to an
// operator. It returns issue codes; an empty slice means the track looks
// sane. videoSeconds <= 0 skips the duration check.
func ValidateContent(cues []Cue, videoSeconds float64) []string {
	if len(cues) == 0 {
		return []string{"empty_subtitle_file"}
	}
	var issues []string

	unordered, overlapping, zeroLength := 0, 0, 0
	for i, c := range cues {
		if c.End == c.Start {
			zeroLength++
		}
		if i == 0 {
			continue
		}
		prev := cues[i-1]
		if c.Start < prev.Start {
			unordered++
		} else if c.Start < prev.End {
			overlapping++
		}
	}
	if unordered > 0 {
		issues = append(issues, fmt.Sprintf("unordered_cues: count=%d", unordered))
	}
	if overlapping > 0 {
		issues = append(issues, fmt.Sprintf("overlapping_cues: count=%d", overlapping))
	}
	if zeroLength > 0 {
		issues = append(issues, fmt.Sprintf("zero_length_cues: count=%d", zeroLength))
	}

	if videoSeconds > 0 {
		first, last := Bounds(cues)
		if first >= videoSeconds {
			issues = append(issues, fmt.Sprintf("cues_after_video_end: first=%.1fs", first))
		} else if last > videoSeconds+durationSlack {
			issues = append(issues, fmt.Sprintf("duration_mismatch: delta=%.1fs", last-videoSeconds))
		}
	}
	return issues
}
