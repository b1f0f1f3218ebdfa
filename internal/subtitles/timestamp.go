package subtitles

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseTimestamp converts HH:MM:SS.mmm, MM:SS.mmm or the SRT comma variant
// to seconds at millisecond precision.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ",", ".")
	hms, frac, ok := strings.Cut(value, ".")
	if !ok || len(frac) > 3 || !isDigits(frac) {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	parts := strings.Split(hms, ":")
	if len(parts) == 2 {
		parts = append([]string{"0"}, parts...)
	}
	if len(parts) != 3 || len(parts[1]) != 2 || len(parts[2]) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	var fields [3]int64
	for i, p := range parts {
		if !isDigits(p) {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
		fields[i] = n
	}
	if fields[1] > 59 || fields[2] > 59 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	for len(frac) < 3 {
		frac += "0"
	}
	millis, _ := strconv.ParseInt(frac, 10, 64)
	total := fields[0]*3_600_000 + fields[1]*60_000 + fields[2]*1000 + millis
	return float64(total) / 1000, nil
}

// FormatTimestamp renders seconds as a WebVTT HH:MM:SS.mmm timestamp.
func FormatTimestamp(seconds float64) string {
	return formatClock(seconds, '.')
}

func formatSRTTimestamp(seconds float64) string {
	return formatClock(seconds, ',')
}

func formatClock(seconds float64, sep byte) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(math.Round(seconds * 1000))
	ms := total % 1000
	s := (total / 1000) % 60
	m := (total / 60_000) % 60
	h := total / 3_600_000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, sep, ms)
}

// parseTimingLine splits "start --> end [settings]". An end before start is
// clamped to start.
func parseTimingLine(line string) (start, end float64, settings string, ok bool) {
	left, right, found := strings.Cut(line, "-->")
	if !found {
		return 0, 0, "", false
	}
	fields := strings.Fields(right)
	if len(fields) == 0 {
		return 0, 0, "", false
	}
	start, err := ParseTimestamp(left)
	if err != nil {
		return 0, 0, "", false
	}
	end, err = ParseTimestamp(fields[0])
	if err != nil {
		return 0, 0, "", false
	}
	if end < start {
		end = start
	}
	return start, end, strings.Join(fields[1:], " "), true
}

func isTimingLine(line string) bool {
	_, _, _, ok := parseTimingLine(line)
	return ok
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
