package language

import (
	"strings"

	xlang "golang.org/x/text/language"
)

// known lists the caption languages with their ISO 639-2 codes and the
// English and native names vendors put in track labels.
var known = []struct {
	code    string
	display string
	aliases []string
}{
	{"en", "English", []string{"eng", "english"}},
	{"es", "Spanish", []string{"spa", "spanish", "español", "espanol", "castellano"}},
	{"pt", "Portuguese", []string{"por", "portuguese", "português", "portugues"}},
	{"fr", "French", []string{"fra", "fre", "french", "français"}},
	{"de", "German", []string{"deu", "ger", "german", "deutsch"}},
	{"it", "Italian", []string{"ita", "italian", "italiano"}},
	{"ja", "Japanese", []string{"jpn", "japanese"}},
	{"ko", "Korean", []string{"kor", "korean"}},
	{"zh", "Chinese", []string{"zho", "chi", "chinese"}},
	{"ru", "Russian", []string{"rus", "russian"}},
	{"ar", "Arabic", []string{"ara", "arabic"}},
	{"hi", "Hindi", []string{"hin", "hindi"}},
	{"nl", "Dutch", []string{"nld", "dut", "dutch"}},
	{"pl", "Polish", []string{"pol", "polish"}},
}

// index maps every code and alias to its position in known.
var index = func() map[string]int {
	m := make(map[string]int, len(known)*4)
	for i, k := range known {
		m[k.code] = i
		for _, alias := range k.aliases {
			m[alias] = i
		}
	}
	return m
}()

func lookup(code string) (int, bool) {
	i, ok := index[strings.ToLower(strings.TrimSpace(code))]
	return i, ok
}

// Normalize converts a vendor language identifier into a lowercase 2-letter
// code. BCP-47 tags are reduced to their base language ("pt-BR" -> "pt",
// "en_US" -> "en"). Returns empty string when nothing sensible can be derived.
func Normalize(tag string) string {
	cleaned := strings.TrimSpace(strings.ReplaceAll(tag, "_", "-"))
	if cleaned == "" {
		return ""
	}
	if i, ok := lookup(cleaned); ok {
		return known[i].code
	}
	if parsed, err := xlang.Parse(cleaned); err == nil {
		if base, conf := parsed.Base(); conf != xlang.No {
			if code := base.String(); code != "und" {
				return code
			}
		}
	}
	primary := strings.ToLower(strings.SplitN(cleaned, "-", 2)[0])
	if len(primary) == 2 && isASCIILetters(primary) {
		return primary
	}
	return ""
}

// DisplayName returns a human-readable language name for any recognized code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if i, ok := lookup(code); ok {
		return known[i].display
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeList deduplicates and normalizes a list of language identifiers,
// preserving first-seen order. Entries that cannot be normalized are dropped.
func NormalizeList(languages []string) []string {
	if len(languages) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(languages))
	seen := make(map[string]struct{}, len(languages))
	for _, lang := range languages {
		code := Normalize(lang)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		normalized = append(normalized, code)
	}
	return normalized
}

// SplitList parses a comma separated language list ("en,es, pt") into a
// normalized slice.
func SplitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return NormalizeList(strings.Split(value, ","))
}

func isASCIILetters(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
