package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ToISO2 normalizes any recognizable language hint ("en", "eng", "english",
// "en-US") to its ISO 639-1 two-letter code. Unrecognized two-letter input
// passes through; everything else yields the empty string.
func ToISO2(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if tag, err := language.Parse(code); err == nil {
		base, confidence := tag.Base()
		if confidence != language.No {
			if iso := base.String(); len(iso) == 2 {
				return iso
			}
		}
	}
	lowered := strings.ToLower(code)
	if len(lowered) == 2 {
		return lowered
	}
	return ""
}

// DisplayName returns a human-readable English name for any recognized code,
// "Unknown" for empty input, or the uppercased code otherwise.
func DisplayName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "Unknown"
	}
	if tag, err := language.Parse(code); err == nil {
		if name := display.English.Languages().Name(tag); name != "" {
			return name
		}
	}
	return strings.ToUpper(code)
}
