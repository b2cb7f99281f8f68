package textutil

import (
	"os"
	"strings"
)

// HallucinationPhrase is the boilerplate credit line the recognition engine
// injects when audio contains silence or music. It is stripped from both
// plain-text and timed-caption output before publishing.
const HallucinationPhrase = "Subtitles by the Amara.org community"

// StripHallucination removes every occurrence of the boilerplate phrase.
// Text without the phrase is returned unchanged.
func StripHallucination(text string) string {
	if !strings.Contains(text, HallucinationPhrase) {
		return text
	}
	return strings.ReplaceAll(text, HallucinationPhrase, "")
}

// StripHallucinationFile rewrites path in place with the boilerplate phrase
// removed. Files that never contained the phrase are left untouched.
func StripHallucinationFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	cleaned := StripHallucination(string(data))
	if cleaned == string(data) {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(cleaned), info.Mode().Perm())
}
