package orchestration

import (
	"regexp"
	"strings"
)

var (
	numberedListPrefix = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+`)
	markdownSymbols    = strings.NewReplacer("*", "", "#", "", "`", "")
)

// cleanForSpeech removes the parts of a batch that read badly when spoken:
// markdown emphasis and headings, numbered list prefixes and emoji.
func cleanForSpeech(text string) string {
	text = numberedListPrefix.ReplaceAllString(text, "")
	text = markdownSymbols.Replace(text)
	text = strings.Map(func(r rune) rune {
		if isEmoji(r) {
			return -1
		}
		return r
	}, text)
	return strings.Join(strings.Fields(text), " ")
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r == 0xFE0F || r == 0x200D:
		return true
	}
	return false
}
