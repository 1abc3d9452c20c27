package deepgram

import (
	"slices"

	"github.com/koscakluka/ema-avatar/core/texttospeech"
)

type deepgramVoice string

const defaultVoice deepgramVoice = "aura-2-thalia-en"

var localeVoices = map[string]deepgramVoice{
	"en": "aura-2-thalia-en",
	"de": "aura-2-julius-de",
	"es": "aura-2-celeste-es",
	"fr": "aura-2-agathe-fr",
	"it": "aura-2-livia-it",
	"nl": "aura-2-rhea-nl",
	"ja": "aura-2-fujin-ja",
}

// GetAvailableVoices lists the voices picked for locales.
func GetAvailableVoices() []string {
	voices := make([]string, 0, len(localeVoices))
	for _, voice := range localeVoices {
		voices = append(voices, string(voice))
	}
	slices.Sort(voices)
	return voices
}

// resolveVoice uses an explicit voice name as is, and otherwise picks the
// voice for the locale's language.
func resolveVoice(voice texttospeech.Voice) deepgramVoice {
	if voice.Name != "" {
		return deepgramVoice(voice.Name)
	}
	if v, ok := localeVoices[voice.Language()]; ok {
		return v
	}
	return defaultVoice
}
