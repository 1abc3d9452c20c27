// Package speechtotext turns a spoken utterance into a prompt.
package speechtotext

import (
	"context"
	"errors"
)

// ErrNoSpeech is returned when listening ended without any recognised words.
var ErrNoSpeech = errors.New("no speech recognised")

// Listener records one utterance and returns its transcript.
type Listener interface {
	Listen(ctx context.Context, opts ...TranscriptionOption) (string, error)
}

type TranscriptionOptions struct {
	InterimTranscriptionCallback func(transcript string)

	SpeechStartedCallback func()
	SpeechEndedCallback   func()

	// Language is a BCP 47 tag such as "de" or "en-US".
	Language string
}

type TranscriptionOption func(*TranscriptionOptions)

func WithSpeechStartedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechStartedCallback = callback
	}
}

func WithSpeechEndedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechEndedCallback = callback
	}
}

func WithInterimTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.InterimTranscriptionCallback = callback
	}
}

func WithLanguage(language string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.Language = language
	}
}
