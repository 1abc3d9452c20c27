// Package texttospeech defines how the assistant turns text into audible
// speech.
package texttospeech

import (
	"context"
	"fmt"
	"strings"
)

// Voice is a hint for picking a synthesizer voice. Name selects a specific
// voice when the synthesizer knows it, otherwise the synthesizer picks one
// for Locale.
type Voice struct {
	Locale string
	Name   string
}

// Language returns the primary language subtag of the locale, e.g. "de"
// for "de-DE".
func (v Voice) Language() string {
	language, _, _ := strings.Cut(v.Locale, "-")
	language, _, _ = strings.Cut(language, "_")
	return strings.ToLower(language)
}

// Synthesizer speaks text and returns once it has been played to the end.
type Synthesizer interface {
	Speak(ctx context.Context, text string, voice Voice) error
}

// SynthesizerFunc adapts a function to [Synthesizer].
type SynthesizerFunc func(ctx context.Context, text string, voice Voice) error

func (f SynthesizerFunc) Speak(ctx context.Context, text string, voice Voice) error {
	return f(ctx, text, voice)
}

// SynthesisError is a failure to speak a single piece of text.
type SynthesisError struct {
	Text string
	Err  error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("failed to synthesize %q: %v", e.Text, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }
