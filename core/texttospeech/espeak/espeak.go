// Package espeak speaks text with a locally installed espeak-ng (or espeak)
// command, which plays the audio itself.
package espeak

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/koscakluka/ema-avatar/core/texttospeech"
)

const DefaultBinary = "espeak-ng"

type Synthesizer struct {
	binary string
	rate   int
	pitch  int
}

var _ texttospeech.Synthesizer = (*Synthesizer)(nil)

type Option func(*Synthesizer)

// WithBinary selects the espeak executable, e.g. "espeak" on systems
// without espeak-ng.
func WithBinary(binary string) Option {
	return func(s *Synthesizer) {
		if binary != "" {
			s.binary = binary
		}
	}
}

// WithRate sets the speaking rate in words per minute.
func WithRate(wordsPerMinute int) Option {
	return func(s *Synthesizer) { s.rate = wordsPerMinute }
}

// WithPitch sets the pitch, 0 to 99.
func WithPitch(pitch int) Option {
	return func(s *Synthesizer) { s.pitch = pitch }
}

func NewSynthesizer(opts ...Option) *Synthesizer {
	s := &Synthesizer{binary: DefaultBinary}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Synthesizer) args(text string, voice texttospeech.Voice) []string {
	var args []string
	switch {
	case voice.Name != "":
		args = append(args, "-v", voice.Name)
	case voice.Language() != "":
		args = append(args, "-v", voice.Language())
	}
	if s.rate > 0 {
		args = append(args, "-s", strconv.Itoa(s.rate))
	}
	if s.pitch > 0 {
		args = append(args, "-p", strconv.Itoa(s.pitch))
	}
	// "--" keeps text starting with a dash from being read as a flag.
	return append(args, "--", text)
}

// Speak runs espeak and waits for it to finish playing.
func (s *Synthesizer) Speak(ctx context.Context, text string, voice texttospeech.Voice) error {
	ctx, span := tracer.Start(ctx, "espeak speak")
	defer span.End()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.binary, s.args(text, voice)...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		span.RecordError(err)
		return &texttospeech.SynthesisError{Text: text, Err: err}
	}
	return nil
}
