package orchestration

import (
	"context"
	"errors"
	"fmt"

	"github.com/koscakluka/ema-avatar/core/events"
	"github.com/koscakluka/ema-avatar/core/speechtotext"
)

// Listen records one utterance with listener and returns its transcript, to
// be used as the next prompt. Speech activity and interim transcripts are
// published as user_input events; callbacks passed in opts still run.
func (a *Assistant) Listen(ctx context.Context, listener speechtotext.Listener, opts ...speechtotext.TranscriptionOption) (string, error) {
	if a.closed.Load() {
		return "", ErrAssistantClosed
	}
	if listener == nil {
		return "", errors.New("listener is required")
	}

	ctx, span := tracer.Start(ctx, "listen for prompt")
	defer span.End()

	var caller speechtotext.TranscriptionOptions
	for _, opt := range opts {
		opt(&caller)
	}
	opts = append(opts,
		speechtotext.WithSpeechStartedCallback(func() {
			a.publish(events.NewUserSpeechStarted())
			if caller.SpeechStartedCallback != nil {
				caller.SpeechStartedCallback()
			}
		}),
		speechtotext.WithSpeechEndedCallback(func() {
			a.publish(events.NewUserSpeechEnded())
			if caller.SpeechEndedCallback != nil {
				caller.SpeechEndedCallback()
			}
		}),
		speechtotext.WithInterimTranscriptionCallback(func(transcript string) {
			a.publish(events.NewUserTranscriptInterim(transcript))
			if caller.InterimTranscriptionCallback != nil {
				caller.InterimTranscriptionCallback(transcript)
			}
		}),
	)
	transcript, err := listener.Listen(ctx, opts...)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to record prompt: %w", err)
	}

	a.publish(events.NewUserTranscriptFinal(transcript))
	return transcript, nil
}
