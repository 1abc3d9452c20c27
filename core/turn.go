package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-avatar/core/batching"
	"github.com/koscakluka/ema-avatar/core/events"
	"github.com/koscakluka/ema-avatar/core/llms"
	"github.com/koscakluka/ema-avatar/core/reasoning"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SendPrompt runs one turn: it streams the model's answer, shows and speaks
// the visible part, and returns the assistant message that was added to the
// transcript. Turns of the same Assistant never overlap.
//
// If the stream fails the error is shown inline, the speech already queued
// still plays, and the transcript is left unchanged.
func (a *Assistant) SendPrompt(ctx context.Context, prompt string) (llms.Message, error) {
	a.turnMu.Lock()
	defer a.turnMu.Unlock()

	if a.closed.Load() {
		return llms.Message{}, ErrAssistantClosed
	}

	turnID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "assistant turn", trace.WithAttributes(
		attribute.String("turn.id", turnID),
		attribute.Int("turn.prompt.length", len(prompt)),
	))
	defer span.End()

	history := append(a.transcript.Messages(), llms.Message{Role: llms.MessageRoleUser, Content: prompt})
	a.publish(events.NewTurnStarted(turnID, prompt))

	player := newSpeechPlayer(turnID, a.synth, a.voice, a.queueCapacity, a.publish)
	player.Start(ctx)

	ingest := newIngestor(turnID,
		reasoning.NewThinkTagFilter(a.filterOptions...),
		batching.New(a.policy),
		player, a.scheduler, a.surface, a.publish)

	streamErr := panicSafeNamedWorker("stream ingestion", func(ctx context.Context) error {
		return ingest.Ingest(ctx, a.chat.PromptWithStream(ctx, history))
	})(ctx)
	if streamErr != nil {
		a.postText(fmt.Sprintf("\n[Fehler: %v]\n", streamErr))
	}

	// The end marker is sent on every path so the worker always exits.
	finishErr := ingest.Finish(ctx)
	player.SignalEndOfTurn()
	playerErr := player.Wait()

	stats := turnStats{
		firstToken:     ingest.firstTokenLatency(),
		deltas:         ingest.deltas,
		characters:     len(ingest.Raw()),
		visibleWords:   len(strings.Fields(ingest.Visible())),
		wordsPerMinute: player.wordsPerMinute(),
		duration:       time.Since(ingest.started),
	}
	stats.record(span, turnID)

	if streamErr != nil {
		span.RecordError(streamErr)
		span.SetStatus(codes.Error, "response stream failed")
		a.publish(events.NewTurnFailed(turnID, streamErr))
		return llms.Message{}, fmt.Errorf("turn failed: %w", errors.Join(streamErr, playerErr))
	}

	a.transcript.Append(llms.MessageRoleUser, prompt)
	response := a.transcript.Append(llms.MessageRoleAssistant, ingest.Raw())
	a.publish(events.NewAssistantResponseFinal(turnID, ingest.Visible()))
	a.publish(events.NewTurnCompleted(turnID))

	if err := errors.Join(finishErr, playerErr); err != nil {
		span.RecordError(err)
		return response, fmt.Errorf("turn finished with errors: %w", err)
	}
	return response, nil
}

type turnStats struct {
	firstToken     time.Duration
	deltas         int
	characters     int
	visibleWords   int
	wordsPerMinute float64
	duration       time.Duration
}

// record logs the statistics and attaches them to span. Deltas stand in for
// tokens since the stream does not report usage.
func (s turnStats) record(span trace.Span, turnID string) {
	span.SetAttributes(
		attribute.Int64("turn.first_token_ms", s.firstToken.Milliseconds()),
		attribute.Int("turn.tokens.estimated", s.deltas),
		attribute.Int("turn.characters", s.characters),
		attribute.Int("turn.visible_words", s.visibleWords),
		attribute.Float64("turn.speech.words_per_minute", s.wordsPerMinute),
	)
	logger.Info("assistant turn finished",
		"turn_id", turnID,
		"first_token", s.firstToken,
		"estimated_tokens", s.deltas,
		"characters", s.characters,
		"visible_words", s.visibleWords,
		"words_per_minute", fmt.Sprintf("%.1f", s.wordsPerMinute),
		"duration", s.duration,
	)
}
