package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/koscakluka/ema-avatar/core/batching"
	"github.com/koscakluka/ema-avatar/core/events"
	"github.com/koscakluka/ema-avatar/core/llms"
	"github.com/koscakluka/ema-avatar/core/reasoning"
	"github.com/koscakluka/ema-avatar/core/ui"
)

// ingestor routes the deltas of one turn. Raw text goes to the unfiltered
// accumulator, visible text goes to the display and the batcher, and ready
// batches go to the speech player.
type ingestor struct {
	turnID    string
	filter    *reasoning.ThinkTagFilter
	batcher   *batching.Batcher
	player    *speechPlayer
	scheduler ui.Scheduler
	surface   ui.Surface
	publish   func(events.Event)

	raw     strings.Builder
	visible strings.Builder

	started    time.Time
	firstToken time.Time
	deltas     int
}

func newIngestor(turnID string, filter *reasoning.ThinkTagFilter, batcher *batching.Batcher, player *speechPlayer, scheduler ui.Scheduler, surface ui.Surface, publish func(events.Event)) *ingestor {
	if publish == nil {
		publish = func(events.Event) {}
	}
	return &ingestor{
		turnID:    turnID,
		filter:    filter,
		batcher:   batcher,
		player:    player,
		scheduler: scheduler,
		surface:   surface,
		publish:   publish,
		started:   time.Now(),
	}
}

// Ingest consumes the stream until its end. Malformed events are skipped. A
// transport failure or ctx cancellation ends ingestion with an error.
func (i *ingestor) Ingest(ctx context.Context, stream llms.Stream) error {
	for delta, err := range stream.Chunks(ctx) {
		if err != nil {
			if errors.Is(err, llms.ErrMalformedEvent) {
				malformedEvents.Add(ctx, 1)
				logger.Debug("skipping malformed stream event", "turn_id", i.turnID, "error", err)
				continue
			}
			return err
		}

		if err := i.handleDelta(ctx, delta.Content); err != nil {
			return err
		}
	}

	return ctx.Err()
}

func (i *ingestor) handleDelta(ctx context.Context, content string) error {
	if i.deltas == 0 {
		i.firstToken = time.Now()
	}
	i.deltas++
	i.raw.WriteString(content)

	return i.forward(ctx, i.filter.Process(content))
}

// Finish releases text still held by the filter and the batcher and queues
// it for speech. It runs whether or not the stream ended cleanly.
func (i *ingestor) Finish(ctx context.Context) error {
	err := i.forward(ctx, i.filter.Flush())

	if batch, ok := i.batcher.Flush(); ok {
		err = errors.Join(err, i.enqueue(ctx, batch))
	}

	if suppressed := i.filter.Suppressed(); suppressed > 0 {
		suppressedReasoningBytes.Add(ctx, int64(suppressed))
	}
	return err
}

func (i *ingestor) forward(ctx context.Context, visible string) error {
	if visible == "" {
		return nil
	}

	i.visible.WriteString(visible)
	i.appendText(visible)
	i.publish(events.NewAssistantResponseSegment(i.turnID, visible))

	i.batcher.Offer(visible)
	for _, batch := range i.batcher.DrainReady() {
		if err := i.enqueue(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

func (i *ingestor) enqueue(ctx context.Context, batch batching.Batch) error {
	if err := i.player.Enqueue(ctx, batch); err != nil {
		return fmt.Errorf("failed to queue batch for speech: %w", err)
	}
	return nil
}

// appendText shows text on the display. The surface is only touched from the
// scheduler.
func (i *ingestor) appendText(text string) {
	if i.scheduler == nil || i.surface == nil {
		return
	}
	surface := i.surface
	i.scheduler.Post(func() { surface.AppendText(text) })
}

// Raw is the unfiltered text of the turn, reasoning included.
func (i *ingestor) Raw() string { return i.raw.String() }

// Visible is the text that was shown and spoken.
func (i *ingestor) Visible() string { return i.visible.String() }

func (i *ingestor) firstTokenLatency() time.Duration {
	if i.firstToken.IsZero() {
		return 0
	}
	return i.firstToken.Sub(i.started)
}
