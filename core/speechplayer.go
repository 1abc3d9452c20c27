package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/ema-avatar/core/batching"
	"github.com/koscakluka/ema-avatar/core/events"
	"github.com/koscakluka/ema-avatar/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultSpeechQueueCapacity = 8

var errSpeechQueueClosed = errors.New("speech queue closed")

// PlaybackState tells whether the speech player is voicing a batch.
type PlaybackState int32

const (
	PlaybackIdle PlaybackState = iota
	PlaybackSpeaking
)

func (s PlaybackState) String() string {
	switch s {
	case PlaybackIdle:
		return "idle"
	case PlaybackSpeaking:
		return "speaking"
	}
	return fmt.Sprintf("PlaybackState(%d)", int32(s))
}

// speechPlayer voices the batches of a single turn one after another. It
// lives exactly as long as its turn.
type speechPlayer struct {
	turnID  string
	synth   texttospeech.Synthesizer
	voice   texttospeech.Voice
	publish func(events.Event)

	queue   chan batching.Batch
	ended   atomic.Bool
	endOnce sync.Once

	state atomic.Int32

	spokenWords  atomic.Int64
	speakingTime atomic.Int64

	done chan struct{}
	err  error
}

func newSpeechPlayer(turnID string, synth texttospeech.Synthesizer, voice texttospeech.Voice, capacity int, publish func(events.Event)) *speechPlayer {
	if capacity < 1 {
		capacity = DefaultSpeechQueueCapacity
	}
	if publish == nil {
		publish = func(events.Event) {}
	}
	return &speechPlayer{
		turnID:  turnID,
		synth:   synth,
		voice:   voice,
		publish: publish,
		queue:   make(chan batching.Batch, capacity),
		done:    make(chan struct{}),
	}
}

// Enqueue hands a batch to the worker. It blocks while the queue is full and
// gives up when ctx is done. It must not be called concurrently with
// SignalEndOfTurn.
func (p *speechPlayer) Enqueue(ctx context.Context, batch batching.Batch) error {
	if p.ended.Load() {
		return errSpeechQueueClosed
	}

	select {
	case p.queue <- batch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SignalEndOfTurn tells the worker that no more batches follow. The worker
// exits once everything queued before it has been handled.
func (p *speechPlayer) SignalEndOfTurn() {
	p.endOnce.Do(func() {
		p.ended.Store(true)
		close(p.queue)
	})
}

func (p *speechPlayer) State() PlaybackState {
	return PlaybackState(p.state.Load())
}

// Start runs the worker on its own goroutine.
func (p *speechPlayer) Start(ctx context.Context) {
	go func() {
		defer close(p.done)
		p.err = panicSafeNamedWorker("speech player", p.Run)(ctx)
	}()
}

// Wait blocks until the worker started with Start has exited.
func (p *speechPlayer) Wait() error {
	<-p.done
	return p.err
}

// Run drains the queue in order. After ctx is done the remaining batches are
// discarded without being spoken.
func (p *speechPlayer) Run(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "play speech")
	defer span.End()

	spoken, discarded := 0, 0
	for batch := range p.queue {
		if ctx.Err() != nil {
			discarded++
			continue
		}
		if p.speak(ctx, batch) {
			spoken++
		}
	}

	span.SetAttributes(
		attribute.Int("speech.batches.spoken", spoken),
		attribute.Int("speech.batches.discarded", discarded),
	)
	return nil
}

func (p *speechPlayer) speak(ctx context.Context, batch batching.Batch) bool {
	text := cleanForSpeech(batch.String())
	if text == "" {
		logger.Debug("skipping batch without speakable text", "turn_id", p.turnID)
		return false
	}

	ctx, span := tracer.Start(ctx, "speak batch")
	defer span.End()
	span.SetAttributes(attribute.Int("speech.batch.length", len(text)))

	p.state.Store(int32(PlaybackSpeaking))
	p.publish(events.NewAssistantPlaybackStarted(p.turnID, text))

	start := time.Now()
	err := p.synthesize(ctx, text)
	p.speakingTime.Add(int64(time.Since(start)))

	p.state.Store(int32(PlaybackIdle))
	p.publish(events.NewAssistantPlaybackEnded(p.turnID, text, err))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "synthesis failed")
		synthesisFailures.Add(ctx, 1)
		logger.Warn("failed to speak batch", "turn_id", p.turnID, "error", err)
		return false
	}

	batchesSpoken.Add(ctx, 1)
	p.spokenWords.Add(int64(len(strings.Fields(text))))
	return true
}

func (p *speechPlayer) synthesize(ctx context.Context, text string) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = &texttospeech.SynthesisError{Text: text, Err: fmt.Errorf("synthesizer panicked: %v", recovered)}
		}
	}()

	if err := p.synth.Speak(ctx, text, p.voice); err != nil {
		var synthesisErr *texttospeech.SynthesisError
		if errors.As(err, &synthesisErr) {
			return err
		}
		return &texttospeech.SynthesisError{Text: text, Err: err}
	}
	return nil
}

// wordsPerMinute reports the spoken rate over the time spent synthesising.
func (p *speechPlayer) wordsPerMinute() float64 {
	elapsed := time.Duration(p.speakingTime.Load())
	if elapsed <= 0 {
		return 0
	}
	return float64(p.spokenWords.Load()) / elapsed.Minutes()
}
