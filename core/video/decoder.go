package video

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

// Decoder loops a Source forever, keeping a FrameBuffer filled.
//
// Decoding is paced at the source's frame rate with a burst of one frame.
// While paused the decoder still decodes until the buffer is full and then
// sleeps until resumed, so frames are ready the moment playback starts again.
type Decoder struct {
	source  Source
	buffer  *FrameBuffer
	limiter *rate.Limiter

	mu           sync.Mutex
	paused       bool
	updateSignal chan struct{}
}

type DecoderOption func(*Decoder)

// WithPaused starts the decoder in the paused state.
func WithPaused() DecoderOption {
	return func(d *Decoder) {
		d.paused = true
	}
}

func NewDecoder(source Source, buffer *FrameBuffer, opts ...DecoderOption) *Decoder {
	fps := source.FPS()
	if fps <= 0 {
		fps = DefaultFrameRate
	}
	d := &Decoder{
		source:       source,
		buffer:       buffer,
		limiter:      rate.NewLimiter(rate.Limit(fps), 1),
		updateSignal: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Decoder) Buffer() *FrameBuffer { return d.buffer }

// Pause lets the decoder stop once the buffer is full.
func (d *Decoder) Pause() {
	d.mu.Lock()
	d.paused = true
	d.mu.Unlock()
}

// Resume wakes a sleeping decoder. The token saved up while paused is spent
// first, so the next frame arrives one interval later and does not evict the
// oldest buffered frame.
func (d *Decoder) Resume() {
	d.mu.Lock()
	d.paused = false
	d.mu.Unlock()
	d.limiter.Allow()
	d.signalUpdate()
}

func (d *Decoder) Paused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused
}

func (d *Decoder) signalUpdate() {
	select {
	case d.updateSignal <- struct{}{}:
	default:
	}
}

// Run decodes until ctx is done. It returns nil on cancellation and an error
// wrapping [ErrMediaUnavailable] when the source fails.
func (d *Decoder) Run(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "decode frames")
	defer span.End()
	span.SetAttributes(attribute.Float64("video.fps", d.source.FPS()))

	loops := 0
	emptyLoop := true
	defer func() { span.SetAttributes(attribute.Int("video.loops", loops)) }()

	for {
		if !d.waitUntilNeeded(ctx) {
			return nil
		}
		if err := d.limiter.Wait(ctx); err != nil {
			return nil
		}

		frame, err := d.source.NextFrame()
		if errors.Is(err, ErrEndOfMedia) {
			if emptyLoop {
				err = fmt.Errorf("%w: clip has no frames", ErrMediaUnavailable)
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return err
			}
			if err := d.source.Rewind(); err != nil {
				err = fmt.Errorf("%w: rewinding: %w", ErrMediaUnavailable, err)
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return err
			}
			loops++
			emptyLoop = true
			continue
		} else if err != nil {
			if !errors.Is(err, ErrMediaUnavailable) {
				err = fmt.Errorf("%w: %w", ErrMediaUnavailable, err)
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error("frame decoding failed", "error", err)
			return err
		}
		emptyLoop = false

		framesDecoded.Add(ctx, 1)
		if d.buffer.Push(frame) {
			framesDropped.Add(ctx, 1)
		}
	}
}

// waitUntilNeeded blocks while the decoder is paused and the buffer is full.
// It returns false when ctx is done.
func (d *Decoder) waitUntilNeeded(ctx context.Context) bool {
	for {
		if ctx.Err() != nil {
			return false
		}
		if !d.Paused() || !d.buffer.Full() {
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-d.updateSignal:
		}
	}
}
