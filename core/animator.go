package orchestration

import (
	"context"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/koscakluka/ema-avatar/core/events"
	"github.com/koscakluka/ema-avatar/core/ui"
	"github.com/koscakluka/ema-avatar/core/video"
)

// AnimationState tells whether the avatar is looping its talking clip.
type AnimationState int32

const (
	AnimationIdle AnimationState = iota
	AnimationLooping
)

func (s AnimationState) String() string {
	switch s {
	case AnimationIdle:
		return "idle"
	case AnimationLooping:
		return "looping"
	}
	return fmt.Sprintf("AnimationState(%d)", int32(s))
}

// frameDecoder is the part of video.Decoder the animator drives.
type frameDecoder interface {
	Pause()
	Resume()
}

// Animator shows frames from the frame buffer while speech plays and the
// still frame otherwise. All of its drawing state is owned by the scheduler
// goroutine; Run only posts callbacks.
type Animator struct {
	scheduler ui.Scheduler
	surface   ui.Surface
	frames    *video.FrameBuffer
	still     image.Image
	interval  time.Duration
	decoder   frameDecoder

	state atomic.Int32

	// Only touched from scheduler callbacks.
	generation uint64
	timer      *time.Timer
}

type AnimatorOption func(*Animator)

func WithFrameBuffer(frames *video.FrameBuffer) AnimatorOption {
	return func(a *Animator) {
		if frames != nil {
			a.frames = frames
		}
	}
}

// WithStillFrame sets the image shown while nothing is spoken.
func WithStillFrame(still image.Image) AnimatorOption {
	return func(a *Animator) {
		a.still = still
	}
}

// WithFrameRate sets the tick cadence to fps frames per second.
func WithFrameRate(fps float64) AnimatorOption {
	return func(a *Animator) {
		if fps > 0 {
			a.interval = time.Duration(float64(time.Second) / fps)
		}
	}
}

// WithDecoder lets the animator pause decoding while idle and resume it when
// speech starts. The decoder should fill the animator's frame buffer.
func WithDecoder(decoder *video.Decoder) AnimatorOption {
	return func(a *Animator) {
		if decoder != nil {
			a.decoder = decoder
			if a.frames == nil {
				a.frames = decoder.Buffer()
			}
		}
	}
}

func NewAnimator(scheduler ui.Scheduler, surface ui.Surface, opts ...AnimatorOption) *Animator {
	a := &Animator{
		scheduler: scheduler,
		surface:   surface,
		interval:  time.Duration(float64(time.Second) / video.DefaultFrameRate),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.frames == nil {
		a.frames = video.NewFrameBuffer(video.DefaultFrameBufferCapacity)
	}
	return a
}

func (a *Animator) State() AnimationState {
	return AnimationState(a.state.Load())
}

// Run translates playback events into display changes until ctx is done or
// the event channel is closed. It leaves the avatar idle on exit.
func (a *Animator) Run(ctx context.Context, playback <-chan events.Event) error {
	a.scheduler.Post(a.stop)
	defer a.scheduler.Post(a.stop)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-playback:
			if !ok {
				return nil
			}
			switch event.(type) {
			case events.AssistantPlaybackStarted:
				a.scheduler.Post(a.start)
			case events.AssistantPlaybackEnded:
				a.scheduler.Post(a.stop)
			}
		}
	}
}

func (a *Animator) start() {
	if a.State() == AnimationLooping {
		return
	}
	a.state.Store(int32(AnimationLooping))
	a.generation++
	if a.decoder != nil {
		a.decoder.Resume()
	}
	a.tick(a.generation)
}

func (a *Animator) stop() {
	a.generation++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.state.Store(int32(AnimationIdle))
	if a.still != nil {
		a.surface.SetImage(a.still)
	}
	if a.decoder != nil {
		a.decoder.Pause()
	}
}

// tick shows the next buffered frame and schedules the following tick. Ticks
// from an earlier generation are ignored.
func (a *Animator) tick(generation uint64) {
	if generation != a.generation || a.State() != AnimationLooping {
		return
	}

	if frame, ok := a.frames.Pop(); ok {
		a.surface.SetImage(frame)
	}

	a.timer = time.AfterFunc(a.interval, func() {
		a.scheduler.Post(func() { a.tick(generation) })
	})
}
