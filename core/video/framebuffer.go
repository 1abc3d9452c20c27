package video

import (
	"image"
	"sync"
)

const DefaultFrameBufferCapacity = 10

// FrameBuffer is a bounded most-recent-wins queue of decoded frames shared by
// one producer and one consumer. Neither Push nor Pop ever blocks.
type FrameBuffer struct {
	mu      sync.Mutex
	frames  []image.Image
	head    int
	count   int
	dropped uint64
}

func NewFrameBuffer(capacity int) *FrameBuffer {
	if capacity <= 0 {
		capacity = DefaultFrameBufferCapacity
	}
	return &FrameBuffer{frames: make([]image.Image, capacity)}
}

// Push appends frame, evicting the oldest frame when the buffer is full. It
// reports whether a frame was evicted.
func (b *FrameBuffer) Push(frame image.Image) (evicted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == len(b.frames) {
		b.frames[b.head] = nil
		b.head = (b.head + 1) % len(b.frames)
		b.count--
		b.dropped++
		evicted = true
	}
	b.frames[(b.head+b.count)%len(b.frames)] = frame
	b.count++
	return evicted
}

// Pop removes and returns the oldest frame, if any.
func (b *FrameBuffer) Pop() (image.Image, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil, false
	}
	frame := b.frames[b.head]
	b.frames[b.head] = nil
	b.head = (b.head + 1) % len(b.frames)
	b.count--
	return frame, true
}

func (b *FrameBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *FrameBuffer) Cap() int { return len(b.frames) }

func (b *FrameBuffer) Full() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count == len(b.frames)
}

// Dropped returns how many frames were evicted so far.
func (b *FrameBuffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
