package ui

import (
	"context"
	"fmt"
	"sync"
)

// Loop is a drain-and-execute scheduler. Callbacks posted from any goroutine
// are queued and run in FIFO order by the single goroutine calling Run.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool

	updateSignal chan struct{}
}

func NewLoop() *Loop {
	return &Loop{updateSignal: make(chan struct{}, 1)}
}

// Post queues fn. Callbacks posted after Close are dropped.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	l.signalUpdate()
}

func (l *Loop) signalUpdate() {
	select {
	case l.updateSignal <- struct{}{}:
	default:
	}
}

// Run executes posted callbacks until ctx is done or the loop is closed.
// Callbacks still queued at Close are run before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.RunPending()

		l.mu.Lock()
		closed := l.closed && len(l.queue) == 0
		l.mu.Unlock()
		if closed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.updateSignal:
		}
	}
}

// RunPending executes the callbacks queued so far on the calling goroutine
// and returns how many ran. It lets a foreign event loop drive the queue.
func (l *Loop) RunPending() int {
	l.mu.Lock()
	pending := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, fn := range pending {
		l.run(fn)
	}
	return len(pending)
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("ui callback panicked", "error", fmt.Sprint(r))
		}
	}()
	fn()
}

// Close stops accepting callbacks and wakes Run so it can return.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.signalUpdate()
}
