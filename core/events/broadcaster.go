package events

import "sync"

const defaultSubscriberBuffer = 64

// Broadcaster fans events out to subscribers.
//
// Every subscriber receives every event published after it subscribed, in
// publish order. A subscriber that does not keep up slows down the
// publisher; events are never dropped.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[int]*subscriber
	nextID      int
	closed      bool
	bufferSize  int
}

type subscriber struct {
	events chan Event
	done   chan struct{}
	once   sync.Once
}

type BroadcasterOption func(*Broadcaster)

// WithSubscriberBuffer sets the channel capacity of new subscriptions.
func WithSubscriberBuffer(size int) BroadcasterOption {
	return func(b *Broadcaster) {
		if size >= 0 {
			b.bufferSize = size
		}
	}
}

func NewBroadcaster(opts ...BroadcasterOption) *Broadcaster {
	b := &Broadcaster{
		subscribers: map[int]*subscriber{},
		bufferSize:  defaultSubscriberBuffer,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe returns a channel of events and a function that ends the
// subscription and closes the channel.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	sub := &subscriber{
		events: make(chan Event, b.bufferSize),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.events)
		return sub.events, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subscribers[id] = sub

	return sub.events, func() {
		sub.once.Do(func() { close(sub.done) })

		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(sub.events)
		}
	}
}

// Publish delivers event to all current subscribers.
func (b *Broadcaster) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	for _, sub := range b.subscribers {
		select {
		case sub.events <- event:
		case <-sub.done:
		}
	}
}

// Close ends all subscriptions. Publishing afterwards is a no-op.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subscribers {
		delete(b.subscribers, id)
		close(sub.events)
	}
}
