package orchestration

import (
	"context"
	"image"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/ema-avatar/core/events"
	"github.com/koscakluka/ema-avatar/core/llms"
	"github.com/koscakluka/ema-avatar/core/texttospeech"
)

func waitForCondition(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

type streamItem struct {
	content string
	err     error
}

type stubStream struct {
	items []streamItem
}

func (s stubStream) Chunks(ctx context.Context) func(func(llms.DeltaEvent, error) bool) {
	return func(yield func(llms.DeltaEvent, error) bool) {
		for _, item := range s.items {
			if item.err != nil {
				if !yield(llms.DeltaEvent{}, item.err) {
					return
				}
				continue
			}
			if !yield(llms.DeltaEvent{Content: item.content}, nil) {
				return
			}
		}
	}
}

type stubChatClient struct {
	mu      sync.Mutex
	items   []streamItem
	history [][]llms.Message
}

func newStubChatClient(deltas ...string) *stubChatClient {
	client := &stubChatClient{}
	for _, delta := range deltas {
		client.items = append(client.items, streamItem{content: delta})
	}
	return client
}

func (c *stubChatClient) PromptWithStream(_ context.Context, messages []llms.Message) llms.Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, messages)
	return stubStream{items: c.items}
}

func (c *stubChatClient) lastHistory() []llms.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.history) == 0 {
		return nil
	}
	return c.history[len(c.history)-1]
}

// recordingSynthesizer remembers what it was asked to say and how many calls
// overlapped.
type recordingSynthesizer struct {
	mu          sync.Mutex
	texts       []string
	inFlight    int
	maxInFlight int
	delay       time.Duration
	fail        func(text string) error
}

func (s *recordingSynthesizer) Speak(_ context.Context, text string, _ texttospeech.Voice) error {
	s.mu.Lock()
	s.inFlight++
	s.maxInFlight = max(s.maxInFlight, s.inFlight)
	s.texts = append(s.texts, text)
	fail := s.fail
	s.mu.Unlock()

	time.Sleep(s.delay)

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()

	if fail != nil {
		return fail(text)
	}
	return nil
}

func (s *recordingSynthesizer) spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

type recordingSurface struct {
	mu     sync.Mutex
	images []image.Image
	text   strings.Builder
}

func (s *recordingSurface) SetImage(img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append(s.images, img)
}

func (s *recordingSurface) AppendText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text.WriteString(text)
}

func (s *recordingSurface) shownImages() []image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]image.Image(nil), s.images...)
}

func (s *recordingSurface) lastImage() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.images) == 0 {
		return nil
	}
	return s.images[len(s.images)-1]
}

func (s *recordingSurface) shownText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String()
}

// eventRecorder collects published events in order.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) publish(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) recorded() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

// namedImage is a 1x1 image that can be told apart in assertions.
type namedImage struct {
	*image.Gray
	name string
}

func newNamedImage(name string) namedImage {
	return namedImage{Gray: image.NewGray(image.Rect(0, 0, 1, 1)), name: name}
}
