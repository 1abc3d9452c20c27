package orchestration

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/koscakluka/ema-avatar/core/batching"
	"github.com/koscakluka/ema-avatar/core/conversations"
	"github.com/koscakluka/ema-avatar/core/events"
	"github.com/koscakluka/ema-avatar/core/llms"
	"github.com/koscakluka/ema-avatar/core/reasoning"
	"github.com/koscakluka/ema-avatar/core/texttospeech"
	"github.com/koscakluka/ema-avatar/core/ui"
)

var ErrAssistantClosed = errors.New("assistant closed")

// Assistant is one conversation session. It owns the transcript and runs
// turns one at a time.
type Assistant struct {
	chat          llms.ChatClient
	synth         texttospeech.Synthesizer
	voice         texttospeech.Voice
	policy        batching.Policy
	queueCapacity int
	filterOptions []reasoning.Option
	scheduler     ui.Scheduler
	surface       ui.Surface
	systemPrompt  string

	broadcaster     *events.Broadcaster
	ownsBroadcaster bool

	transcript *conversations.Transcript

	turnMu sync.Mutex
	closed atomic.Bool
}

type AssistantOption func(*Assistant)

func WithChatClient(client llms.ChatClient) AssistantOption {
	return func(a *Assistant) {
		a.chat = client
	}
}

func WithSynthesizer(synth texttospeech.Synthesizer) AssistantOption {
	return func(a *Assistant) {
		a.synth = synth
	}
}

func WithVoice(voice texttospeech.Voice) AssistantOption {
	return func(a *Assistant) {
		a.voice = voice
	}
}

func WithBatchPolicy(policy batching.Policy) AssistantOption {
	return func(a *Assistant) {
		a.policy = policy
	}
}

// WithSpeechQueueCapacity bounds how many batches may wait for the speech
// player before the stream reader blocks.
func WithSpeechQueueCapacity(capacity int) AssistantOption {
	return func(a *Assistant) {
		if capacity > 0 {
			a.queueCapacity = capacity
		}
	}
}

func WithThinkMarkers(start, end string) AssistantOption {
	return func(a *Assistant) {
		a.filterOptions = append(a.filterOptions, reasoning.WithMarkers(start, end))
	}
}

// WithUI makes visible response text appear on surface. Surface methods are
// only called from callbacks posted to scheduler.
func WithUI(scheduler ui.Scheduler, surface ui.Surface) AssistantOption {
	return func(a *Assistant) {
		a.scheduler = scheduler
		a.surface = surface
	}
}

// WithSystemPrompt seeds the transcript with a system message.
func WithSystemPrompt(prompt string) AssistantOption {
	return func(a *Assistant) {
		a.systemPrompt = prompt
	}
}

// WithEventBroadcaster publishes the session's events on broadcaster instead
// of a private one. The caller stays responsible for closing it.
func WithEventBroadcaster(broadcaster *events.Broadcaster) AssistantOption {
	return func(a *Assistant) {
		if broadcaster != nil {
			a.broadcaster = broadcaster
		}
	}
}

func NewAssistant(opts ...AssistantOption) (*Assistant, error) {
	a := &Assistant{
		policy:        batching.SentencePolicy(),
		queueCapacity: DefaultSpeechQueueCapacity,
		transcript:    conversations.NewTranscript(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.chat == nil {
		return nil, errors.New("chat client is required")
	}
	if a.synth == nil {
		return nil, errors.New("synthesizer is required")
	}
	if a.broadcaster == nil {
		a.broadcaster = events.NewBroadcaster()
		a.ownsBroadcaster = true
	}
	if a.systemPrompt != "" {
		a.transcript.Append(llms.MessageRoleSystem, a.systemPrompt)
	}

	return a, nil
}

// Subscribe returns the session's events, among them the playback start and
// end notifications an Animator consumes.
func (a *Assistant) Subscribe() (<-chan events.Event, func()) {
	return a.broadcaster.Subscribe()
}

func (a *Assistant) Transcript() *conversations.Transcript {
	return a.transcript
}

// Close waits for a running turn and rejects new ones.
func (a *Assistant) Close() {
	if a.closed.Swap(true) {
		return
	}

	a.turnMu.Lock()
	defer a.turnMu.Unlock()
	if a.ownsBroadcaster {
		a.broadcaster.Close()
	}
}

func (a *Assistant) publish(event events.Event) {
	a.broadcaster.Publish(event)
}

func (a *Assistant) postText(text string) {
	if a.scheduler == nil || a.surface == nil {
		return
	}
	surface := a.surface
	a.scheduler.Post(func() { surface.AppendText(text) })
}
