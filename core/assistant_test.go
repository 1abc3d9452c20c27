package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/ema-avatar/core/llms"
	"github.com/koscakluka/ema-avatar/core/ui"
	"github.com/koscakluka/ema-avatar/core/video"
)

func newTestAssistant(t *testing.T, chat llms.ChatClient, synth *recordingSynthesizer, opts ...AssistantOption) (*Assistant, *ui.Loop, *recordingSurface) {
	t.Helper()
	loop := ui.NewLoop()
	surface := &recordingSurface{}
	opts = append([]AssistantOption{
		WithChatClient(chat),
		WithSynthesizer(synth),
		WithUI(loop, surface),
	}, opts...)
	assistant, err := NewAssistant(opts...)
	if err != nil {
		t.Fatalf("expected assistant to be created, got %v", err)
	}
	t.Cleanup(assistant.Close)
	return assistant, loop, surface
}

func TestSendPromptSplitsVisibleAndUnfilteredText(t *testing.T) {
	chat := newStubChatClient("<th", "ink>hidden</think>Hello, ", "world!")
	synth := &recordingSynthesizer{}
	assistant, loop, surface := newTestAssistant(t, chat, synth)

	response, err := assistant.SendPrompt(context.Background(), "Hi")
	if err != nil {
		t.Fatalf("expected turn to succeed, got %v", err)
	}
	loop.RunPending()

	if got := surface.shownText(); got != "Hello, world!" {
		t.Fatalf("expected displayed text %q, got %q", "Hello, world!", got)
	}
	if got := strings.Join(synth.spoken(), ""); got != "Hello, world!" {
		t.Fatalf("expected spoken text %q, got %q", "Hello, world!", got)
	}
	if response.Content != "<think>hidden</think>Hello, world!" {
		t.Fatalf("expected unfiltered response, got %q", response.Content)
	}
	if response.Role != llms.MessageRoleAssistant || response.ID == "" {
		t.Fatalf("expected assistant message with id, got %+v", response)
	}

	messages := assistant.Transcript().Messages()
	if len(messages) != 2 {
		t.Fatalf("expected user and assistant messages, got %d", len(messages))
	}
	if messages[0].Role != llms.MessageRoleUser || messages[0].Content != "Hi" {
		t.Fatalf("expected user prompt first, got %+v", messages[0])
	}
	if messages[1].Content != "<think>hidden</think>Hello, world!" {
		t.Fatalf("expected unfiltered transcript entry, got %q", messages[1].Content)
	}
}

func TestSendPromptSendsSystemPromptAndHistory(t *testing.T) {
	chat := newStubChatClient("Gut.")
	assistant, _, _ := newTestAssistant(t, chat, &recordingSynthesizer{},
		WithSystemPrompt("Antworte auf Deutsch."))

	if _, err := assistant.SendPrompt(context.Background(), "Wie geht's?"); err != nil {
		t.Fatalf("expected first turn to succeed, got %v", err)
	}
	if _, err := assistant.SendPrompt(context.Background(), "Und dir?"); err != nil {
		t.Fatalf("expected second turn to succeed, got %v", err)
	}

	history := chat.lastHistory()
	roles := make([]string, 0, len(history))
	for _, message := range history {
		roles = append(roles, message.Role.String())
	}
	if got := strings.Join(roles, ","); got != "system,user,assistant,user" {
		t.Fatalf("unexpected history roles: %s", got)
	}
	if history[3].Content != "Und dir?" {
		t.Fatalf("expected latest prompt last, got %q", history[3].Content)
	}
}

func TestSendPromptTransportFailureEndsSpeechAndLeavesAnimatorIdle(t *testing.T) {
	transportErr := &llms.TransportError{Op: "read streamed response", Err: errors.New("connection reset")}
	chat := &stubChatClient{items: []streamItem{{content: "Hallo. "}, {content: "Und"}, {err: transportErr}}}
	synth := &recordingSynthesizer{}
	assistant, loop, surface := newTestAssistant(t, chat, synth)

	still := newNamedImage("still")
	frames := video.NewFrameBuffer(2)
	frames.Push(newNamedImage("frame"))
	animator := NewAnimator(loop, surface, WithStillFrame(still), WithFrameBuffer(frames))
	playback, unsubscribe := assistant.Subscribe()
	done := runAnimator(animator, playback)

	_, err := assistant.SendPrompt(context.Background(), "Hi")
	var gotTransportErr *llms.TransportError
	if !errors.As(err, &gotTransportErr) {
		t.Fatalf("expected transport error, got %v", err)
	}

	unsubscribe()
	<-done
	loop.RunPending()

	if got := strings.Join(synth.spoken(), " "); got != "Hallo. Und" {
		t.Fatalf("expected queued speech to finish, got %q", got)
	}
	if !strings.Contains(surface.shownText(), "[Fehler:") {
		t.Fatalf("expected inline error, got %q", surface.shownText())
	}
	if assistant.Transcript().Len() != 0 {
		t.Fatalf("expected failed turn to leave the transcript unchanged, got %d messages", assistant.Transcript().Len())
	}
	if frames.Len() != 0 {
		t.Fatalf("expected animator to have looped during speech")
	}
	if animator.State() != AnimationIdle || surface.lastImage() != still {
		t.Fatalf("expected animator to end idle on the still frame, got %s", animator.State())
	}
}

func TestSendPromptSkipsMalformedEvents(t *testing.T) {
	chat := &stubChatClient{items: []streamItem{
		{content: "Eins. "},
		{err: fmt.Errorf("%w: unexpected end of JSON input", llms.ErrMalformedEvent)},
		{content: "Zwei."},
	}}
	synth := &recordingSynthesizer{}
	assistant, _, _ := newTestAssistant(t, chat, synth)

	response, err := assistant.SendPrompt(context.Background(), "Zähl")
	if err != nil {
		t.Fatalf("expected malformed events to be skipped, got %v", err)
	}
	if response.Content != "Eins. Zwei." {
		t.Fatalf("unexpected response %q", response.Content)
	}
	if got := synth.spoken(); len(got) != 2 {
		t.Fatalf("expected two spoken batches, got %q", got)
	}
}

func TestSendPromptDoesNotSpeakMarkupOnlyBatches(t *testing.T) {
	chat := newStubChatClient("**\n", "Hi.")
	synth := &recordingSynthesizer{}
	assistant, _, _ := newTestAssistant(t, chat, synth)

	if _, err := assistant.SendPrompt(context.Background(), "Hi"); err != nil {
		t.Fatalf("expected turn to succeed, got %v", err)
	}
	if got := synth.spoken(); len(got) != 1 || got[0] != "Hi." {
		t.Fatalf("expected only %q to be spoken, got %q", "Hi.", got)
	}
}

func TestSendPromptSerialisesTurns(t *testing.T) {
	chat := newStubChatClient("Eins. ", "Zwei. ", "Drei.")
	synth := &recordingSynthesizer{delay: 2 * time.Millisecond}
	assistant, _, _ := newTestAssistant(t, chat, synth, WithSpeechQueueCapacity(1))

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := assistant.SendPrompt(context.Background(), "Zähl"); err != nil {
				t.Errorf("expected turn to succeed, got %v", err)
			}
		}()
	}
	wg.Wait()

	if len(synth.spoken()) != 9 {
		t.Fatalf("expected 9 spoken batches, got %d", len(synth.spoken()))
	}
	if synth.maxInFlight != 1 {
		t.Fatalf("expected utterances never to overlap, got %d in flight", synth.maxInFlight)
	}
	if assistant.Transcript().Len() != 6 {
		t.Fatalf("expected 6 transcript messages, got %d", assistant.Transcript().Len())
	}
}

func TestSendPromptAfterCloseFails(t *testing.T) {
	assistant, _, _ := newTestAssistant(t, newStubChatClient("Hi."), &recordingSynthesizer{})
	assistant.Close()

	if _, err := assistant.SendPrompt(context.Background(), "Hi"); !errors.Is(err, ErrAssistantClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
}

func TestNewAssistantRequiresCollaborators(t *testing.T) {
	if _, err := NewAssistant(WithSynthesizer(&recordingSynthesizer{})); err == nil {
		t.Fatalf("expected missing chat client to fail")
	}
	if _, err := NewAssistant(WithChatClient(newStubChatClient())); err == nil {
		t.Fatalf("expected missing synthesizer to fail")
	}
}
