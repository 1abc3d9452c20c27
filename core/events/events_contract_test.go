package events

import (
	"errors"
	"testing"
	"time"
)

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "user speech started", event: NewUserSpeechStarted(), expected: KindUserSpeechStarted},
		{name: "user speech ended", event: NewUserSpeechEnded(), expected: KindUserSpeechEnded},
		{name: "user transcript interim", event: NewUserTranscriptInterim("text"), expected: KindUserTranscriptInterim},
		{name: "user transcript final", event: NewUserTranscriptFinal("text"), expected: KindUserTranscriptFinal},
		{name: "assistant response segment", event: NewAssistantResponseSegment("turn", "seg"), expected: KindAssistantResponseSegment},
		{name: "assistant response final", event: NewAssistantResponseFinal("turn", "text"), expected: KindAssistantResponseFinal},
		{name: "assistant playback started", event: NewAssistantPlaybackStarted("turn", "text"), expected: KindAssistantPlaybackStarted},
		{name: "assistant playback ended", event: NewAssistantPlaybackEnded("turn", "text", nil), expected: KindAssistantPlaybackEnded},
		{name: "turn started", event: NewTurnStarted("turn", "prompt"), expected: KindTurnStarted},
		{name: "turn completed", event: NewTurnCompleted("turn"), expected: KindTurnCompleted},
		{name: "turn failed", event: NewTurnFailed("turn", errors.New("boom")), expected: KindTurnFailed},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
			if testCase.event.Timestamp().IsZero() {
				t.Fatalf("expected timestamp to be set")
			}
		})
	}
}

func TestBroadcasterDeliversInPublishOrderToEverySubscriber(t *testing.T) {
	b := NewBroadcaster()
	first, unsubscribeFirst := b.Subscribe()
	defer unsubscribeFirst()
	second, unsubscribeSecond := b.Subscribe()
	defer unsubscribeSecond()

	b.Publish(NewAssistantPlaybackStarted("turn", "one"))
	b.Publish(NewAssistantPlaybackEnded("turn", "one", nil))

	for _, events := range []<-chan Event{first, second} {
		if got := (<-events).Kind(); got != KindAssistantPlaybackStarted {
			t.Fatalf("expected started first, got %q", got)
		}
		if got := (<-events).Kind(); got != KindAssistantPlaybackEnded {
			t.Fatalf("expected ended second, got %q", got)
		}
	}
}

func TestBroadcasterUnsubscribeClosesChannelAndUnblocksPublisher(t *testing.T) {
	b := NewBroadcaster(WithSubscriberBuffer(0))
	events, unsubscribe := b.Subscribe()

	published := make(chan struct{})
	go func() {
		b.Publish(NewTurnStarted("turn", "prompt"))
		close(published)
	}()

	time.Sleep(10 * time.Millisecond)
	unsubscribe()
	unsubscribe()

	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatalf("expected publish to return after unsubscribe")
	}

	for range events {
	}
}

func TestBroadcasterCloseEndsSubscriptions(t *testing.T) {
	b := NewBroadcaster()
	events, unsubscribe := b.Subscribe()
	b.Close()
	unsubscribe()

	if _, ok := <-events; ok {
		t.Fatalf("expected closed channel after Close")
	}

	b.Publish(NewTurnCompleted("turn"))

	late, _ := b.Subscribe()
	if _, ok := <-late; ok {
		t.Fatalf("expected subscription after Close to be closed")
	}
}
