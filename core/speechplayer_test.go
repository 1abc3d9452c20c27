package orchestration

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/koscakluka/ema-avatar/core/batching"
	"github.com/koscakluka/ema-avatar/core/events"
	"github.com/koscakluka/ema-avatar/core/texttospeech"
)

func playBatches(t *testing.T, player *speechPlayer, batches ...string) {
	t.Helper()
	player.Start(context.Background())
	for _, batch := range batches {
		if err := player.Enqueue(context.Background(), batching.Batch(batch)); err != nil {
			t.Fatalf("expected enqueue to succeed, got %v", err)
		}
	}
	player.SignalEndOfTurn()
	if err := player.Wait(); err != nil {
		t.Fatalf("expected speech player to exit cleanly, got %v", err)
	}
}

func TestSpeechPlayerNeverStartsBatchBeforePreviousEnded(t *testing.T) {
	synth := &recordingSynthesizer{delay: 5 * time.Millisecond}
	recorder := &eventRecorder{}
	player := newSpeechPlayer("turn", synth, texttospeech.Voice{}, 1, recorder.publish)

	playBatches(t, player, "One.", "Two.", "Three.")

	recorded := recorder.recorded()
	if len(recorded) != 6 {
		t.Fatalf("expected 6 playback events, got %d", len(recorded))
	}
	want := []string{"One.", "Two.", "Three."}
	for i, event := range recorded {
		switch e := event.(type) {
		case events.AssistantPlaybackStarted:
			if i%2 != 0 {
				t.Fatalf("expected start at even position, got %d", i)
			}
			if e.Text != want[i/2] {
				t.Fatalf("expected start of %q, got %q", want[i/2], e.Text)
			}
		case events.AssistantPlaybackEnded:
			if i%2 != 1 {
				t.Fatalf("expected end at odd position, got %d", i)
			}
			if e.Text != want[i/2] {
				t.Fatalf("expected end of %q, got %q", want[i/2], e.Text)
			}
		default:
			t.Fatalf("unexpected event %T", event)
		}
	}
	if synth.maxInFlight != 1 {
		t.Fatalf("expected synthesis calls not to overlap, got %d in flight", synth.maxInFlight)
	}
	if player.State() != PlaybackIdle {
		t.Fatalf("expected player to be idle after the turn, got %s", player.State())
	}
}

func TestSpeechPlayerContinuesAfterSynthesisFailure(t *testing.T) {
	synthErr := errors.New("engine unavailable")
	synth := &recordingSynthesizer{fail: func(text string) error {
		if text == "Two." {
			return synthErr
		}
		return nil
	}}
	recorder := &eventRecorder{}
	player := newSpeechPlayer("turn", synth, texttospeech.Voice{}, 4, recorder.publish)

	playBatches(t, player, "One.", "Two.", "Three.")

	if got := strings.Join(synth.spoken(), " "); got != "One. Two. Three." {
		t.Fatalf("expected every batch to be attempted, got %q", got)
	}

	var ended []events.AssistantPlaybackEnded
	for _, event := range recorder.recorded() {
		if e, ok := event.(events.AssistantPlaybackEnded); ok {
			ended = append(ended, e)
		}
	}
	if len(ended) != 3 {
		t.Fatalf("expected 3 end notifications, got %d", len(ended))
	}
	var synthesisErr *texttospeech.SynthesisError
	if !errors.As(ended[1].Err, &synthesisErr) || !errors.Is(ended[1].Err, synthErr) {
		t.Fatalf("expected synthesis error on the failed batch, got %v", ended[1].Err)
	}
	if ended[0].Err != nil || ended[2].Err != nil {
		t.Fatalf("expected other batches to succeed, got %v and %v", ended[0].Err, ended[2].Err)
	}
}

func TestSpeechPlayerRecoversFromPanickingSynthesizer(t *testing.T) {
	recorder := &eventRecorder{}
	calls := 0
	synth := texttospeech.SynthesizerFunc(func(context.Context, string, texttospeech.Voice) error {
		calls++
		if calls == 1 {
			panic("boom")
		}
		return nil
	})
	player := newSpeechPlayer("turn", synth, texttospeech.Voice{}, 2, recorder.publish)

	playBatches(t, player, "One.", "Two.")

	if calls != 2 {
		t.Fatalf("expected the second batch to be spoken after a panic, got %d calls", calls)
	}
	if len(recorder.recorded()) != 4 {
		t.Fatalf("expected 4 playback events, got %d", len(recorder.recorded()))
	}
}

func TestSpeechPlayerSkipsBatchesWithoutSpeakableText(t *testing.T) {
	synth := &recordingSynthesizer{}
	recorder := &eventRecorder{}
	player := newSpeechPlayer("turn", synth, texttospeech.Voice{}, 2, recorder.publish)

	playBatches(t, player, "**", "Hi.")

	if got := synth.spoken(); len(got) != 1 || got[0] != "Hi." {
		t.Fatalf("expected only %q to be spoken, got %q", "Hi.", got)
	}
	if len(recorder.recorded()) != 2 {
		t.Fatalf("expected notifications only for the spoken batch, got %d", len(recorder.recorded()))
	}
}

func TestSpeechPlayerEnqueueBlocksWhileQueueIsFull(t *testing.T) {
	player := newSpeechPlayer("turn", &recordingSynthesizer{}, texttospeech.Voice{}, 1, nil)

	if err := player.Enqueue(context.Background(), "One."); err != nil {
		t.Fatalf("expected first enqueue to succeed, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := player.Enqueue(ctx, "Two."); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected enqueue to block until the deadline, got %v", err)
	}
}

func TestSpeechPlayerDiscardsQueuedBatchesAfterCancellation(t *testing.T) {
	synth := &recordingSynthesizer{}
	player := newSpeechPlayer("turn", synth, texttospeech.Voice{}, 2, nil)
	for _, batch := range []batching.Batch{"One.", "Two."} {
		if err := player.Enqueue(context.Background(), batch); err != nil {
			t.Fatalf("expected enqueue to succeed, got %v", err)
		}
	}
	player.SignalEndOfTurn()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	player.Start(ctx)
	if err := player.Wait(); err != nil {
		t.Fatalf("expected clean exit, got %v", err)
	}
	if len(synth.spoken()) != 0 {
		t.Fatalf("expected nothing to be spoken after cancellation, got %q", synth.spoken())
	}
}

func TestSpeechPlayerEndOfTurnIsIdempotent(t *testing.T) {
	player := newSpeechPlayer("turn", &recordingSynthesizer{}, texttospeech.Voice{}, 1, nil)
	player.SignalEndOfTurn()
	player.SignalEndOfTurn()

	if err := player.Enqueue(context.Background(), "Late."); !errors.Is(err, errSpeechQueueClosed) {
		t.Fatalf("expected enqueue after end of turn to fail, got %v", err)
	}
}
