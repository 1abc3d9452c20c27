package events

const (
	// KindAssistantPlaybackStarted identifies the start of one spoken batch.
	KindAssistantPlaybackStarted Kind = "assistant_playback.started"
	// KindAssistantPlaybackEnded identifies the end of one spoken batch.
	KindAssistantPlaybackEnded Kind = "assistant_playback.ended"
)

// AssistantPlaybackStarted is published immediately before a batch is handed
// to the synthesizer.
type AssistantPlaybackStarted struct {
	Base
	TurnID string
	Text   string
}

// NewAssistantPlaybackStarted creates an assistant playback started event.
func NewAssistantPlaybackStarted(turnID, text string) AssistantPlaybackStarted {
	return AssistantPlaybackStarted{Base: NewBase(KindAssistantPlaybackStarted), TurnID: turnID, Text: text}
}

// AssistantPlaybackEnded is published immediately after the synthesizer
// returned for a batch. Err is set when synthesis of the batch failed; the
// event is published either way.
type AssistantPlaybackEnded struct {
	Base
	TurnID string
	Text   string
	Err    error
}

// NewAssistantPlaybackEnded creates an assistant playback ended event.
func NewAssistantPlaybackEnded(turnID, text string, err error) AssistantPlaybackEnded {
	return AssistantPlaybackEnded{Base: NewBase(KindAssistantPlaybackEnded), TurnID: turnID, Text: text, Err: err}
}
