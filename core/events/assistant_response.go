package events

const (
	// KindAssistantResponseSegment identifies streamed visible response text.
	KindAssistantResponseSegment Kind = "assistant_response.segment"
	// KindAssistantResponseFinal identifies assistant response stream completion.
	KindAssistantResponseFinal Kind = "assistant_response.final"
)

// AssistantResponseSegment carries visible response text in stream order.
type AssistantResponseSegment struct {
	Base
	TurnID  string
	Segment string
}

// NewAssistantResponseSegment creates an assistant response segment event.
func NewAssistantResponseSegment(turnID, segment string) AssistantResponseSegment {
	return AssistantResponseSegment{Base: NewBase(KindAssistantResponseSegment), TurnID: turnID, Segment: segment}
}

// AssistantResponseFinal marks the end of the response stream. Response is
// the unfiltered text, reasoning included.
type AssistantResponseFinal struct {
	Base
	TurnID   string
	Response string
}

// NewAssistantResponseFinal creates an assistant response final event.
func NewAssistantResponseFinal(turnID, response string) AssistantResponseFinal {
	return AssistantResponseFinal{Base: NewBase(KindAssistantResponseFinal), TurnID: turnID, Response: response}
}
