package llms

import "context"

// DeltaEvent is one increment of streamed model output. Deltas are only
// meaningful in arrival order.
type DeltaEvent struct {
	Content string
}

// Stream is a single in-flight completion.
//
// Chunks issues the request and yields deltas in arrival order. Errors
// wrapping [ErrMalformedEvent] are recoverable and followed by further deltas;
// any other error is terminal and ends the sequence.
type Stream interface {
	Chunks(context.Context) func(func(DeltaEvent, error) bool)
}

// ChatClient starts streamed completions for a conversation history.
type ChatClient interface {
	PromptWithStream(ctx context.Context, messages []Message) Stream
}
