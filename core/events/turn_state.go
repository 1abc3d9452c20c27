package events

const (
	// KindTurnStarted identifies the start of a turn.
	KindTurnStarted Kind = "turn_state.started"
	// KindTurnCompleted identifies a turn whose response stream ended normally.
	KindTurnCompleted Kind = "turn_state.completed"
	// KindTurnFailed identifies a turn ended by a transport failure.
	KindTurnFailed Kind = "turn_state.failed"
)

// TurnStarted marks the start of a turn.
type TurnStarted struct {
	Base
	TurnID string
	Prompt string
}

// NewTurnStarted creates a turn started event.
func NewTurnStarted(turnID, prompt string) TurnStarted {
	return TurnStarted{Base: NewBase(KindTurnStarted), TurnID: turnID, Prompt: prompt}
}

// TurnCompleted marks a turn that was fully streamed and spoken.
type TurnCompleted struct {
	Base
	TurnID string
}

// NewTurnCompleted creates a turn completed event.
func NewTurnCompleted(turnID string) TurnCompleted {
	return TurnCompleted{Base: NewBase(KindTurnCompleted), TurnID: turnID}
}

// TurnFailed marks a turn that ended early.
type TurnFailed struct {
	Base
	TurnID string
	Err    error
}

// NewTurnFailed creates a turn failed event.
func NewTurnFailed(turnID string, err error) TurnFailed {
	return TurnFailed{Base: NewBase(KindTurnFailed), TurnID: turnID, Err: err}
}
