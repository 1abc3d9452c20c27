package llms

// MessageRole describes who a message in the conversation is from.
type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

func (r MessageRole) String() string { return string(r) }

// Message is a single role-tagged entry of the conversation history.
//
// Assistant messages hold the unfiltered model output, reasoning spans
// included.
type Message struct {
	ID      string
	Role    MessageRole
	Content string
}
