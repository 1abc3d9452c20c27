// Package conversations keeps the conversation history of a session.
package conversations

import (
	"sync"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-avatar/core/llms"
)

// Transcript is the append-only, role-tagged history of a session. It is safe
// for concurrent use.
type Transcript struct {
	mu       sync.RWMutex
	messages []llms.Message
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append records a message and returns it with its assigned id.
func (t *Transcript) Append(role llms.MessageRole, content string) llms.Message {
	message := llms.Message{ID: uuid.NewString(), Role: role, Content: content}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, message)
	return message
}

// Messages returns a copy of the history, oldest first.
func (t *Transcript) Messages() []llms.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	messages := make([]llms.Message, len(t.messages))
	copy(messages, t.messages)
	return messages
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Last returns the most recent message.
func (t *Transcript) Last() (llms.Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.messages) == 0 {
		return llms.Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}
