package lmstudio

import (
	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-avatar/core/llms"
)

type message struct {
	Role    llms.MessageRole `json:"role"`
	Content string           `json:"content"`
}

func toMessages(history []llms.Message) ([]message, error) {
	messages := []message{}
	if len(history) == 0 {
		return messages, nil
	}
	if err := copier.Copy(&messages, history); err != nil {
		return nil, err
	}
	return messages, nil
}
