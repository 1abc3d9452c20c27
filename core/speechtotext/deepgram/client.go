// Package deepgram recognises a single spoken utterance with Deepgram's
// streaming listen websocket API.
package deepgram

import (
	"fmt"
	"os"

	"github.com/koscakluka/ema-avatar/core/audio"
	"github.com/koscakluka/ema-avatar/core/speechtotext"
)

const defaultEndpoint = "wss://api.deepgram.com/v1/listen"

type TranscriptionClient struct {
	apiKey   string
	endpoint string
	model    string
	input    audio.Input
}

var _ speechtotext.Listener = (*TranscriptionClient)(nil)

type Option func(*TranscriptionClient)

// WithAPIKey sets the key. Without it DEEPGRAM_API_KEY is used.
func WithAPIKey(apiKey string) Option {
	return func(c *TranscriptionClient) { c.apiKey = apiKey }
}

func WithEndpoint(endpoint string) Option {
	return func(c *TranscriptionClient) { c.endpoint = endpoint }
}

func WithModel(model string) Option {
	return func(c *TranscriptionClient) { c.model = model }
}

// NewTranscriptionClient creates a client that records from input.
func NewTranscriptionClient(input audio.Input, opts ...Option) (*TranscriptionClient, error) {
	client := &TranscriptionClient{endpoint: defaultEndpoint, model: "nova-3", input: input}
	for _, opt := range opts {
		opt(client)
	}

	if client.apiKey == "" {
		apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
		if !ok {
			return nil, fmt.Errorf("deepgram api key not found")
		}
		client.apiKey = apiKey
	}
	if input == nil {
		return nil, fmt.Errorf("audio input is required")
	}
	return client, nil
}
