// Package deepgram speaks text with Deepgram's streaming text-to-speech
// websocket API and plays the audio on an [audio.Output].
package deepgram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-avatar/core/audio"
	"github.com/koscakluka/ema-avatar/core/texttospeech"
)

const defaultEndpoint = "wss://api.deepgram.com/v1/speak"

type TextToSpeechClient struct {
	apiKey   string
	endpoint string
	output   audio.Output

	ws      *websocket.Conn
	wsVoice deepgramVoice
	mu      sync.Mutex
}

var _ texttospeech.Synthesizer = (*TextToSpeechClient)(nil)

type Option func(*TextToSpeechClient)

// WithAPIKey sets the key. Without it DEEPGRAM_API_KEY is used.
func WithAPIKey(apiKey string) Option {
	return func(c *TextToSpeechClient) { c.apiKey = apiKey }
}

// WithEndpoint replaces the websocket endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *TextToSpeechClient) { c.endpoint = endpoint }
}

// NewTextToSpeechClient creates a client that plays speech on output. The
// connection is opened on the first Speak.
func NewTextToSpeechClient(output audio.Output, opts ...Option) (*TextToSpeechClient, error) {
	client := &TextToSpeechClient{endpoint: defaultEndpoint, output: output}
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
	if output == nil {
		return nil, fmt.Errorf("audio output is required")
	}

	return client, nil
}

// encoding is what the output plays, which is what Deepgram is asked for.
func (c *TextToSpeechClient) encoding() audio.EncodingInfo {
	if info := c.output.EncodingInfo(); !info.IsZero() {
		return info
	}
	return audio.DefaultEncodingInfo()
}

func (c *TextToSpeechClient) connectWebsocket(ctx context.Context, voice deepgramVoice) (*websocket.Conn, error) {
	encodingInfo := c.encoding()

	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	urlValues := endpoint.Query()
	urlValues.Set("encoding", encodingInfo.Format.Name())
	urlValues.Set("sample_rate", strconv.Itoa(encodingInfo.SampleRate))
	urlValues.Set("model", string(voice))
	urlValues.Set("container", "none")
	endpoint.RawQuery = urlValues.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(),
		http.Header{"Authorization": {"token " + c.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

// Close ends the connection. A later Speak reconnects.
func (c *TextToSpeechClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeConn()
}

func (c *TextToSpeechClient) closeConn() error {
	if c.ws == nil {
		return nil
	}
	_ = c.ws.WriteJSON(closeMsg)
	err := c.ws.Close()
	c.ws = nil
	return err
}
