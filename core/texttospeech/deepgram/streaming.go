package deepgram

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-avatar/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
)

type websocketMessage struct {
	Type string `json:"type"`
}

type speakMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

var (
	flushMsg = websocketMessage{Type: "Flush"}
	closeMsg = websocketMessage{Type: "Close"}
)

// Speak sends text, plays the returned audio and waits until the output has
// played it. Calls are serialised.
func (c *TextToSpeechClient) Speak(ctx context.Context, text string, voice texttospeech.Voice) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, span := tracer.Start(ctx, "deepgram speak")
	defer span.End()

	fail := func(err error) error {
		span.RecordError(err)
		// The connection state is unknown after a failure, start fresh next time.
		_ = c.closeConn()
		return &texttospeech.SynthesisError{Text: text, Err: err}
	}

	model := resolveVoice(voice)
	span.SetAttributes(attribute.String("tts.voice", string(model)))
	if c.ws != nil && c.wsVoice != model {
		_ = c.closeConn()
	}
	if c.ws == nil {
		ws, err := c.connectWebsocket(ctx, model)
		if err != nil {
			return fail(err)
		}
		c.ws, c.wsVoice = ws, model
	}

	ws := c.ws
	stop := context.AfterFunc(ctx, func() { _ = ws.Close() })
	defer stop()

	if err := ws.WriteJSON(speakMessage{Type: "Speak", Text: text}); err != nil {
		return fail(fmt.Errorf("failed to send text: %w", err))
	}
	if err := ws.WriteJSON(flushMsg); err != nil {
		return fail(fmt.Errorf("failed to flush text: %w", err))
	}

	audioBytes := 0
	for {
		msgType, msg, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			return fail(fmt.Errorf("failed to read speech: %w", err))
		}

		switch msgType {
		case websocket.BinaryMessage:
			audioBytes += len(msg)
			if err := c.output.SendAudio(msg); err != nil {
				return fail(fmt.Errorf("failed to play speech: %w", err))
			}
		case websocket.TextMessage:
			var parsedMsg struct {
				Type        string `json:"type"`
				Description string `json:"description"`
			}
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				logger.Debug("failed to unmarshal deepgram message", "error", err)
				continue
			}

			switch parsedMsg.Type {
			case "Flushed":
				span.SetAttributes(
					attribute.Int("tts.audio_bytes", audioBytes),
					attribute.Int64("tts.audio_ms", c.encoding().Duration(audioBytes).Milliseconds()),
				)
				if err := c.output.AwaitMark(); err != nil {
					return fail(fmt.Errorf("failed to await playback: %w", err))
				}
				return nil
			case "Warning":
				logger.Warn("deepgram warning", "description", parsedMsg.Description)
			case "Error":
				return fail(fmt.Errorf("deepgram error: %s", parsedMsg.Description))
			}
		}
	}
}
