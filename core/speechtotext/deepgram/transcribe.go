package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-avatar/core/audio"
	"github.com/koscakluka/ema-avatar/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
)

// Listen records from the input until the speaker finishes one utterance and
// returns what was said.
func (s *TranscriptionClient) Listen(ctx context.Context, opts ...speechtotext.TranscriptionOption) (string, error) {
	options := speechtotext.TranscriptionOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	ctx, span := tracer.Start(ctx, "listen for utterance")
	defer span.End()

	encoding, err := listenEncoding(s.input.EncodingInfo())
	if err != nil {
		return "", fmt.Errorf("invalid encoding: %w", err)
	}

	conn, err := s.connectWebsocket(ctx, encoding, options.Language)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to open websocket: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	var writeMu sync.Mutex
	writeFailed := false
	chunker := newAudioChunker(encoding)
	send := func(frame []byte) {
		if writeFailed || len(frame) == 0 {
			return
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			writeFailed = true
			logger.Warn("failed to send audio to deepgram", "error", err)
		}
	}
	if err := s.input.StartCapture(func(captured []byte) {
		writeMu.Lock()
		defer writeMu.Unlock()
		for _, frame := range chunker.Add(captured) {
			send(frame)
		}
	}); err != nil {
		return "", fmt.Errorf("failed to start capture: %w", err)
	}
	captureStopped := false
	stopCapture := func() {
		if captureStopped {
			return
		}
		captureStopped = true
		if err := s.input.StopCapture(); err != nil {
			logger.Warn("failed to stop capture", "error", err)
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		send(chunker.Flush())
		span.SetAttributes(attribute.Int64("stt.audio_sent_ms", encoding.Duration(chunker.sent).Milliseconds()))
		_ = conn.WriteJSON(struct {
			Type string `json:"type"`
		}{Type: string(api.TypeCloseStreamResponse)})
	}
	defer stopCapture()

	utterance := newUtterance(options)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if transcript := utterance.transcript(); transcript != "" {
				return transcript, nil
			}
			span.RecordError(err)
			return "", fmt.Errorf("failed to read deepgram message: %w", err)
		}

		if done := utterance.processMessage(msg); done {
			stopCapture()
			transcript := utterance.transcript()
			if transcript == "" {
				return "", speechtotext.ErrNoSpeech
			}
			return transcript, nil
		}
	}
}

func (s *TranscriptionClient) connectWebsocket(ctx context.Context, encoding audio.EncodingInfo, language string) (*websocket.Conn, error) {
	listenURL, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	queryParams := listenURL.Query()
	queryParams.Set("encoding", encoding.Format.Name())
	queryParams.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", s.model)
	if language != "" {
		queryParams.Set("language", language)
	}
	queryParams.Set("smart_format", "true")
	queryParams.Set("interim_results", "true")
	queryParams.Set("utterance_end_ms", "1000")
	queryParams.Set("endpointing", "300")
	queryParams.Set("vad_events", "true")
	listenURL.RawQuery = queryParams.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, listenURL.String(),
		http.Header{"Authorization": {"Token " + s.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return conn, nil
}

// utterance accumulates final results until the speaker stops.
type utterance struct {
	options     speechtotext.TranscriptionOptions
	accumulated []string
	speaking    bool
}

func newUtterance(options speechtotext.TranscriptionOptions) *utterance {
	return &utterance{options: options}
}

func (u *utterance) transcript() string {
	return strings.TrimSpace(strings.Join(u.accumulated, " "))
}

// processMessage handles one server message and reports whether the
// utterance is complete.
func (u *utterance) processMessage(msg []byte) bool {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		logger.Debug("failed to unmarshal deepgram message", "error", err)
		return false
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Debug("failed to unmarshal deepgram results", "error", err)
			return false
		}
		transcript := ""
		if len(msgResp.Channel.Alternatives) > 0 {
			transcript = strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
		}

		if !msgResp.IsFinal {
			if transcript != "" && u.options.InterimTranscriptionCallback != nil {
				u.options.InterimTranscriptionCallback(strings.TrimSpace(u.transcript() + " " + transcript))
			}
			return false
		}
		if transcript != "" {
			u.accumulated = append(u.accumulated, transcript)
		}
		if msgResp.SpeechFinal && len(u.accumulated) > 0 {
			u.onSpeechEnded()
			return true
		}

	case api.TypeUtteranceEndResponse:
		if len(u.accumulated) > 0 {
			u.onSpeechEnded()
			return true
		}

	case api.TypeSpeechStartedResponse:
		if !u.speaking {
			u.speaking = true
			if u.options.SpeechStartedCallback != nil {
				u.options.SpeechStartedCallback()
			}
		}
	}
	return false
}

func (u *utterance) onSpeechEnded() {
	u.speaking = false
	if u.options.SpeechEndedCallback != nil {
		u.options.SpeechEndedCallback()
	}
}
