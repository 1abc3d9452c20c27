package lmstudio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/koscakluka/ema-avatar/core/llms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type requestBody struct {
	Model       string    `json:"model,omitempty"`
	Messages    []message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// PromptWithStream prepares a completion for the given history. Nothing is
// sent until the returned stream's Chunks are ranged over.
func (c *Client) PromptWithStream(_ context.Context, history []llms.Message) llms.Stream {
	return &Stream{
		client:   c,
		model:    c.model,
		history:  history,
		endpoint: c.baseURL + "/chat/completions",
	}
}

type Stream struct {
	client   *Client
	model    string
	history  []llms.Message
	endpoint string
}

func (s *Stream) Chunks(ctx context.Context) func(func(llms.DeltaEvent, error) bool) {
	requestToFirstTokenTime := time.Time{}
	setRequestToFirstTokenTime := func(span trace.Span) {
		if requestToFirstTokenTime.IsZero() {
			return
		}
		span.SetAttributes(attribute.Float64("response.request_to_first_token_time", time.Since(requestToFirstTokenTime).Seconds()))
		span.AddEvent("received first chunk")
		requestToFirstTokenTime = time.Time{}
	}

	return func(yield func(llms.DeltaEvent, error) bool) {
		ctx, span := tracer.Start(ctx, "prompt llm stream")
		defer span.End()
		span.SetAttributes(attribute.String("request.model", s.model))
		span.SetAttributes(attribute.Int("request.messages", len(s.history)))

		fail := func(err error) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			yield(llms.DeltaEvent{}, err)
		}

		messages, err := toMessages(s.history)
		if err != nil {
			fail(fmt.Errorf("error copying messages: %w", err))
			return
		}

		requestBodyBytes, err := json.Marshal(requestBody{
			Model:       s.model,
			Messages:    messages,
			Stream:      true,
			Temperature: s.client.temperature,
		})
		if err != nil {
			fail(fmt.Errorf("error marshalling JSON: %w", err))
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewBuffer(requestBodyBytes))
		if err != nil {
			fail(fmt.Errorf("error creating HTTP request: %w", err))
			return
		}
		s.client.newRequestHeaders(req)
		req.Header.Set("Accept", "text/event-stream")

		span.SetAttributes(attribute.String("request.url", req.URL.String()))
		requestToFirstTokenTime = time.Now()
		span.AddEvent("request started")
		resp, err := s.client.httpClient.Do(req)
		if err != nil {
			fail(&llms.TransportError{Op: "send request", Err: err})
			return
		}
		defer resp.Body.Close()

		span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
		if resp.StatusCode != http.StatusOK {
			if errorBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
				span.SetAttributes(attribute.String("response.error", string(errorBody)))
			}
			fail(&llms.TransportError{Op: "send request", StatusCode: resp.StatusCode})
			return
		}

		deltas := 0
		defer func() { span.SetAttributes(attribute.Int("response.deltas", deltas)) }()
		for delta, err := range llms.ReadDeltaEvents(resp.Body) {
			setRequestToFirstTokenTime(span)
			if err != nil {
				span.RecordError(err)
				if !yield(delta, err) {
					return
				}
				continue
			}
			deltas++
			if !yield(delta, nil) {
				return
			}
		}
	}
}
