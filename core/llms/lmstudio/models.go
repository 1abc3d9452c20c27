package lmstudio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/koscakluka/ema-avatar/core/llms"
)

const modelsTimeout = 5 * time.Second

type modelsResponseBody struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Models lists the model ids the server has loaded.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, modelsTimeout)
	defer cancel()
	ctx, span := tracer.Start(ctx, "list llm models")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP request: %w", err)
	}
	c.newRequestHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = &llms.TransportError{Op: "list models", Err: err}
		span.RecordError(err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		err := &llms.TransportError{Op: "list models", StatusCode: resp.StatusCode}
		span.RecordError(err)
		return nil, err
	}

	var body modelsResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("error unmarshalling models: %w", err)
	}

	models := make([]string, 0, len(body.Data))
	for _, model := range body.Data {
		models = append(models, model.ID)
	}
	return models, nil
}

// DefaultModel returns the configured model, or the first model the server
// reports when none is configured.
func (c *Client) DefaultModel(ctx context.Context) (string, error) {
	if c.model != "" {
		return c.model, nil
	}
	models, err := c.Models(ctx)
	if err != nil {
		return "", err
	}
	if len(models) == 0 {
		return "", fmt.Errorf("server at %s has no models loaded", c.baseURL)
	}
	logger.Info("no model configured, using first model reported by server", "model", models[0])
	return models[0], nil
}
