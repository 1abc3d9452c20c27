// Package lmstudio streams chat completions from an LM Studio server or any
// other OpenAI compatible chat-completions endpoint.
package lmstudio

import (
	"net/http"
	"strings"

	"github.com/koscakluka/ema-avatar/internal/utils"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const DefaultBaseURL = "http://localhost:1234/v1"

type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature *float64

	httpClient *http.Client
}

type Option func(*Client)

// WithBaseURL points the client at a different server, e.g. a remote
// endpoint like "https://api.deepseek.com/v1".
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithAPIKey sends the key as a bearer token. Local servers don't need one.
func WithAPIKey(apiKey string) Option {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

func WithTemperature(temperature float64) Option {
	return func(c *Client) {
		c.temperature = utils.Ptr(temperature)
	}
}

// WithHTTPClient replaces the default traced client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
					return operationName + " " + request.URL.Path
				}),
			),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Model() string { return c.model }

// SetModel changes the model used by completions started afterwards.
func (c *Client) SetModel(model string) { c.model = model }

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) newRequestHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
