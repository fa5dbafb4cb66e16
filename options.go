package crptapi

import (
	"log/slog"
	"net/http"

	"github.com/mhpenta/crptapi/stats"
)

// Option configures the Client.
type Option func(*Client)

// WithLogger sets a structured logger for the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithEndpoint overrides the document-create URL, e.g. for a sandbox or a local stub.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithHTTPClient sets the HTTP client. Its Timeout bounds each request.
// The client is shared: Close leaves its connections alone. Nil is ignored.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRecorder sets a sink for submission outcomes.
func WithRecorder(recorder stats.Recorder) Option {
	return func(c *Client) {
		c.recorder = recorder
	}
}

// WithRequestIDs controls whether each request carries a fresh X-Request-Id header. On by default.
func WithRequestIDs(enabled bool) Option {
	return func(c *Client) {
		c.requestIDs = enabled
	}
}
