package crptapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/mhpenta/crptapi/ratelimiter"
	"github.com/mhpenta/crptapi/stats"
)

const (
	// DefaultBaseURL is the production API host.
	DefaultBaseURL = "https://ismp.crpt.ru"

	// CreateDocumentPath is the document-create endpoint path.
	CreateDocumentPath = "/api/v3/lk/documents/create"

	// DefaultEndpoint is the full document-create URL.
	DefaultEndpoint = DefaultBaseURL + CreateDocumentPath

	// DefaultHTTPTimeout bounds a single request when no HTTP client is supplied.
	DefaultHTTPTimeout = 30 * time.Second

	contentTypeJSON = "application/json"

	// slowAdmission is the wait above which a rate limit delay gets logged.
	slowAdmission = 50 * time.Millisecond
)

// Client submits documents through a shared rate limiter.
//
// A Client is safe for concurrent use. Build it once and share it: the
// ceiling only holds across calls that go through the same limiter.
type Client struct {
	limiter     ratelimiter.Limiter
	ownsLimiter bool

	httpClient *http.Client
	ownsHTTP   bool
	endpoint   string

	// Logger for structured logging
	logger *slog.Logger

	// Recorder for submission outcomes (optional)
	recorder stats.Recorder

	requestIDs bool

	// Samples "delayed by rate limit" logs so a saturated limiter does not flood them.
	waitLog rate.Sometimes
}

// Ensure Client implements DocumentCreator.
var _ DocumentCreator = (*Client)(nil)

// New creates a Client that admits every request through limiter.
// The limiter is shared, not owned: Close does not close it.
func New(limiter ratelimiter.Limiter, opts ...Option) (*Client, error) {
	if limiter == nil {
		return nil, ErrNilLimiter
	}

	c := newClient(opts)
	c.limiter = limiter
	return c, nil
}

// NewWithConfig creates a Client with its own fixed-window limiter built from cfg.
// Close stops that limiter.
func NewWithConfig(cfg ratelimiter.Config, opts ...Option) (*Client, error) {
	c := newClient(opts)

	limiter, err := ratelimiter.NewFixedWindow(cfg, ratelimiter.WithLogger(c.logger))
	if err != nil {
		return nil, err
	}
	c.limiter = limiter
	c.ownsLimiter = true
	return c, nil
}

func newClient(opts []Option) *Client {
	c := &Client{
		endpoint:   DefaultEndpoint,
		logger:     slog.Default(),
		requestIDs: true,
		waitLog:    rate.Sometimes{Interval: time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
		c.ownsHTTP = true
	}
	return c
}

// CreateDocument serializes doc, waits for a rate limit permit, and POSTs
// the envelope to the endpoint. It returns the raw response body.
//
// Errors are one of: *SerializationError (nothing was sent, no permit used),
// ratelimiter.ErrCanceled or ratelimiter.ErrClosed (no permit used), or
// *TransportError (the permit is spent). There is no retry.
func (c *Client) CreateDocument(ctx context.Context, doc *Document, signature string) (string, error) {
	start := time.Now()
	docID := ""
	if doc != nil {
		docID = doc.DocID
	}

	c.logger.Debug("starting document submission",
		"doc_id", docID,
		"products", productCount(doc),
	)

	body, err := buildBody(doc, signature)
	if err != nil {
		c.record(ctx, stats.Event{Outcome: stats.OutcomeMalformed})
		c.logger.Warn("document rejected before submission",
			"doc_id", docID,
			"error", err.Error(),
		)
		return "", err
	}

	// Check rate limit
	waitStart := time.Now()
	if err := c.limiter.Admit(ctx); err != nil {
		wait := time.Since(waitStart)
		if errors.Is(err, ratelimiter.ErrCanceled) {
			c.record(ctx, stats.Event{Outcome: stats.OutcomeCanceled, Wait: wait})
		}
		c.logger.Warn("rate limit admission failed",
			"doc_id", docID,
			"wait_ms", wait.Milliseconds(),
			"error", err.Error(),
		)
		return "", fmt.Errorf("waiting for rate limit: %w", err)
	}
	wait := time.Since(waitStart)
	c.record(ctx, stats.Event{Outcome: stats.OutcomeAdmitted, Wait: wait})
	if wait >= slowAdmission {
		c.waitLog.Do(func() {
			c.logger.Info("submission delayed by rate limit",
				"doc_id", docID,
				"wait_ms", wait.Milliseconds(),
			)
		})
	}

	response, err := c.post(ctx, body)
	duration := time.Since(start)

	if err != nil {
		c.record(ctx, stats.Event{Outcome: stats.OutcomeFailed})
		c.logger.Error("document submission failed",
			"doc_id", docID,
			"duration_ms", duration.Milliseconds(),
			"error", err.Error(),
		)
		return "", err
	}

	c.record(ctx, stats.Event{Outcome: stats.OutcomeDelivered})
	c.logger.Info("document submitted",
		"doc_id", docID,
		"duration_ms", duration.Milliseconds(),
		"wait_ms", wait.Milliseconds(),
		"response_bytes", len(response),
	)

	return response, nil
}

// Close stops the limiter and drops idle connections, each only if the
// client created it.
func (c *Client) Close() error {
	if c.ownsHTTP {
		c.httpClient.CloseIdleConnections()
	}
	if c.ownsLimiter {
		return c.limiter.Close()
	}
	return nil
}

// Limiter returns the limiter guarding this client.
func (c *Client) Limiter() ratelimiter.Limiter {
	return c.limiter
}

// buildBody encodes the document and wraps it in the envelope.
func buildBody(doc *Document, signature string) ([]byte, error) {
	docJSON, err := EncodeDocument(doc)
	if err != nil {
		return nil, err
	}
	return EncodeEnvelope(&Envelope{
		ProductDocument: string(docJSON),
		Type:            DocumentTypeIntroduceGoods,
		Signature:       signature,
	})
}

// post performs a single POST and returns the body of a 2xx answer.
func (c *Client) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	if c.requestIDs {
		req.Header.Set("X-Request-Id", uuid.NewString())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &TransportError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	return string(data), nil
}

// record is best-effort and runs even when ctx is already cancelled.
func (c *Client) record(ctx context.Context, ev stats.Event) {
	if c.recorder == nil {
		return
	}
	ev.DocType = DocumentTypeIntroduceGoods.String()
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	if err := c.recorder.Record(context.WithoutCancel(ctx), ev); err != nil {
		c.logger.Debug("failed to record submission stats",
			"outcome", string(ev.Outcome),
			"error", err.Error(),
		)
	}
}

func productCount(doc *Document) int {
	if doc == nil {
		return 0
	}
	return len(doc.Products)
}
