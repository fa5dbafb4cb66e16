// Package stubapi is a local stand-in for the document-create endpoint. It
// checks that a request carries a well-formed envelope and document and
// answers with a fresh document id.
package stubapi

import (
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mailru/easyjson/jwriter"

	"github.com/mhpenta/crptapi"
)

// maxBodyBytes bounds a single request body.
const maxBodyBytes = 4 << 20

// Server answers document-create requests. It is safe for concurrent use.
type Server struct {
	logger   *slog.Logger
	latency  time.Duration
	accepted atomic.Int64
	rejected atomic.Int64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a structured logger for the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithLatency delays every answer, to make the client's in-flight requests visible.
func WithLatency(d time.Duration) Option {
	return func(s *Server) {
		s.latency = d
	}
}

// New creates a Server with no added latency, logging to slog.Default.
func New(opts ...Option) *Server {
	s := &Server{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler routes POST requests on the document-create path.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Post(crptapi.CreateDocumentPath, s.createDocument)
	return r
}

// Accepted returns the number of documents accepted so far.
func (s *Server) Accepted() int64 {
	return s.accepted.Load()
}

// Rejected returns the number of requests answered with 400.
func (s *Server) Rejected() int64 {
	return s.rejected.Load()
}

func (s *Server) createDocument(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.reject(w, r, "reading body: "+err.Error())
		return
	}

	env, err := crptapi.DecodeEnvelope(raw)
	if err != nil {
		s.reject(w, r, err.Error())
		return
	}
	if env.Type != crptapi.DocumentTypeIntroduceGoods {
		s.reject(w, r, "unsupported document type "+env.Type.String())
		return
	}
	if env.Signature == "" {
		s.reject(w, r, "missing signature")
		return
	}

	doc, err := crptapi.DecodeDocument([]byte(env.ProductDocument))
	if err != nil {
		s.reject(w, r, err.Error())
		return
	}

	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-r.Context().Done():
			return
		}
	}

	id := uuid.NewString()
	s.accepted.Add(1)
	s.logger.Info("document accepted",
		"id", id,
		"doc_id", doc.DocID,
		"products", len(doc.Products),
		"request_id", r.Header.Get("X-Request-Id"),
	)

	writeJSON(w, http.StatusOK, "value", id)
}

func (s *Server) reject(w http.ResponseWriter, r *http.Request, reason string) {
	s.rejected.Add(1)
	s.logger.Warn("document rejected",
		"reason", reason,
		"request_id", r.Header.Get("X-Request-Id"),
	)
	writeJSON(w, http.StatusBadRequest, "error_message", reason)
}

// writeJSON answers with a single-field object.
func writeJSON(w http.ResponseWriter, status int, key, value string) {
	out := jwriter.Writer{NoEscapeHTML: true}
	out.RawByte('{')
	out.String(key)
	out.RawByte(':')
	out.String(value)
	out.RawByte('}')

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = out.DumpTo(w)
}
