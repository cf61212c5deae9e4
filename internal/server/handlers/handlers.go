// Package handlers implements HTTP request handlers for the relay API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dwsmith1983/actorrelay/internal/relay"
)

type contextKey string

const requestIDKey contextKey = "requestID"

// WithRequestID stores the request ID in ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the request ID from the context.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// Handlers contains all HTTP handler dependencies.
type Handlers struct {
	relay  *relay.Service
	logger *slog.Logger
}

// New creates a new Handlers instance.
func New(svc *relay.Service) *Handlers {
	return &Handlers{
		relay:  svc,
		logger: slog.Default(),
	}
}

// SetLogger overrides the default logger.
func (h *Handlers) SetLogger(l *slog.Logger) {
	if l != nil {
		h.logger = l
	}
}

// decode reads a relay request body. An empty body is an empty request.
func decode(r *http.Request) (relay.Request, error) {
	var req relay.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return relay.Request{}, err
	}
	req.RequestID = RequestIDFromContext(r.Context())
	return req, nil
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError logs the internal error and returns a sanitized JSON error to the client.
func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string, err error) {
	if err != nil {
		h.logger.Error(msg, "error", err, "status", status)
	}
	h.writeJSON(w, status, map[string]string{"error": msg})
}
