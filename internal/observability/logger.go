// Package observability provides structured logging helpers for request
// handling. Every handler creates a RequestContext so log lines across one
// session transition share a request ID.
package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// LogFieldRequestID is the field name for the request ID.
	LogFieldRequestID = "request_id"
	// LogFieldConversationID is the field name for the conversation ID.
	LogFieldConversationID = "conversation_id"
	// LogFieldStep is the field name for the session step being handled.
	LogFieldStep = "step"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
	// LogFieldErrorCode is the field name for the error code.
	LogFieldErrorCode = "error_code"
)

// RequestContext carries per-request logging state.
type RequestContext struct {
	RequestID      string
	ConversationID int32
	Step           string
	StartTime      time.Time
	Logger         *slog.Logger
}

// NewRequestContext creates a request context with a generated request ID.
// A zero conversation ID means the conversation does not exist yet.
func NewRequestContext(logger *slog.Logger, step string, conversationID int32) *RequestContext {
	return &RequestContext{
		RequestID:      uuid.New().String(),
		ConversationID: conversationID,
		Step:           step,
		StartTime:      time.Now(),
		Logger:         logger,
	}
}

// Info logs an info message with the request attributes.
func (r *RequestContext) Info(msg string, attrs ...slog.Attr) {
	r.Logger.LogAttrs(context.Background(), slog.LevelInfo, msg, r.combined(attrs...)...)
}

// Warn logs a warning message with the request attributes.
func (r *RequestContext) Warn(msg string, attrs ...slog.Attr) {
	r.Logger.LogAttrs(context.Background(), slog.LevelWarn, msg, r.combined(attrs...)...)
}

// Error logs an error message with the request attributes and the error.
func (r *RequestContext) Error(msg string, err error, attrs ...slog.Attr) {
	attrs = append(attrs, slog.String("error", err.Error()))
	r.Logger.LogAttrs(context.Background(), slog.LevelError, msg, r.combined(attrs...)...)
}

// DurationMs returns the elapsed time since the request started in milliseconds.
func (r *RequestContext) DurationMs() int64 {
	return time.Since(r.StartTime).Milliseconds()
}

func (r *RequestContext) combined(attrs ...slog.Attr) []slog.Attr {
	base := []slog.Attr{
		slog.String(LogFieldRequestID, r.RequestID),
		slog.String(LogFieldStep, r.Step),
	}
	if r.ConversationID != 0 {
		base = append(base, slog.Int64(LogFieldConversationID, int64(r.ConversationID)))
	}
	return append(base, attrs...)
}

type ctxKey struct{}

// WithRequestContext attaches the request context to the context.
func WithRequestContext(ctx context.Context, reqCtx *RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, reqCtx)
}

// FromContext extracts the request context, if any.
func FromContext(ctx context.Context) (*RequestContext, bool) {
	reqCtx, ok := ctx.Value(ctxKey{}).(*RequestContext)
	return reqCtx, ok
}
