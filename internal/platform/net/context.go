// Package net provides utilities for working with request contexts
package net

import (
	"context"

	"scorekeeper/internal/platform/logger"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// WithRequestID stores reqID where chi's RequestID middleware would
func WithRequestID(ctx context.Context, reqID string) context.Context {
	if reqID == "" {
		return ctx
	}
	return context.WithValue(ctx, chimw.RequestIDKey, reqID)
}

// RequestID returns the request id on the context if present
func RequestID(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// Annotate copies the request id into the logger context
func Annotate(ctx context.Context) context.Context {
	return logger.WithRequestID(ctx, RequestID(ctx))
}
