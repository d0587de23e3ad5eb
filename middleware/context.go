package middleware

import (
	"context"

	"github.com/legalrag/rag-service/auth"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// ClaimsKey is the context key for the caller's claims view
	ClaimsKey contextKey = "claims"
)

// GetRequestIDFromContext retrieves the request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetClaimsFromContext retrieves the caller's claims view from context
func GetClaimsFromContext(ctx context.Context) *auth.ClaimsContext {
	if val := ctx.Value(ClaimsKey); val != nil {
		if claims, ok := val.(*auth.ClaimsContext); ok {
			return claims
		}
	}
	return nil
}

// WithClaims adds the caller's claims view to the context
func WithClaims(ctx context.Context, claims *auth.ClaimsContext) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}
