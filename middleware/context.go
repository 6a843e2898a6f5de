package middleware

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// ClaimsKey is the context key for admin JWT claims
	ClaimsKey contextKey = "claims"
)

// AdminClaims represents the claims carried by admin tokens.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

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

// GetClaimsFromContext retrieves admin claims from context
func GetClaimsFromContext(ctx context.Context) *AdminClaims {
	if val := ctx.Value(ClaimsKey); val != nil {
		if claims, ok := val.(*AdminClaims); ok {
			return claims
		}
	}
	return nil
}

// WithClaims adds admin claims to the context
func WithClaims(ctx context.Context, claims *AdminClaims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}
