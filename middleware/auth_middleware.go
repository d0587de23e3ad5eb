package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/legalrag/rag-service/auth"
	"github.com/legalrag/rag-service/utils"
)

// TokenValidator defines the interface for validating bearer tokens. The
// concrete implementation performs signature/issuer/audience checks and
// yields the caller's claims view.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*auth.ClaimsContext, error)
}

// AuthMiddleware provides authentication and policy middleware
type AuthMiddleware struct {
	validator  TokenValidator
	policy     auth.PolicyConfig
	bypassAuth bool
	logger     *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware. bypassAuth must only ever
// be true in development (config.BypassAuth enforces this).
func NewAuthMiddleware(validator TokenValidator, policy auth.PolicyConfig, bypassAuth bool, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator:  validator,
		policy:     policy,
		bypassAuth: bypassAuth,
		logger:     logger,
	}
}

// RequireAuth requires a valid bearer token and stores the caller's claims
// view in the request context. A missing credential is surfaced as 401,
// distinct from the 403 a policy denial produces.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token := extractBearerToken(r)
		if token == "" {
			if m.bypassAuth {
				next.ServeHTTP(w, r)
				return
			}
			m.logger.Warn("missing token",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		claims, err := m.validator.ValidateToken(ctx, token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(ctx, claims)))
	})
}

// RequireAppPolicy evaluates the application-caller policy against the
// claims stored by RequireAuth. The denial reason is logged, never echoed.
func (m *AuthMiddleware) RequireAppPolicy(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		claims := GetClaimsFromContext(ctx)
		if claims == nil {
			if m.bypassAuth {
				next.ServeHTTP(w, r)
				return
			}
			m.logger.Error("claims not found in context",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		decision := auth.Evaluate(*claims, m.policy)
		if !decision.Allowed {
			m.logger.Warn("policy denied request",
				zap.String("request_id", requestID),
				zap.String("app_id", claims.AppID),
				zap.String("reason", decision.Reason))
			_ = utils.WriteForbidden(w, "Access forbidden")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
