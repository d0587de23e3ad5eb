package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/legalrag/rag-service/auth"
)

type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) ValidateToken(ctx context.Context, token string) (*auth.ClaimsContext, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.ClaimsContext), args.Error(1)
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func testPolicy() auth.PolicyConfig {
	return auth.PolicyConfig{
		RequiredRole:  "Api.Access",
		AllowedAppIDs: []string{"allowed-app"},
	}
}

func allowedClaims() *auth.ClaimsContext {
	return &auth.ClaimsContext{
		Authenticated: true,
		Roles:         []string{"Api.Access"},
		AppID:         "allowed-app",
		IdentityType:  "app",
	}
}

func TestRequireAuth_MissingToken(t *testing.T) {
	validator := new(MockTokenValidator)
	mw := NewAuthMiddleware(validator, testPolicy(), false, zap.NewNop())

	called := false
	req := httptest.NewRequest(http.MethodPost, "/ask", nil)
	rec := httptest.NewRecorder()

	mw.RequireAuth(okHandler(&called)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
	validator.AssertNotCalled(t, "ValidateToken", mock.Anything, mock.Anything)
}

func TestRequireAuth_MalformedHeader(t *testing.T) {
	validator := new(MockTokenValidator)
	mw := NewAuthMiddleware(validator, testPolicy(), false, zap.NewNop())

	tests := []struct {
		name   string
		header string
	}{
		{"no scheme", "token-without-scheme"},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"empty value", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			req := httptest.NewRequest(http.MethodPost, "/ask", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			mw.RequireAuth(okHandler(&called)).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, called)
		})
	}
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	validator := new(MockTokenValidator)
	validator.On("ValidateToken", mock.Anything, "bad-token").
		Return(nil, assert.AnError)
	mw := NewAuthMiddleware(validator, testPolicy(), false, zap.NewNop())

	called := false
	req := httptest.NewRequest(http.MethodPost, "/ask", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()

	mw.RequireAuth(okHandler(&called)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
	validator.AssertExpectations(t)
}

func TestRequireAuth_ValidToken(t *testing.T) {
	validator := new(MockTokenValidator)
	validator.On("ValidateToken", mock.Anything, "good-token").
		Return(allowedClaims(), nil)
	mw := NewAuthMiddleware(validator, testPolicy(), false, zap.NewNop())

	var seen *auth.ClaimsContext
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/ask", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()

	mw.RequireAuth(inner).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, seen)
	assert.Equal(t, "allowed-app", seen.AppID)
	validator.AssertExpectations(t)
}

func TestRequireAuth_BypassWithoutToken(t *testing.T) {
	validator := new(MockTokenValidator)
	mw := NewAuthMiddleware(validator, testPolicy(), true, zap.NewNop())

	called := false
	req := httptest.NewRequest(http.MethodPost, "/ask", nil)
	rec := httptest.NewRecorder()

	mw.RequireAuth(okHandler(&called)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
	validator.AssertNotCalled(t, "ValidateToken", mock.Anything, mock.Anything)
}

func TestRequireAuth_BypassStillValidatesPresentToken(t *testing.T) {
	validator := new(MockTokenValidator)
	validator.On("ValidateToken", mock.Anything, "bad-token").
		Return(nil, assert.AnError)
	mw := NewAuthMiddleware(validator, testPolicy(), true, zap.NewNop())

	called := false
	req := httptest.NewRequest(http.MethodPost, "/ask", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()

	mw.RequireAuth(okHandler(&called)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
	validator.AssertExpectations(t)
}

func TestRequireAppPolicy_Allowed(t *testing.T) {
	mw := NewAuthMiddleware(new(MockTokenValidator), testPolicy(), false, zap.NewNop())

	called := false
	req := httptest.NewRequest(http.MethodPost, "/ask", nil)
	req = req.WithContext(WithClaims(req.Context(), allowedClaims()))
	rec := httptest.NewRecorder()

	mw.RequireAppPolicy(okHandler(&called)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestRequireAppPolicy_Denied(t *testing.T) {
	tests := []struct {
		name   string
		claims *auth.ClaimsContext
	}{
		{
			name: "app not in allow list",
			claims: &auth.ClaimsContext{
				Authenticated: true,
				Roles:         []string{"Api.Access"},
				AppID:         "other-app",
				IdentityType:  "app",
			},
		},
		{
			name: "missing role",
			claims: &auth.ClaimsContext{
				Authenticated: true,
				AppID:         "allowed-app",
				IdentityType:  "app",
			},
		},
		{
			name: "delegated scope present",
			claims: &auth.ClaimsContext{
				Authenticated:     true,
				Roles:             []string{"Api.Access"},
				AppID:             "allowed-app",
				HasDelegatedScope: true,
				IdentityType:      "app",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := NewAuthMiddleware(new(MockTokenValidator), testPolicy(), false, zap.NewNop())

			called := false
			req := httptest.NewRequest(http.MethodPost, "/ask", nil)
			req = req.WithContext(WithClaims(req.Context(), tt.claims))
			rec := httptest.NewRecorder()

			mw.RequireAppPolicy(okHandler(&called)).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.False(t, called)
			assert.Contains(t, rec.Body.String(), "Access forbidden")
		})
	}
}

func TestRequireAppPolicy_NoClaims(t *testing.T) {
	mw := NewAuthMiddleware(new(MockTokenValidator), testPolicy(), false, zap.NewNop())

	called := false
	req := httptest.NewRequest(http.MethodPost, "/ask", nil)
	rec := httptest.NewRecorder()

	mw.RequireAppPolicy(okHandler(&called)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestRequireAppPolicy_BypassWithoutClaims(t *testing.T) {
	mw := NewAuthMiddleware(new(MockTokenValidator), testPolicy(), true, zap.NewNop())

	called := false
	req := httptest.NewRequest(http.MethodPost, "/ask", nil)
	rec := httptest.NewRecorder()

	mw.RequireAppPolicy(okHandler(&called)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}
