package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, role string, expiresIn time.Duration) string {
	t.Helper()

	claims := AdminClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops@example.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func adminProtected(t *testing.T, secret string) (http.Handler, *bool) {
	t.Helper()

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		claims := GetClaimsFromContext(r.Context())
		require.NotNil(t, claims)
		w.WriteHeader(http.StatusOK)
	})

	m := NewAuthMiddleware(secret, zap.NewNop())
	return m.RequireAdmin(next), &called
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		authorize  func(t *testing.T, r *http.Request)
		wantStatus int
		wantCalled bool
	}{
		{
			name:   "valid admin token",
			secret: testSecret,
			authorize: func(t *testing.T, r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "admin", time.Hour))
			},
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
		{
			name:       "missing authorization header",
			secret:     testSecret,
			authorize:  func(t *testing.T, r *http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "malformed authorization header",
			secret: testSecret,
			authorize: func(t *testing.T, r *http.Request) {
				r.Header.Set("Authorization", "Basic abc123")
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "expired token",
			secret: testSecret,
			authorize: func(t *testing.T, r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "admin", -time.Hour))
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "wrong signing key",
			secret: testSecret,
			authorize: func(t *testing.T, r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", "admin", time.Hour))
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "non-admin role",
			secret: testSecret,
			authorize: func(t *testing.T, r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "viewer", time.Hour))
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "no secret configured",
			secret: "",
			authorize: func(t *testing.T, r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "admin", time.Hour))
			},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, called := adminProtected(t, tt.secret)

			r := httptest.NewRequest(http.MethodPost, "/api/v1/admin/reindex", nil)
			tt.authorize(t, r)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCalled, *called)
		})
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"standard bearer", "Bearer token123", "token123"},
		{"lowercase bearer", "bearer token123", "token123"},
		{"no header", "", ""},
		{"wrong scheme", "Basic token123", ""},
		{"missing token", "Bearer", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, extractBearerToken(r))
		})
	}
}

func TestRequestID(t *testing.T) {
	t.Run("generates id when absent", func(t *testing.T) {
		var seen string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestIDFromContext(r.Context())
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
	})

	t.Run("honors caller-supplied id", func(t *testing.T) {
		var seen string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestIDFromContext(r.Context())
		}))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Request-ID", "req-42")

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, "req-42", seen)
		assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	})
}
