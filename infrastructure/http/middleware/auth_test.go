package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixora/flowauth/application/port/outbound"
	apperr "github.com/fixora/flowauth/domain/error"
	"github.com/fixora/flowauth/domain/valueobject"
	"github.com/fixora/flowauth/infrastructure/config"
	"github.com/fixora/flowauth/infrastructure/http/response"
	"github.com/fixora/flowauth/infrastructure/service/blacklist"
	"github.com/fixora/flowauth/infrastructure/service/jwt"
	"github.com/fixora/flowauth/infrastructure/service/logger"
)

var testRules = NewPathRules([]string{"/api/auth/login", "/health"}, []string{"/api/init/"})

func newTokenService(t *testing.T) *jwt.JWTService {
	t.Helper()
	svc, err := jwt.NewJWTService(&config.Config{
		JWTSecret:       "0123456789abcdef0123456789abcdef",
		JWTIssuer:       "flowable-auth-server",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	}, blacklist.NewMemoryBlacklist(), logger.NewNopLogger())
	require.NoError(t, err)
	return svc
}

func principalEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			response.Message(w, http.StatusOK, "anonymous")
			return
		}
		response.OK(w, p)
	})
}

func do(h http.Handler, method, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) response.ErrorBody {
	t.Helper()
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRequireAuth(t *testing.T) {
	ctx := context.Background()
	tokens := newTokenService(t)
	h := NewAuthMiddleware(tokens, testRules, Hooks{}, logger.NewNopLogger()).RequireAuth(principalEcho())

	access, err := tokens.GenerateAccessToken(ctx, "alice", 7, []string{"ROLE_ADMIN"},
		outbound.WithAdditionalClaims(valueobject.AdditionalClaims{TenantID: "acme"}))
	require.NoError(t, err)
	bare, err := tokens.GenerateAccessToken(ctx, "bob", 8, nil)
	require.NoError(t, err)
	refresh, err := tokens.GenerateRefreshToken(ctx, "alice", 7)
	require.NoError(t, err)

	t.Run("whitelisted path passes anonymously", func(t *testing.T) {
		rec := do(h, http.MethodPost, "/api/auth/login", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "anonymous")
	})

	t.Run("blacklisted path is forbidden even with a token", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/api/init/seed", "Bearer "+access)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "access_denied", errorCode(t, rec).Error)
	})

	t.Run("missing credential", func(t *testing.T) {
		for _, header := range []string{"", "Basic abc", "Bearer   "} {
			rec := do(h, http.MethodGet, "/api/tasks", header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
			body := errorCode(t, rec)
			assert.Equal(t, "invalid_request", body.Error)
			assert.Equal(t, "missing credential", body.ErrorDescription)
		}
	})

	t.Run("attaches principal", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/api/tasks", "bearer  "+access+" ")
		require.Equal(t, http.StatusOK, rec.Code)

		var p valueobject.Principal
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
		assert.Equal(t, int64(7), p.UserID)
		assert.Equal(t, "alice", p.Username)
		assert.Equal(t, []string{"ROLE_ADMIN"}, p.Authorities)
		assert.Equal(t, "acme", p.TenantID)
	})

	t.Run("defaults authorities", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/api/tasks", "Bearer "+bare)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), valueobject.DefaultAuthority)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/api/tasks", "Bearer "+refresh)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid_token", errorCode(t, rec).Error)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/api/tasks", "Bearer abc.def.ghi")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid_token", errorCode(t, rec).Error)
	})

	t.Run("revoked token", func(t *testing.T) {
		require.NoError(t, tokens.Revoke(ctx, bare))
		rec := do(h, http.MethodGet, "/api/tasks", "Bearer "+bare)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "token invalidated, please re-login", errorCode(t, rec).ErrorDescription)
	})
}

func TestRequireAuthHooks(t *testing.T) {
	ctx := context.Background()
	tokens := newTokenService(t)
	access, err := tokens.GenerateAccessToken(ctx, "alice", 7, []string{"ROLE_USER"})
	require.NoError(t, err)

	t.Run("deny client ips", func(t *testing.T) {
		h := NewAuthMiddleware(tokens, testRules, Hooks{PreValidate: DenyClientIPs("10.0.0.9")}, logger.NewNopLogger()).
			RequireAuth(principalEcho())

		req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
		req.Header.Set("Authorization", "Bearer "+access)
		req.Header.Set("X-Forwarded-For", "10.0.0.9, 172.16.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		req.Header.Set("X-Forwarded-For", "10.0.0.10")
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("extract and post validate", func(t *testing.T) {
		var seen valueobject.Principal
		hooks := Hooks{
			ExtractAdditionalClaims: func(r *http.Request, claims *outbound.TokenClaims) valueobject.AdditionalClaims {
				return valueobject.AdditionalClaims{TenantID: r.Header.Get("X-Tenant-ID")}
			},
			PostValidate: func(r *http.Request, p valueobject.Principal) error {
				seen = p
				if p.TenantID == "" {
					return apperr.ErrAccessDenied("tenant required")
				}
				return nil
			},
		}
		h := NewAuthMiddleware(tokens, testRules, hooks, logger.NewNopLogger()).RequireAuth(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				response.Message(w, http.StatusOK, AdditionalClaimsFromContext(r.Context()).TenantID)
			}))

		rec := do(h, http.MethodGet, "/api/tasks", "Bearer "+access)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "alice", seen.Username)

		req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
		req.Header.Set("Authorization", "Bearer "+access)
		req.Header.Set("X-Tenant-ID", "acme")
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "acme")
	})

	t.Run("custom error mapping", func(t *testing.T) {
		hooks := Hooks{
			PreValidate: func(r *http.Request, token string) error { return errors.New("plain") },
			HandleValidationError: func(err error) *apperr.AppError {
				return apperr.ErrInvalidToken(err)
			},
		}
		h := NewAuthMiddleware(tokens, testRules, hooks, logger.NewNopLogger()).RequireAuth(principalEcho())
		rec := do(h, http.MethodGet, "/api/tasks", "Bearer "+access)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestParseBearer(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"BEARER abc", "abc", true},
		{"  bearer   abc  ", "abc", true},
		{"Bearer", "", false},
		{"Token abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		token, ok := ParseBearer(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}
