package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fixora/flowauth/infrastructure/service/logger"
)

func TestCorrelationIDMiddleware(t *testing.T) {
	var cid, ip string
	h := CorrelationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid = logger.CorrelationID(r.Context())
		ip = logger.ClientIP(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Len(t, cid, 36)
	assert.Equal(t, cid, rec.Header().Get(CorrelationIDHeader))
	assert.Equal(t, "192.0.2.10", ip)

	req.Header.Set(CorrelationIDHeader, "abc-123")
	req.Header.Set("X-Real-IP", "198.51.100.7")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", cid)
	assert.Equal(t, "abc-123", rec.Header().Get(CorrelationIDHeader))
	assert.Equal(t, "198.51.100.7", ip)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(logger.NewNopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := do(h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := errorCode(t, rec)
	assert.Equal(t, "server_error", body.Error)
	assert.NotContains(t, body.ErrorDescription, "boom")
}

func TestCORSMiddleware(t *testing.T) {
	h := CORSMiddleware([]string{"https://admin.example.com"}, true)(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://admin.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPathRules(t *testing.T) {
	rules := NewPathRules([]string{" /health", ""}, []string{"/api/init/"})
	assert.True(t, rules.Whitelisted("/health"))
	assert.True(t, rules.Whitelisted("/healthz"))
	assert.False(t, rules.Whitelisted("/api/auth/me"))
	assert.True(t, rules.Blacklisted("/api/init/db"))
	assert.False(t, rules.Blacklisted("/api/initial"))
}
