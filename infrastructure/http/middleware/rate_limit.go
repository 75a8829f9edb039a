package middleware

import (
	"net/http"
	"strconv"

	"github.com/fixora/flowauth/application/port/inbound"
	"github.com/fixora/flowauth/application/port/outbound"
	apperr "github.com/fixora/flowauth/domain/error"
	"github.com/fixora/flowauth/infrastructure/http/response"
	"github.com/fixora/flowauth/infrastructure/service/logger"
)

const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

type RateLimitMiddleware struct {
	rateLimitService inbound.RateLimitService
	tokenService     outbound.TokenService
	rules            PathRules
	logger           logger.Logger
}

func NewRateLimitMiddleware(
	rateLimitService inbound.RateLimitService,
	tokenService outbound.TokenService,
	rules PathRules,
	logger logger.Logger,
) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		tokenService:     tokenService,
		rules:            rules,
		logger:           logger,
	}
}

// RateLimit counts requests per authenticated user. Requests without a
// readable bearer token are left to the auth stage uncounted.
func (m *RateLimitMiddleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.rateLimitService == nil || !m.rateLimitService.Enabled() || m.rules.Whitelisted(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := BearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		username, err := m.tokenService.Username(token)
		if err != nil || username == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		subject := "user:" + username
		decision, err := m.rateLimitService.Check(ctx, subject)
		if err != nil && !apperr.IsKind(err, apperr.KindRateLimitExceeded) {
			// Continue with request on store errors
			m.logger.Warn(ctx, "Rate limit check failed, allowing request", map[string]interface{}{
				"subject": subject,
				"error":   err.Error(),
			})
			next.ServeHTTP(w, r)
			return
		}

		setRateLimitHeaders(w, decision)

		if err != nil {
			logger.LogSecurityEvent(ctx, m.logger, "rate_limit_exceeded", logger.SeverityMedium, map[string]interface{}{
				"ip":        logger.ClientIP(ctx),
				"path":      r.URL.Path,
				"subject":   subject,
				"count":     decision.Count,
				"limit":     decision.Limit,
				"userAgent": r.UserAgent(),
			})
			response.WriteError(w, err)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func setRateLimitHeaders(w http.ResponseWriter, d inbound.RateLimitDecision) {
	h := w.Header()
	h.Set(HeaderRateLimitLimit, strconv.Itoa(d.Limit))
	h.Set(HeaderRateLimitRemaining, strconv.Itoa(d.Remaining))
	h.Set(HeaderRateLimitReset, strconv.Itoa(d.ResetSeconds))
}
