package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/fixora/flowauth/application/port/outbound"
	apperr "github.com/fixora/flowauth/domain/error"
	"github.com/fixora/flowauth/domain/valueobject"
	"github.com/fixora/flowauth/infrastructure/http/response"
	"github.com/fixora/flowauth/infrastructure/service/logger"
)

// authState is how far a request got through the JWT stage.
type authState int

const (
	stateUnauthenticated authState = iota
	stateTokenExtracted
	stateValidated
	statePrincipalAttached
)

func (s authState) String() string {
	switch s {
	case stateTokenExtracted:
		return "token_extracted"
	case stateValidated:
		return "validated"
	case statePrincipalAttached:
		return "principal_attached"
	default:
		return "unauthenticated"
	}
}

// Hooks customise the JWT stage. Every field is optional.
type Hooks struct {
	// PreValidate runs after the token is extracted and before it is checked.
	PreValidate func(r *http.Request, token string) error
	// ExtractAdditionalClaims defaults to the tenant, device and client type
	// carried by the token.
	ExtractAdditionalClaims func(r *http.Request, claims *outbound.TokenClaims) valueobject.AdditionalClaims
	// PostValidate may still reject an otherwise valid principal.
	PostValidate func(r *http.Request, principal valueobject.Principal) error
	// HandleValidationError defaults to apperr.From.
	HandleValidationError func(err error) *apperr.AppError
}

// DenyClientIPs is a PreValidate hook rejecting requests from the given IPs.
func DenyClientIPs(ips ...string) func(r *http.Request, token string) error {
	denied := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		if ip = strings.TrimSpace(ip); ip != "" {
			denied[ip] = struct{}{}
		}
	}
	return func(r *http.Request, token string) error {
		if _, ok := denied[ClientIP(r)]; ok {
			return apperr.ErrAccessDenied("client address is not allowed")
		}
		return nil
	}
}

type (
	principalKey   struct{}
	accessTokenKey struct{}
	extraClaimsKey struct{}
)

type AuthMiddleware struct {
	tokenService outbound.TokenService
	rules        PathRules
	hooks        Hooks
	logger       logger.Logger
}

func NewAuthMiddleware(tokenService outbound.TokenService, rules PathRules, hooks Hooks, log logger.Logger) *AuthMiddleware {
	if hooks.HandleValidationError == nil {
		hooks.HandleValidationError = apperr.From
	}
	if hooks.ExtractAdditionalClaims == nil {
		hooks.ExtractAdditionalClaims = func(_ *http.Request, claims *outbound.TokenClaims) valueobject.AdditionalClaims {
			return claims.Additional()
		}
	}
	return &AuthMiddleware{
		tokenService: tokenService,
		rules:        rules,
		hooks:        hooks,
		logger:       log,
	}
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if m.rules.Whitelisted(path) {
			next.ServeHTTP(w, r)
			return
		}
		if m.rules.Blacklisted(path) {
			m.reject(w, r, stateUnauthenticated, apperr.ErrForbiddenPath(path))
			return
		}

		state := stateUnauthenticated
		token, ok := BearerToken(r)
		if !ok {
			m.reject(w, r, state, apperr.ErrMissingCredential())
			return
		}
		state = stateTokenExtracted

		if m.hooks.PreValidate != nil {
			if err := m.hooks.PreValidate(r, token); err != nil {
				m.reject(w, r, state, err)
				return
			}
		}

		ctx := r.Context()
		claims, err := m.tokenService.Validate(ctx, token)
		if err != nil {
			m.reject(w, r, state, err)
			return
		}
		if claims.Kind != outbound.TokenKindAccess {
			m.reject(w, r, state, apperr.ErrInvalidToken(nil))
			return
		}
		state = stateValidated

		extra := m.hooks.ExtractAdditionalClaims(r, claims)
		principal := valueobject.NewPrincipal(claims.UserID, claims.Subject, claims.Authorities, extra)

		if m.hooks.PostValidate != nil {
			if err := m.hooks.PostValidate(r, principal); err != nil {
				m.reject(w, r, state, err)
				return
			}
		}

		ctx = context.WithValue(ctx, principalKey{}, principal)
		ctx = context.WithValue(ctx, accessTokenKey{}, token)
		ctx = context.WithValue(ctx, extraClaimsKey{}, extra)
		state = statePrincipalAttached

		m.logger.Debug(ctx, "Request authenticated", map[string]interface{}{
			"username": principal.Username,
			"state":    state.String(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, state authState, err error) {
	appErr := m.hooks.HandleValidationError(err)
	if appErr == nil {
		appErr = apperr.From(err)
	}
	ctx := r.Context()

	fields := map[string]interface{}{
		"ip":     logger.ClientIP(ctx),
		"path":   r.URL.Path,
		"state":  state.String(),
		"reason": appErr.Kind.String(),
	}
	switch appErr.Kind {
	case apperr.KindTokenRevoked, apperr.KindForbiddenPath, apperr.KindAccessDenied:
		logger.LogSecurityEvent(ctx, m.logger, "auth_rejected", logger.SeverityMedium, fields)
	case apperr.KindInternal, apperr.KindTokenUnverifiable:
		m.logger.Error(ctx, "Authentication could not be completed", err, fields)
	default:
		m.logger.Info(ctx, "Authentication rejected", fields)
	}

	response.WriteError(w, appErr)
}

// BearerToken extracts the token from the Authorization header. The scheme
// is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	return ParseBearer(r.Header.Get("Authorization"))
}

func ParseBearer(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// PrincipalFromContext returns the principal attached by RequireAuth.
func PrincipalFromContext(ctx context.Context) (valueobject.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(valueobject.Principal)
	return p, ok
}

// AccessTokenFromContext returns the raw token that authenticated the request.
func AccessTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}

func AdditionalClaimsFromContext(ctx context.Context) valueobject.AdditionalClaims {
	extra, _ := ctx.Value(extraClaimsKey{}).(valueobject.AdditionalClaims)
	return extra
}
