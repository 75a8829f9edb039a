// Package grpcauth applies the bearer token checks of the HTTP pipeline to
// unary gRPC calls.
package grpcauth

import (
	"context"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/fixora/flowauth/application/port/inbound"
	"github.com/fixora/flowauth/application/port/outbound"
	apperr "github.com/fixora/flowauth/domain/error"
	"github.com/fixora/flowauth/domain/valueobject"
	"github.com/fixora/flowauth/infrastructure/http/middleware"
	"github.com/fixora/flowauth/infrastructure/service/logger"
)

// HealthCheckMethod is usually listed in Config.SkipMethods so health checks need
// no token.
const HealthCheckMethod = "/grpc.health.v1.Health/Check"

type principalKey struct{}

// PrincipalFromContext returns the principal attached by the interceptor.
func PrincipalFromContext(ctx context.Context) (valueobject.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(valueobject.Principal)
	return p, ok
}

type Config struct {
	TokenService outbound.TokenService
	// RateLimit is optional.
	RateLimit inbound.RateLimitService
	Logger    logger.Logger
	// SkipMethods are full method names served without authentication.
	SkipMethods []string
}

// UnaryServerInterceptor reads "authorization: Bearer <token>" metadata,
// counts the call against the user's rate limit and attaches the principal.
func UnaryServerInterceptor(cfg Config) grpc.UnaryServerInterceptor {
	skip := make(map[string]struct{}, len(cfg.SkipMethods))
	for _, m := range cfg.SkipMethods {
		skip[m] = struct{}{}
	}

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if _, ok := skip[info.FullMethod]; ok {
			return handler(ctx, req)
		}

		token, ok := tokenFromMetadata(ctx)
		if !ok {
			return nil, reject(ctx, cfg.Logger, info.FullMethod, apperr.ErrMissingCredential())
		}

		if cfg.RateLimit != nil && cfg.RateLimit.Enabled() {
			if username, err := cfg.TokenService.Username(token); err == nil {
				_, err := cfg.RateLimit.Check(ctx, "user:"+username)
				if apperr.IsKind(err, apperr.KindRateLimitExceeded) {
					return nil, reject(ctx, cfg.Logger, info.FullMethod, err)
				}
			}
		}

		claims, err := cfg.TokenService.Validate(ctx, token)
		if err != nil {
			return nil, reject(ctx, cfg.Logger, info.FullMethod, err)
		}
		if claims.Kind != outbound.TokenKindAccess {
			return nil, reject(ctx, cfg.Logger, info.FullMethod, apperr.ErrInvalidToken(nil))
		}

		principal := valueobject.NewPrincipal(claims.UserID, claims.Subject, claims.Authorities, claims.Additional())
		return handler(context.WithValue(ctx, principalKey{}, principal), req)
	}
}

func tokenFromMetadata(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	for _, v := range md.Get("authorization") {
		if token, ok := middleware.ParseBearer(v); ok {
			return token, true
		}
	}
	return "", false
}

func reject(ctx context.Context, log logger.Logger, method string, err error) error {
	appErr := apperr.From(err)
	if log != nil {
		log.Info(ctx, "gRPC call rejected", map[string]interface{}{
			"method": method,
			"reason": appErr.Kind.String(),
		})
	}
	return ToStatus(appErr)
}

// ToStatus converts an application error into a gRPC status error.
func ToStatus(err error) error {
	appErr := apperr.From(err)
	var code codes.Code
	switch appErr.Status {
	case http.StatusUnauthorized:
		code = codes.Unauthenticated
	case http.StatusForbidden:
		code = codes.PermissionDenied
	case http.StatusTooManyRequests:
		code = codes.ResourceExhausted
	case http.StatusBadRequest:
		code = codes.InvalidArgument
	default:
		return status.Error(codes.Internal, "internal server error")
	}
	return status.Error(code, appErr.Message)
}
