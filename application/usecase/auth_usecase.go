package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/fixora/flowauth/application/port/inbound"
	"github.com/fixora/flowauth/application/port/outbound"
	"github.com/fixora/flowauth/domain/entity"
	apperr "github.com/fixora/flowauth/domain/error"
	"github.com/fixora/flowauth/domain/valueobject"
	"github.com/fixora/flowauth/infrastructure/service/logger"
)

type AuthUseCase struct {
	authenticator  outbound.Authenticator
	userRepository outbound.UserRepository
	tokenService   outbound.TokenService
	logger         logger.Logger
}

func NewAuthUseCase(
	authenticator outbound.Authenticator,
	userRepo outbound.UserRepository,
	tokenService outbound.TokenService,
	logger logger.Logger,
) inbound.AuthUseCase {
	return &AuthUseCase{
		authenticator:  authenticator,
		userRepository: userRepo,
		tokenService:   tokenService,
		logger:         logger,
	}
}

func (uc *AuthUseCase) Login(ctx context.Context, req inbound.LoginRequest) (*inbound.TokenResponse, error) {
	ip := logger.ClientIP(ctx)

	user, err := uc.authenticator.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		logger.LogAuthEvent(ctx, uc.logger, "login", req.Username, ip, false, map[string]interface{}{
			"reason": apperr.From(err).Kind.String(),
		})
		return nil, err
	}

	extra := valueobject.AdditionalClaims{
		TenantID:   req.TenantID,
		DeviceID:   req.DeviceID,
		ClientType: req.ClientType,
	}
	if extra.TenantID == "" {
		extra.TenantID = user.TenantID
	}

	res, err := uc.issue(ctx, user, extra)
	if err != nil {
		return nil, err
	}

	logger.LogAuthEvent(ctx, uc.logger, "login", user.Username, ip, true, map[string]interface{}{
		"user_id": user.ID,
	})
	return res, nil
}

// Refresh rotates a refresh token. The presented token is consumed before a
// new pair is signed, so concurrent redemptions yield at most one pair.
func (uc *AuthUseCase) Refresh(ctx context.Context, req inbound.RefreshRequest) (*inbound.TokenResponse, error) {
	ip := logger.ClientIP(ctx)

	if !uc.tokenService.IsRefreshToken(req.RefreshToken) {
		logger.LogAuthEvent(ctx, uc.logger, "refresh", "", ip, false, map[string]interface{}{
			"reason": "not a refresh token",
		})
		return nil, apperr.ErrInvalidGrant("invalid refresh token")
	}

	claims, err := uc.tokenService.Validate(ctx, req.RefreshToken)
	if err != nil {
		logger.LogAuthEvent(ctx, uc.logger, "refresh", "", ip, false, map[string]interface{}{
			"reason": apperr.From(err).Kind.String(),
		})
		return nil, apperr.ErrInvalidGrant("refresh token is expired or revoked")
	}

	if err := uc.tokenService.Consume(ctx, req.RefreshToken); err != nil {
		if apperr.IsKind(err, apperr.KindTokenRevoked) {
			logger.LogSecurityEvent(ctx, uc.logger, "refresh_token_reused", logger.SeverityMedium, map[string]interface{}{
				"jti":     claims.ID,
				"subject": claims.Subject,
				"ip":      ip,
			})
			return nil, apperr.ErrInvalidGrant("refresh token is expired or revoked")
		}
		uc.logger.Error(ctx, "Failed to consume refresh token", err, map[string]interface{}{
			"jti": claims.ID,
		})
		return nil, err
	}

	user, err := uc.userRepository.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return nil, apperr.ErrInvalidGrant("user no longer exists")
		}
		return nil, apperr.ErrInternal(fmt.Errorf("failed to load user %d: %w", claims.UserID, err))
	}
	if !user.IsEnabled() {
		return nil, apperr.ErrUserDisabled()
	}

	res, err := uc.issue(ctx, user, claims.Additional())
	if err != nil {
		return nil, err
	}

	logger.LogAuthEvent(ctx, uc.logger, "refresh", user.Username, ip, true, map[string]interface{}{
		"user_id":     user.ID,
		"rotated_jti": claims.ID,
	})
	return res, nil
}

func (uc *AuthUseCase) Logout(ctx context.Context, accessToken string) error {
	username, _ := uc.tokenService.Username(accessToken)

	if err := uc.tokenService.Revoke(ctx, accessToken); err != nil {
		logger.LogAuthEvent(ctx, uc.logger, "logout", username, logger.ClientIP(ctx), false, map[string]interface{}{
			"reason": apperr.From(err).Kind.String(),
		})
		return err
	}

	logger.LogAuthEvent(ctx, uc.logger, "logout", username, logger.ClientIP(ctx), true, nil)
	return nil
}

func (uc *AuthUseCase) Me(ctx context.Context, principal valueobject.Principal, accessToken string) (*inbound.MeResponse, error) {
	user, err := uc.userRepository.FindByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return nil, apperr.ErrInvalidToken(err)
		}
		return nil, apperr.ErrInternal(fmt.Errorf("failed to load user %d: %w", principal.UserID, err))
	}

	authorities, err := uc.userRepository.FindAuthorities(ctx, user.ID)
	if err != nil {
		return nil, apperr.ErrInternal(fmt.Errorf("failed to resolve authorities: %w", err))
	}

	return &inbound.MeResponse{
		UserDTO:        *inbound.NewUserDTO(user, authorities),
		TokenExpiresIn: uc.tokenService.RemainingSeconds(accessToken),
	}, nil
}

// issue resolves the user's current authorities and signs a new pair.
func (uc *AuthUseCase) issue(ctx context.Context, user *entity.User, extra valueobject.AdditionalClaims) (*inbound.TokenResponse, error) {
	authorities, err := uc.userRepository.FindAuthorities(ctx, user.ID)
	if err != nil {
		return nil, apperr.ErrInternal(fmt.Errorf("failed to resolve authorities: %w", err))
	}

	opt := outbound.WithAdditionalClaims(extra)
	accessToken, err := uc.tokenService.GenerateAccessToken(ctx, user.Username, user.ID, authorities, opt)
	if err != nil {
		return nil, apperr.ErrInternal(err)
	}
	refreshToken, err := uc.tokenService.GenerateRefreshToken(ctx, user.Username, user.ID, opt)
	if err != nil {
		return nil, apperr.ErrInternal(err)
	}

	pair := valueobject.NewTokenPair(accessToken, refreshToken, uc.tokenService.AccessTokenTTL())
	return &inbound.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
		User:         inbound.NewUserDTO(user, authorities),
	}, nil
}
