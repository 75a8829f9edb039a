package handler

import (
	"net/http"
	"strings"

	"github.com/fixora/flowauth/application/port/inbound"
	apperr "github.com/fixora/flowauth/domain/error"
	"github.com/fixora/flowauth/infrastructure/http/middleware"
	"github.com/fixora/flowauth/infrastructure/http/response"
	"github.com/fixora/flowauth/infrastructure/http/validator"
	"github.com/fixora/flowauth/infrastructure/service/logger"
)

// RefreshTokenHeader carries the refresh token when the body does not.
const RefreshTokenHeader = "Refresh-Token"

type AuthHandler struct {
	authUseCase inbound.AuthUseCase
	logger      logger.Logger
}

func NewAuthHandler(authUseCase inbound.AuthUseCase, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		authUseCase: authUseCase,
		logger:      log,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req inbound.LoginRequest
	if err := validator.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.authUseCase.Login(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, res)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req inbound.RefreshRequest
	if r.ContentLength != 0 {
		if err := validator.Decode(r, &req); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	if req.RefreshToken == "" {
		req.RefreshToken = strings.TrimSpace(r.Header.Get(RefreshTokenHeader))
	}
	if err := validator.Struct(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.authUseCase.Refresh(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, res)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.AccessTokenFromContext(r.Context())
	if token == "" {
		h.writeError(w, r, apperr.ErrMissingCredential())
		return
	}

	if err := h.authUseCase.Logout(r.Context(), token); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, inbound.LogoutResponse{Message: "logout successful"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		h.writeError(w, r, apperr.ErrMissingCredential())
		return
	}

	res, err := h.authUseCase.Me(r.Context(), principal, middleware.AccessTokenFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	// claims attached by the auth stage, after ExtractAdditionalClaims
	res.Session = inbound.NewSessionDTO(middleware.AdditionalClaimsFromContext(r.Context()))
	response.OK(w, res)
}

func (h *AuthHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(h.logger, w, r, err)
}

// writeError logs server side failures with their cause and writes the
// mapped error response.
func writeError(log logger.Logger, w http.ResponseWriter, r *http.Request, err error) {
	appErr := response.WriteError(w, err)
	if appErr.Status >= http.StatusInternalServerError {
		log.Error(r.Context(), "Request failed", err, map[string]interface{}{
			"path":   r.URL.Path,
			"method": r.Method,
		})
	}
}
