package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/fixora/flowauth/application/port/inbound"
	"github.com/fixora/flowauth/application/usecase/user_management"
	apperr "github.com/fixora/flowauth/domain/error"
	"github.com/fixora/flowauth/domain/valueobject"
	"github.com/fixora/flowauth/infrastructure/http/middleware"
	"github.com/fixora/flowauth/infrastructure/http/response"
	"github.com/fixora/flowauth/infrastructure/http/validator"
	"github.com/fixora/flowauth/infrastructure/service/logger"
)

// AdminAuthority passes every user management check. The permission codes
// grant one operation each.
const (
	AdminAuthority          = "ROLE_ADMIN"
	UserCreateAuthority     = "user:create"
	UserViewAuthority       = "user:view"
	UserUpdateAuthority     = "user:update"
	UserDeleteAuthority     = "user:delete"
	UserAssignRoleAuthority = "user:assign_role"
)

// UserManagementAuthorities lists every permission code the handler checks.
var UserManagementAuthorities = []string{
	UserCreateAuthority,
	UserViewAuthority,
	UserUpdateAuthority,
	UserDeleteAuthority,
	UserAssignRoleAuthority,
}

type UserManagementHandler struct {
	userManagementUseCase inbound.UserManagementUseCase
	logger                logger.Logger
}

func NewUserManagementHandler(userManagementUseCase inbound.UserManagementUseCase, log logger.Logger) *UserManagementHandler {
	return &UserManagementHandler{
		userManagementUseCase: userManagementUseCase,
		logger:                log,
	}
}

// authorize returns the caller when it holds ROLE_ADMIN or permission.
// Otherwise it writes the error and reports false.
func (h *UserManagementHandler) authorize(w http.ResponseWriter, r *http.Request, permission, action string) (valueobject.Principal, bool) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(h.logger, w, r, apperr.ErrMissingCredential())
		return valueobject.Principal{}, false
	}
	if !principal.HasAuthority(AdminAuthority) && !principal.HasAuthority(permission) {
		logger.LogSecurityEvent(r.Context(), h.logger, "user_"+action+"_denied", logger.SeverityMedium, map[string]interface{}{
			"username":   principal.Username,
			"permission": permission,
		})
		writeError(h.logger, w, r, apperr.ErrAccessDenied("insufficient authority to "+action+" users"))
		return valueobject.Principal{}, false
	}
	return principal, true
}

// CreateUser creates a new user. The caller needs ROLE_ADMIN or user:create.
func (h *UserManagementHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.authorize(w, r, UserCreateAuthority, "create")
	if !ok {
		return
	}

	var req inbound.CreateUserRequest
	if err := validator.DecodeJSON(r, &req); err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	user, err := h.userManagementUseCase.CreateUser(r.Context(), req)
	if err != nil {
		writeError(h.logger, w, r, mapUserManagementError(err))
		return
	}

	h.logger.Info(r.Context(), "User created", map[string]interface{}{
		"created_by": principal.Username,
		"username":   user.Username,
		"user_id":    user.ID,
	})
	response.WriteJSON(w, http.StatusCreated, user)
}

func (h *UserManagementHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, UserViewAuthority, "view"); !ok {
		return
	}
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	user, err := h.userManagementUseCase.GetUserDetail(r.Context(), userID)
	if err != nil {
		writeError(h.logger, w, r, mapUserManagementError(err))
		return
	}
	response.OK(w, user)
}

// ListUsers reads page, limit and keyword from the query string.
func (h *UserManagementHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, UserViewAuthority, "view"); !ok {
		return
	}

	q := r.URL.Query()
	req := inbound.ListUsersRequest{Keyword: q.Get("keyword")}
	var err error
	if req.Page, err = queryInt(q.Get("page")); err != nil {
		writeError(h.logger, w, r, apperr.ErrValidation("page must be a number"))
		return
	}
	if req.Limit, err = queryInt(q.Get("limit")); err != nil {
		writeError(h.logger, w, r, apperr.ErrValidation("limit must be a number"))
		return
	}

	res, err := h.userManagementUseCase.ListUsers(r.Context(), req)
	if err != nil {
		writeError(h.logger, w, r, mapUserManagementError(err))
		return
	}
	response.OK(w, res)
}

func (h *UserManagementHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.authorize(w, r, UserUpdateAuthority, "update")
	if !ok {
		return
	}
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req inbound.UpdateUserRequest
	if err := validator.DecodeJSON(r, &req); err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	if req.Roles != nil && !principal.HasAuthority(AdminAuthority) && !principal.HasAuthority(UserAssignRoleAuthority) {
		writeError(h.logger, w, r, apperr.ErrAccessDenied("insufficient authority to assign roles"))
		return
	}

	user, err := h.userManagementUseCase.UpdateUser(r.Context(), userID, req)
	if err != nil {
		writeError(h.logger, w, r, mapUserManagementError(err))
		return
	}

	fields := map[string]interface{}{
		"updated_by": principal.Username,
		"user_id":    user.ID,
	}
	if req.Status != nil {
		fields["status"] = *req.Status
	}
	h.logger.Info(r.Context(), "User updated", fields)
	response.OK(w, user)
}

func (h *UserManagementHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.authorize(w, r, UserDeleteAuthority, "delete")
	if !ok {
		return
	}
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	if userID == principal.UserID {
		writeError(h.logger, w, r, apperr.ErrValidation("cannot delete your own account"))
		return
	}

	if err := h.userManagementUseCase.DeleteUser(r.Context(), userID); err != nil {
		writeError(h.logger, w, r, mapUserManagementError(err))
		return
	}

	h.logger.Info(r.Context(), "User deleted", map[string]interface{}{
		"deleted_by": principal.Username,
		"user_id":    userID,
	})
	w.WriteHeader(http.StatusNoContent)
}

// AssignRoles replaces the roles of a user.
func (h *UserManagementHandler) AssignRoles(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.authorize(w, r, UserAssignRoleAuthority, "assign_role")
	if !ok {
		return
	}
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req inbound.AssignRolesRequest
	if err := validator.DecodeJSON(r, &req); err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	user, err := h.userManagementUseCase.AssignRoles(r.Context(), userID, req)
	if err != nil {
		writeError(h.logger, w, r, mapUserManagementError(err))
		return
	}

	h.logger.Info(r.Context(), "User roles assigned", map[string]interface{}{
		"assigned_by": principal.Username,
		"user_id":     user.ID,
		"authorities": user.Authorities,
	})
	response.OK(w, user)
}

// userID parses the {id} route variable.
func (h *UserManagementHandler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(h.logger, w, r, apperr.ErrValidation("user id must be a positive integer"))
		return 0, false
	}
	return id, true
}

func queryInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func mapUserManagementError(err error) error {
	switch {
	case errors.Is(err, user_management.ErrUsernameAlreadyExists),
		errors.Is(err, user_management.ErrInvalidUsername),
		errors.Is(err, user_management.ErrInvalidPassword),
		errors.Is(err, user_management.ErrInvalidRole),
		errors.Is(err, user_management.ErrInvalidStatus):
		return apperr.ErrValidation(err.Error())
	case errors.Is(err, user_management.ErrUserNotFound):
		return apperr.ErrNotFound("user")
	default:
		return err
	}
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{"status": "healthy"})
}
