package response

import (
	"encoding/json"
	"net/http"
	"strconv"

	apperr "github.com/fixora/flowauth/domain/error"
)

const internalErrorDescription = "internal server error"

// ErrorBody is the OAuth2 style error payload.
type ErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type MessageBody struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func OK(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, data)
}

func Message(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, MessageBody{Message: message})
}

// WriteError maps err to its status and OAuth2 code and writes the body.
// Internal causes never reach the client. The mapped error is returned so
// the caller can log it.
func WriteError(w http.ResponseWriter, err error) *apperr.AppError {
	appErr := apperr.From(err)

	description := appErr.Message
	if appErr.Kind == apperr.KindInternal {
		description = internalErrorDescription
	}
	if appErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(appErr.RetryAfter))
	}
	if appErr.Status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer error="`+appErr.Code+`"`)
	}

	WriteJSON(w, appErr.Status, ErrorBody{
		Error:            appErr.Code,
		ErrorDescription: description,
	})
	return appErr
}
