package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	apperr "github.com/fixora/flowauth/domain/error"
	"github.com/fixora/flowauth/infrastructure/http/response"
	"github.com/fixora/flowauth/infrastructure/service/logger"
)

// RecoveryMiddleware turns a panic into a 500 server_error response.
func RecoveryMiddleware(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error(r.Context(), "Panic recovered", fmt.Errorf("%v", rec), map[string]interface{}{
					"path":  r.URL.Path,
					"stack": string(debug.Stack()),
				})
				response.WriteError(w, apperr.ErrInternal(fmt.Errorf("panic: %v", rec)))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
