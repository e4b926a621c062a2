package middleware

import (
	"net/http"

	"bookline/pkg/auth"
	apperrors "bookline/pkg/errors"
	httputil "bookline/pkg/http"
	"bookline/pkg/logger"
)

// Authenticate admits requests carrying a valid bearer token and stores the
// resulting principal in the request context.
func Authenticate(authenticator auth.Authenticator, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := authenticator.Authenticate(auth.BearerToken(r))
			if err != nil {
				log.Warn("Authentication failed",
					"request_id", RequestIDFromContext(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				_ = httputil.WriteError(w, apperrors.Unauthorized("Invalid or missing bearer token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}
