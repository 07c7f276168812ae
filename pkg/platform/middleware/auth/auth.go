package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"nlportal/internal/authentication"
	dErrors "nlportal/pkg/domain-errors"
	request "nlportal/pkg/platform/middleware/request"
)

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireAuth verifies the bearer token, resolves the principal and stores
// it in the request context. Tokens without a citizen or company marker are
// rejected with 403.
func RequireAuth(verifier authentication.Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := request.GetRequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			token = strings.TrimSpace(token)
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := verifier.Verify(ctx, token)
			if err != nil && dErrors.HasCode(err, dErrors.CodeUnavailable) {
				logger.ErrorContext(ctx, "token verification unavailable",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusServiceUnavailable, string(dErrors.CodeUnavailable), "Token verification unavailable")
				return
			}
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			principal, err := authentication.Resolve(token, claims)
			if err != nil {
				logger.WarnContext(ctx, "forbidden - unsupported user type",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "unsupported user type")
				return
			}

			ctx = authentication.WithAuthentication(ctx, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
