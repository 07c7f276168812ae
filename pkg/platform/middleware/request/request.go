package request

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"nlportal/pkg/platform/middleware/metadata"
	"nlportal/pkg/requestcontext"
)

// HeaderRequestID is accepted from upstream proxies and echoed back.
const HeaderRequestID = "X-Request-Id"

// RequestID assigns a request ID (reusing a well-formed incoming one), the
// request time and the client IP to the context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)

		ctx := requestcontext.WithRequestID(r.Context(), id)
		ctx = requestcontext.WithTime(ctx, time.Now())
		ctx = requestcontext.WithClientIP(ctx, metadata.ClientIPFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
