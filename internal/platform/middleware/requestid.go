package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"crest/pkg/requestcontext"
)

// RequestIDHeader is honored when the caller supplies its own correlation ID.
const RequestIDHeader = "X-Request-Id"

// RequestID assigns every request a correlation ID, readable via
// pkg/requestcontext and echoed in the response headers.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		w.Header().Set(RequestIDHeader, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
