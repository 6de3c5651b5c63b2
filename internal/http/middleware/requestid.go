package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// HeaderRequestID carries the correlation id. It is echoed with the 202 so a
// client can quote it when polling or reporting a stuck job.
const HeaderRequestID = "X-Request-Id"

type contextKey string

const requestIDContextKey contextKey = "request_id"

// RequestID tags every request with a correlation id, honoring one supplied
// by the caller, and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDContextKey, id)))
	})
}

// GetRequestID reads the correlation id stored by RequestID. Error payloads
// built outside the middleware chain get "unknown".
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDContextKey).(string); ok && id != "" {
		return id
	}
	return "unknown"
}
