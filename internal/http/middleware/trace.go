package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Trace logs one structured line per request with its id and latency.
func Trace(logger *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			if logger != nil {
				logger.WithFields(logrus.Fields{
					"request_id":  GetRequestID(r.Context()),
					"method":      r.Method,
					"path":        r.URL.Path,
					"duration_ms": time.Since(start).Milliseconds(),
				}).Info("request handled")
			}
		})
	}
}
