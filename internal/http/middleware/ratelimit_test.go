package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimitThrottlesPerClient(t *testing.T) {
	handler := RateLimit(1, 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	request := func(addr string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
		r.RemoteAddr = addr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	if w := request("10.0.0.1:4000"); w.Code != http.StatusNoContent {
		t.Fatalf("first request should pass, got %d", w.Code)
	}

	// Same host on another port shares the bucket.
	w := request("10.0.0.1:4001")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("burst of one should throttle the second request, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Fatalf("throttled response must carry Retry-After")
	}

	if w := request("10.0.0.2:4000"); w.Code != http.StatusNoContent {
		t.Fatalf("other clients must not be throttled, got %d", w.Code)
	}
}

func TestClientAddrStripsPort(t *testing.T) {
	if got := clientAddr("10.0.0.1:4000"); got != "10.0.0.1" {
		t.Fatalf("expected host only, got %q", got)
	}
	if got := clientAddr("10.0.0.1"); got != "10.0.0.1" {
		t.Fatalf("expected passthrough without port, got %q", got)
	}
}
