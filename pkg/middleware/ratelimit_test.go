package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit_RejectsAfterBurst(t *testing.T) {
	store := newVisitorStore(1, 2, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	h := rateLimit(store, discardLogger())(okHandler())

	codes := make([]int, 0, 3)
	for range 3 {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/bakugan", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		h.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// A second later one token has been refilled.
	now = now.Add(time.Second)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/bakugan", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_PerClient(t *testing.T) {
	store := newVisitorStore(1, 1, time.Minute)
	h := rateLimit(store, discardLogger())(okHandler())

	for _, ip := range []string{"10.0.0.1:1", "10.0.0.2:1"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = ip
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, 2, store.len())
}

func TestRateLimit_Response(t *testing.T) {
	store := newVisitorStore(1, 1, time.Minute)
	h := rateLimit(store, discardLogger())(okHandler())

	var w *httptest.ResponseRecorder
	for range 2 {
		w = httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	}
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"code":"RATE_LIMITED"`)
}

func TestRateLimit_SweepsStaleVisitors(t *testing.T) {
	store := newVisitorStore(10, 10, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.allow("10.0.0.1")
	store.allow("10.0.0.2")
	assert.Equal(t, 2, store.len())

	now = now.Add(2 * time.Minute)
	store.allow("10.0.0.3")
	assert.Equal(t, 1, store.len())
}

func TestRateLimit_Disabled(t *testing.T) {
	h := RateLimit(0, 0, discardLogger())(okHandler())
	for range 5 {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.9:80", "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.9:80", "198.51.100.7"},
		{"garbage header", map[string]string{"X-Forwarded-For": "nope"}, "10.0.0.9:80", "10.0.0.9"},
		{"remote addr", nil, "192.0.2.1:1234", "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
