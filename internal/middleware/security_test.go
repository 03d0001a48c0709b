package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestIPRateLimiterBurst(t *testing.T) {
	l := NewIPRateLimiter(rate.Every(time.Hour), 2)
	h := l.Middleware(okHandler)

	assert.Equal(t, http.StatusOK, post(h, "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusOK, post(h, "10.0.0.1:2").Code)
	assert.Equal(t, http.StatusTooManyRequests, post(h, "10.0.0.1:3").Code)
	assert.Equal(t, http.StatusOK, post(h, "10.0.0.2:1").Code)
}

func TestIPRateLimiterSweep(t *testing.T) {
	l := NewIPRateLimiter(rate.Every(time.Hour), 1)
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))

	l.Sweep(time.Now().Add(time.Second))
	assert.True(t, l.Allow("10.0.0.1"), "swept IPs start with a fresh bucket")
}

func TestCORSAllowsConfiguredOriginOnly(t *testing.T) {
	h := CORS([]string{"http://localhost:4321"})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:4321")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:4321", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
