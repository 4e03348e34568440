package gateway_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusgateway/mcp-gateway/internal/gateway"
)

func newRateLimitedRouter(perMinute int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gateway.RateLimiter(perMinute))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	r := newRateLimitedRouter(120) // burst=120, comfortably above a handful of requests

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1111"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	r := newRateLimitedRouter(60) // perMinute=60 -> burst=60, rps=1

	var lastCode int
	for i := 0; i < 65; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.2:2222"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		lastCode = w.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, lastCode)
}

func TestRateLimiter_DefaultsWhenNonPositive(t *testing.T) {
	r := newRateLimitedRouter(0) // falls back to 500/minute

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.3:3333"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter_TracksPerIPIndependently(t *testing.T) {
	r := newRateLimitedRouter(60)

	// Exhaust the burst for one IP.
	for i := 0; i < 65; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.4:4444"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
	}

	// A different IP should still be allowed.
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.5:5555"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
