package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw...)
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func get(router http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	router := newRouter(NewRateLimiter(RateLimitConfig{Limit: 3, Window: time.Second}))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(router, "").Code, "request %d should succeed", i+1)
	}

	w := get(router, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	time.Sleep(time.Second + 100*time.Millisecond)
	assert.Equal(t, http.StatusOK, get(router, "").Code, "request after window should succeed")
}

func TestRateLimiterDifferentClients(t *testing.T) {
	router := newRouter(NewRateLimiter(RateLimitConfig{Limit: 1, Window: time.Minute}))

	assert.Equal(t, http.StatusOK, get(router, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(router, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusOK, get(router, "10.0.0.2:1234").Code)
}

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (f *fakeCounter) IncrWindow(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	return f.counts[key], nil
}

func TestRedisRateLimit(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int64{}}
	router := newRouter(RateLimit(counter, "api", RateLimitConfig{Limit: 2, Window: time.Minute}))

	assert.Equal(t, http.StatusOK, get(router, "").Code)
	assert.Equal(t, http.StatusOK, get(router, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(router, "").Code)
	assert.Len(t, counter.counts, 1)
	for key := range counter.counts {
		assert.Contains(t, key, "rate_limit:api:")
	}
}

func TestRedisRateLimitFailsClosed(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int64{}, err: errors.New("redis down")}
	router := newRouter(RateLimit(counter, "api", RateLimitConfig{Limit: 2, Window: time.Minute}))

	assert.Equal(t, http.StatusServiceUnavailable, get(router, "").Code)
}

func TestRequestID(t *testing.T) {
	router := newRouter(RequestIDMiddleware())

	w := get(router, "")
	assert.Len(t, w.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestRedactToken(t *testing.T) {
	assert.Equal(t, "", redactToken(""))
	assert.Equal(t, "a=1", redactToken("a=1"))
	assert.Equal(t, "token=REDACTED", redactToken("token=secret"))
}
