package httpmiddleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTokenBucketRefills(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	l := NewSimpleTokenBucket(2, 60)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("ip"))
	assert.True(t, l.allow("ip"))
	assert.False(t, l.allow("ip"))
	assert.True(t, l.allow("other"), "keys are independent")

	now = now.Add(time.Second)
	assert.True(t, l.allow("ip"), "one token per second at 60/min")
	assert.False(t, l.allow("ip"))
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	limited := gin.New()
	limited.Use(Middleware(NewSimpleTokenBucket(1, 1), zap.NewNop()))
	limited.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	limited.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	w = httptest.NewRecorder()
	limited.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	open := gin.New()
	open.Use(Middleware(failingLimiter{}, zap.NewNop()))
	open.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	w = httptest.NewRecorder()
	open.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code, "limiter errors fail open")
}
