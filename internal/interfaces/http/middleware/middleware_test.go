package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSessionIssuesAndReusesCookie(t *testing.T) {
	r := gin.New()
	r.Use(Session(SessionConfig{CookieName: "sid", TTL: time.Hour}))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, SessionID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	first := cookies[0]
	assert.Equal(t, "sid", first.Name)
	assert.Equal(t, first.Value, w.Body.String())
	assert.True(t, first.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, first.SameSite)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(first)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, first.Value, w.Body.String())
}

func TestSessionReplacesForgedCookie(t *testing.T) {
	r := gin.New()
	r.Use(Session(SessionConfig{CookieName: "sid", TTL: time.Hour}))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, SessionID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "../../etc/passwd"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.NotEqual(t, "../../etc/passwd", w.Body.String())
	assert.Len(t, w.Body.String(), 36)
}

func TestRequestIDPropagation(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDContextKey)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-1", w.Body.String())
	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 200))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, strings.Repeat("x", 200), w.Body.String())
	assert.NotEmpty(t, w.Body.String())
}

type countingLimiter struct {
	calls int
	allow int
	err   error
	keys  []string
}

func (l *countingLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.calls++
	l.keys = append(l.keys, key)
	if l.err != nil {
		return false, l.err
	}
	return l.calls <= l.allow, nil
}

func TestRateLimitRejectsAfterLimit(t *testing.T) {
	limiter := &countingLimiter{allow: 2}
	r := gin.New()
	r.POST("/", RateLimit(RateLimitConfig{Enabled: true, RequestsPerMinute: 2}, limiter), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	codes := make([]int, 0, 3)
	for range 3 {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "60", w.Header().Get("Retry-After"))
		}
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
	assert.Contains(t, limiter.keys[0], "POST /")
}

func TestRateLimitFailsOpen(t *testing.T) {
	limiter := &countingLimiter{err: errors.New("redis down")}
	r := gin.New()
	r.POST("/", RateLimit(RateLimitConfig{Enabled: true}, limiter), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRecoveryReturns500(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "request_id")
}
