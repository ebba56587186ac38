// Package middleware 提供 HTTP 中间件
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"story-studio/pkg/logger"
)

// SessionContextKey gin.Context 中的会话 ID 键
const SessionContextKey = "session_id"

// SessionConfig 会话 Cookie 配置
type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Session 为每个浏览器分配不透明的会话 ID
func Session(cfg SessionConfig) gin.HandlerFunc {
	if cfg.CookieName == "" {
		cfg.CookieName = "story_session"
	}

	return func(c *gin.Context) {
		sid, err := c.Cookie(cfg.CookieName)
		if err != nil || uuid.Validate(sid) != nil {
			sid = uuid.NewString()
		}

		// 每次请求续期
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cfg.CookieName, sid, int(cfg.TTL.Seconds()), "/", "", cfg.Secure, true)

		c.Set(SessionContextKey, sid)
		ctx := logger.WithContext(c.Request.Context(), logger.SessionIDKey, sid)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// SessionID 获取当前请求的会话 ID
func SessionID(c *gin.Context) string {
	return c.GetString(SessionContextKey)
}
