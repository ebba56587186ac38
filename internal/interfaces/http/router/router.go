// Package router 提供 HTTP 路由配置
package router

import (
	"html/template"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"story-studio/internal/config"
	"story-studio/internal/interfaces/http/handler"
	"story-studio/internal/interfaces/http/middleware"
)

// Handlers 路由依赖的处理器
type Handlers struct {
	Health *handler.HealthHandler
	Page   *handler.PageHandler
	Story  *handler.StoryHandler
	Plan   *handler.PlanHandler
	Chat   *handler.ChatHandler
	// Proxy 为 nil 时不挂载开发代理
	Proxy *handler.ProxyHandler
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers Handlers
	limiter  middleware.RateLimiter
}

// New 创建新的路由器
func New(cfg *config.Config, handlers Handlers, templates *template.Template, limiter middleware.RateLimiter) *Router {
	// 设置 Gin 模式
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.SetHTMLTemplate(templates)

	r := &Router{
		engine:   engine,
		cfg:      cfg,
		handlers: handlers,
		limiter:  limiter,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	// 基础中间件
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	// CORS 中间件
	r.engine.Use(middleware.CORS(r.cfg.Security.CORS))

	// 追踪中间件
	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	// 指标中间件
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	h := r.handlers

	// 系统端点
	r.engine.GET("/health", h.Health.Health)
	r.engine.GET("/ready", h.Health.Ready)
	r.engine.GET("/live", h.Health.Live)

	// Prometheus 指标端点
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// 开发代理不带会话
	if h.Proxy != nil {
		r.engine.Any(h.Proxy.Prefix()+"/*path", h.Proxy.Forward)
	}

	session := middleware.Session(middleware.SessionConfig{
		CookieName: r.cfg.Story.CookieName,
		TTL:        r.cfg.Story.SessionTTL,
		Secure:     !r.cfg.App.IsDevelopment(),
	})
	limit := middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:           r.cfg.Security.RateLimit.Enabled,
		RequestsPerMinute: r.cfg.Security.RateLimit.RequestsPerMinute,
	}, r.limiter)

	// 页面
	pages := r.engine.Group("/", session)
	{
		pages.GET("", h.Page.Home)
		pages.POST("", limit, h.Page.Submit)
		pages.GET("/story/:id", h.Page.Editor)
		pages.POST("/story/:id", h.Page.SaveStory)
	}

	// JSON 接口
	v1 := r.engine.Group("/v1", session)
	{
		v1.GET("/session", h.Story.GetSession)
		v1.GET("/plans", h.Plan.ListPlans)

		stories := v1.Group("/stories")
		{
			stories.POST("", limit, h.Story.CreateStory)
			stories.GET("/:id", h.Story.GetStory)
			stories.PUT("/:id", h.Story.UpdateStory)
			stories.GET("/:id/chat/stream", h.Chat.StreamChat) // SSE
		}
	}
}
