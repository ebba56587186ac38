// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"fmt"
	"html/template"

	"story-studio/internal/application/plan"
	"story-studio/internal/application/story"
	"story-studio/internal/config"
	"story-studio/internal/domain/repository"
	"story-studio/internal/infrastructure/capitol"
	"story-studio/internal/infrastructure/messaging"
	"story-studio/internal/infrastructure/persistence/memory"
	"story-studio/internal/infrastructure/persistence/redis"
	"story-studio/internal/interfaces/http/handler"
	"story-studio/internal/interfaces/http/middleware"
	"story-studio/internal/interfaces/http/view"
	"story-studio/pkg/logger"
)

const (
	storeMemory = "memory"
	storeRedis  = "redis"
)

// needsRedis 会话存储、限流或事件任一依赖 Redis
func needsRedis(cfg *config.Config) bool {
	return cfg.Cache.Store == storeRedis ||
		cfg.Security.RateLimit.Enabled ||
		cfg.Features.Events.Enabled
}

// ProvideCapitolClient 提供外部故事服务客户端
func ProvideCapitolClient(cfg *config.Config) (*capitol.Client, error) {
	return capitol.NewClient(&cfg.Capitol, capitol.Options{})
}

// ProvideRedisClient 提供 Redis 客户端
// 只有会话存储使用 Redis 时连接失败才阻塞启动，其余场景降级为 nil
func ProvideRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !needsRedis(cfg) {
		return nil, func() {}, nil
	}

	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		if cfg.Cache.Store == storeRedis {
			return nil, nil, fmt.Errorf("redis session store unavailable: %w", err)
		}
		logger.Warn(ctx, "redis not available, rate limit and events disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideSessionStore 按配置选择会话存储
func ProvideSessionStore(cfg *config.Config, client *redis.Client) (repository.SessionStore, error) {
	switch cfg.Cache.Store {
	case "", storeMemory:
		return memory.NewSessionStore(cfg.Story.SessionTTL), nil
	case storeRedis:
		if client == nil {
			return nil, fmt.Errorf("redis session store requires a redis client")
		}
		return redis.NewSessionStore(client, cfg.Story.SessionTTL), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Cache.Store)
	}
}

// ProvideRateLimiter 提供限流器；Redis 不可用时返回 nil 接口
func ProvideRateLimiter(client *redis.Client) middleware.RateLimiter {
	if client == nil {
		return nil
	}
	return redis.NewRateLimiter(client)
}

// ProvideEventPublisher 提供生成结果事件发布者
func ProvideEventPublisher(cfg *config.Config, client *redis.Client) story.EventPublisher {
	if !cfg.Features.Events.Enabled || client == nil {
		return nil
	}
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 100000
	}
	return messaging.NewProducer(client.Redis(), int64(maxLen))
}

// ProvideActivePlans 解析每次提交使用的预设
func ProvideActivePlans(cfg *config.Config, registry *plan.Registry) ([]plan.NamedConfig, error) {
	if len(cfg.Story.Plans) == 0 {
		return nil, fmt.Errorf("story.plans must name at least one plan")
	}
	return registry.Resolve(cfg.Story.Plans)
}

// ProvideOrchestrator 提供生成编排器
func ProvideOrchestrator(cfg *config.Config, stories *capitol.Client, sessions repository.SessionStore, plans []plan.NamedConfig, events story.EventPublisher) *story.Orchestrator {
	var opts []story.Option
	if cfg.Capitol.Timeout > 0 {
		opts = append(opts, story.WithAttemptTimeout(cfg.Capitol.Timeout))
	}
	if events != nil {
		opts = append(opts, story.WithEventPublisher(events))
	}
	return story.NewOrchestrator(stories, sessions, plans, opts...)
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(cfg *config.Config, client *redis.Client) *handler.HealthHandler {
	checks := map[string]handler.HealthChecker{}
	if client != nil {
		checks["redis"] = client
	}
	return handler.NewHealthHandler(cfg.App.Version, checks)
}

// ProvidePageHandler 提供页面处理器
func ProvidePageHandler(cfg *config.Config, orchestrator *story.Orchestrator, editor *story.Editor) *handler.PageHandler {
	return handler.NewPageHandler(cfg.App.Name, orchestrator, editor)
}

// ProvidePlanHandler 提供预设处理器
func ProvidePlanHandler(cfg *config.Config, registry *plan.Registry) *handler.PlanHandler {
	return handler.NewPlanHandler(registry, cfg.Story.Plans)
}

// ProvideProxyHandler 提供开发代理；未启用时返回 nil
func ProvideProxyHandler(ctx context.Context, cfg *config.Config) (*handler.ProxyHandler, error) {
	if !cfg.Proxy.Enabled {
		return nil, nil
	}
	if !cfg.App.IsDevelopment() {
		logger.Warn(ctx, "dev proxy enabled outside development", "env", cfg.App.Env)
	}
	return handler.NewProxyHandler(cfg.Proxy)
}

// ProvideTemplates 提供页面模板
func ProvideTemplates() (*template.Template, error) {
	return view.Templates()
}
