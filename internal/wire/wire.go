//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"story-studio/internal/application/plan"
	"story-studio/internal/application/story"
	"story-studio/internal/config"
	"story-studio/internal/domain/service"
	"story-studio/internal/infrastructure/capitol"
	"story-studio/internal/interfaces/http/handler"
	"story-studio/internal/interfaces/http/router"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		CapitolSet,
		RedisSet,
		StorySet,
		RouterSet,
	)
	return nil, nil, nil
}

// CapitolSet 外部服务提供者集合
var CapitolSet = wire.NewSet(
	ProvideCapitolClient,
	wire.Bind(new(service.StoryService), new(*capitol.Client)),
	wire.Bind(new(service.ChatService), new(*capitol.Client)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	ProvideSessionStore,
	ProvideRateLimiter,
	ProvideEventPublisher,
)

// StorySet 故事编排提供者集合
var StorySet = wire.NewSet(
	plan.NewRegistry,
	ProvideActivePlans,
	ProvideOrchestrator,
	story.NewEditor,
	story.NewChatRelay,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	ProvidePageHandler,
	handler.NewStoryHandler,
	ProvidePlanHandler,
	handler.NewChatHandler,
	ProvideProxyHandler,
	ProvideTemplates,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
