package story

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"story-studio/internal/application/plan"
	"story-studio/internal/domain/entity"
	"story-studio/internal/domain/service"
	apperrors "story-studio/pkg/errors"
	"story-studio/pkg/logger"
)

// ChatInput 一次聊天请求
type ChatInput struct {
	StoryID string
	Plan    string
	Query   string
}

// ChatRelay 发起异步聊天并转发流
type ChatRelay struct {
	chat  service.ChatService
	plans *plan.Registry
}

// NewChatRelay 创建聊天转发服务
func NewChatRelay(chat service.ChatService, plans *plan.Registry) *ChatRelay {
	return &ChatRelay{chat: chat, plans: plans}
}

// Relay 逐帧回调直到结束帧
func (r *ChatRelay) Relay(ctx context.Context, in ChatInput, fn func(entity.ChatFrame) error) error {
	if !entity.ValidStoryID(in.StoryID) {
		return apperrors.ErrInvalidParam.WithDetail("story id is required")
	}

	cfg, err := r.config(in)
	if err != nil {
		return err
	}

	ctx = logger.WithContext(ctx, logger.StoryIDKey, in.StoryID)
	ctx, span := tracer.Start(ctx, "story.ChatRelay",
		trace.WithAttributes(attribute.String("story.id", in.StoryID)))
	defer span.End()

	session, err := r.chat.StartChat(ctx, entity.ChatRequest{StoryID: in.StoryID, UserConfig: cfg})
	if err != nil {
		span.RecordError(err)
		return apperrors.ErrChatFailed.WithError(err)
	}
	logger.Info(ctx, "chat started")

	if err := r.chat.StreamChat(ctx, session.SocketAddress, fn); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		span.RecordError(err)
		return apperrors.ErrChatFailed.WithError(err)
	}
	return nil
}

func (r *ChatRelay) config(in ChatInput) (entity.StoryPlanConfig, error) {
	cfg := plan.ChatConfig()
	if strings.TrimSpace(in.Plan) != "" {
		named, err := r.plans.Get(in.Plan)
		if err != nil {
			return entity.StoryPlanConfig{}, err
		}
		named.UserQuery = cfg.UserQuery
		cfg = named
	}
	if q := strings.TrimSpace(in.Query); q != "" {
		cfg.UserQuery = q
	}
	return cfg, nil
}
