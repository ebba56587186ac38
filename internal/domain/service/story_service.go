// Package service 定义领域服务端口
package service

import (
	"context"

	"story-studio/internal/domain/entity"
)

// StoryService 外部故事生成服务的能力边界
// 应用层只依赖此接口，不感知具体的外部包
type StoryService interface {
	// Generate 触发一次故事生成
	Generate(ctx context.Context, req entity.GenerationRequest) (*entity.GenerationResult, error)

	// GetStory 获取故事；不存在时返回 nil, nil
	GetStory(ctx context.Context, storyID string) (*entity.Story, error)

	// UpdateStory 保存编辑后的故事内容
	UpdateStory(ctx context.Context, storyID string, patch entity.StoryPatch) (*entity.Story, error)
}

// ChatService 异步聊天能力
type ChatService interface {
	// StartChat 发起异步聊天，返回流地址
	StartChat(ctx context.Context, req entity.ChatRequest) (*entity.ChatSession, error)

	// StreamChat 逐帧回调，直到结束帧、连接关闭或 ctx 取消
	StreamChat(ctx context.Context, socketAddress string, fn func(entity.ChatFrame) error) error
}
