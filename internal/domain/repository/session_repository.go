// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"story-studio/internal/domain/entity"
)

// UpdateFunc 基于当前状态计算新状态
// 返回错误时放弃本次更新
type UpdateFunc func(current entity.ListingState) (entity.ListingState, error)

// SessionStore 列表页会话状态存储
type SessionStore interface {
	// Load 获取会话状态；不存在时返回零值
	Load(ctx context.Context, sessionID string) (entity.ListingState, error)

	// Update 原子地读取、计算并写回会话状态，返回写入后的状态
	Update(ctx context.Context, sessionID string, fn UpdateFunc) (entity.ListingState, error)
}
