package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"story-studio/internal/application/story"
	"story-studio/internal/domain/entity"
	apperrors "story-studio/pkg/errors"
	"story-studio/pkg/logger"
)

// ChatHandler 聊天流处理器
type ChatHandler struct {
	relay *story.ChatRelay
}

// NewChatHandler 创建聊天流处理器
func NewChatHandler(relay *story.ChatRelay) *ChatHandler {
	return &ChatHandler{relay: relay}
}

// StreamChat 以 SSE 转发外部服务的聊天流
// @Summary 故事聊天流
// @Description 发起异步聊天，将 websocket 帧以 SSE 事件 frame 转发，结束时发送 done
// @Tags Stories
// @Produce text/event-stream
// @Param id path string true "故事 ID"
// @Param plan query string false "预设名"
// @Param query query string false "用户问题"
// @Success 200 "SSE stream"
// @Router /v1/stories/{id}/chat/stream [get]
func (h *ChatHandler) StreamChat(c *gin.Context) {
	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	in := story.ChatInput{
		StoryID: c.Param("id"),
		Plan:    c.Query("plan"),
		Query:   c.Query("query"),
	}

	index := 0
	err := h.relay.Relay(c.Request.Context(), in, func(f entity.ChatFrame) error {
		c.SSEvent("frame", string(f.Raw))
		c.Writer.Flush()
		index++
		return nil
	})

	switch {
	case err == nil:
		c.SSEvent("done", gin.H{"frames": index})
	case errors.Is(err, context.Canceled):
		// 客户端断开
		return
	default:
		appErr := apperrors.AsAppError(err)
		logger.Warn(c.Request.Context(), "chat stream ended with error", "error", err.Error(), "frames", index)
		c.SSEvent("error", gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		})
	}
	c.Writer.Flush()
}
