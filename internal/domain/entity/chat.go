package entity

import "encoding/json"

// ChatFrameTerminate 流结束帧类型
const ChatFrameTerminate = "terminate"

// ChatRequest 异步聊天请求
type ChatRequest struct {
	StoryID    string          `json:"story-id"`
	UserConfig StoryPlanConfig `json:"user_config_params"`
}

// ChatSession 异步聊天会话
type ChatSession struct {
	SocketAddress string `json:"socketAddress"`
}

// ChatFrame 聊天流中的一帧
// 非 JSON 帧的 Type 为空，Raw 保留原文
type ChatFrame struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// Terminal 是否为结束帧
func (f ChatFrame) Terminal() bool {
	return f.Type == ChatFrameTerminate
}
