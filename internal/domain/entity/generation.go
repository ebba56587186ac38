package entity

import (
	"strings"
	"time"
)

// GenerationRequest 发往外部服务的生成请求
type GenerationRequest struct {
	// StoryID 本地预生成的标识，外部服务返回的 created.id 才是持久标识
	StoryID         string          `json:"storyId"`
	UserPrompt      string          `json:"userPrompt"`
	StoryPlanConfig StoryPlanConfig `json:"storyPlanConfig"`
}

// CreatedStory 生成结果中的已创建资源
type CreatedStory struct {
	ID string `json:"id"`
}

// GenerationResult 外部服务的生成响应
type GenerationResult struct {
	Created *CreatedStory `json:"created,omitempty"`
}

// CreatedID 返回已创建故事的标识；缺失时返回空串
func (r *GenerationResult) CreatedID() string {
	if r == nil || r.Created == nil {
		return ""
	}
	return strings.TrimSpace(r.Created.ID)
}

// AttemptStatus 单次生成调用状态
type AttemptStatus string

const (
	AttemptStatusPending AttemptStatus = "pending"
	AttemptStatusRunning AttemptStatus = "running"
	// AttemptStatusCreated 返回了非空 created.id
	AttemptStatusCreated AttemptStatus = "created"
	// AttemptStatusEmpty 调用成功但响应中没有 created.id
	AttemptStatusEmpty  AttemptStatus = "empty"
	AttemptStatusFailed AttemptStatus = "failed"
)

// GenerationAttempt 一次提交中针对单个预设的生成调用
type GenerationAttempt struct {
	Plan         string        `json:"plan"`
	RequestID    string        `json:"request_story_id"`
	StoryID      string        `json:"story_id,omitempty"`
	Status       AttemptStatus `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`
	DurationMs   int64         `json:"duration_ms"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
}

// NewGenerationAttempt 创建待执行的调用记录
func NewGenerationAttempt(plan, requestID string) *GenerationAttempt {
	return &GenerationAttempt{
		Plan:      plan,
		RequestID: requestID,
		Status:    AttemptStatusPending,
	}
}

// Start 开始执行
func (a *GenerationAttempt) Start() {
	now := time.Now()
	a.Status = AttemptStatusRunning
	a.StartedAt = &now
}

// Complete 根据响应完成调用
func (a *GenerationAttempt) Complete(result *GenerationResult) {
	a.finish()
	a.StoryID = result.CreatedID()
	if a.StoryID == "" {
		a.Status = AttemptStatusEmpty
		return
	}
	a.Status = AttemptStatusCreated
}

// Fail 调用失败
func (a *GenerationAttempt) Fail(errMsg string) {
	a.finish()
	a.Status = AttemptStatusFailed
	a.ErrorMessage = errMsg
}

// Duration 调用耗时
func (a *GenerationAttempt) Duration() time.Duration {
	return time.Duration(a.DurationMs) * time.Millisecond
}

func (a *GenerationAttempt) finish() {
	now := time.Now()
	a.CompletedAt = &now
	if a.StartedAt != nil {
		a.DurationMs = now.Sub(*a.StartedAt).Milliseconds()
	}
}
