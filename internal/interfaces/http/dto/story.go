package dto

import (
	"time"

	"story-studio/internal/application/plan"
	"story-studio/internal/application/story"
	"story-studio/internal/domain/entity"
)

// SubmitStoryRequest 提交生成请求
// 表单字段沿用页面输入框的名称 userPrompt
type SubmitStoryRequest struct {
	Prompt string `json:"prompt" form:"userPrompt"`
}

// UpdateStoryRequest 保存故事请求
type UpdateStoryRequest struct {
	Content string `json:"content" form:"storyData"`
}

// StoryLinkResponse 列表中的故事入口
type StoryLinkResponse struct {
	ID    string `json:"id"`
	Plan  string `json:"plan,omitempty"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

// SessionResponse 列表页状态
type SessionResponse struct {
	Prompt    string              `json:"prompt"`
	InFlight  bool                `json:"in_flight"`
	Notice    string              `json:"notice,omitempty"`
	Stories   []StoryLinkResponse `json:"stories"`
	Latest    *StoryLinkResponse  `json:"latest,omitempty"`
	UpdatedAt *time.Time          `json:"updated_at,omitempty"`
}

// AttemptResponse 单次生成调用结果
type AttemptResponse struct {
	Plan       string `json:"plan"`
	RequestID  string `json:"request_story_id"`
	StoryID    string `json:"story_id,omitempty"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// SubmissionResponse 提交结果
type SubmissionResponse struct {
	Attempts []AttemptResponse `json:"attempts"`
	Session  SessionResponse   `json:"session"`
}

// PlanResponse 预设
type PlanResponse struct {
	Name   string                 `json:"name"`
	Active bool                   `json:"active"`
	Config entity.StoryPlanConfig `json:"config"`
}

// StoryResponse 编辑页数据
type StoryResponse struct {
	ID      string `json:"id"`
	Found   bool   `json:"found"`
	Content string `json:"content"`
	HTML    string `json:"html"`
}

// ToStoryLinkResponse 转换故事入口
func ToStoryLinkResponse(link entity.StoryLink) StoryLinkResponse {
	return StoryLinkResponse{
		ID:    link.ID,
		Plan:  link.Plan,
		Label: link.Label(),
		URL:   link.Path(),
	}
}

// ToSessionResponse 转换列表页状态
func ToSessionResponse(state entity.ListingState) SessionResponse {
	resp := SessionResponse{
		Prompt:   state.Prompt,
		InFlight: state.InFlight,
		Notice:   state.Notice,
		Stories:  make([]StoryLinkResponse, 0, len(state.Stories)),
	}
	for _, link := range state.Stories {
		resp.Stories = append(resp.Stories, ToStoryLinkResponse(link))
	}
	if latest, ok := state.Latest(); ok {
		l := ToStoryLinkResponse(latest)
		resp.Latest = &l
	}
	if !state.UpdatedAt.IsZero() {
		t := state.UpdatedAt
		resp.UpdatedAt = &t
	}
	return resp
}

// ToSubmissionResponse 转换提交结果
func ToSubmissionResponse(sub *story.Submission) SubmissionResponse {
	resp := SubmissionResponse{
		Attempts: make([]AttemptResponse, 0, len(sub.Attempts)),
		Session:  ToSessionResponse(sub.State),
	}
	for _, a := range sub.Attempts {
		resp.Attempts = append(resp.Attempts, AttemptResponse{
			Plan:       a.Plan,
			RequestID:  a.RequestID,
			StoryID:    a.StoryID,
			Status:     string(a.Status),
			Error:      a.ErrorMessage,
			DurationMs: a.DurationMs,
		})
	}
	return resp
}

// ToPlanResponses 转换预设列表
func ToPlanResponses(plans []plan.NamedConfig, active []string) []PlanResponse {
	on := make(map[string]bool, len(active))
	for _, name := range active {
		on[name] = true
	}
	out := make([]PlanResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, PlanResponse{Name: p.Name, Active: on[p.Name], Config: p.Config})
	}
	return out
}

// ToStoryResponse 转换编辑页数据
func ToStoryResponse(v *story.EditorView) StoryResponse {
	return StoryResponse{
		ID:      v.StoryID,
		Found:   v.Found,
		Content: v.Content,
		HTML:    v.HTML,
	}
}
