package entity

import (
	"slices"
	"time"
)

// ListingState 列表页会话状态
// 所有修改方法返回新值，接收者及其切片保持不变
type ListingState struct {
	Prompt        string      `json:"prompt"`
	Stories       []StoryLink `json:"stories"`
	InFlight      bool        `json:"in_flight"`
	InFlightSince time.Time   `json:"in_flight_since,omitempty"`
	Notice        string      `json:"notice,omitempty"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// WithPrompt 记录当前输入
func (s ListingState) WithPrompt(prompt string) ListingState {
	s.Prompt = prompt
	s.UpdatedAt = time.Now()
	return s
}

// Begin 进入生成中状态并清空上一次的提示
func (s ListingState) Begin(prompt string) ListingState {
	s.Prompt = prompt
	s.InFlight = true
	s.InFlightSince = time.Now()
	s.Notice = ""
	s.UpdatedAt = time.Now()
	return s
}

// Append 追加故事链接；空标识不追加
func (s ListingState) Append(link StoryLink) ListingState {
	if !ValidStoryID(link.ID) {
		return s
	}
	stories := make([]StoryLink, len(s.Stories), len(s.Stories)+1)
	copy(stories, s.Stories)
	s.Stories = append(stories, link)
	s.UpdatedAt = time.Now()
	return s
}

// Settle 结束生成中状态
func (s ListingState) Settle(notice string) ListingState {
	s.InFlight = false
	s.InFlightSince = time.Time{}
	s.Notice = notice
	s.UpdatedAt = time.Now()
	return s
}

// ClaimExpired 生成中标记是否已超过 ttl 仍未清除
// 没有开始时间的标记视为过期
func (s ListingState) ClaimExpired(now time.Time, ttl time.Duration) bool {
	if !s.InFlight {
		return false
	}
	if s.InFlightSince.IsZero() {
		return true
	}
	return ttl > 0 && now.Sub(s.InFlightSince) > ttl
}

// Latest 最近一次生成的故事，用于“继续编辑”
func (s ListingState) Latest() (StoryLink, bool) {
	if len(s.Stories) == 0 {
		return StoryLink{}, false
	}
	return s.Stories[len(s.Stories)-1], true
}

// Snapshot 返回不与接收者共享切片的副本
func (s ListingState) Snapshot() ListingState {
	s.Stories = slices.Clone(s.Stories)
	return s
}
