package entity

import (
	"encoding/json"
	"net/url"
	"strings"
)

// StoryLink 列表页中的故事入口
type StoryLink struct {
	ID   string `json:"id"`
	Plan string `json:"plan,omitempty"`
}

// Label 列表中展示的链接文本
func (l StoryLink) Label() string {
	return "Edit Story: " + l.ID
}

// Path 编辑页路径
func (l StoryLink) Path() string {
	return StoryPath(l.ID)
}

// StoryPath 返回故事编辑页路径
func StoryPath(id string) string {
	return "/story/" + url.PathEscape(id)
}

// Story 外部服务持有的故事文档
type Story struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	// Raw 外部服务返回的完整文档，本地不解析其余字段
	Raw json.RawMessage `json:"-"`
}

// StoryPatch 故事更新内容
type StoryPatch struct {
	Content string `json:"content"`
}

// ValidStoryID 编辑页要求非空标识
func ValidStoryID(id string) bool {
	return strings.TrimSpace(id) != ""
}
