// Package view 提供服务端渲染的页面模板
package view

import (
	"embed"
	"html/template"

	"story-studio/internal/interfaces/http/dto"
)

//go:embed templates/*.html
var files embed.FS

// 页面模板名
const (
	HomePage   = "home"
	EditorPage = "editor"
)

// Home 列表/创建页数据
type Home struct {
	Title   string
	Session dto.SessionResponse
	Plans   []string
	Error   string
}

// Editor 编辑页数据
type Editor struct {
	Title string
	Story dto.StoryResponse
	Saved bool
	Error string
}

// Templates 解析内嵌模板
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		// 内容已经过 bluemonday 清洗
		"trusted":  func(s string) template.HTML { return template.HTML(s) },
		"pageHead": func(title string, refresh bool) head { return head{Title: title, Refresh: refresh} },
	}).ParseFS(files, "templates/*.html")
}

// head 页头数据；生成中时页面定时刷新
type head struct {
	Title   string
	Refresh bool
}
