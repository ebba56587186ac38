package story

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"story-studio/internal/domain/entity"
	"story-studio/internal/domain/service"
	apperrors "story-studio/pkg/errors"
	"story-studio/pkg/logger"
)

// loadTimeout 合并加载的上限，不随单个调用方取消
const loadTimeout = 2 * time.Minute

// EditorView 编辑页数据
type EditorView struct {
	StoryID string `json:"story_id"`
	Found   bool   `json:"found"`
	Content string `json:"content"`
	// HTML 已清洗的预览内容
	HTML string `json:"html"`
}

// Editor 编辑页加载与保存
type Editor struct {
	stories service.StoryService
	md      goldmark.Markdown
	policy  *bluemonday.Policy
	group   singleflight.Group
}

// NewEditor 创建编辑服务
func NewEditor(stories service.StoryService) *Editor {
	return &Editor{
		stories: stories,
		md:      goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:  bluemonday.UGCPolicy(),
	}
}

// Load 加载指定故事；外部服务中不存在时返回空编辑器
// 同一故事的并发加载合并为一次外部调用
func (e *Editor) Load(ctx context.Context, storyID string) (*EditorView, error) {
	if !entity.ValidStoryID(storyID) {
		return nil, apperrors.ErrInvalidParam.WithDetail("story id is required")
	}

	ctx, span := tracer.Start(ctx, "story.EditorLoad",
		trace.WithAttributes(attribute.String("story.id", storyID)))
	defer span.End()

	// 合并后的调用脱离发起者的 ctx，各调用方只等待自己的 ctx
	ch := e.group.DoChan(storyID, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		return e.stories.GetStory(loadCtx, storyID)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		return nil, apperrors.Wrap(ctx.Err(), apperrors.CodeUpstreamError, "failed to load story")
	}
	span.SetAttributes(attribute.Bool("story.load_shared", res.Shared))
	if res.Err != nil {
		span.RecordError(res.Err)
		return nil, apperrors.Wrap(res.Err, apperrors.CodeUpstreamError, "failed to load story")
	}

	view := &EditorView{StoryID: storyID}
	story, _ := res.Val.(*entity.Story)
	if story == nil {
		logger.Debug(ctx, "story not found, rendering empty editor", "story_id", storyID)
		return view, nil
	}

	view.Found = true
	view.Content = story.Content
	html, err := e.Render(story.Content)
	if err != nil {
		logger.Warn(ctx, "failed to render story preview", "story_id", storyID, "error", err.Error())
	}
	view.HTML = html
	return view, nil
}

// Save 保存编辑内容
func (e *Editor) Save(ctx context.Context, storyID, content string) (*EditorView, error) {
	if !entity.ValidStoryID(storyID) {
		return nil, apperrors.ErrInvalidParam.WithDetail("story id is required")
	}

	ctx, span := tracer.Start(ctx, "story.EditorSave",
		trace.WithAttributes(attribute.String("story.id", storyID)))
	defer span.End()

	story, err := e.stories.UpdateStory(ctx, storyID, entity.StoryPatch{Content: content})
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeUpstreamError, "failed to save story")
	}
	e.group.Forget(storyID)

	html, err := e.Render(story.Content)
	if err != nil {
		logger.Warn(ctx, "failed to render story preview", "story_id", storyID, "error", err.Error())
	}
	return &EditorView{
		StoryID: storyID,
		Found:   true,
		Content: story.Content,
		HTML:    html,
	}, nil
}

// Render markdown 转换为清洗后的 HTML
func (e *Editor) Render(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := e.md.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return string(e.policy.SanitizeBytes(buf.Bytes())), nil
}
