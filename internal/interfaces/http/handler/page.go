package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"story-studio/internal/application/story"
	"story-studio/internal/domain/entity"
	"story-studio/internal/interfaces/http/dto"
	"story-studio/internal/interfaces/http/middleware"
	"story-studio/internal/interfaces/http/view"
	apperrors "story-studio/pkg/errors"
	"story-studio/pkg/logger"
)

// PageHandler 服务端渲染页面处理器
type PageHandler struct {
	title        string
	orchestrator *story.Orchestrator
	editor       *story.Editor
}

// NewPageHandler 创建页面处理器
func NewPageHandler(title string, orchestrator *story.Orchestrator, editor *story.Editor) *PageHandler {
	return &PageHandler{
		title:        title,
		orchestrator: orchestrator,
		editor:       editor,
	}
}

// Home 列表/创建页
// @Summary 列表/创建页
// @Tags Pages
// @Produce html
// @Router / [get]
func (h *PageHandler) Home(c *gin.Context) {
	h.renderHome(c, http.StatusOK, "")
}

// Submit 提交生成请求，完成后重定向回列表页
// @Summary 提交生成请求
// @Tags Pages
// @Accept x-www-form-urlencoded
// @Param userPrompt formData string true "生成提示"
// @Success 303
// @Router / [post]
func (h *PageHandler) Submit(c *gin.Context) {
	var req dto.SubmitStoryRequest
	if err := c.ShouldBind(&req); err != nil {
		h.renderHome(c, http.StatusBadRequest, "invalid form: "+err.Error())
		return
	}

	_, err := h.orchestrator.Submit(c.Request.Context(), middleware.SessionID(c), req.Prompt)
	switch {
	case err == nil:
		c.Redirect(http.StatusSeeOther, "/")
	case errors.Is(err, apperrors.ErrEmptyPrompt), errors.Is(err, apperrors.ErrInFlight):
		h.renderHome(c, apperrors.AsAppError(err).HTTPStatus, apperrors.AsAppError(err).Message)
	default:
		logger.Error(c.Request.Context(), "story submission failed", err)
		h.renderHome(c, http.StatusInternalServerError, "Story generation could not be started.")
	}
}

// Editor 编辑页
// @Summary 编辑页
// @Tags Pages
// @Produce html
// @Param id path string true "故事 ID"
// @Router /story/{id} [get]
func (h *PageHandler) Editor(c *gin.Context) {
	id := c.Param("id")
	v, err := h.editor.Load(c.Request.Context(), id)
	if err != nil {
		h.renderEditorError(c, id, err)
		return
	}
	h.renderEditor(c, http.StatusOK, v, c.Query("saved") == "1", "")
}

// SaveStory 保存编辑内容
// @Summary 保存故事
// @Tags Pages
// @Accept x-www-form-urlencoded
// @Param id path string true "故事 ID"
// @Param storyData formData string true "故事内容"
// @Success 303
// @Router /story/{id} [post]
func (h *PageHandler) SaveStory(c *gin.Context) {
	id := c.Param("id")

	var req dto.UpdateStoryRequest
	if err := c.ShouldBind(&req); err != nil {
		h.renderEditor(c, http.StatusBadRequest, &story.EditorView{StoryID: id}, false, "invalid form: "+err.Error())
		return
	}

	if _, err := h.editor.Save(c.Request.Context(), id, req.Content); err != nil {
		logger.Error(c.Request.Context(), "failed to save story", err, "story_id", id)
		h.renderEditor(c, apperrors.AsAppError(err).HTTPStatus,
			&story.EditorView{StoryID: id, Content: req.Content}, false, "The story could not be saved.")
		return
	}
	c.Redirect(http.StatusSeeOther, entity.StoryPath(id)+"?saved=1")
}

func (h *PageHandler) renderHome(c *gin.Context, status int, errMsg string) {
	state, err := h.orchestrator.State(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		logger.Error(c.Request.Context(), "failed to load session", err)
		if errMsg == "" {
			status, errMsg = http.StatusServiceUnavailable, "Session state is unavailable."
		}
	}
	c.HTML(status, view.HomePage, view.Home{
		Title:   h.title,
		Session: dto.ToSessionResponse(state),
		Plans:   h.orchestrator.Plans(),
		Error:   errMsg,
	})
}

func (h *PageHandler) renderEditorError(c *gin.Context, id string, err error) {
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "failed to load story", err, "story_id", id)
	}
	h.renderEditor(c, appErr.HTTPStatus, &story.EditorView{StoryID: id}, false, appErr.Message)
}

func (h *PageHandler) renderEditor(c *gin.Context, status int, v *story.EditorView, saved bool, errMsg string) {
	c.HTML(status, view.EditorPage, view.Editor{
		Title: h.title,
		Story: dto.ToStoryResponse(v),
		Saved: saved,
		Error: errMsg,
	})
}
