package handler

import (
	"github.com/gin-gonic/gin"

	"story-studio/internal/application/story"
	"story-studio/internal/interfaces/http/dto"
	"story-studio/internal/interfaces/http/middleware"
)

// StoryHandler 故事 JSON 接口处理器
type StoryHandler struct {
	orchestrator *story.Orchestrator
	editor       *story.Editor
}

// NewStoryHandler 创建故事处理器
func NewStoryHandler(orchestrator *story.Orchestrator, editor *story.Editor) *StoryHandler {
	return &StoryHandler{
		orchestrator: orchestrator,
		editor:       editor,
	}
}

// GetSession 获取当前会话的列表页状态
// @Summary 获取列表页状态
// @Tags Stories
// @Produce json
// @Success 200 {object} dto.Response[dto.SessionResponse]
// @Router /v1/session [get]
func (h *StoryHandler) GetSession(c *gin.Context) {
	state, err := h.orchestrator.State(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, dto.ToSessionResponse(state))
}

// CreateStory 提交生成请求
// @Summary 提交生成请求
// @Description 依次使用每个已启用的预设调用外部服务
// @Tags Stories
// @Accept json
// @Produce json
// @Param body body dto.SubmitStoryRequest true "生成请求"
// @Success 201 {object} dto.Response[dto.SubmissionResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/stories [post]
func (h *StoryHandler) CreateStory(c *gin.Context) {
	var req dto.SubmitStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	sub, err := h.orchestrator.Submit(c.Request.Context(), middleware.SessionID(c), req.Prompt)
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Created(c, dto.ToSubmissionResponse(sub))
}

// GetStory 获取故事内容
// @Summary 获取故事
// @Tags Stories
// @Produce json
// @Param id path string true "故事 ID"
// @Success 200 {object} dto.Response[dto.StoryResponse]
// @Router /v1/stories/{id} [get]
func (h *StoryHandler) GetStory(c *gin.Context) {
	v, err := h.editor.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, dto.ToStoryResponse(v))
}

// UpdateStory 保存故事内容
// @Summary 保存故事
// @Tags Stories
// @Accept json
// @Produce json
// @Param id path string true "故事 ID"
// @Param body body dto.UpdateStoryRequest true "故事内容"
// @Success 200 {object} dto.Response[dto.StoryResponse]
// @Router /v1/stories/{id} [put]
func (h *StoryHandler) UpdateStory(c *gin.Context) {
	var req dto.UpdateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	v, err := h.editor.Save(c.Request.Context(), c.Param("id"), req.Content)
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, dto.ToStoryResponse(v))
}
