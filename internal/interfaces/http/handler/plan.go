package handler

import (
	"github.com/gin-gonic/gin"

	"story-studio/internal/application/plan"
	"story-studio/internal/interfaces/http/dto"
)

// PlanHandler 预设处理器
type PlanHandler struct {
	registry *plan.Registry
	active   []string
}

// NewPlanHandler 创建预设处理器，active 为提交时依次使用的预设
func NewPlanHandler(registry *plan.Registry, active []string) *PlanHandler {
	return &PlanHandler{registry: registry, active: active}
}

// ListPlans 列出预设
// @Summary 列出预设
// @Tags Plans
// @Produce json
// @Success 200 {object} dto.Response[[]dto.PlanResponse]
// @Router /v1/plans [get]
func (h *PlanHandler) ListPlans(c *gin.Context) {
	plans, err := h.registry.Resolve(h.registry.Names())
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, dto.ToPlanResponses(plans, h.active))
}
