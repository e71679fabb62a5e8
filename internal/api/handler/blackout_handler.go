package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nautica/backend/internal/dto"
	"nautica/backend/internal/service"
	"nautica/backend/pkg/response"
)

// BlackoutHandler 禁约模块 HTTP 处理器
type BlackoutHandler struct {
	blackoutSvc service.BlackoutService
	logger      *zap.Logger
}

// NewBlackoutHandler 创建 BlackoutHandler
func NewBlackoutHandler(blackoutSvc service.BlackoutService, logger *zap.Logger) *BlackoutHandler {
	return &BlackoutHandler{blackoutSvc: blackoutSvc, logger: logger}
}

// ── 临时禁约 ──

// ListAdHoc 船只在日期范围内的临时禁约
// GET /api/v1/vessels/:id/blackouts?start=&end=
func (h *BlackoutHandler) ListAdHoc(c *gin.Context) {
	var req dto.CalendarRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	start, ok := parseDay(c, req.Start)
	if !ok {
		return
	}
	end, ok := parseDay(c, req.End)
	if !ok {
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}

	list, err := h.blackoutSvc.ListAdHoc(c.Request.Context(), id, start, end)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// CreateAdHoc 创建临时禁约
// POST /api/v1/vessels/:id/blackouts
func (h *BlackoutHandler) CreateAdHoc(c *gin.Context) {
	var req dto.CreateAdHocBlackoutRequest
	if !bindJSON(c, &req) {
		return
	}

	userID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}

	b, err := h.blackoutSvc.CreateAdHoc(c.Request.Context(), id, &req, userID, role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	response.Created(c, b)
}

// UpdateAdHoc 更新临时禁约
// PUT /api/v1/blackouts/:id
func (h *BlackoutHandler) UpdateAdHoc(c *gin.Context) {
	var req dto.UpdateAdHocBlackoutRequest
	if !bindJSON(c, &req) {
		return
	}

	userID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}

	b, err := h.blackoutSvc.UpdateAdHoc(c.Request.Context(), id, &req, userID, role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	response.OK(c, b)
}

// DeleteAdHoc 删除临时禁约
// DELETE /api/v1/blackouts/:id
func (h *BlackoutHandler) DeleteAdHoc(c *gin.Context) {
	userID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.blackoutSvc.DeleteAdHoc(c.Request.Context(), id, userID, role); err != nil {
		respondError(c, h.logger, err)
		return
	}

	response.OK(c, nil)
}

// ── 每周规则 ──

// ListWeeklyRules 每周禁约规则列表
// GET /api/v1/weekly-blackouts
func (h *BlackoutHandler) ListWeeklyRules(c *gin.Context) {
	list, err := h.blackoutSvc.ListWeeklyRules(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// CreateWeeklyRule 创建每周禁约规则
// POST /api/v1/weekly-blackouts
func (h *BlackoutHandler) CreateWeeklyRule(c *gin.Context) {
	var req dto.CreateWeeklyRuleRequest
	if !bindJSON(c, &req) {
		return
	}

	userID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	rule, err := h.blackoutSvc.CreateWeeklyRule(c.Request.Context(), &req, userID, role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	response.Created(c, rule)
}

// UpdateWeeklyRule 更新每周禁约规则（含启用 / 停用）
// PUT /api/v1/weekly-blackouts/:id
func (h *BlackoutHandler) UpdateWeeklyRule(c *gin.Context) {
	var req dto.UpdateWeeklyRuleRequest
	if !bindJSON(c, &req) {
		return
	}

	userID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}

	rule, err := h.blackoutSvc.UpdateWeeklyRule(c.Request.Context(), id, &req, userID, role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	response.OK(c, rule)
}

// DeleteWeeklyRule 删除每周禁约规则
// DELETE /api/v1/weekly-blackouts/:id
func (h *BlackoutHandler) DeleteWeeklyRule(c *gin.Context) {
	userID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.blackoutSvc.DeleteWeeklyRule(c.Request.Context(), id, userID, role); err != nil {
		respondError(c, h.logger, err)
		return
	}

	response.OK(c, nil)
}
