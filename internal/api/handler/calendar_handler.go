package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nautica/backend/internal/dto"
	"nautica/backend/internal/service"
	"nautica/backend/pkg/response"
)

// CalendarHandler 日历 HTTP 处理器
type CalendarHandler struct {
	calendarSvc service.CalendarService
	logger      *zap.Logger
}

// NewCalendarHandler 创建 CalendarHandler
func NewCalendarHandler(calendarSvc service.CalendarService, logger *zap.Logger) *CalendarHandler {
	return &CalendarHandler{calendarSvc: calendarSvc, logger: logger}
}

// GetCalendar 船只日历（预约 + 禁约）
// GET /api/v1/vessels/:id/calendar?start=2025-11-01&end=2025-11-30
func (h *CalendarHandler) GetCalendar(c *gin.Context) {
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

	cal, err := h.calendarSvc.GetCalendar(c.Request.Context(), id, start, end)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	response.OK(c, cal)
}
