package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nautica/backend/internal/dto"
	"nautica/backend/internal/service"
	"nautica/backend/pkg/response"
)

// BookingHandler 预约模块 HTTP 处理器
type BookingHandler struct {
	bookingSvc service.BookingService
	logger     *zap.Logger
}

// NewBookingHandler 创建 BookingHandler
func NewBookingHandler(bookingSvc service.BookingService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{bookingSvc: bookingSvc, logger: logger}
}

// CreateBooking 申请预约
// POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req dto.CreateBookingRequest
	if !bindJSON(c, &req) {
		return
	}
	day, ok := parseDay(c, req.Date)
	if !ok {
		return
	}

	userID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	booking, err := h.bookingSvc.Admit(c.Request.Context(), &service.AdmitRequest{
		VesselID: req.VesselID,
		Date:     day,
		Notes:    req.Notes,
	}, userID, role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	response.Created(c, booking)
}

// ListMyBookings 我的预约
// GET /api/v1/bookings/me?include_past=true
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	var req dto.MyBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.bookingSvc.ListMine(c.Request.Context(), userID, req.IncludePast)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// GetBooking 预约详情
// GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	userID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}

	booking, err := h.bookingSvc.GetByID(c.Request.Context(), id, userID, role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	response.OK(c, booking)
}

// CancelBooking 取消预约（本人或管理员），请求体可省略
// POST /api/v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	var req dto.CancelBookingRequest
	if c.Request.ContentLength != 0 {
		if !bindJSON(c, &req) {
			return
		}
	}

	userID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}

	booking, err := h.bookingSvc.Cancel(c.Request.Context(), id, userID, role, req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	response.OK(c, booking)
}

// UpdateBookingStatus 管理员修改预约状态
// PUT /api/v1/bookings/:id/status
func (h *BookingHandler) UpdateBookingStatus(c *gin.Context) {
	var req dto.UpdateBookingStatusRequest
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

	booking, err := h.bookingSvc.UpdateStatus(c.Request.Context(), id, req.Status, userID, role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	response.OK(c, booking)
}

// DeleteBooking 管理员软删除预约
// DELETE /api/v1/bookings/:id
func (h *BookingHandler) DeleteBooking(c *gin.Context) {
	userID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.bookingSvc.SoftDelete(c.Request.Context(), id, userID, role); err != nil {
		respondError(c, h.logger, err)
		return
	}

	response.OK(c, nil)
}
