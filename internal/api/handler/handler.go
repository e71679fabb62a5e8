package handler

import (
	"go.uber.org/zap"

	"nautica/backend/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Booking  *BookingHandler
	Calendar *CalendarHandler
	Blackout *BlackoutHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Booking:  NewBookingHandler(svc.Booking, logger),
		Calendar: NewCalendarHandler(svc.Calendar, logger),
		Blackout: NewBlackoutHandler(svc.Blackout, logger),
	}
}
