package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"nautica/backend/internal/dto"
	"nautica/backend/internal/model"
	"nautica/backend/internal/repository"
)

// maxCalendarDays 单次日历查询的最大跨度
const maxCalendarDays = 366

// CalendarService 船只日历视图
// 结果来自读穿缓存，准入判定从不读取这里的数据
type CalendarService interface {
	GetCalendar(ctx context.Context, vesselID string, start, end time.Time) (*dto.CalendarResponse, error)
}

type calendarService struct {
	repo     *repository.Repository
	blackout BlackoutService
	cache    *CalendarCache
	logger   *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(repo *repository.Repository, blackout BlackoutService, cache *CalendarCache, logger *zap.Logger) CalendarService {
	return &calendarService{repo: repo, blackout: blackout, cache: cache, logger: logger}
}

func (s *calendarService) GetCalendar(ctx context.Context, vesselID string, start, end time.Time) (*dto.CalendarResponse, error) {
	start, end = dayOf(start), dayOf(end)
	if end.Before(start) {
		return nil, ErrInvalidDateRange
	}
	if end.Sub(start) > maxCalendarDays*24*time.Hour {
		return nil, ErrDateRangeTooLarge
	}

	return s.cache.GetOrLoad(ctx, vesselID, start, end, func(ctx context.Context) (*dto.CalendarResponse, error) {
		return s.load(ctx, vesselID, start, end)
	})
}

func (s *calendarService) load(ctx context.Context, vesselID string, start, end time.Time) (*dto.CalendarResponse, error) {
	if _, err := s.repo.Vessel.GetByID(ctx, vesselID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVesselNotFound
		}
		s.logger.Error("查询船只失败", zap.String("vessel_id", vesselID), zap.Error(err))
		return nil, err
	}

	bookings, err := s.repo.Booking.ListByVesselRange(ctx, vesselID, start, end)
	if err != nil {
		s.logger.Error("查询船只预约失败", zap.String("vessel_id", vesselID), zap.Error(err))
		return nil, err
	}

	blocks, rules, err := s.blackout.Resolve(ctx, vesselID, start, end)
	if err != nil {
		return nil, err
	}

	resp := &dto.CalendarResponse{
		VesselID:    vesselID,
		Start:       start.Format(model.DateLayout),
		End:         end.Format(model.DateLayout),
		Bookings:    make([]dto.BookingResponse, 0, len(bookings)),
		AdHocBlocks: make([]dto.AdHocBlackoutResponse, 0, len(blocks)),
		WeeklyRules: make([]dto.WeeklyRuleResponse, 0, len(rules)),
	}
	for i := range bookings {
		resp.Bookings = append(resp.Bookings, toBookingResponse(&bookings[i], ""))
	}
	for i := range blocks {
		resp.AdHocBlocks = append(resp.AdHocBlocks, toAdHocBlackoutResponse(&blocks[i]))
	}
	for i := range rules {
		resp.WeeklyRules = append(resp.WeeklyRules, toWeeklyRuleResponse(&rules[i]))
	}
	return resp, nil
}
