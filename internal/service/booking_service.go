package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"nautica/backend/internal/dto"
	"nautica/backend/internal/model"
	"nautica/backend/internal/repository"
	pkgerrors "nautica/backend/pkg/errors"
)

// ── 预约模块业务错误 ──

var (
	ErrBookingNoVesselLink         = pkgerrors.New(pkgerrors.KindForbidden, 20101, "您不是该船只的成员，无法预约")
	ErrBookingAccountBlocked       = pkgerrors.New(pkgerrors.KindForbidden, 20102, "账户已被冻结，无法预约")
	ErrBookingPaymentOverdue       = pkgerrors.New(pkgerrors.KindForbidden, 20103, "存在逾期未付款项，无法预约")
	ErrBookingAccountOverdue       = pkgerrors.New(pkgerrors.KindForbidden, 20104, "账户处于逾期状态，无法预约")
	ErrBookingRequesterNotFound    = pkgerrors.New(pkgerrors.KindForbidden, 20105, "预约人账户不存在")
	ErrBookingNotOwner             = pkgerrors.New(pkgerrors.KindForbidden, 20106, "只能操作自己的预约")
	ErrBookingPastDate             = pkgerrors.New(pkgerrors.KindInvalidInput, 20201, "不能预约过去的日期")
	ErrBookingInsufficientLeadTime = pkgerrors.New(pkgerrors.KindInvalidInput, 20202, "预约提前量不足")
	ErrBookingHorizonExceeded      = pkgerrors.New(pkgerrors.KindInvalidInput, 20203, "超出可预约的最远日期")
	ErrBookingInvalidStatus        = pkgerrors.New(pkgerrors.KindInvalidInput, 20204, "预约状态取值无效")
	ErrBookingBlackout             = pkgerrors.New(pkgerrors.KindConflict, 20301, "该日期不可预约")
	ErrBookingDuplicateSlot        = pkgerrors.New(pkgerrors.KindConflict, 20302, "该船只当天已被预约")
	ErrBookingQuotaExceeded        = pkgerrors.New(pkgerrors.KindConflict, 20303, "已达到该船只的有效预约上限")
	ErrBookingAlreadyCancelled     = pkgerrors.New(pkgerrors.KindConflict, 20304, "预约已取消")
	ErrBookingAlreadyCompleted     = pkgerrors.New(pkgerrors.KindConflict, 20305, "预约已完成，无法取消")
	ErrBookingNotFound             = pkgerrors.New(pkgerrors.KindNotFound, 20002, "预约不存在")
)

// 禁约来源
const (
	BlackoutSourceAdHoc  = "ad_hoc"
	BlackoutSourceWeekly = "weekly"
)

// BlackoutError 命中禁约时返回，携带禁约原因与备注
// errors.Is(err, ErrBookingBlackout) 成立
type BlackoutError struct {
	Source string
	Reason string
	Notes  string
}

func (e *BlackoutError) Error() string {
	if e.Reason == "" {
		return ErrBookingBlackout.Message
	}
	return fmt.Sprintf("%s：%s", ErrBookingBlackout.Message, e.Reason)
}

func (e *BlackoutError) Unwrap() error { return ErrBookingBlackout }

// AdmitRequest 预约准入请求
type AdmitRequest struct {
	VesselID string
	Date     time.Time
	Notes    string
}

// BookingService 预约准入与生命周期接口
type BookingService interface {
	Admit(ctx context.Context, req *AdmitRequest, requesterID, requesterRole string) (*dto.BookingResponse, error)
	Cancel(ctx context.Context, bookingID, requesterID, requesterRole, reason string) (*dto.BookingResponse, error)
	// UpdateStatus 管理员直接设置状态，不校验状态迁移
	UpdateStatus(ctx context.Context, bookingID, status, callerID, callerRole string) (*dto.BookingResponse, error)
	SoftDelete(ctx context.Context, bookingID, callerID, callerRole string) error
	GetByID(ctx context.Context, bookingID, callerID, callerRole string) (*dto.BookingResponse, error)
	ListMine(ctx context.Context, userID string, includePast bool) ([]dto.BookingResponse, error)
}

type bookingService struct {
	repo        *repository.Repository
	settings    SettingsProvider
	blackout    BlackoutService
	quota       QuotaTracker
	invalidator CalendarInvalidator
	dispatcher  *Dispatcher
	now         Clock
	logger      *zap.Logger
}

// NewBookingService 创建 BookingService 实例
func NewBookingService(
	repo *repository.Repository,
	settings SettingsProvider,
	blackout BlackoutService,
	quota QuotaTracker,
	invalidator CalendarInvalidator,
	dispatcher *Dispatcher,
	now Clock,
	logger *zap.Logger,
) BookingService {
	if now == nil {
		now = time.Now
	}
	return &bookingService{
		repo:        repo,
		settings:    settings,
		blackout:    blackout,
		quota:       quota,
		invalidator: invalidator,
		dispatcher:  dispatcher,
		now:         now,
		logger:      logger,
	}
}

// ════════════════════════════════════════════════════════════
// 准入
// ════════════════════════════════════════════════════════════

// Admit 按顺序执行准入规则，任一规则失败立即返回：
// 授权 → 账户状态 → 提前量 → 最远日期 → 临时禁约 → 每周禁约 → 唯一性预检 → 配额 → 写入
//
// 唯一性预检只是快速失败；真正的裁决是 (vessel_id, booking_date) 唯一索引，
// 并发写入同一天时只有一条成功，另一条返回 ErrBookingDuplicateSlot。
func (s *bookingService) Admit(ctx context.Context, req *AdmitRequest, requesterID, requesterRole string) (*dto.BookingResponse, error) {
	elevated := model.IsElevated(requesterRole)
	day := dayOf(req.Date)

	// 1. 授权
	vessel, err := s.repo.Vessel.GetByID(ctx, req.VesselID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVesselNotFound
		}
		s.logger.Error("查询船只失败", zap.String("vessel_id", req.VesselID), zap.Error(err))
		return nil, err
	}
	if !elevated {
		linked, err := s.repo.Vessel.IsMember(ctx, req.VesselID, requesterID)
		if err != nil {
			s.logger.Error("查询船只成员失败", zap.String("vessel_id", req.VesselID), zap.Error(err))
			return nil, err
		}
		if !linked {
			return nil, ErrBookingNoVesselLink
		}

		// 2. 账户状态
		if err := s.checkStanding(ctx, requesterID); err != nil {
			return nil, err
		}
	}

	settings, err := s.settings.Booking(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	today := dayOf(now.In(settings.Location))

	// 3. 提前量
	if day.Before(today) {
		return nil, ErrBookingPastDate
	}
	if !settings.AllowSameDay {
		y, m, d := day.Date()
		start := time.Date(y, m, d, 0, 0, 0, 0, settings.Location)
		if start.Sub(now).Hours() < float64(settings.MinAdvanceHours) {
			return nil, ErrBookingInsufficientLeadTime
		}
	}

	// 4. 最远日期
	horizon := settings.GlobalHorizonDays
	if vessel.BookingHorizonDays != nil && *vessel.BookingHorizonDays < horizon {
		horizon = *vessel.BookingHorizonDays
	}
	if int(day.Sub(today)/(24*time.Hour)) > horizon {
		return nil, ErrBookingHorizonExceeded
	}

	// 5. 临时禁约（管理员同样受限）
	decision, err := s.blackout.IsBlocked(ctx, req.VesselID, day)
	if err != nil {
		return nil, err
	}
	if decision.Blocked {
		return nil, &BlackoutError{Source: BlackoutSourceAdHoc, Reason: decision.Reason, Notes: decision.Notes}
	}

	// 6. 每周禁约（管理员跳过）
	if !elevated {
		rule, err := s.blackout.WeeklyRuleFor(ctx, day)
		if err != nil {
			return nil, err
		}
		if rule != nil {
			return nil, &BlackoutError{Source: BlackoutSourceWeekly, Reason: rule.Reason, Notes: rule.Notes}
		}
	}

	// 7. 唯一性预检
	taken, err := s.repo.Booking.ExistsForSlot(ctx, req.VesselID, day)
	if err != nil {
		s.logger.Error("唯一性预检失败", zap.String("vessel_id", req.VesselID), zap.Error(err))
		return nil, err
	}
	if taken {
		return nil, ErrBookingDuplicateSlot
	}

	// 8. 配额
	maxActive := settings.DefaultMaxActiveBookings
	if vessel.MaxActiveBookings != nil {
		maxActive = *vessel.MaxActiveBookings
	}
	if err := s.checkQuota(ctx, requesterID, req.VesselID, today, maxActive); err != nil {
		return nil, err
	}

	// 9. 写入
	booking := &model.Booking{
		UserID:      requesterID,
		VesselID:    req.VesselID,
		BookingDate: day,
		Status:      model.BookingApproved,
		Notes:       req.Notes,
	}
	booking.CreatedBy = &requesterID
	booking.UpdatedBy = &requesterID

	if err := s.repo.Booking.Create(ctx, booking); err != nil {
		if errors.Is(err, pkgerrors.ErrDuplicateKey) {
			return nil, ErrBookingDuplicateSlot
		}
		s.logger.Error("创建预约失败", zap.String("vessel_id", req.VesselID), zap.Error(err))
		return nil, err
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}

	s.invalidator.Invalidate(ctx, req.VesselID)

	event := s.eventOf(booking, EventBookingCreated, requesterID)
	s.dispatcher.Audit(model.AuditBookingCreated, event)
	s.dispatcher.Notify(event)

	s.logger.Info("预约已创建",
		zap.String("booking_id", booking.BookingID),
		zap.String("vessel_id", booking.VesselID),
		zap.String("date", day.Format(model.DateLayout)),
		zap.String("user_id", requesterID),
	)

	resp := toBookingResponse(booking, vessel.Name)
	return &resp, nil
}

func (s *bookingService) checkStanding(ctx context.Context, userID string) error {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookingRequesterNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	switch user.AccountStatus {
	case model.AccountBlocked:
		return ErrBookingAccountBlocked
	case model.AccountOverduePayment:
		return ErrBookingPaymentOverdue
	case model.AccountOverdue:
		return ErrBookingAccountOverdue
	}
	return nil
}

// checkQuota 达到上限时，只有计入配额的预约中最早一条已经过去才放行
// 计数与最早日期取同一集合（today 当天及以后），过去日期仍为已批准的旧预约不会让配额失效
// 取消或完成不会回收配额名额
func (s *bookingService) checkQuota(ctx context.Context, userID, vesselID string, today time.Time, maxActive int) error {
	count, err := s.quota.ActiveCount(ctx, userID, vesselID, today)
	if err != nil {
		s.logger.Error("统计有效预约失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	if count < int64(maxActive) {
		return nil
	}

	earliest, err := s.quota.EarliestActiveDate(ctx, userID, vesselID, today)
	if err != nil {
		s.logger.Error("查询最早有效预约失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	if earliest != nil && earliest.Before(today) {
		return nil
	}
	return ErrBookingQuotaExceeded
}

// ════════════════════════════════════════════════════════════
// 生命周期
// ════════════════════════════════════════════════════════════

func (s *bookingService) Cancel(ctx context.Context, bookingID, requesterID, requesterRole, reason string) (*dto.BookingResponse, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != requesterID && !model.IsElevated(requesterRole) {
		return nil, ErrBookingNotOwner
	}

	switch booking.Status {
	case model.BookingCancelled:
		return nil, ErrBookingAlreadyCancelled
	case model.BookingCompleted:
		return nil, ErrBookingAlreadyCompleted
	}

	cancelledAt := s.now().UTC()
	booking.Status = model.BookingCancelled
	booking.CancelledAt = &cancelledAt
	booking.CancellationReason = reason
	booking.UpdatedBy = &requesterID

	if err := s.repo.Booking.Update(ctx, booking); err != nil {
		return nil, s.mapUpdateErr(err, bookingID)
	}

	s.invalidator.Invalidate(ctx, booking.VesselID)

	event := s.eventOf(booking, EventBookingCancelled, requesterID)
	event.Reason = reason
	s.dispatcher.Audit(model.AuditBookingCancelled, event)
	s.dispatcher.Notify(event)

	resp := toBookingResponse(booking, "")
	return &resp, nil
}

func (s *bookingService) UpdateStatus(ctx context.Context, bookingID, status, callerID, callerRole string) (*dto.BookingResponse, error) {
	if !model.IsElevated(callerRole) {
		return nil, ErrAdminOnly
	}
	if !model.ValidBookingStatus(status) {
		return nil, ErrBookingInvalidStatus
	}

	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	previous := booking.Status
	booking.Status = status
	if status == model.BookingCancelled && booking.CancelledAt == nil {
		cancelledAt := s.now().UTC()
		booking.CancelledAt = &cancelledAt
	}
	booking.UpdatedBy = &callerID

	if err := s.repo.Booking.Update(ctx, booking); err != nil {
		return nil, s.mapUpdateErr(err, bookingID)
	}

	s.invalidator.Invalidate(ctx, booking.VesselID)

	event := s.eventOf(booking, model.AuditBookingStatusChanged, callerID)
	event.Reason = previous + " -> " + status
	s.dispatcher.Audit(model.AuditBookingStatusChanged, event)

	s.logger.Info("预约状态已修改",
		zap.String("booking_id", bookingID),
		zap.String("from", previous),
		zap.String("to", status),
		zap.String("by", callerID),
	)

	resp := toBookingResponse(booking, "")
	return &resp, nil
}

// SoftDelete 软删除后记录不再出现在查询中，但唯一索引仍占用该日期
func (s *bookingService) SoftDelete(ctx context.Context, bookingID, callerID, callerRole string) error {
	if !model.IsElevated(callerRole) {
		return ErrAdminOnly
	}

	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	if err := s.repo.Booking.SoftDelete(ctx, bookingID, callerID); err != nil {
		s.logger.Error("删除预约失败", zap.String("booking_id", bookingID), zap.Error(err))
		return err
	}

	s.invalidator.Invalidate(ctx, booking.VesselID)
	s.dispatcher.Audit(model.AuditBookingDeleted, s.eventOf(booking, model.AuditBookingDeleted, callerID))
	return nil
}

func (s *bookingService) GetByID(ctx context.Context, bookingID, callerID, callerRole string) (*dto.BookingResponse, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != callerID && !model.IsElevated(callerRole) {
		return nil, ErrBookingNotOwner
	}
	resp := toBookingResponse(booking, "")
	return &resp, nil
}

func (s *bookingService) ListMine(ctx context.Context, userID string, includePast bool) ([]dto.BookingResponse, error) {
	var from *time.Time
	if !includePast {
		settings, err := s.settings.Booking(ctx)
		if err != nil {
			return nil, err
		}
		today := dayOf(s.now().In(settings.Location))
		from = &today
	}

	bookings, err := s.repo.Booking.ListByUser(ctx, userID, from)
	if err != nil {
		s.logger.Error("查询我的预约失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.BookingResponse, 0, len(bookings))
	for i := range bookings {
		name := ""
		if bookings[i].Vessel != nil {
			name = bookings[i].Vessel.Name
		}
		result = append(result, toBookingResponse(&bookings[i], name))
	}
	return result, nil
}

// ── 内部辅助方法 ──

func (s *bookingService) getBooking(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.repo.Booking.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		s.logger.Error("查询预约失败", zap.String("booking_id", id), zap.Error(err))
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) mapUpdateErr(err error, bookingID string) error {
	if errors.Is(err, pkgerrors.ErrOptimisticLock) {
		return ErrConcurrentUpdate
	}
	s.logger.Error("更新预约失败", zap.String("booking_id", bookingID), zap.Error(err))
	return err
}

func (s *bookingService) eventOf(b *model.Booking, eventType, actorID string) Event {
	return Event{
		Type:       eventType,
		BookingID:  b.BookingID,
		VesselID:   b.VesselID,
		UserID:     b.UserID,
		ActorID:    actorID,
		Date:       b.BookingDate.Format(model.DateLayout),
		Status:     b.Status,
		OccurredAt: s.now().UTC(),
	}
}

func toBookingResponse(b *model.Booking, vesselName string) dto.BookingResponse {
	resp := dto.BookingResponse{
		ID:                 b.BookingID,
		UserID:             b.UserID,
		VesselID:           b.VesselID,
		VesselName:         vesselName,
		Date:               b.BookingDate.Format(model.DateLayout),
		Status:             b.Status,
		Notes:              b.Notes,
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt.Format(time.RFC3339),
	}
	if b.CancelledAt != nil {
		resp.CancelledAt = b.CancelledAt.Format(time.RFC3339)
	}
	return resp
}
