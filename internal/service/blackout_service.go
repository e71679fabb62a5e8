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
	pkgerrors "nautica/backend/pkg/errors"
)

// ── 禁约模块业务错误 ──

var (
	ErrBlackoutNotFound          = pkgerrors.New(pkgerrors.KindNotFound, 21001, "禁约区间不存在")
	ErrWeeklyRuleNotFound        = pkgerrors.New(pkgerrors.KindNotFound, 21002, "每周禁约规则不存在")
	ErrBlackoutInvalidDate       = pkgerrors.New(pkgerrors.KindInvalidInput, 21101, "日期格式无效，应为 YYYY-MM-DD")
	ErrWeeklyRuleInvalidWeekday  = pkgerrors.New(pkgerrors.KindInvalidInput, 21102, "星期取值应为 0-6（0 为周日）")
	ErrWeeklyRuleActiveDuplicate = pkgerrors.New(pkgerrors.KindConflict, 21201, "该星期已存在启用中的禁约规则")
)

// BlackoutDecision 某天是否被临时禁约
type BlackoutDecision struct {
	Blocked bool
	Reason  string
	Notes   string
}

// ── BlackoutService 接口 ──────────────────────────────────
//
// 禁约来源有两个，任意一个命中即禁止预约：
//   - 临时禁约：按船只、按闭区间日期匹配
//   - 每周规则：按星期几匹配，全局生效，与船只无关
//
// 写操作仅管理员可用；临时禁约变更失效对应船只的日历缓存，
// 每周规则变更失效整个日历命名空间。
// ─────────────────────────────────────────────────────────────

// BlackoutService 禁约解析与维护接口
type BlackoutService interface {
	IsBlocked(ctx context.Context, vesselID string, day time.Time) (*BlackoutDecision, error)
	// WeeklyRuleFor 返回该日期对应星期启用中的规则，没有时返回 nil
	WeeklyRuleFor(ctx context.Context, day time.Time) (*model.WeeklyBlackoutRule, error)
	// Resolve 日历聚合使用：区间内的临时禁约与全部启用中的每周规则
	Resolve(ctx context.Context, vesselID string, start, end time.Time) ([]model.AdHocBlackout, []model.WeeklyBlackoutRule, error)

	ListAdHoc(ctx context.Context, vesselID string, start, end time.Time) ([]dto.AdHocBlackoutResponse, error)
	CreateAdHoc(ctx context.Context, vesselID string, req *dto.CreateAdHocBlackoutRequest, callerID, callerRole string) (*dto.AdHocBlackoutResponse, error)
	UpdateAdHoc(ctx context.Context, id string, req *dto.UpdateAdHocBlackoutRequest, callerID, callerRole string) (*dto.AdHocBlackoutResponse, error)
	DeleteAdHoc(ctx context.Context, id string, callerID, callerRole string) error

	ListWeeklyRules(ctx context.Context) ([]dto.WeeklyRuleResponse, error)
	CreateWeeklyRule(ctx context.Context, req *dto.CreateWeeklyRuleRequest, callerID, callerRole string) (*dto.WeeklyRuleResponse, error)
	UpdateWeeklyRule(ctx context.Context, id string, req *dto.UpdateWeeklyRuleRequest, callerID, callerRole string) (*dto.WeeklyRuleResponse, error)
	DeleteWeeklyRule(ctx context.Context, id string, callerID, callerRole string) error
}

type blackoutService struct {
	repo        *repository.Repository
	invalidator CalendarInvalidator
	logger      *zap.Logger
}

// NewBlackoutService 创建 BlackoutService 实例
func NewBlackoutService(repo *repository.Repository, invalidator CalendarInvalidator, logger *zap.Logger) BlackoutService {
	return &blackoutService{repo: repo, invalidator: invalidator, logger: logger}
}

// ════════════════════════════════════════════════════════════
// 解析
// ════════════════════════════════════════════════════════════

func (s *blackoutService) IsBlocked(ctx context.Context, vesselID string, day time.Time) (*BlackoutDecision, error) {
	b, err := s.repo.AdHocBlackout.FindCovering(ctx, vesselID, dayOf(day))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &BlackoutDecision{}, nil
		}
		s.logger.Error("查询临时禁约失败", zap.String("vessel_id", vesselID), zap.Error(err))
		return nil, err
	}
	return &BlackoutDecision{Blocked: true, Reason: b.Reason, Notes: b.Notes}, nil
}

func (s *blackoutService) WeeklyRuleFor(ctx context.Context, day time.Time) (*model.WeeklyBlackoutRule, error) {
	rule, err := s.repo.WeeklyRule.GetActiveByWeekday(ctx, int(dayOf(day).Weekday()))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.logger.Error("查询每周禁约规则失败", zap.Error(err))
		return nil, err
	}
	return rule, nil
}

func (s *blackoutService) Resolve(ctx context.Context, vesselID string, start, end time.Time) ([]model.AdHocBlackout, []model.WeeklyBlackoutRule, error) {
	blocks, err := s.repo.AdHocBlackout.ListOverlapping(ctx, vesselID, dayOf(start), dayOf(end))
	if err != nil {
		s.logger.Error("查询临时禁约失败", zap.String("vessel_id", vesselID), zap.Error(err))
		return nil, nil, err
	}
	rules, err := s.repo.WeeklyRule.ListActive(ctx)
	if err != nil {
		s.logger.Error("查询每周禁约规则失败", zap.Error(err))
		return nil, nil, err
	}
	return blocks, rules, nil
}

// ════════════════════════════════════════════════════════════
// 临时禁约
// ════════════════════════════════════════════════════════════

func (s *blackoutService) ListAdHoc(ctx context.Context, vesselID string, start, end time.Time) ([]dto.AdHocBlackoutResponse, error) {
	if end.Before(start) {
		return nil, ErrInvalidDateRange
	}
	blocks, err := s.repo.AdHocBlackout.ListOverlapping(ctx, vesselID, dayOf(start), dayOf(end))
	if err != nil {
		s.logger.Error("列出临时禁约失败", zap.String("vessel_id", vesselID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.AdHocBlackoutResponse, 0, len(blocks))
	for i := range blocks {
		result = append(result, toAdHocBlackoutResponse(&blocks[i]))
	}
	return result, nil
}

func (s *blackoutService) CreateAdHoc(ctx context.Context, vesselID string, req *dto.CreateAdHocBlackoutRequest, callerID, callerRole string) (*dto.AdHocBlackoutResponse, error) {
	if !model.IsElevated(callerRole) {
		return nil, ErrAdminOnly
	}

	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.Vessel.GetByID(ctx, vesselID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVesselNotFound
		}
		s.logger.Error("查询船只失败", zap.String("vessel_id", vesselID), zap.Error(err))
		return nil, err
	}

	b := &model.AdHocBlackout{
		VesselID:  vesselID,
		StartDate: start,
		EndDate:   end,
		Reason:    req.Reason,
		Notes:     req.Notes,
	}
	b.CreatedBy = &callerID
	b.UpdatedBy = &callerID

	if err := s.repo.AdHocBlackout.Create(ctx, b); err != nil {
		s.logger.Error("创建临时禁约失败", zap.String("vessel_id", vesselID), zap.Error(err))
		return nil, err
	}

	s.invalidator.Invalidate(ctx, vesselID)

	s.logger.Info("临时禁约已创建",
		zap.String("blackout_id", b.BlackoutID),
		zap.String("vessel_id", vesselID),
		zap.String("start", req.StartDate),
		zap.String("end", req.EndDate),
	)

	resp := toAdHocBlackoutResponse(b)
	return &resp, nil
}

func (s *blackoutService) UpdateAdHoc(ctx context.Context, id string, req *dto.UpdateAdHocBlackoutRequest, callerID, callerRole string) (*dto.AdHocBlackoutResponse, error) {
	if !model.IsElevated(callerRole) {
		return nil, ErrAdminOnly
	}

	b, err := s.repo.AdHocBlackout.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlackoutNotFound
		}
		s.logger.Error("查询临时禁约失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	startStr := b.StartDate.Format(model.DateLayout)
	endStr := b.EndDate.Format(model.DateLayout)
	if req.StartDate != nil {
		startStr = *req.StartDate
	}
	if req.EndDate != nil {
		endStr = *req.EndDate
	}
	start, end, err := parseDateRange(startStr, endStr)
	if err != nil {
		return nil, err
	}
	b.StartDate = start
	b.EndDate = end

	if req.Reason != nil {
		b.Reason = *req.Reason
	}
	if req.Notes != nil {
		b.Notes = *req.Notes
	}
	b.UpdatedBy = &callerID

	if err := s.repo.AdHocBlackout.Update(ctx, b); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrConcurrentUpdate
		}
		s.logger.Error("更新临时禁约失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.invalidator.Invalidate(ctx, b.VesselID)

	resp := toAdHocBlackoutResponse(b)
	return &resp, nil
}

func (s *blackoutService) DeleteAdHoc(ctx context.Context, id string, callerID, callerRole string) error {
	if !model.IsElevated(callerRole) {
		return ErrAdminOnly
	}

	b, err := s.repo.AdHocBlackout.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBlackoutNotFound
		}
		s.logger.Error("查询临时禁约失败", zap.String("id", id), zap.Error(err))
		return err
	}

	if err := s.repo.AdHocBlackout.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除临时禁约失败", zap.String("id", id), zap.Error(err))
		return err
	}

	s.invalidator.Invalidate(ctx, b.VesselID)
	return nil
}

// ════════════════════════════════════════════════════════════
// 每周规则
// ════════════════════════════════════════════════════════════

func (s *blackoutService) ListWeeklyRules(ctx context.Context) ([]dto.WeeklyRuleResponse, error) {
	rules, err := s.repo.WeeklyRule.List(ctx)
	if err != nil {
		s.logger.Error("列出每周禁约规则失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.WeeklyRuleResponse, 0, len(rules))
	for i := range rules {
		result = append(result, toWeeklyRuleResponse(&rules[i]))
	}
	return result, nil
}

func (s *blackoutService) CreateWeeklyRule(ctx context.Context, req *dto.CreateWeeklyRuleRequest, callerID, callerRole string) (*dto.WeeklyRuleResponse, error) {
	if !model.IsElevated(callerRole) {
		return nil, ErrAdminOnly
	}
	if req.Weekday == nil || *req.Weekday < 0 || *req.Weekday > 6 {
		return nil, ErrWeeklyRuleInvalidWeekday
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	if active {
		if err := s.ensureNoActiveRule(ctx, *req.Weekday, ""); err != nil {
			return nil, err
		}
	}

	rule := &model.WeeklyBlackoutRule{
		Weekday:  *req.Weekday,
		Reason:   req.Reason,
		Notes:    req.Notes,
		IsActive: active,
	}
	rule.CreatedBy = &callerID
	rule.UpdatedBy = &callerID

	if err := s.repo.WeeklyRule.Create(ctx, rule); err != nil {
		// 并发创建时由部分唯一索引兜底
		if errors.Is(err, pkgerrors.ErrDuplicateKey) {
			return nil, ErrWeeklyRuleActiveDuplicate
		}
		s.logger.Error("创建每周禁约规则失败", zap.Int("weekday", *req.Weekday), zap.Error(err))
		return nil, err
	}

	s.invalidator.InvalidateAll(ctx)

	resp := toWeeklyRuleResponse(rule)
	return &resp, nil
}

func (s *blackoutService) UpdateWeeklyRule(ctx context.Context, id string, req *dto.UpdateWeeklyRuleRequest, callerID, callerRole string) (*dto.WeeklyRuleResponse, error) {
	if !model.IsElevated(callerRole) {
		return nil, ErrAdminOnly
	}

	rule, err := s.repo.WeeklyRule.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWeeklyRuleNotFound
		}
		s.logger.Error("查询每周禁约规则失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if req.IsActive != nil && *req.IsActive && !rule.IsActive {
		if err := s.ensureNoActiveRule(ctx, rule.Weekday, rule.RuleID); err != nil {
			return nil, err
		}
	}

	if req.Reason != nil {
		rule.Reason = *req.Reason
	}
	if req.Notes != nil {
		rule.Notes = *req.Notes
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	rule.UpdatedBy = &callerID

	if err := s.repo.WeeklyRule.Update(ctx, rule); err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrDuplicateKey):
			return nil, ErrWeeklyRuleActiveDuplicate
		case errors.Is(err, pkgerrors.ErrOptimisticLock):
			return nil, ErrConcurrentUpdate
		}
		s.logger.Error("更新每周禁约规则失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.invalidator.InvalidateAll(ctx)

	resp := toWeeklyRuleResponse(rule)
	return &resp, nil
}

func (s *blackoutService) DeleteWeeklyRule(ctx context.Context, id string, callerID, callerRole string) error {
	if !model.IsElevated(callerRole) {
		return ErrAdminOnly
	}

	if _, err := s.repo.WeeklyRule.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrWeeklyRuleNotFound
		}
		s.logger.Error("查询每周禁约规则失败", zap.String("id", id), zap.Error(err))
		return err
	}

	if err := s.repo.WeeklyRule.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除每周禁约规则失败", zap.String("id", id), zap.Error(err))
		return err
	}

	s.invalidator.InvalidateAll(ctx)
	return nil
}

// ── 内部辅助方法 ──

// ensureNoActiveRule 同一星期几最多一条启用规则；exceptID 为正在更新的规则自身
func (s *blackoutService) ensureNoActiveRule(ctx context.Context, weekday int, exceptID string) error {
	existing, err := s.repo.WeeklyRule.GetActiveByWeekday(ctx, weekday)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		s.logger.Error("查询每周禁约规则失败", zap.Int("weekday", weekday), zap.Error(err))
		return err
	}
	if existing.RuleID != exceptID {
		return ErrWeeklyRuleActiveDuplicate
	}
	return nil
}

func parseDateRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.Parse(model.DateLayout, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, ErrBlackoutInvalidDate
	}
	end, err := time.Parse(model.DateLayout, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, ErrBlackoutInvalidDate
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	return start, end, nil
}

func toAdHocBlackoutResponse(b *model.AdHocBlackout) dto.AdHocBlackoutResponse {
	return dto.AdHocBlackoutResponse{
		ID:        b.BlackoutID,
		VesselID:  b.VesselID,
		StartDate: b.StartDate.Format(model.DateLayout),
		EndDate:   b.EndDate.Format(model.DateLayout),
		Reason:    b.Reason,
		Notes:     b.Notes,
	}
}

func toWeeklyRuleResponse(r *model.WeeklyBlackoutRule) dto.WeeklyRuleResponse {
	return dto.WeeklyRuleResponse{
		ID:        r.RuleID,
		Weekday:   r.Weekday,
		Reason:    r.Reason,
		Notes:     r.Notes,
		IsActive:  r.IsActive,
		UpdatedAt: r.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
