package service

import (
	"context"
	"time"

	"nautica/backend/internal/repository"
)

// QuotaTracker 统计用户在单艘船只上的有效预约（待审核 / 已批准）
// 配额严格按 (用户, 船只) 计算，不同船只互不影响
type QuotaTracker interface {
	// ActiveCount asOf 当天及以后的有效预约数量
	ActiveCount(ctx context.Context, userID, vesselID string, asOf time.Time) (int64, error)
	// EarliestActiveDate 计入配额的有效预约中日期最早的一条（asOf 当天及以后），没有时返回 nil
	EarliestActiveDate(ctx context.Context, userID, vesselID string, asOf time.Time) (*time.Time, error)
}

type quotaTracker struct {
	repo *repository.Repository
}

// NewQuotaTracker 创建 QuotaTracker 实例
func NewQuotaTracker(repo *repository.Repository) QuotaTracker {
	return &quotaTracker{repo: repo}
}

func (q *quotaTracker) ActiveCount(ctx context.Context, userID, vesselID string, asOf time.Time) (int64, error) {
	return q.repo.Booking.CountActive(ctx, userID, vesselID, dayOf(asOf))
}

func (q *quotaTracker) EarliestActiveDate(ctx context.Context, userID, vesselID string, asOf time.Time) (*time.Time, error) {
	b, err := q.repo.Booking.EarliestActive(ctx, userID, vesselID, dayOf(asOf))
	if err != nil || b == nil {
		return nil, err
	}
	d := dayOf(b.BookingDate)
	return &d, nil
}
