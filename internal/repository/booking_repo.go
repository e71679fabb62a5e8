package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"nautica/backend/internal/model"
	pkgerrors "nautica/backend/pkg/errors"
)

// BookingRepository 预约数据访问接口
// 所有读取默认排除软删除记录；(vessel_id, booking_date) 唯一约束是并发写入的最终裁决
type BookingRepository interface {
	// Create 插入预约；同一船只同一天已存在记录时返回 pkgerrors.ErrDuplicateKey
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	// ExistsForSlot 是否已有未删除的预约占用该日期（不区分状态）
	ExistsForSlot(ctx context.Context, vesselID string, day time.Time) (bool, error)
	// CountActive 统计用户在该船只上 asOf 当天及以后的有效预约数
	CountActive(ctx context.Context, userID, vesselID string, asOf time.Time) (int64, error)
	// EarliestActive 返回 asOf 当天及以后日期最早的有效预约，不存在时返回 nil
	EarliestActive(ctx context.Context, userID, vesselID string, asOf time.Time) (*model.Booking, error)
	ListByVesselRange(ctx context.Context, vesselID string, start, end time.Time) ([]model.Booking, error)
	ListByUser(ctx context.Context, userID string, from *time.Time) ([]model.Booking, error)
	Update(ctx context.Context, booking *model.Booking) error
	SoftDelete(ctx context.Context, id string, deletedBy string) error
}

type bookingRepo struct {
	db *gorm.DB
}

// NewBookingRepo 创建 BookingRepository 实例
func NewBookingRepo(db *gorm.DB) BookingRepository {
	return &bookingRepo{db: db}
}

var activeStatuses = []string{model.BookingPending, model.BookingApproved}

func (r *bookingRepo) Create(ctx context.Context, booking *model.Booking) error {
	err := r.db.WithContext(ctx).Create(booking).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return pkgerrors.ErrDuplicateKey
	}
	return err
}

func (r *bookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	var booking model.Booking
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", id).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepo) ExistsForSlot(ctx context.Context, vesselID string, day time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("vessel_id = ? AND booking_date = ?", vesselID, day.Format(model.DateLayout)).
		Count(&count).Error
	return count > 0, err
}

func (r *bookingRepo) CountActive(ctx context.Context, userID, vesselID string, asOf time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("user_id = ? AND vessel_id = ? AND status IN ? AND booking_date >= ?",
			userID, vesselID, activeStatuses, asOf.Format(model.DateLayout)).
		Count(&count).Error
	return count, err
}

func (r *bookingRepo) EarliestActive(ctx context.Context, userID, vesselID string, asOf time.Time) (*model.Booking, error) {
	var booking model.Booking
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND vessel_id = ? AND status IN ? AND booking_date >= ?",
			userID, vesselID, activeStatuses, asOf.Format(model.DateLayout)).
		Order("booking_date ASC").
		Take(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepo) ListByVesselRange(ctx context.Context, vesselID string, start, end time.Time) ([]model.Booking, error) {
	var bookings []model.Booking
	err := r.db.WithContext(ctx).
		Where("vessel_id = ? AND booking_date BETWEEN ? AND ?",
			vesselID, start.Format(model.DateLayout), end.Format(model.DateLayout)).
		Order("booking_date ASC").
		Find(&bookings).Error
	return bookings, err
}

func (r *bookingRepo) ListByUser(ctx context.Context, userID string, from *time.Time) ([]model.Booking, error) {
	var bookings []model.Booking
	q := r.db.WithContext(ctx).
		Preload("Vessel").
		Where("user_id = ?", userID)
	if from != nil {
		q = q.Where("booking_date >= ?", from.Format(model.DateLayout))
	}
	err := q.Order("booking_date ASC").Find(&bookings).Error
	return bookings, err
}

func (r *bookingRepo) Update(ctx context.Context, booking *model.Booking) error {
	oldVersion := booking.Version
	result := r.db.WithContext(ctx).
		Model(booking).
		Where("booking_id = ? AND version = ?", booking.BookingID, oldVersion).
		Updates(map[string]interface{}{
			"status":              booking.Status,
			"notes":               booking.Notes,
			"cancelled_at":        booking.CancelledAt,
			"cancellation_reason": booking.CancellationReason,
			"updated_by":          booking.UpdatedBy,
			"version":             oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	booking.Version = oldVersion + 1
	return nil
}

func (r *bookingRepo) SoftDelete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("booking_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}
