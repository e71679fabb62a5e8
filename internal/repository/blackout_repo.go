package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"nautica/backend/internal/model"
	pkgerrors "nautica/backend/pkg/errors"
)

// AdHocBlackoutRepository 临时禁约区间数据访问接口
type AdHocBlackoutRepository interface {
	// FindCovering 返回覆盖某天的第一条禁约记录，不存在时返回 gorm.ErrRecordNotFound
	FindCovering(ctx context.Context, vesselID string, day time.Time) (*model.AdHocBlackout, error)
	// ListOverlapping 返回与 [start, end] 有交集的禁约记录
	ListOverlapping(ctx context.Context, vesselID string, start, end time.Time) ([]model.AdHocBlackout, error)
	GetByID(ctx context.Context, id string) (*model.AdHocBlackout, error)
	Create(ctx context.Context, b *model.AdHocBlackout) error
	Update(ctx context.Context, b *model.AdHocBlackout) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

type adHocBlackoutRepo struct {
	db *gorm.DB
}

// NewAdHocBlackoutRepo 创建 AdHocBlackoutRepository 实例
func NewAdHocBlackoutRepo(db *gorm.DB) AdHocBlackoutRepository {
	return &adHocBlackoutRepo{db: db}
}

func (r *adHocBlackoutRepo) FindCovering(ctx context.Context, vesselID string, day time.Time) (*model.AdHocBlackout, error) {
	var b model.AdHocBlackout
	d := day.Format(model.DateLayout)
	err := r.db.WithContext(ctx).
		Where("vessel_id = ? AND start_date <= ? AND end_date >= ?", vesselID, d, d).
		Order("start_date ASC").
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *adHocBlackoutRepo) ListOverlapping(ctx context.Context, vesselID string, start, end time.Time) ([]model.AdHocBlackout, error) {
	var blocks []model.AdHocBlackout
	err := r.db.WithContext(ctx).
		Where("vessel_id = ? AND start_date <= ? AND end_date >= ?",
			vesselID, end.Format(model.DateLayout), start.Format(model.DateLayout)).
		Order("start_date ASC").
		Find(&blocks).Error
	return blocks, err
}

func (r *adHocBlackoutRepo) GetByID(ctx context.Context, id string) (*model.AdHocBlackout, error) {
	var b model.AdHocBlackout
	err := r.db.WithContext(ctx).Where("blackout_id = ?", id).First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *adHocBlackoutRepo) Create(ctx context.Context, b *model.AdHocBlackout) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *adHocBlackoutRepo) Update(ctx context.Context, b *model.AdHocBlackout) error {
	oldVersion := b.Version
	result := r.db.WithContext(ctx).
		Model(b).
		Where("blackout_id = ? AND version = ?", b.BlackoutID, oldVersion).
		Updates(map[string]interface{}{
			"start_date": b.StartDate.Format(model.DateLayout),
			"end_date":   b.EndDate.Format(model.DateLayout),
			"reason":     b.Reason,
			"notes":      b.Notes,
			"updated_by": b.UpdatedBy,
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	b.Version = oldVersion + 1
	return nil
}

func (r *adHocBlackoutRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.AdHocBlackout{}).
		Where("blackout_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}
