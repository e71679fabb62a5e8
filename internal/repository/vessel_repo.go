package repository

import (
	"context"

	"gorm.io/gorm"

	"nautica/backend/internal/model"
)

// VesselRepository 船只数据访问接口
type VesselRepository interface {
	GetByID(ctx context.Context, id string) (*model.Vessel, error)
	// IsMember 用户是否与船只关联
	IsMember(ctx context.Context, vesselID, userID string) (bool, error)
}

type vesselRepo struct {
	db *gorm.DB
}

// NewVesselRepo 创建 VesselRepository 实例
func NewVesselRepo(db *gorm.DB) VesselRepository {
	return &vesselRepo{db: db}
}

func (r *vesselRepo) GetByID(ctx context.Context, id string) (*model.Vessel, error) {
	var vessel model.Vessel
	err := r.db.WithContext(ctx).
		Where("vessel_id = ?", id).
		First(&vessel).Error
	if err != nil {
		return nil, err
	}
	return &vessel, nil
}

func (r *vesselRepo) IsMember(ctx context.Context, vesselID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.VesselMember{}).
		Where("vessel_id = ? AND user_id = ?", vesselID, userID).
		Count(&count).Error
	return count > 0, err
}
