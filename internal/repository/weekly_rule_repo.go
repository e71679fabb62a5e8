package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"nautica/backend/internal/model"
	pkgerrors "nautica/backend/pkg/errors"
)

// WeeklyRuleRepository 每周禁约规则数据访问接口
type WeeklyRuleRepository interface {
	// GetActiveByWeekday 返回该星期几启用中的规则，不存在时返回 gorm.ErrRecordNotFound
	GetActiveByWeekday(ctx context.Context, weekday int) (*model.WeeklyBlackoutRule, error)
	ListActive(ctx context.Context) ([]model.WeeklyBlackoutRule, error)
	List(ctx context.Context) ([]model.WeeklyBlackoutRule, error)
	GetByID(ctx context.Context, id string) (*model.WeeklyBlackoutRule, error)
	// Create / Update 违反"每个星期几最多一条启用规则"时返回 pkgerrors.ErrDuplicateKey
	Create(ctx context.Context, rule *model.WeeklyBlackoutRule) error
	Update(ctx context.Context, rule *model.WeeklyBlackoutRule) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

type weeklyRuleRepo struct {
	db *gorm.DB
}

// NewWeeklyRuleRepo 创建 WeeklyRuleRepository 实例
func NewWeeklyRuleRepo(db *gorm.DB) WeeklyRuleRepository {
	return &weeklyRuleRepo{db: db}
}

func (r *weeklyRuleRepo) GetActiveByWeekday(ctx context.Context, weekday int) (*model.WeeklyBlackoutRule, error) {
	var rule model.WeeklyBlackoutRule
	err := r.db.WithContext(ctx).
		Where("weekday = ? AND is_active = ?", weekday, true).
		First(&rule).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *weeklyRuleRepo) ListActive(ctx context.Context) ([]model.WeeklyBlackoutRule, error) {
	var rules []model.WeeklyBlackoutRule
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("weekday ASC").
		Find(&rules).Error
	return rules, err
}

func (r *weeklyRuleRepo) List(ctx context.Context) ([]model.WeeklyBlackoutRule, error) {
	var rules []model.WeeklyBlackoutRule
	err := r.db.WithContext(ctx).
		Order("weekday ASC, created_at ASC").
		Find(&rules).Error
	return rules, err
}

func (r *weeklyRuleRepo) GetByID(ctx context.Context, id string) (*model.WeeklyBlackoutRule, error) {
	var rule model.WeeklyBlackoutRule
	err := r.db.WithContext(ctx).Where("rule_id = ?", id).First(&rule).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *weeklyRuleRepo) Create(ctx context.Context, rule *model.WeeklyBlackoutRule) error {
	err := r.db.WithContext(ctx).Create(rule).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return pkgerrors.ErrDuplicateKey
	}
	return err
}

func (r *weeklyRuleRepo) Update(ctx context.Context, rule *model.WeeklyBlackoutRule) error {
	oldVersion := rule.Version
	result := r.db.WithContext(ctx).
		Model(rule).
		Where("rule_id = ? AND version = ?", rule.RuleID, oldVersion).
		Updates(map[string]interface{}{
			"reason":     rule.Reason,
			"notes":      rule.Notes,
			"is_active":  rule.IsActive,
			"updated_by": rule.UpdatedBy,
			"version":    oldVersion + 1,
		})
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return pkgerrors.ErrDuplicateKey
	}
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	rule.Version = oldVersion + 1
	return nil
}

func (r *weeklyRuleRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.WeeklyBlackoutRule{}).
		Where("rule_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}
