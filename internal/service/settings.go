package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"nautica/backend/config"
	"nautica/backend/internal/repository"
)

// BookingSettings 预约准入参数
type BookingSettings struct {
	MinAdvanceHours          int
	AllowSameDay             bool
	GlobalHorizonDays        int
	DefaultMaxActiveBookings int
	// Location 判定"今天"与提前量所用的时区
	Location *time.Location
}

// SettingsProvider 读取预约参数（设置系统维护 system_config，这里只读）
type SettingsProvider interface {
	Booking(ctx context.Context) (*BookingSettings, error)
}

type settingsProvider struct {
	repo     *repository.Repository
	defaults BookingSettings
	logger   *zap.Logger
}

// NewSettingsProvider 创建 SettingsProvider；system_config 无记录时回退到配置文件默认值
func NewSettingsProvider(repo *repository.Repository, cfg *config.BookingConfig, logger *zap.Logger) (SettingsProvider, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &settingsProvider{
		repo: repo,
		defaults: BookingSettings{
			MinAdvanceHours:          cfg.MinAdvanceHours,
			AllowSameDay:             cfg.AllowSameDay,
			GlobalHorizonDays:        cfg.GlobalHorizonDays,
			DefaultMaxActiveBookings: cfg.DefaultMaxActiveBookings,
			Location:                 loc,
		},
		logger: logger,
	}, nil
}

func (p *settingsProvider) Booking(ctx context.Context) (*BookingSettings, error) {
	row, err := p.repo.SystemConfig.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s := p.defaults
			return &s, nil
		}
		p.logger.Error("查询系统配置失败", zap.Error(err))
		return nil, err
	}

	return &BookingSettings{
		MinAdvanceHours:          row.MinAdvanceHours,
		AllowSameDay:             row.AllowSameDay,
		GlobalHorizonDays:        row.GlobalHorizonDays,
		DefaultMaxActiveBookings: row.DefaultMaxActiveBookings,
		Location:                 p.defaults.Location,
	}, nil
}
