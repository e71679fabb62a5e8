package model

import "time"

// Vessel 船只表 — 对应 vessels
// BookingHorizonDays / MaxActiveBookings 为空时使用全局默认值
type Vessel struct {
	VesselID           string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"vessel_id"`
	Name               string `gorm:"type:varchar(100);not null"                     json:"name"`
	BookingHorizonDays *int   `gorm:"type:int"                                       json:"booking_horizon_days,omitempty"`
	MaxActiveBookings  *int   `gorm:"type:int"                                       json:"max_active_bookings,omitempty"`
	IsActive           bool   `gorm:"not null;default:true"                          json:"is_active"`
	SoftDeleteModel
}

// TableName 指定表名
func (Vessel) TableName() string { return "vessels" }

// VesselMember 用户与船只的关联（共享所有权）
type VesselMember struct {
	VesselID  string    `gorm:"type:uuid;primaryKey" json:"vessel_id"`
	UserID    string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (VesselMember) TableName() string { return "vessel_members" }
