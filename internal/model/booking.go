package model

import "time"

// 预约状态
const (
	BookingPending   = "pending"
	BookingApproved  = "approved"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
)

// ValidBookingStatus 判断状态取值是否合法
func ValidBookingStatus(s string) bool {
	switch s {
	case BookingPending, BookingApproved, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// Booking 预约表 — 对应 bookings
// (vessel_id, booking_date) 在所有行上唯一，包括已取消和已软删除的行
type Booking struct {
	BookingID          string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"booking_id"`
	UserID             string     `gorm:"type:uuid;not null"                             json:"user_id"`
	VesselID           string     `gorm:"type:uuid;not null"                             json:"vessel_id"`
	BookingDate        time.Time  `gorm:"type:date;not null"                             json:"booking_date"`
	Status             string     `gorm:"type:varchar(20);not null;default:'approved'"   json:"status"`
	Notes              string     `gorm:"type:varchar(500)"                              json:"notes,omitempty"`
	CancelledAt        *time.Time `gorm:"type:timestamptz"                               json:"cancelled_at,omitempty"`
	CancellationReason string     `gorm:"type:varchar(500)"                              json:"cancellation_reason,omitempty"`
	VersionedModel

	// 关联
	Vessel *Vessel `gorm:"foreignKey:VesselID;references:VesselID" json:"vessel,omitempty"`
}

// TableName 指定表名
func (Booking) TableName() string { return "bookings" }

// IsActive 待审核或已批准的预约计入配额
func (b *Booking) IsActive() bool {
	return b.Status == BookingPending || b.Status == BookingApproved
}
