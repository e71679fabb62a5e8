package model

import (
	"time"

	"gorm.io/datatypes"
)

// 审计动作
const (
	AuditBookingCreated       = "booking.created"
	AuditBookingCancelled     = "booking.cancelled"
	AuditBookingStatusChanged = "booking.status_changed"
	AuditBookingDeleted       = "booking.deleted"
)

// AuditLog 审计日志表 — 对应 audit_logs
type AuditLog struct {
	AuditLogID   string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"audit_log_id"`
	Action       string         `gorm:"type:varchar(64);not null"                      json:"action"`
	ResourceType string         `gorm:"type:varchar(64);not null"                      json:"resource_type"`
	ResourceID   string         `gorm:"type:uuid;not null"                             json:"resource_id"`
	ActorID      *string        `gorm:"type:uuid"                                      json:"actor_id,omitempty"`
	Payload      datatypes.JSON `gorm:"type:jsonb"                                     json:"payload,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (AuditLog) TableName() string { return "audit_logs" }
