package model

import "time"

// AdHocBlackout 船只临时禁约区间 — 对应 ad_hoc_blackouts
// StartDate 与 EndDate 均包含在内
type AdHocBlackout struct {
	BlackoutID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"blackout_id"`
	VesselID   string    `gorm:"type:uuid;not null"                             json:"vessel_id"`
	StartDate  time.Time `gorm:"type:date;not null"                             json:"start_date"`
	EndDate    time.Time `gorm:"type:date;not null"                             json:"end_date"`
	Reason     string    `gorm:"type:varchar(200);not null"                     json:"reason"`
	Notes      string    `gorm:"type:varchar(500)"                              json:"notes,omitempty"`
	VersionedModel
}

// TableName 指定表名
func (AdHocBlackout) TableName() string { return "ad_hoc_blackouts" }

// Covers 判断某天是否落在区间内（闭区间）
func (b *AdHocBlackout) Covers(day time.Time) bool {
	return !day.Before(b.StartDate) && !day.After(b.EndDate)
}

// WeeklyBlackoutRule 每周固定禁约规则 — 对应 weekly_blackout_rules
// 全局生效，不区分船只；Weekday 0 表示周日
type WeeklyBlackoutRule struct {
	RuleID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"rule_id"`
	Weekday  int    `gorm:"type:smallint;not null"                         json:"weekday"`
	Reason   string `gorm:"type:varchar(200);not null"                     json:"reason"`
	Notes    string `gorm:"type:varchar(500)"                              json:"notes,omitempty"`
	IsActive bool   `gorm:"not null"                                       json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (WeeklyBlackoutRule) TableName() string { return "weekly_blackout_rules" }
