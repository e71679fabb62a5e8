package dto

// ── 禁约模块 DTO ──

// CreateAdHocBlackoutRequest 创建临时禁约区间
type CreateAdHocBlackoutRequest struct {
	StartDate string `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date"   binding:"required,datetime=2006-01-02"`
	Reason    string `json:"reason"     binding:"required,max=200"`
	Notes     string `json:"notes"      binding:"max=500"`
}

// UpdateAdHocBlackoutRequest 更新临时禁约区间（字段均可选）
type UpdateAdHocBlackoutRequest struct {
	StartDate *string `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate   *string `json:"end_date"   binding:"omitempty,datetime=2006-01-02"`
	Reason    *string `json:"reason"     binding:"omitempty,max=200"`
	Notes     *string `json:"notes"      binding:"omitempty,max=500"`
}

// AdHocBlackoutResponse 临时禁约区间响应
type AdHocBlackoutResponse struct {
	ID        string `json:"id"`
	VesselID  string `json:"vessel_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
	Notes     string `json:"notes,omitempty"`
}

// CreateWeeklyRuleRequest 创建每周禁约规则
// Weekday 使用指针，避免 0（周日）被 required 校验拒绝
type CreateWeeklyRuleRequest struct {
	Weekday  *int   `json:"weekday"   binding:"required,min=0,max=6"`
	Reason   string `json:"reason"    binding:"required,max=200"`
	Notes    string `json:"notes"     binding:"max=500"`
	IsActive *bool  `json:"is_active"`
}

// UpdateWeeklyRuleRequest 更新每周禁约规则
type UpdateWeeklyRuleRequest struct {
	Reason   *string `json:"reason"    binding:"omitempty,max=200"`
	Notes    *string `json:"notes"     binding:"omitempty,max=500"`
	IsActive *bool   `json:"is_active"`
}

// WeeklyRuleResponse 每周禁约规则响应
type WeeklyRuleResponse struct {
	ID        string `json:"id"`
	Weekday   int    `json:"weekday"`
	Reason    string `json:"reason"`
	Notes     string `json:"notes,omitempty"`
	IsActive  bool   `json:"is_active"`
	UpdatedAt string `json:"updated_at"`
}
