package dto

// CalendarRequest 日历查询参数
type CalendarRequest struct {
	Start string `form:"start" binding:"required,datetime=2006-01-02"`
	End   string `form:"end"   binding:"required,datetime=2006-01-02"`
}

// CalendarResponse 船只日历视图：预约 + 临时禁约 + 每周禁约
type CalendarResponse struct {
	VesselID    string                  `json:"vessel_id"`
	Start       string                  `json:"start"`
	End         string                  `json:"end"`
	Bookings    []BookingResponse       `json:"bookings"`
	AdHocBlocks []AdHocBlackoutResponse `json:"ad_hoc_blocks"`
	WeeklyRules []WeeklyRuleResponse    `json:"weekly_rules"`
}
