package dto

// ── 预约模块 DTO ──

// CreateBookingRequest 创建预约请求
type CreateBookingRequest struct {
	VesselID string `json:"vessel_id" binding:"required,uuid"`
	Date     string `json:"date"      binding:"required,datetime=2006-01-02"`
	Notes    string `json:"notes"     binding:"max=500"`
}

// CancelBookingRequest 取消预约请求
type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// UpdateBookingStatusRequest 管理员修改预约状态
type UpdateBookingStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending approved cancelled completed"`
}

// MyBookingsRequest 我的预约查询参数
type MyBookingsRequest struct {
	IncludePast bool `form:"include_past"`
}

// BookingResponse 预约信息响应
type BookingResponse struct {
	ID                 string `json:"id"`
	UserID             string `json:"user_id"`
	VesselID           string `json:"vessel_id"`
	VesselName         string `json:"vessel_name,omitempty"`
	Date               string `json:"date"`
	Status             string `json:"status"`
	Notes              string `json:"notes,omitempty"`
	CancelledAt        string `json:"cancelled_at,omitempty"`
	CancellationReason string `json:"cancellation_reason,omitempty"`
	CreatedAt          string `json:"created_at"`
}
