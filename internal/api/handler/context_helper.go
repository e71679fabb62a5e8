package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"nautica/backend/internal/api/middleware"
	"nautica/backend/internal/model"
	"nautica/backend/internal/service"
	"nautica/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, middleware.CtxUserID)
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	return mustGetString(c, middleware.CtxRole)
}

// MustGetCaller 同时提取 user_id 与 role
func MustGetCaller(c *gin.Context) (userID, role string, ok bool) {
	if userID, ok = MustGetUserID(c); !ok {
		return "", "", false
	}
	if role, ok = MustGetRole(c); !ok {
		return "", "", false
	}
	return userID, role, true
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// bindJSON 绑定请求体；超出 BodyLimit 时返回 413，其余校验失败返回 400
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			return false
		}
		response.BadRequest(c, 10001, "参数校验失败")
		return false
	}
	return true
}

// parseDay 解析 YYYY-MM-DD，失败时写入 400
func parseDay(c *gin.Context, s string) (time.Time, bool) {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		response.BadRequest(c, 10001, "日期格式无效，应为 YYYY-MM-DD")
		return time.Time{}, false
	}
	return d, true
}

// pathID 读取路径参数 :id 并校验为 UUID，失败时写入 400
func pathID(c *gin.Context) (string, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, 10001, "ID 格式无效")
		return "", false
	}
	return id.String(), true
}

// respondError 统一输出业务错误；非业务错误记录日志后返回 500
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var be *service.BlackoutError
	if errors.As(err, &be) {
		response.ErrorWithDetails(c, http.StatusConflict, service.ErrBookingBlackout.Code, be.Error(), be.Notes)
		return
	}
	if response.AppError(c, err) {
		return
	}

	logger.Error("未处理的错误",
		zap.String("method", c.Request.Method),
		zap.String("route", c.FullPath()),
		zap.String(middleware.RequestIDKey, c.GetString(middleware.RequestIDKey)),
		zap.Error(err),
	)
	response.InternalError(c)
}
