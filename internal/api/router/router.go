package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nautica/backend/config"
	"nautica/backend/internal/api/handler"
	"nautica/backend/internal/api/middleware"
	"nautica/backend/pkg/jwt"
)

const (
	maxBodyBytes = 1 << 20

	// 预约申请限流：每用户每分钟
	bookingRateLimit  = 10
	bookingRateWindow = time.Minute
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时不限流
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, limiter middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	authorized := v1.Group("")
	authorized.Use(middleware.JWTAuth(jwtMgr))
	{
		// 预约模块
		bookings := authorized.Group("/bookings")
		{
			bookings.POST("", middleware.RateLimit(limiter, bookingRateLimit, bookingRateWindow), h.Booking.CreateBooking)
			bookings.GET("/me", h.Booking.ListMyBookings)
			bookings.GET("/:id", h.Booking.GetBooking) // 本人或管理员（Service 层鉴权）
			bookings.POST("/:id/cancel", h.Booking.CancelBooking)
			bookings.PUT("/:id/status", middleware.RequireAdmin(), h.Booking.UpdateBookingStatus)
			bookings.DELETE("/:id", middleware.RequireAdmin(), h.Booking.DeleteBooking)
		}

		// 船只日历与临时禁约
		vessels := authorized.Group("/vessels/:id")
		{
			vessels.GET("/calendar", h.Calendar.GetCalendar)
			vessels.GET("/blackouts", h.Blackout.ListAdHoc)
			vessels.POST("/blackouts", middleware.RequireAdmin(), h.Blackout.CreateAdHoc)
		}

		blackouts := authorized.Group("/blackouts", middleware.RequireAdmin())
		{
			blackouts.PUT("/:id", h.Blackout.UpdateAdHoc)
			blackouts.DELETE("/:id", h.Blackout.DeleteAdHoc)
		}

		// 每周禁约规则（全局）
		weekly := authorized.Group("/weekly-blackouts")
		{
			weekly.GET("", h.Blackout.ListWeeklyRules)
			weekly.POST("", middleware.RequireAdmin(), h.Blackout.CreateWeeklyRule)
			weekly.PUT("/:id", middleware.RequireAdmin(), h.Blackout.UpdateWeeklyRule)
			weekly.DELETE("/:id", middleware.RequireAdmin(), h.Blackout.DeleteWeeklyRule)
		}
	}

	return r
}
