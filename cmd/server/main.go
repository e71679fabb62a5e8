package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"nautica/backend/config"
	"nautica/backend/internal/api/handler"
	"nautica/backend/internal/api/middleware"
	"nautica/backend/internal/api/router"
	"nautica/backend/internal/repository"
	"nautica/backend/internal/service"
	"nautica/backend/pkg/cache"
	"nautica/backend/pkg/database"
	"nautica/backend/pkg/jwt"
	"nautica/backend/pkg/kafka"
	applogger "nautica/backend/pkg/logger"
	"nautica/backend/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("timezone", cfg.Booking.Timezone),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// 4. 日历缓存后端：优先 Redis，连接失败时降级为进程内缓存（限流同时关闭）
	var (
		store   cache.Store
		limiter middleware.RateLimiter
		rdb     *redis.Client
	)
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，日历缓存降级为进程内缓存，接口限流不可用", zap.Error(err))
		rdb = nil
		mem := cache.NewMemory()
		go mem.RunJanitor(bgCtx, cfg.Cache.JanitorInterval)
		store = mem
	} else {
		store = rdb
		limiter = rdb
	}

	// 5. 通知投递端：配置了 Kafka 时投递到 Kafka，否则仅记录日志
	var (
		publisher service.Publisher
		producer  *kafka.Producer
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafka.NewProducer(&cfg.Kafka, cfg.Notification.DispatchTimeout)
		if err != nil {
			logger.Fatal("Kafka 生产者初始化失败", zap.Error(err), zap.Strings("brokers", cfg.Kafka.Brokers))
		}
		publisher = producer
		logger.Info("Kafka 生产者已就绪", zap.String("topic", cfg.Kafka.Topic))
	} else {
		publisher = service.NewLogPublisher(logger)
		logger.Info("未配置 Kafka，通知事件仅写入日志")
	}

	// 6. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 7. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc, err := service.NewService(cfg, repo, store, publisher, logger)
	if err != nil {
		logger.Fatal("服务初始化失败", zap.Error(err))
	}
	h := handler.NewHandler(svc, logger)

	// 8. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, limiter, logger)

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 等待审计与通知分发完成
	svc.Dispatcher.Wait()
	stopBackground()

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Warn("Kafka 生产者关闭异常", zap.Error(err))
		}
	}

	// 关闭数据库连接
	closeDB, _ := db.DB()
	if closeDB != nil {
		closeDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
