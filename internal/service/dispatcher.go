package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"nautica/backend/internal/model"
	"nautica/backend/internal/repository"
)

// 通知事件类型
const (
	EventBookingCreated   = "booking.created"
	EventBookingCancelled = "booking.cancelled"
)

// Event 预约副作用事件（审计与通知共用）
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	BookingID  string    `json:"booking_id"`
	VesselID   string    `json:"vessel_id"`
	UserID     string    `json:"user_id"`
	ActorID    string    `json:"actor_id,omitempty"`
	Date       string    `json:"date"`
	Status     string    `json:"status,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher 通知投递端（生产环境为 Kafka 生产者）
type Publisher interface {
	Publish(ctx context.Context, key string, payload []byte, headers map[string]string) error
}

// LogPublisher 未配置 Kafka 时的降级实现，只记录日志
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher 创建日志投递端
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, key string, payload []byte, headers map[string]string) error {
	p.logger.Info("通知事件（未配置 Kafka，仅记录）",
		zap.String("key", key),
		zap.String("type", headers["event_type"]),
		zap.ByteString("payload", payload),
	)
	return nil
}

// ── Dispatcher ──────────────────────────────────────────
//
// 审计与通知都是"发出即忘"：每个事件在独立 goroutine 中执行，
// 使用与请求无关的 context 并带超时；失败只记 Warn 日志，
// 不影响调用方的结果。Wait 用于优雅关闭与测试。
// ─────────────────────────────────────────────────────────────

// Dispatcher 副作用分发器
type Dispatcher struct {
	audit     repository.AuditLogRepository
	publisher Publisher
	timeout   time.Duration
	logger    *zap.Logger
	wg        sync.WaitGroup
}

// NewDispatcher 创建 Dispatcher
func NewDispatcher(audit repository.AuditLogRepository, publisher Publisher, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{audit: audit, publisher: publisher, timeout: timeout, logger: logger}
}

// Audit 异步写入审计日志
func (d *Dispatcher) Audit(action string, e Event) {
	e = d.stamp(e)
	d.goTimed(func(ctx context.Context) error {
		payload, err := json.Marshal(e)
		if err != nil {
			return err
		}
		entry := &model.AuditLog{
			Action:       action,
			ResourceType: "booking",
			ResourceID:   e.BookingID,
			Payload:      datatypes.JSON(payload),
		}
		if e.ActorID != "" {
			actor := e.ActorID
			entry.ActorID = &actor
		}
		return d.audit.Create(ctx, entry)
	}, "审计日志写入失败", e)
}

// Notify 异步投递通知事件，按船只分区
func (d *Dispatcher) Notify(e Event) {
	e = d.stamp(e)
	d.goTimed(func(ctx context.Context) error {
		payload, err := json.Marshal(e)
		if err != nil {
			return err
		}
		return d.publisher.Publish(ctx, e.VesselID, payload, map[string]string{
			"event_type": e.Type,
			"event_id":   e.ID,
		})
	}, "通知投递失败", e)
}

// Wait 等待所有进行中的分发结束
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) stamp(e Event) Event {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	return e
}

func (d *Dispatcher) goTimed(fn func(ctx context.Context) error, msg string, e Event) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error(msg, zap.Any("panic", r), zap.String("booking_id", e.BookingID))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			d.logger.Warn(msg,
				zap.String("event_type", e.Type),
				zap.String("booking_id", e.BookingID),
				zap.Error(err),
			)
		}
	}()
}
