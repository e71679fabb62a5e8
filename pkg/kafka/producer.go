package kafka

import (
	"context"
	"time"

	"github.com/IBM/sarama"

	"nautica/backend/config"
)

// Producer 同步 Kafka 生产者，用于投递预约通知事件
type Producer struct {
	sync  sarama.SyncProducer
	topic string
}

// NewProducer 创建生产者；要求所有副本确认并开启幂等写入
// sendTimeout 约束单条消息的网络往返与 broker 确认，与通知派发超时保持一致
func NewProducer(cfg *config.KafkaConfig, sendTimeout time.Duration) (*Producer, error) {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Idempotent = true
	sc.Producer.Return.Successes = true
	sc.Net.MaxOpenRequests = 1

	// 幂等写入要求至少重试一次
	sc.Producer.Retry.Max = 1
	if sendTimeout > 0 {
		sc.Producer.Timeout = sendTimeout
		sc.Producer.Retry.Backoff = sendTimeout / 10
		sc.Net.DialTimeout = sendTimeout
		sc.Net.ReadTimeout = sendTimeout
		sc.Net.WriteTimeout = sendTimeout
	}

	sync, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, err
	}
	return &Producer{sync: sync, topic: cfg.Topic}, nil
}

// Publish 发送一条消息；key 决定分区，同一船只的事件保持有序
// ctx 结束时立即返回 ctx.Err()，已发出的请求由 sarama 自身超时收尾
func (p *Producer) Publish(ctx context.Context, key string, payload []byte, headers map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	hs := make([]sarama.RecordHeader, 0, len(headers))
	for k, v := range headers {
		hs = append(hs, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}
	msg := &sarama.ProducerMessage{
		Topic:   p.topic,
		Key:     sarama.StringEncoder(key),
		Value:   sarama.ByteEncoder(payload),
		Headers: hs,
	}

	done := make(chan error, 1)
	go func() {
		_, _, err := p.sync.SendMessage(msg)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close 关闭生产者
func (p *Producer) Close() error {
	if p.sync == nil {
		return nil
	}
	return p.sync.Close()
}
