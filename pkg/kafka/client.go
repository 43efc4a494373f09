// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"edu-archive-go/internal/config"
	"edu-archive-go/pkg/events"
	"edu-archive-go/pkg/log"

	"github.com/segmentio/kafka-go"
)

// MessageWriter 是 kafka.Writer 中我们用到的部分，便于测试替换。
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// batchTimeout 是单条审计事件在 writer 中等待凑批的上限。
const batchTimeout = 10 * time.Millisecond

// AuditProducer 把审计事件发布到 Kafka 主题。每次发布都受 timeout 约束。
type AuditProducer struct {
	writer  MessageWriter
	timeout time.Duration
}

// NewAuditProducer 初始化 Kafka 生产者。Brokers 支持逗号分隔。
func NewAuditProducer(cfg config.KafkaConfig) *AuditProducer {
	var brokers []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  cfg.AuditTopic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           batchTimeout,
		WriteTimeout:           cfg.PublishTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	log.Infof("Kafka 审计生产者初始化成功, topic: %s, publishTimeout: %s", cfg.AuditTopic, cfg.PublishTimeout)
	return &AuditProducer{writer: w, timeout: cfg.PublishTimeout}
}

// NewAuditProducerWithWriter 使用自定义 writer 创建生产者。timeout <= 0 表示只受调用方 ctx 约束。
func NewAuditProducerWithWriter(w MessageWriter, timeout time.Duration) *AuditProducer {
	return &AuditProducer{writer: w, timeout: timeout}
}

// Publish 发送一个审计事件，同一文档的事件使用相同的 key 以保持顺序。
func (p *AuditProducer) Publish(ctx context.Context, event events.AuditEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := kafka.Message{Value: value}
	if key := event.Key(); key != "" {
		msg.Key = []byte(key)
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Close 刷新并关闭底层 writer。
func (p *AuditProducer) Close() error {
	return p.writer.Close()
}
