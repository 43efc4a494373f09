package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"edu-archive-go/internal/config"
	"edu-archive-go/pkg/events"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func (c *captureWriter) Close() error {
	c.closed = true
	return nil
}

func TestAuditProducer_Publish(t *testing.T) {
	w := &captureWriter{}
	p := NewAuditProducerWithWriter(w, time.Second)
	docID := uint(42)
	ts := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, p.Publish(context.Background(), events.AuditEvent{ActorID: 1, Action: "upload", DocumentID: &docID, Timestamp: ts}))
	require.NoError(t, p.Publish(context.Background(), events.AuditEvent{ActorID: 1, Action: "login", Timestamp: ts}))
	require.NoError(t, p.Close())

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "doc-42", string(w.msgs[0].Key))
	assert.Nil(t, w.msgs[1].Key)

	var got events.AuditEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "upload", got.Action)
	assert.Equal(t, docID, *got.DocumentID)
	assert.True(t, w.closed)
}

// stalledWriter 模拟一个接受连接但从不应答的 broker。
type stalledWriter struct{}

func (stalledWriter) WriteMessages(ctx context.Context, _ ...kafka.Message) error {
	<-ctx.Done()
	return ctx.Err()
}

func (stalledWriter) Close() error { return nil }

func TestAuditProducer_PublishIsBounded(t *testing.T) {
	p := NewAuditProducerWithWriter(stalledWriter{}, 50*time.Millisecond)

	start := time.Now()
	err := p.Publish(context.Background(), events.AuditEvent{ActorID: 1, Action: "view", Timestamp: time.Now()})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewAuditProducer_WriterSettings(t *testing.T) {
	p := NewAuditProducer(config.KafkaConfig{Brokers: "a:9092, b:9092", AuditTopic: "archive-audit", PublishTimeout: 2 * time.Second})
	defer p.Close()

	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, batchTimeout, w.BatchTimeout)
	assert.Equal(t, 2*time.Second, w.WriteTimeout)
	assert.Equal(t, 2*time.Second, p.timeout)
}
