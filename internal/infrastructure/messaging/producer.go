package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"story-studio/internal/domain/entity"
	"story-studio/pkg/metrics"
)

var tracer = otel.Tracer("messaging")

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{
		client: client,
		maxLen: maxLen,
	}
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	status := "error"
	defer func() {
		metrics.RedisStreamPublished.WithLabelValues(string(stream), status).Inc()
	}()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"type": msg.Type,
			"data": string(data),
		},
	}).Result()
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	status = "ok"
	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishGenerationOutcome 发布一次生成调用的结果
func (p *Producer) PublishGenerationOutcome(ctx context.Context, sessionID string, attempt *entity.GenerationAttempt) (string, error) {
	msg, err := NewMessage(attempt.RequestID, TypeGenerationOutcome, sessionID, attempt)
	if err != nil {
		return "", err
	}

	msg.SetMetadata("plan", attempt.Plan)
	msg.SetMetadata("status", string(attempt.Status))
	return p.Publish(ctx, StreamStoryEvents, msg)
}
