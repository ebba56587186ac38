package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"story-studio/internal/domain/entity"
	"story-studio/internal/domain/repository"
)

const (
	sessionKeyPrefix = "story:session:"
	maxTxRetries     = 10
)

// SessionStore 基于 WATCH/MULTI 乐观锁的会话存储
type SessionStore struct {
	client *Client
	ttl    time.Duration
}

var _ repository.SessionStore = (*SessionStore)(nil)

// NewSessionStore 创建会话存储，ttl 为会话空闲过期时间
func NewSessionStore(client *Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

// Load 获取会话状态；不存在时返回零值
func (s *SessionStore) Load(ctx context.Context, sessionID string) (entity.ListingState, error) {
	ctx, span := tracer.Start(ctx, "session.Load",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	state, err := s.read(ctx, s.client.rdb, sessionKey(sessionID))
	if err != nil {
		span.RecordError(err)
		return entity.ListingState{}, err
	}
	return state, nil
}

// Update 原子地读取、计算并写回会话状态
func (s *SessionStore) Update(ctx context.Context, sessionID string, fn repository.UpdateFunc) (entity.ListingState, error) {
	ctx, span := tracer.Start(ctx, "session.Update",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	key := sessionKey(sessionID)
	var next entity.ListingState

	txf := func(tx *redis.Tx) error {
		current, err := s.read(ctx, tx, key)
		if err != nil {
			return err
		}
		next, err = fn(current)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.client.rdb.Watch(ctx, txf, key)
		if err == nil {
			span.SetAttributes(attribute.Int("session.tx_attempts", attempt+1))
			return next.Snapshot(), nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		span.RecordError(err)
		return entity.ListingState{}, err
	}

	err := fmt.Errorf("session %s update conflicted %d times", sessionID, maxTxRetries)
	span.RecordError(err)
	return entity.ListingState{}, err
}

func (s *SessionStore) read(ctx context.Context, cmd redis.Cmdable, key string) (entity.ListingState, error) {
	raw, err := cmd.Get(ctx, key).Bytes()
	if IsNil(err) {
		return entity.ListingState{}, nil
	}
	if err != nil {
		return entity.ListingState{}, fmt.Errorf("failed to read session: %w", err)
	}

	var state entity.ListingState
	if err := json.Unmarshal(raw, &state); err != nil {
		return entity.ListingState{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return state, nil
}
