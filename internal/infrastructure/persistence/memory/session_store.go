// Package memory 提供进程内会话存储
package memory

import (
	"context"
	"sync"
	"time"

	"story-studio/internal/domain/entity"
	"story-studio/internal/domain/repository"
)

type sessionEntry struct {
	state     entity.ListingState
	expiresAt time.Time
}

// SessionStore 进程内会话存储，单实例部署时使用
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]sessionEntry
	ttl      time.Duration
	now      func() time.Time
}

var _ repository.SessionStore = (*SessionStore)(nil)

// NewSessionStore 创建会话存储；ttl <= 0 表示不过期
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]sessionEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Load 获取会话状态；不存在或已过期时返回零值
func (s *SessionStore) Load(_ context.Context, sessionID string) (entity.ListingState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(sessionID)
	if !ok {
		return entity.ListingState{}, nil
	}
	return entry.state.Snapshot(), nil
}

// Update 在锁内完成读取、计算与写回
func (s *SessionStore) Update(ctx context.Context, sessionID string, fn repository.UpdateFunc) (entity.ListingState, error) {
	if err := ctx.Err(); err != nil {
		return entity.ListingState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, _ := s.lookup(sessionID)
	next, err := fn(entry.state.Snapshot())
	if err != nil {
		return entity.ListingState{}, err
	}

	stored := sessionEntry{state: next.Snapshot()}
	if s.ttl > 0 {
		stored.expiresAt = s.now().Add(s.ttl)
	}
	s.sessions[sessionID] = stored
	s.sweep()
	return next.Snapshot(), nil
}

// Len 当前未过期的会话数
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	return len(s.sessions)
}

func (s *SessionStore) lookup(sessionID string) (sessionEntry, bool) {
	entry, ok := s.sessions[sessionID]
	if !ok {
		return sessionEntry{}, false
	}
	if s.expired(entry) {
		delete(s.sessions, sessionID)
		return sessionEntry{}, false
	}
	return entry, true
}

func (s *SessionStore) expired(entry sessionEntry) bool {
	return !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt)
}

// sweep 清理过期会话
func (s *SessionStore) sweep() {
	for id, entry := range s.sessions {
		if s.expired(entry) {
			delete(s.sessions, id)
		}
	}
}
