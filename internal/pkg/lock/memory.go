package lock

import (
	"context"
	"sync"
	"time"
)

type heldLock struct {
	token     uint64
	expiresAt time.Time
}

// MemoryLocker is a single-process Locker.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]heldLock
	next  uint64
	nowFn func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		held:  make(map[string]heldLock),
		nowFn: time.Now,
	}
}

func (m *MemoryLocker) TryAcquire(_ context.Context, key string, ttl time.Duration) (Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFn()
	if h, ok := m.held[key]; ok && now.Before(h.expiresAt) {
		return nil, ErrLockHeld
	}

	m.next++
	token := m.next
	m.held[key] = heldLock{token: token, expiresAt: now.Add(ttl)}

	stop := keepAlive(ttl, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		h, ok := m.held[key]
		if !ok || h.token != token {
			return false
		}
		h.expiresAt = m.nowFn().Add(ttl)
		m.held[key] = h
		return true
	})

	return func(context.Context) error {
		stop()
		m.mu.Lock()
		defer m.mu.Unlock()
		// only the owner may release; an expired lock may already belong to someone else
		if h, ok := m.held[key]; ok && h.token == token {
			delete(m.held, key)
		}
		return nil
	}, nil
}
