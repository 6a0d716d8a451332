package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryWindow 未配置 redis 时的单进程兜底实现
type MemoryWindow struct {
	mu      sync.Mutex
	buckets map[string]*memBucket
	now     func() time.Time
	hits    int
}

type memBucket struct {
	count   int64
	resetAt time.Time
}

func NewMemoryWindow() *MemoryWindow {
	return &MemoryWindow{buckets: make(map[string]*memBucket), now: time.Now}
}

func (m *MemoryWindow) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.hits++
	if m.hits%1024 == 0 {
		m.sweep(now)
	}
	b, ok := m.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		b = &memBucket{resetAt: now.Add(window)}
		m.buckets[key] = b
	}
	b.count++
	return b.count, b.resetAt.Sub(now), nil
}

func (m *MemoryWindow) Undo(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.buckets[key]; ok && b.count > 0 {
		b.count--
	}
	return nil
}

func (m *MemoryWindow) sweep(now time.Time) {
	for k, b := range m.buckets {
		if !now.Before(b.resetAt) {
			delete(m.buckets, k)
		}
	}
}
