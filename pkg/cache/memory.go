package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory 进程内缓存
// 基于 sync.Map，不同键之间不共享锁；时钟可注入，测试无需 sleep
type Memory struct {
	entries sync.Map // key -> *memoryEntry
	now     func() time.Time
}

// MemoryOption Memory 构造选项
type MemoryOption func(*Memory)

// WithClock 注入时钟
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// NewMemory 创建进程内缓存
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.entries.Load(key)
	if !ok {
		return nil, false, nil
	}
	e := v.(*memoryEntry)
	if !m.now().Before(e.expiresAt) {
		// 只删除读到的这一条，避免误删并发写入的新值
		m.entries.CompareAndDelete(key, e)
		return nil, false, nil
	}
	return cloneBytes(e.value), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		m.entries.Delete(key)
		return nil
	}
	m.entries.Store(key, &memoryEntry{
		value:     cloneBytes(value),
		expiresAt: m.now().Add(ttl),
	})
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.entries.Delete(key)
	return nil
}

func (m *Memory) DeletePrefix(_ context.Context, prefix string) error {
	m.entries.Range(func(k, _ any) bool {
		if strings.HasPrefix(k.(string), prefix) {
			m.entries.Delete(k)
		}
		return true
	})
	return nil
}

// Len 当前条目数（含尚未清理的过期条目）
func (m *Memory) Len() int {
	n := 0
	m.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// PurgeExpired 清理已过期条目，返回清理数量
func (m *Memory) PurgeExpired() int {
	now := m.now()
	purged := 0
	m.entries.Range(func(k, v any) bool {
		e := v.(*memoryEntry)
		if !now.Before(e.expiresAt) && m.entries.CompareAndDelete(k, e) {
			purged++
		}
		return true
	})
	return purged
}

// RunJanitor 周期性清理过期条目，ctx 取消时退出
func (m *Memory) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.PurgeExpired()
		}
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
