package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestMemory() (*Memory, *fakeClock) {
	clk := &fakeClock{now: time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC)}
	return NewMemory(WithClock(clk.Now)), clk
}

func TestMemory_SetGet(t *testing.T) {
	m, _ := newTestMemory()
	ctx := context.Background()

	if err := m.Set(ctx, "k", []byte("v1"), 5*time.Second); err != nil {
		t.Fatalf("Set 失败: %v", err)
	}
	v, ok, err := m.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("期望命中，ok=%v err=%v", ok, err)
	}
	if string(v) != "v1" {
		t.Errorf("期望 v1，实际=%s", v)
	}
}

func TestMemory_ReturnedValueIsCopy(t *testing.T) {
	m, _ := newTestMemory()
	ctx := context.Background()

	src := []byte("abc")
	_ = m.Set(ctx, "k", src, time.Second)
	src[0] = 'x'

	v, _, _ := m.Get(ctx, "k")
	v[1] = 'y'

	again, _, _ := m.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("缓存值被外部修改: %s", again)
	}
}

func TestMemory_Expiry(t *testing.T) {
	m, clk := newTestMemory()
	ctx := context.Background()

	_ = m.Set(ctx, "k", []byte("v"), 5*time.Second)

	clk.Advance(4 * time.Second)
	if _, ok, _ := m.Get(ctx, "k"); !ok {
		t.Fatal("TTL 内应命中")
	}

	clk.Advance(time.Second)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatal("到期后不应命中")
	}
	if m.Len() != 0 {
		t.Errorf("过期条目应被惰性删除，剩余=%d", m.Len())
	}
}

func TestMemory_DeletePrefix(t *testing.T) {
	m, _ := newTestMemory()
	ctx := context.Background()

	_ = m.Set(ctx, "calendar:v1:2025-11-01:2025-11-30", []byte("a"), time.Minute)
	_ = m.Set(ctx, "calendar:v1:2025-12-01:2025-12-31", []byte("b"), time.Minute)
	_ = m.Set(ctx, "calendar:v10:2025-11-01:2025-11-30", []byte("c"), time.Minute)

	if err := m.DeletePrefix(ctx, "calendar:v1:"); err != nil {
		t.Fatalf("DeletePrefix 失败: %v", err)
	}

	if _, ok, _ := m.Get(ctx, "calendar:v1:2025-11-01:2025-11-30"); ok {
		t.Error("v1 的条目应被删除")
	}
	if _, ok, _ := m.Get(ctx, "calendar:v1:2025-12-01:2025-12-31"); ok {
		t.Error("v1 的条目应被删除")
	}
	if _, ok, _ := m.Get(ctx, "calendar:v10:2025-11-01:2025-11-30"); !ok {
		t.Error("v10 的条目不应受影响")
	}
}

func TestMemory_PurgeExpired(t *testing.T) {
	m, clk := newTestMemory()
	ctx := context.Background()

	_ = m.Set(ctx, "short", []byte("1"), time.Second)
	_ = m.Set(ctx, "long", []byte("2"), time.Hour)

	clk.Advance(2 * time.Second)
	if n := m.PurgeExpired(); n != 1 {
		t.Errorf("期望清理 1 条，实际=%d", n)
	}
	if m.Len() != 1 {
		t.Errorf("期望剩余 1 条，实际=%d", m.Len())
	}
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	m, _ := newTestMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("calendar:v%d:range", i%4)
			for j := 0; j < 200; j++ {
				want := fmt.Sprintf("value-%d", j)
				_ = m.Set(ctx, key, []byte(want), time.Minute)
				if v, ok, _ := m.Get(ctx, key); ok && len(v) < len("value-0") {
					t.Errorf("读到损坏的值: %q", v)
				}
				if j%50 == 0 {
					_ = m.DeletePrefix(ctx, "calendar:v1:")
				}
			}
		}(i)
	}
	wg.Wait()
}
