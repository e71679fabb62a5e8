package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"nautica/backend/internal/dto"
	"nautica/backend/internal/model"
	"nautica/backend/pkg/cache"
)

const calendarKeyPrefix = "calendar:"

// CalendarInvalidator 日历缓存失效接口
// 写入方不知道读者缓存了哪些日期范围，因此按船只前缀整体失效
type CalendarInvalidator interface {
	// Invalidate 失效某船只的全部日历条目
	Invalidate(ctx context.Context, vesselID string)
	// InvalidateAll 失效整个日历命名空间（每周规则为全局规则）
	InvalidateAll(ctx context.Context)
}

// CalendarLoader 缓存未命中时的回源函数
type CalendarLoader func(ctx context.Context) (*dto.CalendarResponse, error)

// CalendarCache 日历视图的读穿缓存
//
// 每艘船只与全局各维护一个代数（generation），失效时先递增代数再删除键。
// 回源完成后只有代数未变化才回写，回写后再次校验，避免与失效并发的回源把旧数据写回缓存。
// 同一键、同一代数下的并发未命中通过 singleflight 合并为一次回源。
type CalendarCache struct {
	store  cache.Store
	ttl    time.Duration
	logger *zap.Logger

	vesselGens sync.Map // vesselID -> *atomic.Uint64
	globalGen  atomic.Uint64
	group      singleflight.Group
}

// NewCalendarCache 创建日历缓存
func NewCalendarCache(store cache.Store, ttl time.Duration, logger *zap.Logger) *CalendarCache {
	return &CalendarCache{store: store, ttl: ttl, logger: logger}
}

// CalendarKey 缓存键：calendar:{vesselID}:{start}:{end}
func CalendarKey(vesselID string, start, end time.Time) string {
	return fmt.Sprintf("%s%s:%s:%s", calendarKeyPrefix, vesselID,
		start.Format(model.DateLayout), end.Format(model.DateLayout))
}

func vesselPrefix(vesselID string) string {
	return calendarKeyPrefix + vesselID + ":"
}

func (c *CalendarCache) vesselGen(vesselID string) *atomic.Uint64 {
	v, _ := c.vesselGens.LoadOrStore(vesselID, new(atomic.Uint64))
	return v.(*atomic.Uint64)
}

type generation struct{ vessel, global uint64 }

func (c *CalendarCache) snapshot(vesselID string) generation {
	return generation{vessel: c.vesselGen(vesselID).Load(), global: c.globalGen.Load()}
}

// GetOrLoad 命中时直接返回缓存，未命中时回源并写入缓存
// 缓存读写失败只记录日志，不影响结果
func (c *CalendarCache) GetOrLoad(ctx context.Context, vesselID string, start, end time.Time, load CalendarLoader) (*dto.CalendarResponse, error) {
	key := CalendarKey(vesselID, start, end)

	if resp, ok := c.lookup(ctx, key); ok {
		return resp, nil
	}

	// 合并键带上代数：失效之后发起的读取不会加入失效之前开始的回源
	gen := c.snapshot(vesselID)
	flight := fmt.Sprintf("%s#%d.%d", key, gen.vessel, gen.global)

	v, err, _ := c.group.Do(flight, func() (interface{}, error) {
		// 回源结果由多个调用方共享，不随发起者的请求取消
		loadCtx := context.WithoutCancel(ctx)

		resp, err := load(loadCtx)
		if err != nil {
			return nil, err
		}

		c.fill(loadCtx, vesselID, key, gen, resp)
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*dto.CalendarResponse), nil
}

func (c *CalendarCache) lookup(ctx context.Context, key string) (*dto.CalendarResponse, bool) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("读取日历缓存失败", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var resp dto.CalendarResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Warn("日历缓存内容无法解析，已丢弃", zap.String("key", key), zap.Error(err))
		_ = c.store.Delete(ctx, key)
		return nil, false
	}
	return &resp, true
}

func (c *CalendarCache) fill(ctx context.Context, vesselID, key string, gen generation, resp *dto.CalendarResponse) {
	if c.snapshot(vesselID) != gen {
		return
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		c.logger.Warn("序列化日历失败", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.Warn("写入日历缓存失败", zap.String("key", key), zap.Error(err))
		return
	}

	if c.snapshot(vesselID) != gen {
		_ = c.store.Delete(ctx, key)
	}
}

func (c *CalendarCache) Invalidate(ctx context.Context, vesselID string) {
	c.vesselGen(vesselID).Add(1)
	if err := c.store.DeletePrefix(ctx, vesselPrefix(vesselID)); err != nil {
		c.logger.Warn("日历缓存失效失败", zap.String("vessel_id", vesselID), zap.Error(err))
	}
}

func (c *CalendarCache) InvalidateAll(ctx context.Context) {
	c.globalGen.Add(1)
	if err := c.store.DeletePrefix(ctx, calendarKeyPrefix); err != nil {
		c.logger.Warn("日历缓存全量失效失败", zap.Error(err))
	}
}
