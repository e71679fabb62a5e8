// Package cache 提供短 TTL 的键值缓存抽象。
//
// 值以字节切片存取，调用方负责序列化；每次 Get 返回的切片与缓存内部互不共享，
// 因此并发读写同一键时读者只会看到旧值或新值，不会看到被部分改写的数据。
package cache

import (
	"context"
	"time"
)

// Store 缓存后端接口（内存实现与 Redis 实现）
type Store interface {
	// Get 读取键值；键不存在或已过期时 ok=false
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set 写入键值并设置过期时间
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete 删除单个键
	Delete(ctx context.Context, key string) error
	// DeletePrefix 删除所有以 prefix 开头的键
	DeletePrefix(ctx context.Context, prefix string) error
}
