package cache

import (
	"context"
	"time"

	"github.com/cespare/xxhash/v2"

	core "rowkit/data/db"
)

// Fingerprint 语句指纹
func Fingerprint(key string) uint64 {
	return xxhash.Sum64String(key)
}

// resultEntry 保存完整的键，指纹冲突时按未命中处理
type resultEntry struct {
	key  string
	snap *core.Snapshot
}

// ResultCache 进程内的 db.IResultCache 实现
//
// 快照不可修改，因此直接共享同一个 *db.Snapshot，不做拷贝。
type ResultCache struct {
	c    *Cache[uint64, resultEntry]
	hash func(string) uint64
}

var _ core.IResultCache = (*ResultCache)(nil)

// NewResultCache 创建结果缓存；maxSize 为 0 不限制条目数，ttl 为 0 不过期
func NewResultCache(maxSize int, ttl time.Duration) *ResultCache {
	return &ResultCache{
		c: New[uint64, resultEntry](Config{
			Name:    "db_result",
			MaxSize: maxSize,
			TTL:     ttl,
		}),
		hash: Fingerprint,
	}
}

func (r *ResultCache) Get(ctx context.Context, key string) (*core.Snapshot, bool) {
	entry, ok := r.c.Get(r.hash(key))
	if !ok || entry.key != key {
		return nil, false
	}
	return entry.snap, true
}

func (r *ResultCache) Set(ctx context.Context, key string, snap *core.Snapshot) {
	if snap == nil {
		return
	}
	r.c.Set(r.hash(key), resultEntry{key: key, snap: snap})
}

func (r *ResultCache) Purge(ctx context.Context) {
	r.c.Clear()
}

// Stats 命中统计
func (r *ResultCache) Stats() Stats {
	return r.c.Stats()
}
