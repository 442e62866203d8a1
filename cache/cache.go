// Package cache 提供物化结果集的缓存
//
//   - Cache：进程内泛型 LRU 缓存，条目写入后在 TTL 内有效；
//   - ResultCache：基于 Cache 的 db.IResultCache 实现；
//   - RedisResultCache：把快照以 JSON 存入 Redis，多个进程共享。
//
// 两种结果缓存都用 xxhash 对语句做指纹，键长度与语句长度无关；
// 条目同时保存完整的键，指纹冲突时按未命中处理。
package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// Config 缓存配置
type Config struct {
	// Name 缓存名称（用于日志和统计）
	Name string

	// MaxSize 最大条目数，0 表示不限制
	MaxSize int

	// TTL 条目自写入起的有效期，0 表示不过期
	TTL time.Duration

	// OnEvict 条目被删除（驱逐、过期、Delete、Clear）时回调，持锁调用
	OnEvict func(key, value any)
}

// Stats 缓存统计
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Expires   int64
	Size      int
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
	elem      *list.Element
}

// Cache 并发安全的泛型 LRU 缓存
type Cache[K comparable, V any] struct {
	cfg Config
	now func() time.Time

	mu    sync.Mutex
	items map[K]*entry[K, V]
	lru   *list.List // 最近使用的在前
	stats Stats
}

// New 创建缓存
func New[K comparable, V any](cfg Config) *Cache[K, V] {
	if cfg.Name == "" {
		cfg.Name = "unnamed"
	}
	return &Cache[K, V]{
		cfg:   cfg,
		now:   time.Now,
		items: make(map[K]*entry[K, V]),
		lru:   list.New(),
	}
}

// Get 读取未过期的条目，命中时把它移到 LRU 头部
func (c *Cache[K, V]) Get(key K) (value V, found bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return value, false
	}
	if c.expired(e) {
		c.remove(e)
		c.stats.Misses++
		c.stats.Expires++
		return value, false
	}
	c.lru.MoveToFront(e.elem)
	c.stats.Hits++
	return e.value, true
}

// Set 写入条目并重新计算有效期；超过容量时驱逐最久未使用的条目
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		e.value = value
		e.expiresAt = c.deadline()
		c.lru.MoveToFront(e.elem)
		return
	}
	if c.cfg.MaxSize > 0 && len(c.items) >= c.cfg.MaxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.remove(oldest.Value.(*entry[K, V]))
			c.stats.Evictions++
		}
	}
	e := &entry[K, V]{key: key, value: value, expiresAt: c.deadline()}
	e.elem = c.lru.PushFront(e)
	c.items[key] = e
}

// Delete 删除条目，返回是否存在
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if ok {
		c.remove(e)
	}
	return ok
}

// Clear 清空缓存
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.OnEvict != nil {
		for _, e := range c.items {
			c.cfg.OnEvict(e.key, e.value)
		}
	}
	c.items = make(map[K]*entry[K, V])
	c.lru.Init()
}

// CleanExpired 删除所有过期条目，返回删除数量
func (c *Cache[K, V]) CleanExpired() int {
	if c.cfg.TTL <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	cleaned := 0
	for _, e := range c.items {
		if c.expired(e) {
			c.remove(e)
			cleaned++
		}
	}
	c.stats.Expires += int64(cleaned)
	return cleaned
}

// Len 当前条目数（包括尚未清理的过期条目）
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats 统计信息副本
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = len(c.items)
	return s
}

// HitRate 命中率
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func (c *Cache[K, V]) String() string {
	s := c.Stats()
	return fmt.Sprintf("Cache[%s]: size=%d/%d, hits=%d, misses=%d, hit_rate=%.2f%%, evictions=%d, expires=%d",
		c.cfg.Name, s.Size, c.cfg.MaxSize, s.Hits, s.Misses, s.HitRate()*100, s.Evictions, s.Expires)
}

func (c *Cache[K, V]) deadline() time.Time {
	if c.cfg.TTL <= 0 {
		return time.Time{}
	}
	return c.now().Add(c.cfg.TTL)
}

// 以下方法需要持锁调用

func (c *Cache[K, V]) expired(e *entry[K, V]) bool {
	return !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt)
}

func (c *Cache[K, V]) remove(e *entry[K, V]) {
	if c.cfg.OnEvict != nil {
		c.cfg.OnEvict(e.key, e.value)
	}
	c.lru.Remove(e.elem)
	delete(c.items, e.key)
}
