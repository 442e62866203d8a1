package cache

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	core "rowkit/data/db"
	"rowkit/errors"
	"rowkit/logging"
)

// redisClient go-redis 中用到的命令子集（便于测试替换）
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisConfig Redis 结果缓存配置
type RedisConfig struct {
	Client   redis.UniversalClient
	Addr     string
	Username string
	Password string
	DB       int

	// Prefix 键前缀，默认 rowkit:snap:
	Prefix string
	// TTL 快照有效期，默认 1 分钟
	TTL time.Duration
	// ScanCount Purge 时每次 SCAN 的提示数量，默认 100
	ScanCount int64

	Logger logging.Logger
}

// redisEntry Redis 中保存的值；Key 为完整的缓存键，用于识别指纹冲突
type redisEntry struct {
	Key      string         `json:"key"`
	Snapshot *core.Snapshot `json:"snapshot"`
}

// RedisResultCache 以 JSON 形式把快照存入 Redis 的 db.IResultCache 实现
//
// Redis 不可用时缓存失效为未命中，错误只记录日志，不影响查询。
type RedisResultCache struct {
	cfg    RedisConfig
	client redisClient
	closer func() error
	logger logging.Logger
	hash   func(string) uint64
}

var _ core.IResultCache = (*RedisResultCache)(nil)

// NewRedisResultCache 创建 Redis 结果缓存，未提供 Client 时按 Addr 新建连接
func NewRedisResultCache(cfg RedisConfig) (*RedisResultCache, error) {
	if cfg.Client != nil {
		return newRedisResultCache(cfg.Client, nil, cfg), nil
	}
	if cfg.Addr == "" {
		return nil, errors.NewValidationError("redis cache requires Client or Addr")
	}
	rc := redis.NewClient(&redis.Options{Addr: cfg.Addr, Username: cfg.Username, Password: cfg.Password, DB: cfg.DB})
	return newRedisResultCache(rc, rc.Close, cfg), nil
}

func newRedisResultCache(client redisClient, closer func() error, cfg RedisConfig) *RedisResultCache {
	if cfg.Prefix == "" {
		cfg.Prefix = "rowkit:snap:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Minute
	}
	if cfg.ScanCount <= 0 {
		cfg.ScanCount = 100
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetLogger().WithFields(logging.String("component", "cache.redis"))
	}
	return &RedisResultCache{cfg: cfg, client: client, closer: closer, logger: cfg.Logger, hash: Fingerprint}
}

// Key 返回语句对应的 Redis 键
func (c *RedisResultCache) Key(statement string) string {
	return c.cfg.Prefix + strconv.FormatUint(c.hash(statement), 16)
}

func (c *RedisResultCache) Get(ctx context.Context, key string) (*core.Snapshot, bool) {
	rkey := c.Key(key)
	data, err := c.client.Get(ctx, rkey).Bytes()
	if err != nil {
		if !stdErrors.Is(err, redis.Nil) {
			_ = errors.WrapWithLog(ctx, err, errors.ErrCodeCache, "redis cache get failed", logging.String("key", rkey))
		}
		return nil, false
	}

	var entry redisEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		_ = errors.WrapWithLog(ctx, err, errors.ErrCodeCache, "redis cache entry corrupt", logging.String("key", rkey))
		return nil, false
	}
	if entry.Key != key || entry.Snapshot == nil {
		return nil, false
	}
	if err := entry.Snapshot.Validate(); err != nil {
		_ = errors.WrapWithLog(ctx, err, errors.ErrCodeCache, "redis cache entry corrupt", logging.String("key", rkey))
		return nil, false
	}
	return entry.Snapshot, true
}

func (c *RedisResultCache) Set(ctx context.Context, key string, snap *core.Snapshot) {
	if snap == nil {
		return
	}
	rkey := c.Key(key)
	data, err := json.Marshal(redisEntry{Key: key, Snapshot: snap})
	if err != nil {
		_ = errors.WrapWithLog(ctx, err, errors.ErrCodeCache, "redis cache encode failed", logging.String("key", rkey))
		return
	}
	if err := c.client.Set(ctx, rkey, data, c.cfg.TTL).Err(); err != nil {
		_ = errors.WrapWithLog(ctx, err, errors.ErrCodeCache, "redis cache set failed", logging.String("key", rkey))
	}
}

// Purge 删除前缀下的所有快照
func (c *RedisResultCache) Purge(ctx context.Context) {
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.cfg.Prefix+"*", c.cfg.ScanCount).Result()
		if err != nil {
			_ = errors.WrapWithLog(ctx, err, errors.ErrCodeCache, "redis cache scan failed", logging.String("prefix", c.cfg.Prefix))
			return
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				_ = errors.WrapWithLog(ctx, err, errors.ErrCodeCache, "redis cache delete failed", logging.String("prefix", c.cfg.Prefix))
				return
			}
			deleted += int(n)
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	c.logger.Debug(ctx, "redis cache purged", logging.Int("deleted", deleted))
}

// Close 关闭自行创建的连接；外部传入的 Client 由调用方关闭
func (c *RedisResultCache) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}
