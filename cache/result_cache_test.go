package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "rowkit/data/db"
	"rowkit/logging"
)

func sampleSnapshot() *core.Snapshot {
	return &core.Snapshot{
		Fields: []string{"id", "name"},
		Rows: [][]sql.NullString{
			{{String: "1", Valid: true}, {String: "alice", Valid: true}},
			{{String: "2", Valid: true}, {}},
		},
	}
}

func TestResultCache(t *testing.T) {
	ctx := context.Background()
	rc := NewResultCache(10, time.Minute)

	_, ok := rc.Get(ctx, "SELECT 1")
	assert.False(t, ok)

	snap := sampleSnapshot()
	rc.Set(ctx, "SELECT id, name FROM users", snap)
	rc.Set(ctx, "ignored", nil)

	got, ok := rc.Get(ctx, "SELECT id, name FROM users")
	require.True(t, ok)
	assert.Same(t, snap, got)
	_, ok = rc.Get(ctx, "ignored")
	assert.False(t, ok)

	rc.Purge(ctx)
	_, ok = rc.Get(ctx, "SELECT id, name FROM users")
	assert.False(t, ok)

	stats := rc.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(3), stats.Misses)
}

func TestResultCache_FingerprintCollision(t *testing.T) {
	ctx := context.Background()
	rc := NewResultCache(10, time.Minute)
	rc.hash = func(string) uint64 { return 7 }

	rc.Set(ctx, "SELECT a FROM t", sampleSnapshot())
	_, ok := rc.Get(ctx, "SELECT b FROM t")
	assert.False(t, ok)
	got, ok := rc.Get(ctx, "SELECT a FROM t")
	require.True(t, ok)
	assert.Equal(t, sampleSnapshot(), got)
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, Fingerprint("SELECT 1"), Fingerprint("SELECT 1"))
	assert.NotEqual(t, Fingerprint("SELECT 1"), Fingerprint("SELECT 2"))
}

// fakeRedis 内存实现的 redisClient
type fakeRedis struct {
	data    map[string]string
	ttls    map[string]time.Duration
	failGet error
	failSet error
	scans   int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.failGet != nil {
		return redis.NewStringResult("", f.failGet)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if f.failSet != nil {
		return redis.NewStatusResult("", f.failSet)
	}
	f.data[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

// Scan 每次返回一个键，模拟多轮游标
func (f *fakeRedis) Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd {
	f.scans++
	prefix := strings.TrimSuffix(match, "*")
	var keys []string
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return redis.NewScanCmdResult(nil, 0, nil)
	}
	return redis.NewScanCmdResult(keys[:1], cursor+1, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisResultCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fr := newFakeRedis()
	rc := newRedisResultCache(fr, nil, RedisConfig{TTL: 30 * time.Second, Logger: logging.NewNoopLogger()})

	_, ok := rc.Get(ctx, "SELECT id, name FROM users")
	assert.False(t, ok)

	rc.Set(ctx, "SELECT id, name FROM users", sampleSnapshot())
	key := rc.Key("SELECT id, name FROM users")
	assert.True(t, strings.HasPrefix(key, "rowkit:snap:"))
	assert.Equal(t, 30*time.Second, fr.ttls[key])

	got, ok := rc.Get(ctx, "SELECT id, name FROM users")
	require.True(t, ok)
	assert.Equal(t, sampleSnapshot(), got)
	assert.False(t, got.Rows[1][1].Valid)
}

func TestRedisResultCache_Purge(t *testing.T) {
	ctx := context.Background()
	fr := newFakeRedis()
	fr.data["other:key"] = "keep"
	rc := newRedisResultCache(fr, nil, RedisConfig{Prefix: "app:q:", Logger: logging.NewNoopLogger()})

	for _, stmt := range []string{"SELECT 1", "SELECT 2", "SELECT 3"} {
		rc.Set(ctx, stmt, sampleSnapshot())
	}
	require.Len(t, fr.data, 4)

	rc.Purge(ctx)
	assert.Equal(t, map[string]string{"other:key": "keep"}, fr.data)
	assert.Equal(t, 4, fr.scans)
}

func TestRedisResultCache_FailuresAreMisses(t *testing.T) {
	ctx := context.Background()
	fr := newFakeRedis()
	rc := newRedisResultCache(fr, nil, RedisConfig{Logger: logging.NewNoopLogger()})

	fr.failSet = errors.New("READONLY You can't write against a read only replica")
	rc.Set(ctx, "SELECT 1", sampleSnapshot())
	assert.Empty(t, fr.data)

	fr.failSet = nil
	rc.Set(ctx, "SELECT 1", sampleSnapshot())
	fr.failGet = errors.New("i/o timeout")
	_, ok := rc.Get(ctx, "SELECT 1")
	assert.False(t, ok)

	// 损坏或不满足不变量的条目视为未命中
	fr.failGet = nil
	fr.data[rc.Key("SELECT 2")] = "{not json"
	_, ok = rc.Get(ctx, "SELECT 2")
	assert.False(t, ok)

	ragged, err := json.Marshal(redisEntry{
		Key:      "SELECT 3",
		Snapshot: &core.Snapshot{Fields: []string{"a", "b"}, Rows: [][]sql.NullString{{{}}}},
	})
	require.NoError(t, err)
	fr.data[rc.Key("SELECT 3")] = string(ragged)
	_, ok = rc.Get(ctx, "SELECT 3")
	assert.False(t, ok)
}

func TestRedisResultCache_FingerprintCollision(t *testing.T) {
	ctx := context.Background()
	fr := newFakeRedis()
	rc := newRedisResultCache(fr, nil, RedisConfig{Logger: logging.NewNoopLogger()})
	rc.hash = func(string) uint64 { return 7 }

	rc.Set(ctx, "SELECT a FROM t", sampleSnapshot())
	assert.Equal(t, rc.Key("SELECT a FROM t"), rc.Key("SELECT b FROM t"))
	_, ok := rc.Get(ctx, "SELECT b FROM t")
	assert.False(t, ok)
	_, ok = rc.Get(ctx, "SELECT a FROM t")
	assert.True(t, ok)
}

func TestNewRedisResultCache(t *testing.T) {
	_, err := NewRedisResultCache(RedisConfig{})
	assert.Error(t, err)

	rc, err := NewRedisResultCache(RedisConfig{Addr: "127.0.0.1:6379"})
	require.NoError(t, err)
	assert.Equal(t, "rowkit:snap:", rc.cfg.Prefix)
	assert.Equal(t, time.Minute, rc.cfg.TTL)
	assert.NoError(t, rc.Close())
}
