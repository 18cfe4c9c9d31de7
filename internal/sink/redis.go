package sink

import (
	"context"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisPrefix 沿用浏览器演示版 localStorage 的 key 前缀。
const DefaultRedisPrefix = "anilist_"

// RedisSetter 是 Redis sink 需要的最小能力；*redis.Client 满足该接口。
type RedisSetter interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Redis 把 artifact 写成字符串 key：<prefix><category>，不过期。
type Redis struct {
	Client RedisSetter
	Addr   string
	Prefix string
}

func NewRedis(c RedisSetter, addr, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{Client: c, Addr: addr, Prefix: prefix}
}

// Key 返回 artifact 名对应的 Redis key。
func (r *Redis) Key(name string) string {
	return r.Prefix + strings.TrimSuffix(name, ".json")
}

func (r *Redis) Put(ctx context.Context, name string, data []byte) error {
	return r.Client.Set(ctx, r.Key(name), data, 0).Err()
}

func (r *Redis) Location(name string) string { return "redis:" + r.Key(name) }

func (r *Redis) String() string { return "redis:" + r.Addr }
