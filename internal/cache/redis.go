package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "moodlog:share:"

// Redis shares cached snapshots between instances. Failures are logged and
// treated as misses.
type Redis struct {
	client *redis.Client
	log    *zap.SugaredLogger
	now    func() time.Time
}

func NewRedis(client *redis.Client, log *zap.SugaredLogger) *Redis {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Redis{client: client, log: log, now: time.Now}
}

func (r *Redis) Get(ctx context.Context, key string) (Entry, bool) {
	b, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.log.Warnw("redis get failed", "op", "cache.Redis.Get", "error", err)
		}
		return Entry{}, false
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return Entry{}, false
	}
	return e, true
}

func (r *Redis) Set(ctx context.Context, key string, e Entry) {
	ttl := e.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return
	}
	b, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, keyPrefix+key, b, ttl).Err(); err != nil {
		r.log.Warnw("redis set failed", "op", "cache.Redis.Set", "error", err)
	}
}

func (r *Redis) Invalidate(ctx context.Context, key string) {
	if err := r.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		r.log.Warnw("redis del failed", "op", "cache.Redis.Invalidate", "error", err)
	}
}
