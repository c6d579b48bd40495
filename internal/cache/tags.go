// Package cache is a tag-based read cache on Redis. Cached keys register
// under tag sets; invalidating a tag deletes every member key plus the set,
// in one pipeline. Used for read freshness only, never correctness.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	rd "github.com/redis/go-redis/v9"
)

func cacheKey(name string) string { return fmt.Sprintf("bakehouse:cache:%s", name) }
func tagKey(tag string) string    { return fmt.Sprintf("bakehouse:cache:tag:%s", tag) }

// Tags invalidates grouped cache entries.
type Tags struct {
	rdb *rd.Client
}

func New(rdb *rd.Client) *Tags { return &Tags{rdb: rdb} }

// GetJSON returns the cached payload for name, or found=false on miss.
func (t *Tags) GetJSON(ctx context.Context, name string) ([]byte, bool, error) {
	b, err := t.rdb.Get(ctx, cacheKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

// SetJSON stores a payload under name and registers it with each tag. The
// tag sets outlive the entry TTL slightly so invalidation still finds
// recently expired keys; stale set members just DEL nothing.
func (t *Tags) SetJSON(ctx context.Context, name string, payload []byte, ttl time.Duration, tags ...string) error {
	key := cacheKey(name)
	pipe := t.rdb.TxPipeline()
	pipe.Set(ctx, key, payload, ttl)
	for _, tag := range tags {
		pipe.SAdd(ctx, tagKey(tag), key)
		pipe.Expire(ctx, tagKey(tag), ttl+time.Minute)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Invalidate deletes every key registered under the given tags.
func (t *Tags) Invalidate(ctx context.Context, tags ...string) error {
	for _, tag := range tags {
		members, err := t.rdb.SMembers(ctx, tagKey(tag)).Result()
		if err != nil {
			return err
		}
		pipe := t.rdb.TxPipeline()
		if len(members) > 0 {
			pipe.Del(ctx, members...)
		}
		pipe.Del(ctx, tagKey(tag))
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
