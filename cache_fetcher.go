package fetchqueue

import (
	"context"
	"net/http"
	"time"

	"github.com/DoNewsCode/core/contract"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

var _ Fetcher = (*CacheFetcher)(nil)

// CacheFetcher decorates a Fetcher with a redis backed response cache. Only
// 200 responses are cached. Concurrent fetches of the same endpoint share one
// upstream call. Redis failures are logged and the upstream Fetcher is used
// instead.
type CacheFetcher struct {
	Fetcher     Fetcher
	RedisClient redis.UniversalClient
	Logger      log.Logger
	// Codec encodes cached results. Defaults to gob.
	Codec contract.Codec
	// Prefix namespaces the cache keys. Defaults to "fetchqueue".
	Prefix string
	// TTL is the lifetime of a cache entry. Zero means no expiration.
	TTL time.Duration
	// Timeout bounds the upstream call shared by coalesced fetches. It runs
	// apart from any single caller's context. Defaults to one minute.
	Timeout time.Duration

	group singleflight.Group
}

// Fetch implements Fetcher.
func (c *CacheFetcher) Fetch(ctx context.Context, endpoint Endpoint) (*FetchResult, error) {
	key := c.key(endpoint)
	if result, ok := c.load(ctx, key); ok {
		return result, nil
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout())
		defer cancel()

		result, err := c.Fetcher.Fetch(ctx, endpoint)
		if err == nil && result != nil && result.StatusCode == http.StatusOK {
			c.store(ctx, key, result)
		}
		return result, err
	})
	select {
	case shared := <-ch:
		result, _ := shared.Val.(*FetchResult)
		return result, shared.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *CacheFetcher) load(ctx context.Context, key string) (*FetchResult, bool) {
	data, err := c.RedisClient.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		_ = level.Warn(c.logger()).Log("err", errors.Wrapf(err, "read cache %s", key))
		return nil, false
	}
	var result FetchResult
	if err := c.codec().Unmarshal(data, &result); err != nil {
		_ = level.Warn(c.logger()).Log("err", errors.Wrapf(err, "decode cache %s", key))
		return nil, false
	}
	_ = level.Debug(c.logger()).Log("msg", "cache hit", "key", key)
	return &result, true
}

func (c *CacheFetcher) store(ctx context.Context, key string, result *FetchResult) {
	data, err := c.codec().Marshal(result)
	if err != nil {
		_ = level.Warn(c.logger()).Log("err", errors.Wrapf(err, "encode cache %s", key))
		return
	}
	if err := c.RedisClient.Set(ctx, key, data, c.TTL).Err(); err != nil {
		_ = level.Warn(c.logger()).Log("err", errors.Wrapf(err, "write cache %s", key))
	}
}

func (c *CacheFetcher) key(endpoint Endpoint) string {
	prefix := c.Prefix
	if prefix == "" {
		prefix = "fetchqueue"
	}
	return prefix + ":" + endpoint.String()
}

func (c *CacheFetcher) timeout() time.Duration {
	if c.Timeout <= 0 {
		return time.Minute
	}
	return c.Timeout
}

func (c *CacheFetcher) codec() contract.Codec {
	if c.Codec == nil {
		return gobCodec{}
	}
	return c.Codec
}

func (c *CacheFetcher) logger() log.Logger {
	if c.Logger == nil {
		return log.NewNopLogger()
	}
	return c.Logger
}
