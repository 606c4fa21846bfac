package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// BumpChannel carries namespace names whose version was incremented.
const BumpChannel = "erpconsole:cache.bump"

// Versioned is a read-through JSON cache whose keys embed a per-namespace
// version. Bumping the version orphans every key of that namespace.
type Versioned struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	group  singleflight.Group

	// versions used when no client is configured
	mu    sync.Mutex
	local map[string]int64
}

// NewVersioned instantiates the cache helper. A nil client disables caching:
// every fetch goes straight to the loader and versions live in process.
func NewVersioned(client *redis.Client, prefix string, ttl time.Duration) *Versioned {
	if prefix == "" {
		prefix = "erpconsole"
	}
	return &Versioned{client: client, ttl: ttl, prefix: prefix}
}

func (c *Versioned) versionKey(ns string) string {
	return c.prefix + ":version:" + ns
}

// Version returns the current version of ns, initialising it when missing.
func (c *Versioned) Version(ctx context.Context, ns string) (int64, error) {
	if c == nil {
		return 1, nil
	}
	if c.client == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.local[ns] + 1, nil
	}
	key := c.versionKey(ns)
	ver, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		// SETNX keeps a concurrent bump from being overwritten.
		if err := c.client.SetNX(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, key).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes the cache key with the current namespace version.
func (c *Versioned) BuildKey(ctx context.Context, ns string, parts ...string) (string, int64, error) {
	ver, err := c.Version(ctx, ns)
	if err != nil {
		return "", 0, err
	}
	joined := strings.Join(append([]string{c.prefix, ns}, parts...), ":")
	return fmt.Sprintf("%s:v%d", joined, ver), ver, nil
}

// FetchJSON loads a cached value or populates it using the loader.
// Concurrent misses on the same key share one loader call.
func (c *Versioned) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		return load(ctx, loader, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return err
	}

	ch := c.group.DoChan(key, func() (any, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			return nil, err
		}
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.([]byte), dest)
	}
}

func load(ctx context.Context, loader func(context.Context) (any, error), dest any) error {
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalidates ns by incrementing its version and publishing an event.
func (c *Versioned) Bump(ctx context.Context, ns string) (int64, error) {
	if c == nil {
		return 0, nil
	}
	if c.client == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.local == nil {
			c.local = make(map[string]int64)
		}
		c.local[ns]++
		return c.local[ns] + 1, nil
	}
	ver, err := c.client.Incr(ctx, c.versionKey(ns)).Result()
	if err != nil {
		return 0, err
	}
	return ver, c.client.Publish(ctx, BumpChannel, ns+"="+strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation subscribes to bump notifications from other
// processes and calls onBump for each. It returns once the subscription is
// confirmed; the listener stops when ctx is done.
func (c *Versioned) ListenForInvalidation(ctx context.Context, onBump func(ns string, ver int64)) error {
	if c == nil || c.client == nil {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, BumpChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ns, raw, found := strings.Cut(msg.Payload, "=")
				if !found {
					continue
				}
				ver, err := strconv.ParseInt(raw, 10, 64)
				if err != nil {
					continue
				}
				if onBump != nil {
					onBump(ns, ver)
				}
			}
		}
	}()
	return nil
}
