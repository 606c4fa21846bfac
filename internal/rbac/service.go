package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const permissionCachePrefix = "rbac:perms:"

// Service resolves effective permissions, caching them in Redis when a
// client is configured.
type Service struct {
	store Store
	redis *redis.Client
	ttl   time.Duration
}

// NewService constructs a Service. A nil client disables caching.
func NewService(store Store, client *redis.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Service{store: store, redis: client, ttl: ttl}
}

// EffectivePermissions returns deduplicated permission names for a user.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	key := permissionCachePrefix + strconv.FormatInt(userID, 10)
	if s.redis != nil {
		raw, err := s.redis.Get(ctx, key).Bytes()
		if err == nil {
			var perms []string
			if err := json.Unmarshal(raw, &perms); err == nil {
				return perms, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("rbac: read cache: %w", err)
		}
	}

	perms, err := s.store.UserEffectivePermissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("rbac: load permissions: %w", err)
	}
	if perms == nil {
		perms = []string{}
	}
	if s.redis != nil {
		raw, _ := json.Marshal(perms)
		_ = s.redis.Set(ctx, key, raw, s.ttl).Err()
	}
	return perms, nil
}

// Forget drops the cached permissions of a user.
func (s *Service) Forget(ctx context.Context, userID int64) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Del(ctx, permissionCachePrefix+strconv.FormatInt(userID, 10)).Err()
}

// ListGrants returns all permissions with the roles that grant them.
func (s *Service) ListGrants(ctx context.Context) ([]Grant, error) {
	return s.store.ListGrants(ctx)
}
