package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/geethasandesh/articket/internal/domain"
)

// CachedMembership is a read-through Redis cache in front of a
// MembershipRepository. Membership changes are rare relative to assignment
// and notification lookups, so a short TTL is enough.
type CachedMembership struct {
	inner  MembershipRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedMembership wraps the repository with a Redis cache.
func NewCachedMembership(inner MembershipRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedMembership {
	return &CachedMembership{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (c *CachedMembership) ProjectMembers(ctx context.Context, project string) ([]domain.ProjectMember, error) {
	key := "articket:members:" + project

	if c.client != nil {
		raw, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			var members []domain.ProjectMember
			if jsonErr := json.Unmarshal(raw, &members); jsonErr == nil {
				return members, nil
			}
			// corrupt entry, fall through to the source of truth
		} else if !errors.Is(err, redis.Nil) {
			c.logger.Warn("membership cache read failed", zap.String("project", project), zap.Error(err))
		}
	}

	members, err := c.inner.ProjectMembers(ctx, project)
	if err != nil {
		return nil, err
	}

	if c.client != nil {
		if raw, jsonErr := json.Marshal(members); jsonErr == nil {
			if setErr := c.client.Set(ctx, key, raw, c.ttl).Err(); setErr != nil {
				c.logger.Warn("membership cache write failed", zap.String("project", project), zap.Error(setErr))
			}
		}
	}
	return members, nil
}
