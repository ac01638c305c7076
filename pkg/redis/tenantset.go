package redis

import (
	"context"
	"errors"
	"slices"

	"github.com/redis/go-redis/v9"
)

// SetClient is the subset of redis commands TenantSet uses.
// *redis.Client and *redis.ClusterClient satisfy it.
type SetClient interface {
	SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd
	SRem(ctx context.Context, key string, members ...any) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
}

// TenantSet stores the registered tenant ids in a redis set so that every
// replica reconciling from the same key converges on the same tenants.
type TenantSet struct {
	client SetClient
	key    string
}

func NewTenantSet(client SetClient, key string) *TenantSet {
	if key == "" {
		key = "tenants"
	}
	return &TenantSet{client: client, key: key}
}

func (s *TenantSet) Key() string { return s.key }

// Add reports how many of ids were not in the set yet.
func (s *TenantSet) Add(ctx context.Context, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.client.SAdd(ctx, s.key, toAny(ids)...).Result()
	if err != nil {
		return 0, errors.Join(ErrTenantSetFailed, err)
	}
	return n, nil
}

// Remove reports how many of ids were actually removed.
func (s *TenantSet) Remove(ctx context.Context, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.client.SRem(ctx, s.key, toAny(ids)...).Result()
	if err != nil {
		return 0, errors.Join(ErrTenantSetFailed, err)
	}
	return n, nil
}

// ListTenants returns the members sorted.
func (s *TenantSet) ListTenants(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, errors.Join(ErrTenantSetFailed, err)
	}
	slices.Sort(ids)
	return ids, nil
}

func toAny(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
