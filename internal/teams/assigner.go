package teams

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Counter increments and returns a named counter. Redis INCR in production;
// tests substitute an in-memory implementation.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
}

// RedisCounter implements Counter on a shared Redis client so the rotation
// position survives restarts and is consistent across instances.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter creates a Redis-backed counter.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

// Incr increments the counter key.
func (c *RedisCounter) Incr(ctx context.Context, key string) (int64, error) {
	return c.client.Incr(ctx, key).Result()
}

// TeamLister lists a tenant's teams in rotation order.
type TeamLister interface {
	ListTeamIDs(ctx context.Context, tenantID int64) ([]int64, error)
}

// ListTeamIDs returns the tenant's team ids in rotation order.
func (r *Repository) ListTeamIDs(ctx context.Context, tenantID int64) ([]int64, error) {
	teams, err := r.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(teams))
	for i, t := range teams {
		ids[i] = t.ID
	}
	return ids, nil
}

// Assigner distributes newly created records across a tenant's teams
// round-robin. It satisfies tenancy.TeamAssigner.
type Assigner struct {
	teams   TeamLister
	counter Counter
}

// NewAssigner creates a round-robin team assigner.
func NewAssigner(teams TeamLister, counter Counter) *Assigner {
	return &Assigner{teams: teams, counter: counter}
}

// NextTeam returns the next team in rotation for the tenant, or nil when the
// tenant has no teams (the record stays ungrouped and tenant-wide visible).
func (a *Assigner) NextTeam(ctx context.Context, tenantID int64) (*int64, error) {
	ids, err := a.teams.ListTeamIDs(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	n, err := a.counter.Incr(ctx, fmt.Sprintf("teams:rr:%d", tenantID))
	if err != nil {
		return nil, fmt.Errorf("rotation counter: %w", err)
	}
	id := ids[int((n-1)%int64(len(ids)))]
	return &id, nil
}
