// Package redis shares workflow state between engine processes through Redis:
// a run registry that lets one process own an order at a time, and a
// publisher that fans order notifications out over pub/sub.
package redis

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/ports"
)

const (
	// releaseScript deletes the claim only while it still holds our run id.
	releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
else
    return 0
end
`
	runKeyPrefix = "orderflow:run:"

	DefaultClaimTTL = time.Hour
)

// RunRegistry claims orders with SET NX. A claim expires after ttl so a
// crashed process cannot hold an order forever; ttl must exceed the longest
// pipeline run.
type RunRegistry struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRunRegistry(client redis.Cmdable, ttl time.Duration) *RunRegistry {
	if ttl <= 0 {
		ttl = DefaultClaimTTL
	}
	return &RunRegistry{client: client, ttl: ttl}
}

func (r *RunRegistry) Claim(ctx context.Context, orderID, runID kernel.UUID) error {
	ok, err := r.client.SetNX(ctx, runKey(orderID), runID.String(), r.ttl).Result()
	if err != nil {
		return errors.WithMessagef(err, "[RunRegistry.Claim] order %s", orderID)
	}
	if !ok {
		return errors.WithMessagef(ports.ErrRunAlreadyClaimed, "[RunRegistry.Claim] order %s", orderID)
	}
	return nil
}

// Release drops the claim when runID still owns it. An expired claim, or one
// taken over by another run, is left alone.
func (r *RunRegistry) Release(ctx context.Context, orderID, runID kernel.UUID) error {
	if err := r.client.Eval(ctx, releaseScript, []string{runKey(orderID)}, runID.String()).Err(); err != nil {
		return errors.WithMessagef(err, "[RunRegistry.Release] order %s", orderID)
	}
	return nil
}

// Owner reports the run currently holding orderID.
func (r *RunRegistry) Owner(ctx context.Context, orderID kernel.UUID) (kernel.UUID, bool, error) {
	value, err := r.client.Get(ctx, runKey(orderID)).Result()
	if errors.Is(err, redis.Nil) {
		return kernel.UUID{}, false, nil
	}
	if err != nil {
		return kernel.UUID{}, false, errors.WithMessagef(err, "[RunRegistry.Owner] order %s", orderID)
	}
	owner, err := kernel.UUIDFromString(value)
	if err != nil {
		return kernel.UUID{}, false, errors.WithMessagef(err, "[RunRegistry.Owner] order %s holds %q", orderID, value)
	}
	return owner, true, nil
}

func runKey(orderID kernel.UUID) string {
	return runKeyPrefix + orderID.String()
}
