package ratelimit

import "context"

// RateLimiter controls outbound mail throughput per plant.
type RateLimiter interface {
	Allow(ctx context.Context, plant string) (bool, error)
	Wait(ctx context.Context, plant string) error
}
