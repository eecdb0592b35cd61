package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/wigsbury-ui/evalent.io-sub001/internal/adapter/httpserver"
)

// Pinger is the minimal interface for a database pool capable of Ping.
type Pinger interface{ Ping(ctx context.Context) error }

// BuildReadinessChecks returns the readiness probes for the API server.
func BuildReadinessChecks(pool Pinger, rdb *redis.Client) httpserver.ReadyChecks {
	return httpserver.ReadyChecks{
		DB: func(ctx context.Context) error {
			if pool == nil {
				return fmt.Errorf("db not configured")
			}
			return pool.Ping(ctx)
		},
		Redis: func(ctx context.Context) error {
			if rdb == nil {
				return fmt.Errorf("redis not configured")
			}
			return rdb.Ping(ctx).Err()
		},
	}
}
