//go:build integration
// +build integration

package jobqueue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/BizFox/internal/pkg/env"
)

// Queue tests run on their own DB so they never touch sessions (1) or the cache (0).
const isolatedJobQueueTestRedisDB = 14

// redisAddr returns the first reachable Redis address, skipping the test when there is none
func redisAddr(t *testing.T) (addr, password string) {
	t.Helper()

	password = env.GetEnv("CACHE_PASSWORD", "")
	port := env.GetEnv("CACHE_PORT", "6379")
	candidates := []string{env.GetEnv("CACHE_HOST", ""), "cache", "localhost"}

	var lastErr error
	for _, host := range candidates {
		if host == "" {
			continue
		}
		addr = fmt.Sprintf("%s:%s", host, port)
		client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		lastErr = client.Ping(ctx).Err()
		cancel()
		_ = client.Close()
		if lastErr == nil {
			return addr, password
		}
	}

	t.Skipf("Skipping Redis-dependent test: no reachable Redis endpoint (%v)", lastErr)
	return "", ""
}

// newIsolatedRedisClient connects to an emptied Redis DB that is flushed again on cleanup
func newIsolatedRedisClient(t *testing.T, db int) *redis.Client {
	t.Helper()

	addr, password := redisAddr(t)
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.FlushDB(context.Background()).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Skipping Redis-dependent test: isolated DB %d unavailable (%v)", db, err)
	}

	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}

// resetJobQueueRedisWithClient drops the queue lists, the stats hash and every stored job
func resetJobQueueRedisWithClient(t *testing.T, client *redis.Client) {
	t.Helper()

	ctx := context.Background()
	keys := []string{JobQueueKey, JobProcessingKey, JobStatsKey}

	iter := client.Scan(ctx, 0, JobKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		t.Fatalf("scan job keys: %v", err)
	}
	if err := client.Del(ctx, keys...).Err(); err != nil {
		t.Fatalf("delete job keys: %v", err)
	}
}
