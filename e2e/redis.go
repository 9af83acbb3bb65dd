package e2e

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/glizzus/sound-bridge/internal/generator"
	"github.com/glizzus/sound-bridge/internal/journal"
	"github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// RandomSnowFlakeGenerator produces increasing snowflake-shaped IDs.
type RandomSnowFlakeGenerator struct {
	counter uint64
}

func (g *RandomSnowFlakeGenerator) Next() (string, error) {
	const min = 1e17
	atomic.CompareAndSwapUint64(&g.counter, 0, min)
	id := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%d", id), nil
}

var _ generator.Generator[string] = (*RandomSnowFlakeGenerator)(nil)

var (
	once           sync.Once
	redisContainer *tcredis.RedisContainer
	redisAddr      string
	startErr       error
	wg             sync.WaitGroup
	keys           generator.SequenceGenerator
)

// UseRedis provisions or reuses a Redis container and returns its address.
// The container is shared across tests; use JournalKey to stay isolated.
func UseRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis e2e test in short mode")
	}

	once.Do(func() {
		ctx := context.Background()
		redisContainer, startErr = tcredis.Run(ctx, "redis:7")
		if startErr != nil {
			return
		}
		var connStr string
		connStr, startErr = redisContainer.ConnectionString(ctx)
		if startErr != nil {
			return
		}
		var opts *redis.Options
		opts, startErr = redis.ParseURL(connStr)
		if startErr != nil {
			return
		}
		redisAddr = opts.Addr
	})

	if startErr != nil {
		t.Fatalf("failed to start redis container: %v", startErr)
	}
	wg.Add(1)
	t.Cleanup(wg.Done)

	return redisAddr
}

// JournalKey returns a hash key no other test uses.
func JournalKey(t *testing.T) string {
	t.Helper()
	n, _ := keys.Next()
	return "e2e:sessions:" + n
}

// GetJournal connects a RedisJournal to the given address.
func GetJournal(t *testing.T, addr, key string) *journal.RedisJournal {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(t.Context()).Err(); err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return journal.NewRedisJournal(client, key)
}

func TerminateRedisForE2E() {
	wg.Wait()
	if redisContainer != nil {
		err := redisContainer.Terminate(context.Background())
		if err != nil {
			fmt.Printf("failed to terminate redis container: %v", err)
		}
	}
}
