// Package journal records which guilds this process is connected to, so that
// a process killed without a clean shutdown can leave those channels on its
// next start.
package journal

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Journal stores guildID -> channelID for every live session.
type Journal interface {
	Record(ctx context.Context, groupID, channelID string) error
	Remove(ctx context.Context, groupID string) error
	Entries(ctx context.Context) (map[string]string, error)
}

type RedisJournal struct {
	client *redis.Client
	key    string
}

func NewRedisJournal(client *redis.Client, key string) *RedisJournal {
	return &RedisJournal{client: client, key: key}
}

var _ Journal = (*RedisJournal)(nil)

func (j *RedisJournal) Record(ctx context.Context, groupID, channelID string) error {
	if err := j.client.HSet(ctx, j.key, groupID, channelID).Err(); err != nil {
		return fmt.Errorf("failed to record session for guild %s: %w", groupID, err)
	}
	return nil
}

func (j *RedisJournal) Remove(ctx context.Context, groupID string) error {
	if err := j.client.HDel(ctx, j.key, groupID).Err(); err != nil {
		return fmt.Errorf("failed to remove session for guild %s: %w", groupID, err)
	}
	return nil
}

func (j *RedisJournal) Entries(ctx context.Context) (map[string]string, error) {
	entries, err := j.client.HGetAll(ctx, j.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session journal: %w", err)
	}
	return entries, nil
}

// MemoryJournal keeps entries for the life of the process only.
// It is used when no Redis is configured.
type MemoryJournal struct {
	mu      sync.Mutex
	entries map[string]string
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{entries: make(map[string]string)}
}

var _ Journal = (*MemoryJournal)(nil)

func (j *MemoryJournal) Record(_ context.Context, groupID, channelID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries[groupID] = channelID
	return nil
}

func (j *MemoryJournal) Remove(_ context.Context, groupID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.entries, groupID)
	return nil
}

func (j *MemoryJournal) Entries(context.Context) (map[string]string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return maps.Clone(j.entries), nil
}
