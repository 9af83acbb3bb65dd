package voice

import (
	"context"
	"sync"
)

// groupLocks serializes work per guild. Each guild gets a one-slot
// semaphore so waiting for it can be abandoned through a context.
type groupLocks struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newGroupLocks() *groupLocks {
	return &groupLocks{slots: make(map[string]chan struct{})}
}

func (l *groupLocks) acquire(ctx context.Context, groupID string) (release func(), err error) {
	l.mu.Lock()
	slot, ok := l.slots[groupID]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[groupID] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
