// Package session keeps track of the live voice connection of each guild.
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Connection is an open remote voice connection.
type Connection interface {
	ChannelID() string
	Disconnect(ctx context.Context) error
}

// Attachment binds the shared player to a connection.
type Attachment interface {
	Detach()
}

// Session is the live pairing of a guild, a channel and an open connection.
type Session struct {
	GroupID    string
	ChannelID  string
	Conn       Connection
	Attachment Attachment
}

type AlreadyConnectedError struct {
	GroupID   string
	ChannelID string
}

func (e *AlreadyConnectedError) Error() string {
	return fmt.Sprintf("guild %s is already connected to channel %s", e.GroupID, e.ChannelID)
}

var _ error = (*AlreadyConnectedError)(nil)

// Registry maps each guild to at most one session.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create registers a new session. It never replaces an existing one;
// the caller has to Destroy first.
func (r *Registry) Create(groupID, channelID string, conn Connection, attachment Attachment) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[groupID]; ok {
		return nil, &AlreadyConnectedError{GroupID: groupID, ChannelID: existing.ChannelID}
	}

	s := &Session{
		GroupID:    groupID,
		ChannelID:  channelID,
		Conn:       conn,
		Attachment: attachment,
	}
	r.sessions[groupID] = s
	return s, nil
}

func (r *Registry) Lookup(groupID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[groupID]
	return s, ok
}

// Destroy removes the session and hands it back for teardown.
// It reports false when there was nothing to remove.
func (r *Registry) Destroy(groupID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[groupID]
	if ok {
		delete(r.sessions, groupID)
	}
	return s, ok
}

// All returns a snapshot of the registered sessions ordered by guild.
// Sessions created after the call are not included.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].GroupID < all[j].GroupID })
	return all
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
