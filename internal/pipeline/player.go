package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

type Status int32

const (
	StatusIdle Status = iota
	StatusPlaying
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPlaying:
		return "playing"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

var (
	ErrNotPlaying      = errors.New("audio pipeline is not playing")
	ErrAlreadyAttached = errors.New("player is already attached for this guild")
)

// Player fans the encoded capture out to every attached connection.
// There is exactly one Player per process; attaching it to a connection
// never starts a second capture.
type Player struct {
	status atomic.Int32

	mu       sync.Mutex
	attached map[string]*Attachment
}

func newPlayer() *Player {
	return &Player{attached: make(map[string]*Attachment)}
}

func (p *Player) Status() Status {
	return Status(p.status.Load())
}

func (p *Player) setStatus(s Status) {
	p.status.Store(int32(s))
}

// Attach binds the player to a connection's Opus send channel.
func (p *Player) Attach(groupID string, sink chan<- []byte) (*Attachment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s := p.Status(); s != StatusPlaying {
		return nil, fmt.Errorf("%w (status %s)", ErrNotPlaying, s)
	}
	if _, ok := p.attached[groupID]; ok {
		return nil, ErrAlreadyAttached
	}

	a := &Attachment{
		GroupID: groupID,
		player:  p,
		sink:    sink,
		done:    make(chan struct{}),
	}
	p.attached[groupID] = a
	return a, nil
}

// Attached returns the number of live attachments.
func (p *Player) Attached() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.attached)
}

// broadcast offers packet to every attachment without blocking.
// A connection that is not keeping up loses the frame.
func (p *Player) broadcast(packet []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, a := range p.attached {
		select {
		case a.sink <- packet:
		default:
			a.dropped.Add(1)
		}
	}
}

func (p *Player) detach(a *Attachment) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attached[a.GroupID] == a {
		delete(p.attached, a.GroupID)
	}
}

func (p *Player) detachAll() {
	p.mu.Lock()
	all := make([]*Attachment, 0, len(p.attached))
	for _, a := range p.attached {
		all = append(all, a)
	}
	p.mu.Unlock()

	for _, a := range all {
		a.Detach()
	}
}

// Attachment is the binding between the player and one connection.
// Detaching leaves the capture running.
type Attachment struct {
	GroupID string

	player  *Player
	sink    chan<- []byte
	dropped atomic.Uint64

	done     chan struct{}
	doneOnce sync.Once
}

// Detach stops delivering frames to the connection. It is idempotent.
func (a *Attachment) Detach() {
	a.doneOnce.Do(func() {
		a.player.detach(a)
		close(a.done)
	})
}

// Done is closed once the attachment is detached, either explicitly
// or because the pipeline stopped.
func (a *Attachment) Done() <-chan struct{} {
	return a.done
}

// Dropped reports how many frames the connection did not accept in time.
func (a *Attachment) Dropped() uint64 {
	return a.dropped.Load()
}
