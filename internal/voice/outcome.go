package voice

import (
	"errors"
	"fmt"
)

type Action string

const (
	ActionPlay Action = "play"
	ActionStop Action = "stop"
	ActionList Action = "list"
	ActionHelp Action = "help"
)

// Command is one request against a guild's voice state.
type Command struct {
	Action  Action
	GroupID string
	Target  string
}

type OutcomeKind int

const (
	OutcomeIgnored OutcomeKind = iota
	OutcomeConnected
	OutcomeDisconnected
	OutcomeNotConnected
	OutcomeInvalidTarget
	OutcomeConnectionFailed
	OutcomeAlreadyConnected
	// OutcomeCancelled means the command gave up waiting for an earlier
	// command on the same guild. Nothing was changed.
	OutcomeCancelled
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeConnected:
		return "connected"
	case OutcomeDisconnected:
		return "disconnected"
	case OutcomeNotConnected:
		return "not_connected"
	case OutcomeInvalidTarget:
		return "invalid_target"
	case OutcomeConnectionFailed:
		return "connection_failed"
	case OutcomeAlreadyConnected:
		return "already_connected"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the result of a command, for presentation.
//
// ChannelID is set for Connected, Disconnected and AlreadyConnected.
// ChannelRef holds the target as the user typed it for InvalidTarget.
// Err carries the cause for every failure kind.
type Outcome struct {
	Kind       OutcomeKind
	GroupID    string
	ChannelID  string
	ChannelRef string
	Err        error
}

// Reason is the human readable cause of a failed outcome.
func (o Outcome) Reason() string {
	var failed *ConnectionFailedError
	if errors.As(o.Err, &failed) {
		return failed.Err.Error()
	}
	var invalid *InvalidTargetError
	if errors.As(o.Err, &invalid) {
		return invalid.Reason
	}
	if o.Err != nil {
		return o.Err.Error()
	}
	return ""
}

var ErrNotConnected = errors.New("not connected to a voice channel")

type InvalidTargetError struct {
	ChannelRef string
	Reason     string
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid target channel %q: %s", e.ChannelRef, e.Reason)
}

var _ error = (*InvalidTargetError)(nil)

type ConnectionFailedError struct {
	GroupID   string
	ChannelID string
	Err       error
}

func (e *ConnectionFailedError) Error() string {
	return fmt.Sprintf("failed to connect guild %s to channel %s: %v", e.GroupID, e.ChannelID, e.Err)
}

func (e *ConnectionFailedError) Unwrap() error {
	return e.Err
}

var _ error = (*ConnectionFailedError)(nil)
