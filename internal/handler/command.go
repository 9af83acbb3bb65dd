package handler

import (
	"strings"

	"github.com/glizzus/sound-bridge/internal/voice"
)

// Actions is every action the router answers to.
var Actions = []voice.Action{voice.ActionPlay, voice.ActionStop, voice.ActionList, voice.ActionHelp}

// Invocation is one text command as received from a guild channel.
type Invocation struct {
	ID             string
	Action         voice.Action
	Target         string
	GroupID        string
	ReplyChannelID string
	UserID         string
}

func (i Invocation) Command() voice.Command {
	return voice.Command{Action: i.Action, GroupID: i.GroupID, Target: i.Target}
}

// ParseCommand splits "<prefix><action> <target>" into its parts. The
// target is the rest of the first line, so channel names with spaces work.
// The action is matched case-insensitively; ok is false when content does
// not start with prefix or names no action.
func ParseCommand(prefix, content string) (action voice.Action, target string, ok bool) {
	line, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	rest, found := strings.CutPrefix(line, prefix)
	if !found || prefix == "" {
		return "", "", false
	}

	name, target, _ := strings.Cut(strings.TrimSpace(rest), " ")
	if name == "" {
		return "", "", false
	}
	return voice.Action(strings.ToLower(name)), strings.TrimSpace(target), true
}
