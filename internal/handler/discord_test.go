package handler_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-bridge/internal/generator"
	"github.com/glizzus/sound-bridge/internal/handler"
	"github.com/glizzus/sound-bridge/internal/voice"
	"github.com/google/go-cmp/cmp"
)

type fakeController struct {
	mu       sync.Mutex
	commands []voice.Command
	outcome  voice.Outcome
	channels []*discordgo.Channel
	listErr  error
}

func (f *fakeController) Handle(_ context.Context, cmd voice.Command) voice.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)
	return f.outcome
}

func (f *fakeController) VoiceChannels(string) ([]*discordgo.Channel, error) {
	return f.channels, f.listErr
}

type sent struct {
	ChannelID string
	Content   string
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sent
	replies []*discordgo.MessageSend
	err     error
}

func (f *fakeSender) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{ChannelID: channelID, Content: data.Content})
	f.replies = append(f.replies, data)
	return &discordgo.Message{}, f.err
}

func message(content string) *discordgo.Message {
	return &discordgo.Message{
		ID:        "m1",
		ChannelID: "text-1",
		GuildID:   "guild-1",
		Content:   content,
		Author:    &discordgo.User{ID: "user-1"},
	}
}

func TestRouterParse(t *testing.T) {
	router := handler.NewRouter("!", &fakeController{}, &generator.SequenceGenerator{Prefix: "inv"})

	got, ok := router.Parse(message("!play Lounge Room"))
	if !ok {
		t.Fatalf("expected the message to be accepted")
	}
	want := handler.Invocation{
		ID:             "inv-1",
		Action:         voice.ActionPlay,
		Target:         "Lounge Room",
		GroupID:        "guild-1",
		ReplyChannelID: "text-1",
		UserID:         "user-1",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}

	bot := message("!stop")
	bot.Author.Bot = true
	dm := message("!stop")
	dm.GuildID = ""

	skipped := map[string]*discordgo.Message{
		"bot author":     bot,
		"direct message": dm,
		"unknown action": message("!dance"),
		"chatter":        message("hello there"),
	}
	for name, m := range skipped {
		if _, ok := router.Parse(m); ok {
			t.Errorf("%s: expected the message to be skipped", name)
		}
	}
}

func TestRouterRoute(t *testing.T) {
	tc := []struct {
		name       string
		content    string
		controller *fakeController
		wantCmds   []voice.Command
		wantSent   []sent
	}{
		{
			name:       "play",
			content:    "!play 123",
			controller: &fakeController{outcome: voice.Outcome{Kind: voice.OutcomeConnected, ChannelID: "123"}},
			wantCmds:   []voice.Command{{Action: voice.ActionPlay, GroupID: "guild-1", Target: "123"}},
			wantSent:   []sent{{ChannelID: "text-1", Content: "Streaming in <#123>."}},
		},
		{
			name:       "stop while idle",
			content:    "!stop",
			controller: &fakeController{outcome: voice.Outcome{Kind: voice.OutcomeNotConnected}},
			wantCmds:   []voice.Command{{Action: voice.ActionStop, GroupID: "guild-1"}},
			wantSent:   []sent{{ChannelID: "text-1", Content: "Not connected to a voice channel."}},
		},
		{
			name:       "list",
			content:    "!list",
			controller: &fakeController{channels: []*discordgo.Channel{{ID: "123", Name: "Lounge"}}},
			wantSent:   []sent{{ChannelID: "text-1", Content: "**Voice Channels**\n- Lounge `123`"}},
		},
		{
			name:       "list failure",
			content:    "!list",
			controller: &fakeController{listErr: errors.New("HTTP 403 Forbidden")},
			wantSent:   []sent{{ChannelID: "text-1", Content: "Something went wrong: HTTP 403 Forbidden"}},
		},
		{
			name:       "not a command",
			content:    "just chatting",
			controller: &fakeController{},
		},
	}

	for _, test := range tc {
		t.Run(test.name, func(t *testing.T) {
			sender := &fakeSender{}
			router := handler.NewRouter("!", test.controller, &generator.SequenceGenerator{Prefix: "inv"})

			router.Route(t.Context(), sender, message(test.content))

			if diff := cmp.Diff(test.wantCmds, test.controller.commands); diff != "" {
				t.Errorf("commands mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(test.wantSent, sender.sent); diff != "" {
				t.Errorf("replies mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRouterRouteHelp(t *testing.T) {
	sender := &fakeSender{}
	controller := &fakeController{}
	router := handler.NewRouter("!", controller, nil)

	router.Route(t.Context(), sender, message("!help"))

	if len(controller.commands) != 0 {
		t.Errorf("help must not reach the controller")
	}
	if len(sender.sent) != 1 || sender.sent[0].ChannelID != "text-1" {
		t.Errorf("expected one reply in the command channel, got %+v", sender.sent)
	}
}

func TestRouterRepliesReferenceTheirOwnMessage(t *testing.T) {
	sender := &fakeSender{}
	router := handler.NewRouter("!", &fakeController{}, &generator.SequenceGenerator{Prefix: "inv"})

	const n = 8
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m := message("!list")
			m.ID = fmt.Sprintf("msg-%d", i)
			m.GuildID = fmt.Sprintf("guild-%d", i)
			router.Route(context.Background(), sender, m)
		}()
	}
	wg.Wait()

	if len(sender.replies) != n {
		t.Fatalf("expected %d replies, got %d", n, len(sender.replies))
	}
	seen := map[*discordgo.MessageSend]bool{}
	refs := map[string]bool{}
	for _, reply := range sender.replies {
		if seen[reply] {
			t.Errorf("a reply message was shared between commands")
		}
		seen[reply] = true
		if reply.Reference == nil {
			t.Fatalf("expected every reply to reference its command")
		}
		if reply.Content != "No voice channels found" {
			t.Errorf("unexpected reply %q", reply.Content)
		}
		refs[reply.Reference.MessageID] = true
	}
	if len(refs) != n {
		t.Errorf("expected %d distinct referenced messages, got %d", n, len(refs))
	}

	first := sender.replies[0].Reference.MessageID
	later := message("!list")
	later.ID = "msg-late"
	router.Route(t.Context(), sender, later)
	if got := sender.replies[0].Reference.MessageID; got != first {
		t.Errorf("an earlier reply was rewritten to reference %q", got)
	}
}
