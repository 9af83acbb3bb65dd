package handler

import (
	"context"
	"log/slog"
	"slices"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-bridge/internal/generator"
	"github.com/glizzus/sound-bridge/internal/presenters"
	"github.com/glizzus/sound-bridge/internal/voice"
)

type ReadyHandler = func(*discordgo.Session, *discordgo.Ready)
type MessageCreateHandler = func(*discordgo.Session, *discordgo.MessageCreate)

var ReadyLog = func(s *discordgo.Session, r *discordgo.Ready) {
	username := r.User.Username
	userID := r.User.ID
	slog.Info("Bot is ready", "username", username, "userID", userID, "guilds", len(r.Guilds))
}

// Controller is the part of *voice.Controller the router drives.
type Controller interface {
	Handle(ctx context.Context, cmd voice.Command) voice.Outcome
	VoiceChannels(groupID string) ([]*discordgo.Channel, error)
}

// MessageSender posts replies. *discordgo.Session satisfies it.
type MessageSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type Router struct {
	prefix     string
	controller Controller
	ids        generator.Generator[string]
}

func NewRouter(prefix string, controller Controller, ids generator.Generator[string]) *Router {
	if ids == nil {
		ids = &generator.UUIDV4Generator{}
	}
	return &Router{prefix: prefix, controller: controller, ids: ids}
}

// Parse turns a guild message into an invocation. Bot messages and DMs are
// skipped.
func (r *Router) Parse(m *discordgo.Message) (Invocation, bool) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return Invocation{}, false
	}

	action, target, ok := ParseCommand(r.prefix, m.Content)
	if !ok || !slices.Contains(Actions, action) {
		return Invocation{}, false
	}

	id, err := r.ids.Next()
	if err != nil {
		slog.Warn("Failed to generate invocation ID", "error", err)
	}
	return Invocation{
		ID:             id,
		Action:         action,
		Target:         target,
		GroupID:        m.GuildID,
		ReplyChannelID: m.ChannelID,
		UserID:         m.Author.ID,
	}, true
}

// Dispatch runs the invocation and returns the reply to post, or nil.
func (r *Router) Dispatch(ctx context.Context, inv Invocation) *discordgo.MessageSend {
	logger := slog.With("invocationID", inv.ID, "guildID", inv.GroupID, "action", inv.Action)

	switch inv.Action {
	case voice.ActionHelp:
		return presenters.BuildHelpMessage(r.prefix)

	case voice.ActionList:
		channels, err := r.controller.VoiceChannels(inv.GroupID)
		if err != nil {
			logger.Warn("Failed to list voice channels", "error", err)
			return presenters.BuildErrorMessage(err)
		}
		return presenters.BuildChannelListMessage(channels)

	default:
		outcome := r.controller.Handle(ctx, inv.Command())
		logger.Info("Command handled", "outcome", outcome.Kind, "channelID", outcome.ChannelID, "target", inv.Target)
		return presenters.BuildOutcomeMessage(outcome)
	}
}

// Route handles one message and posts the reply in the same channel.
func (r *Router) Route(ctx context.Context, sender MessageSender, m *discordgo.Message) {
	inv, ok := r.Parse(m)
	if !ok {
		return
	}
	slog.Info("Received command", "invocationID", inv.ID, "guildID", inv.GroupID, "userID", inv.UserID, "action", inv.Action)

	reply := r.Dispatch(ctx, inv)
	if reply == nil {
		return
	}
	reply.Reference = m.Reference()
	if _, err := sender.ChannelMessageSendComplex(inv.ReplyChannelID, reply); err != nil {
		slog.Error("Failed to reply to command", "invocationID", inv.ID, "channelID", inv.ReplyChannelID, "error", err)
	}
}

// MakeMessageCreateHandler routes gateway messages. discordgo calls handlers
// on their own goroutines, so commands for different guilds run concurrently.
func MakeMessageCreateHandler(ctx context.Context, router *Router) MessageCreateHandler {
	return func(s *discordgo.Session, m *discordgo.MessageCreate) {
		router.Route(ctx, s, m.Message)
	}
}

type Handlers struct {
	Ready         ReadyHandler
	MessageCreate MessageCreateHandler
}

// Intents needed to join voice channels and read text commands.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildVoiceStates |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsMessageContent

func NewSession(token string, handlers Handlers) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = Intents

	if handlers.Ready != nil {
		s.AddHandler(handlers.Ready)
	}
	if handlers.MessageCreate != nil {
		s.AddHandler(handlers.MessageCreate)
	}

	return s, nil
}
