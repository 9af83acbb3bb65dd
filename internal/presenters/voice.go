package presenters

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-bridge/internal/voice"
)

func channelMention(channelID string) string {
	return "<#" + channelID + ">"
}

// BuildOutcomeMessage renders the reply for a play or stop outcome.
// Ignored outcomes get no reply.
func BuildOutcomeMessage(o voice.Outcome) *discordgo.MessageSend {
	var content string
	switch o.Kind {
	case voice.OutcomeConnected:
		content = fmt.Sprintf("Streaming in %s.", channelMention(o.ChannelID))
	case voice.OutcomeDisconnected:
		content = fmt.Sprintf("Left %s.", channelMention(o.ChannelID))
	case voice.OutcomeNotConnected:
		content = "Not connected to a voice channel."
	case voice.OutcomeAlreadyConnected:
		content = fmt.Sprintf("Already streaming in %s. Stop first to switch channels.", channelMention(o.ChannelID))
	case voice.OutcomeInvalidTarget:
		content = fmt.Sprintf("Can't play in `%s`: %s.", o.ChannelRef, o.Reason())
	case voice.OutcomeConnectionFailed:
		content = fmt.Sprintf("Failed to connect: %s", o.Reason())
	case voice.OutcomeCancelled:
		content = "Still busy with an earlier command for this server, try again."
	default:
		return nil
	}
	return &discordgo.MessageSend{Content: content}
}

const noVoiceChannelsContent = "No voice channels found"

// BuildChannelListMessage lists voice channels. Every Build function returns
// a new message, so callers may set Reference on it.
func BuildChannelListMessage(channels []*discordgo.Channel) *discordgo.MessageSend {
	if len(channels) == 0 {
		return &discordgo.MessageSend{Content: noVoiceChannelsContent}
	}

	var b strings.Builder
	b.WriteString("**Voice Channels**")
	for _, c := range channels {
		fmt.Fprintf(&b, "\n- %s `%s`", c.Name, c.ID)
	}
	return &discordgo.MessageSend{Content: b.String()}
}

func BuildHelpMessage(prefix string) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{
			{
				Title: "Sound Bridge",
				Fields: []*discordgo.MessageEmbedField{
					{Name: prefix + "play <channel>", Value: "Join a voice channel by ID or exact name and stream the capture device into it."},
					{Name: prefix + "stop", Value: "Leave the voice channel."},
					{Name: prefix + "list", Value: "List this server's voice channels."},
					{Name: prefix + "help", Value: "Show this message."},
				},
			},
		},
	}
}

// BuildErrorMessage is the reply for a command that failed before reaching
// the voice controller.
func BuildErrorMessage(err error) *discordgo.MessageSend {
	return &discordgo.MessageSend{Content: "Something went wrong: " + err.Error()}
}
