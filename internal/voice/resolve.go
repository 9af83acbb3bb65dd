package voice

import (
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-bridge/internal/util"
)

// IsVoiceChannel reports whether a channel can host a voice connection.
func IsVoiceChannel(channel *discordgo.Channel) bool {
	return channel.Type == discordgo.ChannelTypeGuildVoice ||
		channel.Type == discordgo.ChannelTypeGuildStageVoice
}

// VoiceChannels returns the voice capable channels in display order.
func VoiceChannels(channels []*discordgo.Channel) []*discordgo.Channel {
	voice := util.Filter(channels, IsVoiceChannel)
	sort.SliceStable(voice, func(i, j int) bool { return voice[i].Position < voice[j].Position })
	return voice
}

// ResolveTarget finds the voice channel a user referred to.
// The target may be a channel ID, a channel mention or an exact,
// case-sensitive channel name.
func ResolveTarget(channels []*discordgo.Channel, target string) (*discordgo.Channel, error) {
	if target == "" {
		return nil, &InvalidTargetError{ChannelRef: target, Reason: "no channel given"}
	}

	id := strings.TrimSuffix(strings.TrimPrefix(target, "<#"), ">")
	if channel, ok := util.FindFirst(channels, func(c *discordgo.Channel) bool { return c.ID == id }); ok {
		if !IsVoiceChannel(channel) {
			return nil, &InvalidTargetError{ChannelRef: target, Reason: "not a voice channel"}
		}
		return channel, nil
	}

	named := util.Filter(channels, func(c *discordgo.Channel) bool { return c.Name == target })
	if channel, ok := util.FindFirst(named, IsVoiceChannel); ok {
		return channel, nil
	}
	if len(named) > 0 {
		return nil, &InvalidTargetError{ChannelRef: target, Reason: "not a voice channel"}
	}
	return nil, &InvalidTargetError{ChannelRef: target, Reason: "no such channel"}
}
