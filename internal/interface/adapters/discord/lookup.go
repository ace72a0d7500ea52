package discordadapter

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/infrastructure/config"
)

// findGuild matches ref against guild IDs first, then names ignoring case.
func findGuild(guilds []*discordgo.Guild, ref string) *discordgo.Guild {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	for _, g := range guilds {
		if g != nil && g.ID == ref {
			return g
		}
	}
	for _, g := range guilds {
		if g != nil && strings.EqualFold(g.Name, ref) {
			return g
		}
	}
	return nil
}

// findChannel only considers channels messages can be posted to.
func findChannel(channels []*discordgo.Channel, ref string) *discordgo.Channel {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	for _, c := range channels {
		if c != nil && textChannel(c) && c.ID == ref {
			return c
		}
	}
	for _, c := range channels {
		if c != nil && textChannel(c) && config.EqualNames(c.Name, config.NormalizeChannelName(ref)) {
			return c
		}
	}
	return nil
}

func textChannel(c *discordgo.Channel) bool {
	switch c.Type {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
		return true
	default:
		return false
	}
}

func findRole(roles []*discordgo.Role, ref string) *discordgo.Role {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	for _, r := range roles {
		if r != nil && (r.ID == ref || strings.EqualFold(r.Name, ref)) {
			return r
		}
	}
	return nil
}

func toGuild(g *discordgo.Guild) domain.Guild {
	return domain.Guild{ID: g.ID, Name: g.Name}
}

func toChannel(c *discordgo.Channel) domain.Channel {
	return domain.Channel{ID: c.ID, Name: c.Name, GuildID: c.GuildID}
}

func displayName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author == nil {
		return ""
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}

// mapMessage turns a gateway message into a chat line. guild and channel may
// be nil when the state cache misses them.
func mapMessage(m *discordgo.Message, guild *discordgo.Guild, channel *discordgo.Channel) domain.ChatMessage {
	msg := domain.ChatMessage{
		Platform:  domain.PlatformDiscord,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		Author:    displayName(m),
		Text:      m.Content,
		At:        m.Timestamp,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
	}
	if guild != nil {
		msg.Guild = guild.Name
	}
	if channel != nil {
		msg.Channel = channel.Name
	}
	return msg
}
