package domain

import "strings"

// RemoteTarget is a configured guild/channel pair on the remote platform.
type RemoteTarget interface {
	GuildRef() string
	ChannelRef() string
	// Identity is the canonical string used to track verification.
	Identity() string
	// Inert targets have an empty required identifier and are never processed.
	Inert() bool
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ChannelLink connects a remote channel with a local chat channel.
type ChannelLink struct {
	DiscordGuild         string `yaml:"discord_guild"`
	DiscordChannel       string `yaml:"discord_channel"`
	EcoChannel           string `yaml:"eco_channel"`
	AllowUserMentions    bool   `yaml:"allow_user_mentions"`
	AllowRoleMentions    bool   `yaml:"allow_role_mentions"`
	AllowChannelMentions bool   `yaml:"allow_channel_mentions"`
}

// NewChannelLink returns a link with every mention kind forwarded.
func NewChannelLink(guild, channel, eco string) ChannelLink {
	return ChannelLink{
		DiscordGuild:         guild,
		DiscordChannel:       channel,
		EcoChannel:           eco,
		AllowUserMentions:    true,
		AllowRoleMentions:    true,
		AllowChannelMentions: true,
	}
}

func (l ChannelLink) GuildRef() string   { return l.DiscordGuild }
func (l ChannelLink) ChannelRef() string { return l.DiscordChannel }

func (l ChannelLink) Identity() string {
	return l.DiscordGuild + " - " + l.DiscordChannel + " <--> " + l.EcoChannel + " (Chat Link)"
}

func (l ChannelLink) Inert() bool {
	return blank(l.DiscordGuild) || blank(l.DiscordChannel) || blank(l.EcoChannel)
}

// StatusChannel is a remote channel showing the server info display.
type StatusChannel struct {
	DiscordGuild      string `yaml:"discord_guild"`
	DiscordChannel    string `yaml:"discord_channel"`
	UseName           bool   `yaml:"use_name"`
	UseDescription    bool   `yaml:"use_description"`
	UseLogo           bool   `yaml:"use_logo"`
	UseAddress        bool   `yaml:"use_address"`
	UsePlayerCount    bool   `yaml:"use_player_count"`
	UsePlayerList     bool   `yaml:"use_player_list"`
	UseTimeSinceStart bool   `yaml:"use_time_since_start"`
	UseTimeRemaining  bool   `yaml:"use_time_remaining"`
	UseMeteorHasHit   bool   `yaml:"use_meteor_has_hit"`
}

// NewStatusChannel returns a status channel with the default component set.
func NewStatusChannel(guild, channel string) StatusChannel {
	return StatusChannel{
		DiscordGuild:      guild,
		DiscordChannel:    channel,
		UseName:           true,
		UseLogo:           true,
		UseAddress:        true,
		UsePlayerCount:    true,
		UsePlayerList:     true,
		UseTimeSinceStart: true,
		UseTimeRemaining:  true,
	}
}

func (s StatusChannel) GuildRef() string   { return s.DiscordGuild }
func (s StatusChannel) ChannelRef() string { return s.DiscordChannel }

func (s StatusChannel) Identity() string {
	return s.DiscordGuild + " - " + s.DiscordChannel + " (Eco Status)"
}

func (s StatusChannel) Inert() bool {
	return blank(s.DiscordGuild) || blank(s.DiscordChannel)
}

// CurrencyChannel is a remote channel showing the currency display.
type CurrencyChannel struct {
	DiscordGuild     string `yaml:"discord_guild"`
	DiscordChannel   string `yaml:"discord_channel"`
	MaxMintedCount   int    `yaml:"max_minted_count"`
	MaxPersonalCount int    `yaml:"max_personal_count"`
}

// NewCurrencyChannel shows the most traded minted currency and the three most
// traded personal ones.
func NewCurrencyChannel(guild, channel string) CurrencyChannel {
	return CurrencyChannel{DiscordGuild: guild, DiscordChannel: channel, MaxMintedCount: 1, MaxPersonalCount: 3}
}

func (c CurrencyChannel) GuildRef() string   { return c.DiscordGuild }
func (c CurrencyChannel) ChannelRef() string { return c.DiscordChannel }

func (c CurrencyChannel) Identity() string {
	return c.DiscordGuild + " - " + c.DiscordChannel + " (Currency Display)"
}

func (c CurrencyChannel) Inert() bool {
	return blank(c.DiscordGuild) || blank(c.DiscordChannel)
}

// FeedChannel is a remote channel receiving one kind of feed. Feed is filled
// in by the configuration layer and only names the feed in identities.
type FeedChannel struct {
	DiscordGuild   string `yaml:"discord_guild"`
	DiscordChannel string `yaml:"discord_channel"`
	Feed           string `yaml:"-"`
}

func (f FeedChannel) GuildRef() string   { return f.DiscordGuild }
func (f FeedChannel) ChannelRef() string { return f.DiscordChannel }

func (f FeedChannel) Identity() string {
	feed := f.Feed
	if feed == "" {
		feed = "Feed"
	}
	return f.DiscordGuild + " - " + f.DiscordChannel + " (" + feed + ")"
}

func (f FeedChannel) Inert() bool {
	return blank(f.DiscordGuild) || blank(f.DiscordChannel)
}

// ChannelIdentifier names a remote channel without any behaviour attached.
type ChannelIdentifier struct {
	Guild   string `yaml:"guild"`
	Channel string `yaml:"channel"`
}

// IdentityLinkConfig overrides per-user defaults.
type IdentityLinkConfig struct {
	Username       string            `yaml:"username"`
	DefaultChannel ChannelIdentifier `yaml:"default_channel"`
}

// RoleTarget names a role inside a guild.
type RoleTarget struct {
	DiscordGuild string `yaml:"discord_guild"`
	Role         string `yaml:"role"`
}

func (r RoleTarget) Inert() bool {
	return blank(r.DiscordGuild) || blank(r.Role)
}
