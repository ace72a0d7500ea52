package config

import (
	"path/filepath"
	"slices"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
)

// InviteLinkToken is replaced by the invite link when the invite message is sent.
const InviteLinkToken = "[LINK]"

const (
	DefaultCommandPrefix     = "?"
	DefaultEcoCommandChannel = "General"
	DefaultInviteMessage     = "Join us on Discord!\n" + InviteLinkToken
)

// Feed names used in feed channel identities.
const (
	FeedCrafting     = "Crafting Feed"
	FeedTrade        = "Trade Feed"
	FeedPlayerStatus = "Player Status Feed"
	FeedElection     = "Election Feed"
)

// Data is the editable bridge configuration.
type Data struct {
	BotToken          string `yaml:"bot_token"`
	CommandPrefix     string `yaml:"command_prefix"`
	EcoCommandChannel string `yaml:"eco_command_channel"`
	InviteMessage     string `yaml:"invite_message"`
	LogChat           bool   `yaml:"log_chat"`
	ChatlogPath       string `yaml:"chatlog_path"`
	ServerName        string `yaml:"server_name"`
	ServerDescription string `yaml:"server_description"`
	ServerLogo        string `yaml:"server_logo"`
	ServerAddress     string `yaml:"server_address"`
	Debug             bool   `yaml:"debug"`

	PlayerConfigs            []domain.IdentityLinkConfig `yaml:"player_configs,omitempty"`
	ChatChannelLinks         []domain.ChannelLink        `yaml:"chat_channel_links,omitempty"`
	StatusChannels           []domain.StatusChannel      `yaml:"eco_status_discord_channels,omitempty"`
	CurrencyDisplayChannels  []domain.CurrencyChannel    `yaml:"currency_display_channels,omitempty"`
	CraftingFeedChannels     []domain.FeedChannel        `yaml:"crafting_feed_channels,omitempty"`
	TradeFeedChannels        []domain.FeedChannel        `yaml:"trade_feed_channels,omitempty"`
	PlayerStatusFeedChannels []domain.FeedChannel        `yaml:"player_status_feed_channels,omitempty"`
	ElectionFeedChannels     []domain.FeedChannel        `yaml:"election_feed_channels,omitempty"`
	AccountLinkRole          domain.RoleTarget           `yaml:"account_link_role"`
}

// Defaults returns a document with every defaulted scalar filled in.
func Defaults(chatlogDir string) Data {
	return Data{
		CommandPrefix:     DefaultCommandPrefix,
		EcoCommandChannel: DefaultEcoCommandChannel,
		InviteMessage:     DefaultInviteMessage,
		ChatlogPath:       DefaultChatlogPath(chatlogDir),
	}
}

func DefaultChatlogPath(dir string) string {
	return filepath.Join(dir, "Mods", "DiscordLink", "Chatlog.txt")
}

// Clone returns a deep copy. Every collection element is a plain value.
func (d Data) Clone() Data {
	out := d
	out.PlayerConfigs = slices.Clone(d.PlayerConfigs)
	out.ChatChannelLinks = slices.Clone(d.ChatChannelLinks)
	out.StatusChannels = slices.Clone(d.StatusChannels)
	out.CurrencyDisplayChannels = slices.Clone(d.CurrencyDisplayChannels)
	out.CraftingFeedChannels = slices.Clone(d.CraftingFeedChannels)
	out.TradeFeedChannels = slices.Clone(d.TradeFeedChannels)
	out.PlayerStatusFeedChannels = slices.Clone(d.PlayerStatusFeedChannels)
	out.ElectionFeedChannels = slices.Clone(d.ElectionFeedChannels)
	return out
}

// Feeds returns the feed channel lists keyed by feed name, with the feed name
// set on every entry.
func (d Data) Feeds() map[string][]domain.FeedChannel {
	return map[string][]domain.FeedChannel{
		FeedCrafting:     labelFeed(d.CraftingFeedChannels, FeedCrafting),
		FeedTrade:        labelFeed(d.TradeFeedChannels, FeedTrade),
		FeedPlayerStatus: labelFeed(d.PlayerStatusFeedChannels, FeedPlayerStatus),
		FeedElection:     labelFeed(d.ElectionFeedChannels, FeedElection),
	}
}

func labelFeed(in []domain.FeedChannel, name string) []domain.FeedChannel {
	out := make([]domain.FeedChannel, 0, len(in))
	for _, f := range in {
		f.Feed = name
		out = append(out, f)
	}
	return out
}

// RemoteTargets lists every configured remote target in document order,
// inert entries included.
func (d Data) RemoteTargets() []domain.RemoteTarget {
	var out []domain.RemoteTarget
	for _, l := range d.ChatChannelLinks {
		out = append(out, l)
	}
	for _, s := range d.StatusChannels {
		out = append(out, s)
	}
	for _, c := range d.CurrencyDisplayChannels {
		out = append(out, c)
	}
	feeds := d.Feeds()
	for _, name := range []string{FeedCrafting, FeedTrade, FeedPlayerStatus, FeedElection} {
		for _, f := range feeds[name] {
			out = append(out, f)
		}
	}
	return out
}

// ActiveTargets is RemoteTargets without the inert entries.
func (d Data) ActiveTargets() []domain.RemoteTarget {
	var out []domain.RemoteTarget
	for _, t := range d.RemoteTargets() {
		if !t.Inert() {
			out = append(out, t)
		}
	}
	return out
}
