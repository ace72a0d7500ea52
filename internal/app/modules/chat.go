package modules

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/multierr"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
)

var (
	userMention    = regexp.MustCompile(`<@!?(\d+)>`)
	roleMention    = regexp.MustCompile(`<@&(\d+)>`)
	channelMention = regexp.MustCompile(`<#(\d+)>`)
)

// filterMentions defuses the mention kinds a link does not forward.
func filterMentions(text string, link domain.ChannelLink) string {
	text = neutralizeMassMentions(text)
	if !link.AllowRoleMentions {
		text = roleMention.ReplaceAllString(text, "@&$1")
	}
	if !link.AllowUserMentions {
		text = userMention.ReplaceAllString(text, "@$1")
	}
	if !link.AllowChannelMentions {
		text = channelMention.ReplaceAllString(text, "#$1")
	}
	return text
}

// EcoChatFeed relays local chat to the linked remote channels.
type EcoChatFeed struct {
	base
	deps Deps
}

func NewEcoChatFeed(deps Deps) *EcoChatFeed {
	return &EcoChatFeed{
		base: base{name: "Eco Chat Feed", kind: KindEcoChatFeed, triggers: domain.EventEcoMessageSent},
		deps: deps,
	}
}

func (m *EcoChatFeed) ShouldRun() bool {
	return hasActiveChatLink(m.deps)
}

func (m *EcoChatFeed) Update(ctx context.Context, ev domain.Event) error {
	msg, ok := ev.First().(domain.ChatMessage)
	if !ok || strings.TrimSpace(msg.Text) == "" {
		return nil
	}
	var errs error
	for _, link := range m.deps.Config.ChatLinksForEcoChannel(msg.Channel) {
		_, channel, err := resolveChannel(m.deps.Remote, link)
		if err != nil {
			continue
		}
		text := fmt.Sprintf("**%s**: %s", msg.Author, filterMentions(msg.Text, link))
		if _, err := m.deps.Remote.PostMessage(ctx, channel.ID, text); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", link.Identity(), err))
			continue
		}
		m.ops.Add(1)
	}
	return errs
}

// DiscordChatFeed relays remote chat to the linked local channels.
type DiscordChatFeed struct {
	base
	deps Deps
}

func NewDiscordChatFeed(deps Deps) *DiscordChatFeed {
	return &DiscordChatFeed{
		base: base{name: "Discord Chat Feed", kind: KindDiscordChatFeed, triggers: domain.EventDiscordMessageSent},
		deps: deps,
	}
}

func (m *DiscordChatFeed) ShouldRun() bool {
	return hasActiveChatLink(m.deps) && m.deps.Out != nil
}

func (m *DiscordChatFeed) Update(ctx context.Context, ev domain.Event) error {
	msg, ok := ev.First().(domain.ChatMessage)
	if !ok || strings.TrimSpace(msg.Text) == "" {
		return nil
	}
	if m.deps.Remote != nil && msg.AuthorID != "" && msg.AuthorID == m.deps.Remote.BotUserID() {
		return nil
	}

	guild := domain.Guild{ID: msg.GuildID, Name: msg.Guild}
	channel := domain.Channel{ID: msg.ChannelID, Name: msg.Channel, GuildID: msg.GuildID}
	var errs error
	for _, link := range m.deps.Config.ChatLinksForDiscordChannel(guild, channel) {
		text := fmt.Sprintf("%s: %s", msg.Author, msg.Text)
		if err := m.deps.Out.SendMessage(ctx, domain.PlatformEco, link.EcoChannel, text); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", link.Identity(), err))
			continue
		}
		m.ops.Add(1)
	}
	return errs
}

func hasActiveChatLink(deps Deps) bool {
	for _, l := range deps.Config.Current().ChatChannelLinks {
		if !l.Inert() {
			return true
		}
	}
	return false
}
