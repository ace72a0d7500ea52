package discordadapter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
)

const historyLimit = 100

// Handlers receive gateway state changes. Each one is optional.
type Handlers struct {
	OnConnected    func()
	OnDisconnected func()
	OnMessage      func(ctx context.Context, msg domain.ChatMessage)
}

// Adapter is the bridge's Discord client. One adapter outlives any number of
// sessions; Start opens a new one each time.
type Adapter struct {
	mu       sync.RWMutex
	session  *discordgo.Session
	handlers Handlers

	connected atomic.Bool
}

func NewAdapter() *Adapter {
	return &Adapter{}
}

func (a *Adapter) SetHandlers(h Handlers) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers = h
}

func (a *Adapter) getHandlers() Handlers {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.handlers
}

// Start opens a gateway session with token and blocks until ctx is done.
func (a *Adapter) Start(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("discord: bot token empty")
	}

	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("discord: new session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMessages |
		discordgo.IntentGuildMembers |
		discordgo.IntentMessageContent

	s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		log.Printf("discord: connected as %s to %d guilds", r.User.Username, len(r.Guilds))
		a.setConnected(true)
	})
	s.AddHandler(func(_ *discordgo.Session, _ *discordgo.Resumed) {
		a.setConnected(true)
	})
	s.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		log.Printf("discord: gateway disconnected")
		a.setConnected(false)
	})
	s.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		a.onMessage(ctx, s, m)
	})

	a.mu.Lock()
	a.session = s
	a.mu.Unlock()

	if err := s.Open(); err != nil {
		a.mu.Lock()
		a.session = nil
		a.mu.Unlock()
		return fmt.Errorf("discord: open: %w", err)
	}

	<-ctx.Done()

	a.setConnected(false)
	a.mu.Lock()
	a.session = nil
	a.mu.Unlock()
	if err := s.Close(); err != nil {
		log.Printf("discord: close session: %v", err)
	}
	return ctx.Err()
}

func (a *Adapter) setConnected(v bool) {
	if a.connected.Swap(v) == v {
		return
	}
	h := a.getHandlers()
	if v && h.OnConnected != nil {
		h.OnConnected()
	}
	if !v && h.OnDisconnected != nil {
		h.OnDisconnected()
	}
}

func (a *Adapter) onMessage(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil || m.GuildID == "" {
		return
	}
	h := a.getHandlers()
	if h.OnMessage == nil {
		return
	}

	guild, _ := s.State.Guild(m.GuildID)
	channel, _ := s.State.Channel(m.ChannelID)
	h.OnMessage(ctx, mapMessage(m.Message, guild, channel))
}

func (a *Adapter) current() (*discordgo.Session, error) {
	a.mu.RLock()
	s := a.session
	a.mu.RUnlock()
	if s == nil || !a.connected.Load() {
		return nil, domain.ErrNotConnected
	}
	return s, nil
}

func (a *Adapter) IsConnected() bool {
	_, err := a.current()
	return err == nil
}

func (a *Adapter) GuildByNameOrID(nameOrID string) (domain.Guild, bool) {
	s, err := a.current()
	if err != nil {
		return domain.Guild{}, false
	}
	s.State.RLock()
	defer s.State.RUnlock()
	g := findGuild(s.State.Guilds, nameOrID)
	if g == nil {
		return domain.Guild{}, false
	}
	return toGuild(g), true
}

func (a *Adapter) ChannelByNameOrID(guild domain.Guild, nameOrID string) (domain.Channel, bool) {
	s, err := a.current()
	if err != nil {
		return domain.Channel{}, false
	}
	s.State.RLock()
	defer s.State.RUnlock()
	g := findGuild(s.State.Guilds, guild.ID)
	if g == nil {
		return domain.Channel{}, false
	}
	c := findChannel(g.Channels, nameOrID)
	if c == nil {
		return domain.Channel{}, false
	}
	return toChannel(c), true
}

func (a *Adapter) PostMessage(ctx context.Context, channelID, content string) (string, error) {
	s, err := a.current()
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m, err := s.ChannelMessageSend(channelID, content)
	if err != nil {
		return "", fmt.Errorf("discord: post to %s: %w", channelID, err)
	}
	return m.ID, nil
}

func (a *Adapter) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	s, err := a.current()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.ChannelMessageEdit(channelID, messageID, content); err != nil {
		return fmt.Errorf("discord: edit %s in %s: %w", messageID, channelID, err)
	}
	return nil
}

func (a *Adapter) ChannelMessages(ctx context.Context, channelID string, limit int) ([]domain.RemoteMessage, error) {
	s, err := a.current()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > historyLimit {
		limit = historyLimit
	}
	msgs, err := s.ChannelMessages(channelID, limit, "", "", "")
	if err != nil {
		return nil, fmt.Errorf("discord: history of %s: %w", channelID, err)
	}
	out := make([]domain.RemoteMessage, 0, len(msgs))
	for _, m := range msgs {
		rm := domain.RemoteMessage{ID: m.ID, ChannelID: m.ChannelID, Content: m.Content}
		if m.Author != nil {
			rm.AuthorID = m.Author.ID
		}
		out = append(out, rm)
	}
	return out, nil
}

func (a *Adapter) BotUserID() string {
	s, err := a.current()
	if err != nil || s.State.User == nil {
		return ""
	}
	return s.State.User.ID
}

func (a *Adapter) SetActivity(ctx context.Context, text string) error {
	s, err := a.current()
	if err != nil {
		return err
	}
	if err := s.UpdateWatchStatus(0, text); err != nil {
		return fmt.Errorf("discord: update status: %w", err)
	}
	return nil
}

func (a *Adapter) AddMemberRole(ctx context.Context, guild domain.Guild, userID, role string) error {
	return a.memberRole(guild, userID, role, true)
}

func (a *Adapter) RemoveMemberRole(ctx context.Context, guild domain.Guild, userID, role string) error {
	return a.memberRole(guild, userID, role, false)
}

func (a *Adapter) memberRole(guild domain.Guild, userID, role string, add bool) error {
	s, err := a.current()
	if err != nil {
		return err
	}

	s.State.RLock()
	var roleID string
	if g := findGuild(s.State.Guilds, guild.ID); g != nil {
		if r := findRole(g.Roles, role); r != nil {
			roleID = r.ID
		}
	}
	s.State.RUnlock()
	if roleID == "" {
		return fmt.Errorf("%w: %s in %s", domain.ErrRoleNotFound, role, guild.Name)
	}

	if add {
		err = s.GuildMemberRoleAdd(guild.ID, userID, roleID)
	} else {
		err = s.GuildMemberRoleRemove(guild.ID, userID, roleID)
	}
	if err != nil {
		return fmt.Errorf("discord: member role %s for %s: %w", role, userID, err)
	}
	return nil
}

// SendMessage lets the adapter act as the outbound sender for discord.
func (a *Adapter) SendMessage(ctx context.Context, platform domain.Platform, channelID, text string) error {
	if platform != domain.PlatformDiscord {
		return fmt.Errorf("discord: adapter does not serve platform %s", platform)
	}
	_, err := a.PostMessage(ctx, channelID, text)
	return err
}

var _ domain.RemoteClient = (*Adapter)(nil)
