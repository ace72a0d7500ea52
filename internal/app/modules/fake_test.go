package modules

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
)

type post struct {
	ChannelID string
	MessageID string
	Content   string
	Edit      bool
}

type roleCall struct {
	Guild, User, Role string
	Add               bool
}

type fakeRemote struct {
	mu        sync.Mutex
	connected bool
	guilds    map[string][]string
	history   map[string][]domain.RemoteMessage
	posts     []post
	roles     []roleCall
	nextID    int
	activity  string
}

func newRemote(guilds map[string][]string) *fakeRemote {
	return &fakeRemote{connected: true, guilds: guilds, history: map[string][]domain.RemoteMessage{}}
}

func (f *fakeRemote) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeRemote) GuildByNameOrID(ref string) (domain.Guild, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name := range f.guilds {
		if strings.EqualFold(name, ref) || "g-"+name == ref {
			return domain.Guild{ID: "g-" + name, Name: name}, true
		}
	}
	return domain.Guild{}, false
}

func (f *fakeRemote) ChannelByNameOrID(g domain.Guild, ref string) (domain.Channel, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.guilds[g.Name] {
		if strings.EqualFold(ch, ref) {
			return domain.Channel{ID: "c-" + ch, Name: ch, GuildID: g.ID}, true
		}
	}
	return domain.Channel{}, false
}

func (f *fakeRemote) PostMessage(_ context.Context, channelID, content string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("m%d", f.nextID)
	f.posts = append(f.posts, post{ChannelID: channelID, MessageID: id, Content: content})
	return id, nil
}

func (f *fakeRemote) EditMessage(_ context.Context, channelID, messageID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, post{ChannelID: channelID, MessageID: messageID, Content: content, Edit: true})
	return nil
}

func (f *fakeRemote) ChannelMessages(_ context.Context, channelID string, _ int) ([]domain.RemoteMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.RemoteMessage(nil), f.history[channelID]...), nil
}

func (f *fakeRemote) BotUserID() string { return "bot" }

func (f *fakeRemote) SetActivity(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activity = text
	return nil
}

func (f *fakeRemote) AddMemberRole(_ context.Context, g domain.Guild, user, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles = append(f.roles, roleCall{Guild: g.Name, User: user, Role: role, Add: true})
	return nil
}

func (f *fakeRemote) RemoveMemberRole(_ context.Context, g domain.Guild, user, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles = append(f.roles, roleCall{Guild: g.Name, User: user, Role: role})
	return nil
}

func (f *fakeRemote) sent() []post {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]post(nil), f.posts...)
}

type fakeGame struct {
	users      []domain.User
	online     []domain.User
	currencies []domain.Currency
	info       domain.ServerInfo
}

func (g *fakeGame) Users() []domain.User          { return g.users }
func (g *fakeGame) OnlineUsers() []domain.User    { return g.online }
func (g *fakeGame) Currencies() []domain.Currency { return g.currencies }
func (g *fakeGame) ServerInfo() domain.ServerInfo { return g.info }

type outMsg struct {
	Platform domain.Platform
	Channel  string
	Text     string
}

type fakeOut struct {
	mu   sync.Mutex
	msgs []outMsg
}

func (o *fakeOut) SendMessage(_ context.Context, p domain.Platform, channel, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, outMsg{Platform: p, Channel: channel, Text: text})
	return nil
}

type fakeTrades map[int]int64

func (f fakeTrades) TradeCounts(context.Context) map[int]int64 { return f }
