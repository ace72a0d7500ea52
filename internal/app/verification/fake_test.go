package verification

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/infrastructure/config"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// Advance fires due timers in deadline order on the calling goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && t.at <= target {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
		next := due[0]
		next.fired = true
		c.now = next.at
		c.mu.Unlock()
		next.fn()
	}
}

type fakeTopology struct {
	mu        sync.Mutex
	connected bool
	guilds    map[string][]string
}

func newTopology(guilds map[string][]string) *fakeTopology {
	return &fakeTopology{connected: true, guilds: guilds}
}

func (f *fakeTopology) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTopology) setConnected(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = v
}

func (f *fakeTopology) addChannel(guild, channel string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guilds[guild] = append(f.guilds[guild], channel)
}

func (f *fakeTopology) GuildByNameOrID(ref string) (domain.Guild, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name := range f.guilds {
		if strings.EqualFold(name, ref) {
			return domain.Guild{ID: "id-" + name, Name: name}, true
		}
	}
	return domain.Guild{}, false
}

func (f *fakeTopology) ChannelByNameOrID(g domain.Guild, ref string) (domain.Channel, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.guilds[g.Name] {
		if strings.EqualFold(ch, ref) {
			return domain.Channel{ID: "id-" + ch, Name: ch, GuildID: g.ID}, true
		}
	}
	return domain.Channel{}, false
}

type fakeUsers []domain.User

func (f fakeUsers) Users() []domain.User       { return f }
func (f fakeUsers) OnlineUsers() []domain.User { return nil }

type staticConfig struct {
	mu   sync.Mutex
	data config.Data
}

func (s *staticConfig) Current() config.Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone()
}

func (s *staticConfig) set(fn func(*config.Data)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.data)
}

func baseConfig() *staticConfig {
	d := config.Defaults("/srv/eco")
	d.BotToken = "token"
	return &staticConfig{data: d}
}
