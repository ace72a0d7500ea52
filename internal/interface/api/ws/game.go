package ws

import (
	"slices"
	"sync"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
)

// GameState is the bridge's copy of what the game server last reported.
type GameState struct {
	mu         sync.RWMutex
	users      []domain.User
	currencies []domain.Currency
	info       domain.ServerInfo
	worldReset bool
}

func NewGameState() *GameState {
	return &GameState{}
}

func (g *GameState) apply(st StateFrame) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.users = slices.Clone(st.Users)
	g.currencies = slices.Clone(st.Currencies)
	g.info = st.Info
	if st.WorldReset {
		g.worldReset = true
	}
}

// applyEvent keeps the online flags current between state frames.
func (g *GameState) applyEvent(kind domain.EventKind, data []any) {
	if len(data) == 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	switch kind {
	case domain.EventJoin, domain.EventLogin, domain.EventLogout:
		u, ok := data[0].(domain.User)
		if !ok {
			return
		}
		u.Online = kind != domain.EventLogout
		for i := range g.users {
			if g.users[i].ID == u.ID {
				g.users[i].Online = u.Online
				if u.Online && !u.LoginTime.IsZero() {
					g.users[i].LoginTime = u.LoginTime
				}
				return
			}
		}
		g.users = append(g.users, u)
	case domain.EventCurrencyCreated:
		c, ok := data[0].(domain.Currency)
		if !ok {
			return
		}
		if !slices.ContainsFunc(g.currencies, func(x domain.Currency) bool { return x.ID == c.ID }) {
			g.currencies = append(g.currencies, c)
		}
	}
}

// ConsumeWorldReset reports a pending world reset once.
func (g *GameState) ConsumeWorldReset() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	reset := g.worldReset
	g.worldReset = false
	return reset
}

func (g *GameState) Users() []domain.User {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.users)
}

func (g *GameState) OnlineUsers() []domain.User {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []domain.User
	for _, u := range g.users {
		if u.Online {
			out = append(out, u)
		}
	}
	return out
}

func (g *GameState) Currencies() []domain.Currency {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.currencies)
}

func (g *GameState) ServerInfo() domain.ServerInfo {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.info
}

var _ domain.GameServer = (*GameState)(nil)
