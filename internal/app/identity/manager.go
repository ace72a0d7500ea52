package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/app/events"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
)

var (
	ErrUnknownLink = errors.New("identity: no link for discord account")
	ErrNameTaken   = errors.New("identity: eco account already linked")
)

// Dispatcher is the part of events.Dispatcher the manager needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, kind domain.EventKind, data ...any) *events.Task
}

// Manager keeps the linked accounts in memory and in the repository.
type Manager struct {
	repo     domain.LinkedUserRepository
	dispatch Dispatcher

	mu    sync.RWMutex
	links map[string]domain.LinkedUser
}

func NewManager(repo domain.LinkedUserRepository, dispatch Dispatcher) *Manager {
	return &Manager{
		repo:     repo,
		dispatch: dispatch,
		links:    make(map[string]domain.LinkedUser),
	}
}

func (m *Manager) Name() string { return "identity" }

// Reload replaces the cache with the repository contents.
func (m *Manager) Reload(ctx context.Context) error {
	users, err := m.repo.ListLinkedUsers(ctx)
	if err != nil {
		return fmt.Errorf("identity: reload: %w", err)
	}

	links := make(map[string]domain.LinkedUser, len(users))
	for _, u := range users {
		if u != nil {
			links[u.DiscordID] = *u
		}
	}

	m.mu.Lock()
	m.links = links
	m.mu.Unlock()

	log.Printf("identity: loaded %d linked accounts", len(links))
	return nil
}

// Link records an unverified pairing. Relinking an account drops its
// verification.
func (m *Manager) Link(ctx context.Context, discordID, ecoName string) (domain.LinkedUser, error) {
	discordID = strings.TrimSpace(discordID)
	ecoName = strings.TrimSpace(ecoName)
	if discordID == "" || ecoName == "" {
		return domain.LinkedUser{}, fmt.Errorf("identity: link needs both accounts")
	}
	if other, ok := m.ByEcoName(ecoName); ok && other.DiscordID != discordID {
		return domain.LinkedUser{}, fmt.Errorf("%w: %s", ErrNameTaken, ecoName)
	}

	prev, had := m.ByDiscordID(discordID)
	user := domain.LinkedUser{DiscordID: discordID, EcoName: ecoName}
	if had {
		user.CreatedAt = prev.CreatedAt
	}
	if err := m.repo.SaveLinkedUser(ctx, &user); err != nil {
		return domain.LinkedUser{}, fmt.Errorf("identity: link: %w", err)
	}
	m.put(user)

	if had && prev.Verified {
		m.dispatch.Dispatch(ctx, domain.EventAccountLinkRemoved, prev)
	}
	return user, nil
}

func (m *Manager) Verify(ctx context.Context, discordID string) (domain.LinkedUser, error) {
	user, ok := m.ByDiscordID(discordID)
	if !ok {
		return domain.LinkedUser{}, fmt.Errorf("%w: %s", ErrUnknownLink, discordID)
	}
	if user.Verified {
		return user, nil
	}

	user.Verified = true
	if err := m.repo.SaveLinkedUser(ctx, &user); err != nil {
		return domain.LinkedUser{}, fmt.Errorf("identity: verify: %w", err)
	}
	m.put(user)

	log.Printf("identity: verified %s as %s", user.DiscordID, user.EcoName)
	m.dispatch.Dispatch(ctx, domain.EventAccountLinkVerified, user)
	return user, nil
}

func (m *Manager) Unlink(ctx context.Context, discordID string) error {
	user, ok := m.ByDiscordID(discordID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLink, discordID)
	}
	if err := m.repo.DeleteLinkedUser(ctx, discordID); err != nil {
		return fmt.Errorf("identity: unlink: %w", err)
	}

	m.mu.Lock()
	delete(m.links, discordID)
	m.mu.Unlock()

	log.Printf("identity: removed link %s (%s)", discordID, user.EcoName)
	m.dispatch.Dispatch(ctx, domain.EventAccountLinkRemoved, user)
	return nil
}

func (m *Manager) ByDiscordID(discordID string) (domain.LinkedUser, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.links[discordID]
	return u, ok
}

func (m *Manager) ByEcoName(name string) (domain.LinkedUser, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.links {
		if strings.EqualFold(u.EcoName, name) {
			return u, true
		}
	}
	return domain.LinkedUser{}, false
}

// Verified lists verified links in no particular order.
func (m *Manager) Verified() []domain.LinkedUser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.LinkedUser, 0, len(m.links))
	for _, u := range m.links {
		if u.Verified {
			out = append(out, u)
		}
	}
	return out
}

func (m *Manager) put(u domain.LinkedUser) {
	m.mu.Lock()
	m.links[u.DiscordID] = u
	m.mu.Unlock()
}

// HandleEvent runs in the identity stage.
func (m *Manager) HandleEvent(ctx context.Context, ev domain.Event) error {
	switch ev.Kind {
	case domain.EventDiscordClientConnected:
		return m.Reload(ctx)
	case domain.EventAccountLinkVerified:
		u, ok := ev.First().(domain.LinkedUser)
		if !ok {
			return nil
		}
		m.mu.Lock()
		if cur, ok := m.links[u.DiscordID]; ok && cur.EcoName == u.EcoName {
			m.links[u.DiscordID] = u
		}
		m.mu.Unlock()
	case domain.EventAccountLinkRemoved:
		u, ok := ev.First().(domain.LinkedUser)
		if !ok {
			return nil
		}
		// Only drop the entry the event describes; a relink may already have
		// replaced it.
		m.mu.Lock()
		if cur, ok := m.links[u.DiscordID]; ok && cur.Verified && cur.EcoName == u.EcoName {
			delete(m.links, u.DiscordID)
		}
		m.mu.Unlock()
	}
	return nil
}
