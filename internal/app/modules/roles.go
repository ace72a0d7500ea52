package modules

import (
	"context"
	"fmt"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
)

// AccountLinkRoleModule grants the configured role to verified account links
// and takes it back when the link goes away.
type AccountLinkRoleModule struct {
	base
	deps Deps
}

func NewAccountLinkRoleModule(deps Deps) *AccountLinkRoleModule {
	return &AccountLinkRoleModule{
		base: base{
			name:     "Account Link Role Module",
			kind:     KindAccountLinkRole,
			triggers: domain.EventAccountLinkVerified | domain.EventAccountLinkRemoved,
		},
		deps: deps,
	}
}

func (m *AccountLinkRoleModule) ShouldRun() bool {
	return !m.deps.Config.Current().AccountLinkRole.Inert()
}

func (m *AccountLinkRoleModule) Update(ctx context.Context, ev domain.Event) error {
	user, ok := linkedUser(ev.First())
	if !ok || user.DiscordID == "" {
		return nil
	}
	if m.deps.Remote == nil || !m.deps.Remote.IsConnected() {
		return domain.ErrNotConnected
	}

	target := m.deps.Config.Current().AccountLinkRole
	guild, ok := m.deps.Remote.GuildByNameOrID(target.DiscordGuild)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrGuildNotFound, target.DiscordGuild)
	}

	var err error
	switch ev.Kind {
	case domain.EventAccountLinkVerified:
		err = m.deps.Remote.AddMemberRole(ctx, guild, user.DiscordID, target.Role)
	case domain.EventAccountLinkRemoved:
		err = m.deps.Remote.RemoveMemberRole(ctx, guild, user.DiscordID, target.Role)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("role %s for %s: %w", target.Role, user.DiscordID, err)
	}
	m.ops.Add(1)
	return nil
}

func linkedUser(v any) (domain.LinkedUser, bool) {
	switch u := v.(type) {
	case domain.LinkedUser:
		return u, true
	case *domain.LinkedUser:
		if u != nil {
			return *u, true
		}
	}
	return domain.LinkedUser{}, false
}
