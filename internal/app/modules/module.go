// Package modules hosts the reactive units that render displays, relay feeds
// and manage roles in response to dispatched events.
package modules

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/infrastructure/config"
)

// Kind keys the module registry.
type Kind string

const (
	KindServerInfoDisplay Kind = "server_info_display"
	KindCurrencyDisplay   Kind = "currency_display"
	KindEcoChatFeed       Kind = "eco_chat_feed"
	KindDiscordChatFeed   Kind = "discord_chat_feed"
	KindCraftingFeed      Kind = "crafting_feed"
	KindTradeFeed         Kind = "trade_feed"
	KindPlayerStatusFeed  Kind = "player_status_feed"
	KindElectionFeed      Kind = "election_feed"
	KindAccountLinkRole   Kind = "account_link_role"
)

// Module is one independently lifecycled unit. The orchestrator never calls
// two methods of the same module concurrently.
type Module interface {
	fmt.Stringer
	Kind() Kind
	// Triggers is the static set of event kinds the module reacts to.
	Triggers() domain.EventKind
	Setup()
	ShouldRun() bool
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Destroy()
	Update(ctx context.Context, ev domain.Event) error
}

// Ticker modules receive Timer events on their own schedule.
type Ticker interface {
	TimerSchedule() (delay, interval time.Duration)
}

// Content is one tagged block of display output.
type Content struct {
	Tag  string `json:"tag"`
	Text string `json:"text"`
}

// Render joins tag and text the way the block is posted.
func (c Content) Render() string {
	if c.Text == "" {
		return c.Tag
	}
	return c.Tag + "\n" + c.Text
}

type DisplayModule interface {
	Module
	DisplayTargets() []domain.RemoteTarget
	DisplayContent(target domain.RemoteTarget) []Content
}

// ConfigSource is the configuration view modules read from.
type ConfigSource interface {
	Current() config.Data
	ChatLinksForDiscordChannel(guild domain.Guild, channel domain.Channel) []domain.ChannelLink
	ChatLinksForEcoChannel(ecoChannel string) []domain.ChannelLink
}

// TradeCounter exposes the persisted number of trades per currency ID.
type TradeCounter interface {
	TradeCounts(ctx context.Context) map[int]int64
}

// Deps are the collaborators shared by every module.
type Deps struct {
	Config ConfigSource
	Remote domain.RemoteClient
	Game   domain.GameServer
	Out    domain.OutgoingMessagePort
	Trades TradeCounter
	Now    func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// base carries identity and no-op lifecycle steps.
type base struct {
	name     string
	kind     Kind
	triggers domain.EventKind
	ops      atomic.Int64
}

func (b *base) String() string              { return b.name }
func (b *base) Kind() Kind                  { return b.kind }
func (b *base) Triggers() domain.EventKind  { return b.triggers }
func (b *base) Setup()                      {}
func (b *base) Start(context.Context) error { return nil }
func (b *base) Stop(context.Context) error  { return nil }
func (b *base) Destroy()                    {}

// Ops is the number of remote operations performed so far.
func (b *base) Ops() int64 { return b.ops.Load() }

// resolveChannel looks the target up in the live topology.
func resolveChannel(topo domain.Topology, t domain.RemoteTarget) (domain.Guild, domain.Channel, error) {
	if topo == nil || !topo.IsConnected() {
		return domain.Guild{}, domain.Channel{}, domain.ErrNotConnected
	}
	guild, ok := topo.GuildByNameOrID(t.GuildRef())
	if !ok {
		return domain.Guild{}, domain.Channel{}, fmt.Errorf("%w: %s", domain.ErrGuildNotFound, t.GuildRef())
	}
	channel, ok := topo.ChannelByNameOrID(guild, t.ChannelRef())
	if !ok {
		return guild, domain.Channel{}, fmt.Errorf("%w: %s", domain.ErrChannelNotFound, t.ChannelRef())
	}
	return guild, channel, nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// neutralizeMassMentions keeps relayed text from pinging whole servers.
func neutralizeMassMentions(text string) string {
	text = strings.ReplaceAll(text, "@everyone", "@\u200beveryone")
	return strings.ReplaceAll(text, "@here", "@\u200bhere")
}
