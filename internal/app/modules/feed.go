package modules

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/infrastructure/config"
)

// feed posts one message per matching event to its configured channels.
type feed struct {
	base
	deps     Deps
	channels func(config.Data) []domain.FeedChannel
}

func newFeed(deps Deps, kind Kind, name string, triggers domain.EventKind, channels func(config.Data) []domain.FeedChannel) feed {
	return feed{
		base:     base{name: name, kind: kind, triggers: triggers},
		deps:     deps,
		channels: channels,
	}
}

func (f *feed) targets() []domain.FeedChannel {
	var out []domain.FeedChannel
	for _, c := range f.channels(f.deps.Config.Current()) {
		if !c.Inert() {
			c.Feed = f.name
			out = append(out, c)
		}
	}
	return out
}

func (f *feed) ShouldRun() bool {
	return len(f.targets()) > 0
}

// broadcast skips targets that do not resolve; they are reported by
// verification, not here.
func (f *feed) broadcast(ctx context.Context, text string) error {
	var errs error
	for _, t := range f.targets() {
		_, channel, err := resolveChannel(f.deps.Remote, t)
		if err != nil {
			continue
		}
		if _, err := f.deps.Remote.PostMessage(ctx, channel.ID, text); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", t.Identity(), err))
			continue
		}
		f.ops.Add(1)
	}
	return errs
}

type CraftingFeed struct{ feed }

func NewCraftingFeed(deps Deps) *CraftingFeed {
	return &CraftingFeed{feed: newFeed(deps, KindCraftingFeed, config.FeedCrafting, domain.EventWorkOrderCreated,
		func(d config.Data) []domain.FeedChannel { return d.CraftingFeedChannels })}
}

// createWorkOrder is the only crafting action announced; feeding materials to
// a blocked order reports other actions.
const createWorkOrder = "Create Work Order"

func (m *CraftingFeed) Update(ctx context.Context, ev domain.Event) error {
	wo, ok := ev.First().(domain.WorkOrder)
	if !ok || wo.Citizen == "" {
		return nil
	}
	if wo.Action != "" && wo.Action != createWorkOrder {
		return nil
	}
	item := wo.Item
	if wo.Count > 1 && wo.ItemPlural != "" {
		item = wo.ItemPlural
	}
	text := fmt.Sprintf("**%s** started crafting %d `%s` at %s.", wo.Citizen, wo.Count, item, wo.WorldObject)
	return m.broadcast(ctx, text)
}

type TradeFeed struct{ feed }

func NewTradeFeed(deps Deps) *TradeFeed {
	return &TradeFeed{feed: newFeed(deps, KindTradeFeed, config.FeedTrade, domain.EventTrade,
		func(d config.Data) []domain.FeedChannel { return d.TradeFeedChannels })}
}

func (m *TradeFeed) Update(ctx context.Context, ev domain.Event) error {
	tr, ok := ev.First().(domain.Trade)
	if !ok || tr.Citizen == "" {
		return nil
	}
	verb, prep := "sold", "to"
	if tr.Bought {
		verb, prep = "bought", "from"
	}
	what := ""
	if tr.Item != "" {
		what = fmt.Sprintf(" `%s`", tr.Item)
	}
	text := fmt.Sprintf("**%s** %s%s for %.2f %s %s %s.", tr.Citizen, verb, what, tr.Amount, tr.Currency, prep, tr.Store)
	return m.broadcast(ctx, text)
}

type PlayerStatusFeed struct{ feed }

func NewPlayerStatusFeed(deps Deps) *PlayerStatusFeed {
	return &PlayerStatusFeed{feed: newFeed(deps, KindPlayerStatusFeed, config.FeedPlayerStatus,
		domain.EventJoin|domain.EventLogin|domain.EventLogout,
		func(d config.Data) []domain.FeedChannel { return d.PlayerStatusFeedChannels })}
}

func (m *PlayerStatusFeed) Update(ctx context.Context, ev domain.Event) error {
	u, ok := ev.First().(domain.User)
	if !ok || u.Name == "" {
		return nil
	}
	var what string
	switch ev.Kind {
	case domain.EventJoin:
		what = "joined the server for the first time"
	case domain.EventLogin:
		what = "logged in"
	case domain.EventLogout:
		what = "logged out"
	default:
		return nil
	}
	return m.broadcast(ctx, fmt.Sprintf("**%s** %s.", u.Name, what))
}

type ElectionFeed struct{ feed }

func NewElectionFeed(deps Deps) *ElectionFeed {
	return &ElectionFeed{feed: newFeed(deps, KindElectionFeed, config.FeedElection,
		domain.EventElectionStarted|domain.EventElectionStopped,
		func(d config.Data) []domain.FeedChannel { return d.ElectionFeedChannels })}
}

func (m *ElectionFeed) Update(ctx context.Context, ev domain.Event) error {
	el, ok := ev.First().(domain.Election)
	if !ok || el.Name == "" {
		return nil
	}
	var text string
	switch ev.Kind {
	case domain.EventElectionStarted:
		text = fmt.Sprintf("Election started: **%s**", el.Name)
		if el.Proposer != "" {
			text += fmt.Sprintf(" (proposed by %s)", el.Proposer)
		}
	case domain.EventElectionStopped:
		text = fmt.Sprintf("Election finished: **%s**", el.Name)
		if el.Winner != "" {
			text += fmt.Sprintf(". Winner: %s", el.Winner)
		}
	default:
		return nil
	}
	return m.broadcast(ctx, text)
}
