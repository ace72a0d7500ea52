package modules

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/infrastructure/config"
)

const currencyTag = "[Currencies]"

type CurrencyDisplay struct {
	display
}

func NewCurrencyDisplay(deps Deps) *CurrencyDisplay {
	m := &CurrencyDisplay{}
	m.display = display{
		base: base{
			name:     "Currency Display",
			kind:     KindCurrencyDisplay,
			triggers: displayBaseTriggers | domain.EventTimer | domain.EventCurrencyCreated,
		},
		deps:     deps,
		delay:    10 * time.Second,
		interval: time.Minute,
		targets: func(d config.Data) []domain.RemoteTarget {
			out := make([]domain.RemoteTarget, 0, len(d.CurrencyDisplayChannels))
			for _, c := range d.CurrencyDisplayChannels {
				out = append(out, c)
			}
			return out
		},
		render: m.content,
	}
	return m
}

func (m *CurrencyDisplay) content(t domain.RemoteTarget) []Content {
	cc, ok := t.(domain.CurrencyChannel)
	if !ok || m.deps.Game == nil {
		return nil
	}
	counts := map[int]int64{}
	if m.deps.Trades != nil {
		counts = m.deps.Trades.TradeCounts(context.Background())
	}

	var minted, personal []domain.Currency
	for _, c := range m.deps.Game.Currencies() {
		if c.Backed {
			minted = append(minted, c)
		} else {
			personal = append(personal, c)
		}
	}

	var out []Content
	out = append(out, currencyBlocks(minted, counts, cc.MaxMintedCount, "Minted")...)
	out = append(out, currencyBlocks(personal, counts, cc.MaxPersonalCount, "Personal")...)
	return out
}

// currencyBlocks orders by trade count, most traded first, ties by name.
func currencyBlocks(list []domain.Currency, counts map[int]int64, limit int, backing string) []Content {
	sort.SliceStable(list, func(i, j int) bool {
		ci, cj := counts[list[i].ID], counts[list[j].ID]
		if ci != cj {
			return ci > cj
		}
		return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
	})
	if limit < 0 {
		limit = 0
	}
	if len(list) > limit {
		list = list[:limit]
	}

	out := make([]Content, 0, len(list))
	for _, c := range list {
		var b strings.Builder
		fmt.Fprintf(&b, "**%s**\n", c.Name)
		fmt.Fprintf(&b, "Total trades: %d\n", counts[c.ID])
		fmt.Fprintf(&b, "Backing: %s", backing)
		if c.Creator != "" {
			fmt.Fprintf(&b, "\nCreator: %s", c.Creator)
		}
		out = append(out, Content{Tag: fmt.Sprintf("%s [%d]", currencyTag, c.ID), Text: b.String()})
	}
	return out
}
