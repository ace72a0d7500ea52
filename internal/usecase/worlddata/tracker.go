package worlddata

import (
	"context"
	"fmt"
	"log"
	"maps"
	"sync"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
)

// Tracker counts trades per currency for the lifetime of a world.
type Tracker struct {
	repo domain.WorldDataRepository

	mu     sync.RWMutex
	counts map[int]int64
}

func NewTracker(repo domain.WorldDataRepository) *Tracker {
	return &Tracker{repo: repo, counts: make(map[int]int64)}
}

func (t *Tracker) Name() string { return "worlddata" }

// Load fills the in-memory counters from the repository.
func (t *Tracker) Load(ctx context.Context) error {
	recs, err := t.repo.ListTradeCounts(ctx)
	if err != nil {
		return fmt.Errorf("worlddata: load: %w", err)
	}
	counts := make(map[int]int64, len(recs))
	for _, r := range recs {
		counts[r.CurrencyID] = r.Count
	}
	t.mu.Lock()
	t.counts = counts
	t.mu.Unlock()
	return nil
}

// TradeCounts returns a copy of the counters keyed by currency ID.
func (t *Tracker) TradeCounts(context.Context) map[int]int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.counts)
}

func (t *Tracker) HandleEvent(ctx context.Context, ev domain.Event) error {
	switch ev.Kind {
	case domain.EventTrade:
		trade, ok := ev.First().(domain.Trade)
		if !ok {
			return nil
		}
		if err := t.repo.IncrementTradeCount(ctx, trade.CurrencyID, trade.Currency); err != nil {
			return fmt.Errorf("worlddata: trade: %w", err)
		}
		t.mu.Lock()
		t.counts[trade.CurrencyID]++
		t.mu.Unlock()

	case domain.EventCurrencyCreated:
		cur, ok := ev.First().(domain.Currency)
		if !ok {
			return nil
		}
		t.mu.Lock()
		if _, known := t.counts[cur.ID]; !known {
			t.counts[cur.ID] = 0
		}
		t.mu.Unlock()

	case domain.EventWorldReset:
		if err := t.repo.ResetWorldData(ctx); err != nil {
			return fmt.Errorf("worlddata: reset: %w", err)
		}
		t.mu.Lock()
		t.counts = make(map[int]int64)
		t.mu.Unlock()
		log.Printf("worlddata: world data reset")
	}
	return nil
}
