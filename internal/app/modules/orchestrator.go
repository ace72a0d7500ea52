package modules

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"go.uber.org/multierr"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
)

var ErrAlreadyInitialized = errors.New("modules: orchestrator already initialized")

// Orchestrator owns the module registry between a remote connection and its
// loss.
type Orchestrator struct {
	mu     sync.RWMutex
	units  map[Kind]*unit
	order  []Kind
	cancel context.CancelFunc
}

func NewOrchestrator() *Orchestrator {
	return &Orchestrator{}
}

func (o *Orchestrator) Name() string { return "modules" }

// Init runs Setup for every module, then schedules their first
// start-or-stop evaluation.
func (o *Orchestrator) Init(ctx context.Context, mods ...Module) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.units != nil {
		return ErrAlreadyInitialized
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	o.cancel = cancel
	o.units = make(map[Kind]*unit, len(mods))
	o.order = nil

	for _, m := range mods {
		if m == nil {
			continue
		}
		if _, dup := o.units[m.Kind()]; dup {
			log.Printf("modules: duplicate module kind %s ignored", m.Kind())
			continue
		}
		u := newUnit(m)
		if err := u.call("setup", func() error { m.Setup(); return nil }); err != nil {
			log.Printf("modules: %v", err)
		}
		o.units[m.Kind()] = u
		o.order = append(o.order, m.Kind())
	}

	for _, k := range o.order {
		u := o.units[k]
		go u.loop(runCtx)
		u.push(job{kind: jobStartStop})
	}
	return nil
}

// HandleStartOrStopAll re-evaluates ShouldRun for every module.
func (o *Orchestrator) HandleStartOrStopAll(context.Context) {
	for _, u := range o.snapshot() {
		u.push(job{kind: jobStartStop})
	}
}

// Update queues ev for every module whose trigger mask matches it.
func (o *Orchestrator) Update(_ context.Context, ev domain.Event) {
	for _, u := range o.snapshot() {
		if !ev.Kind.Matches(u.module.Triggers()) {
			continue
		}
		u.push(job{kind: jobEvent, ev: ev})
	}
}

// HandleEvent lets the orchestrator sit in the dispatcher's module stage.
func (o *Orchestrator) HandleEvent(ctx context.Context, ev domain.Event) error {
	o.Update(ctx, ev)
	return nil
}

// Sync waits until every job queued before the call has been processed.
func (o *Orchestrator) Sync(ctx context.Context) error {
	var acks []chan struct{}
	for _, u := range o.snapshot() {
		ack := make(chan struct{})
		if u.push(job{kind: jobBarrier, ack: ack}) {
			acks = append(acks, ack)
		}
	}
	for _, ack := range acks {
		select {
		case <-ack:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Shutdown stops intake, then calls Stop and Destroy on every module. Every
// step runs even when an earlier one failed. A module still busy when ctx
// expires is left to its own goroutine and finalized once its job returns.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	units := o.units
	order := o.order
	cancel := o.cancel
	o.units = nil
	o.order = nil
	o.cancel = nil
	o.mu.Unlock()

	if units == nil {
		return nil
	}

	for _, k := range order {
		units[k].close()
	}

	var errs error
	idle := make([]*unit, 0, len(order))
	for _, k := range order {
		u := units[k]
		if !u.wait(ctx) {
			log.Printf("modules: shutdown: %s did not finish its current job", u.module)
			errs = multierr.Append(errs, fmt.Errorf("%s still busy: %w", u.module, ctx.Err()))
			go u.finalizeWhenDone()
			continue
		}
		idle = append(idle, u)
	}

	for _, u := range idle {
		errs = multierr.Append(errs, u.finalizeStop(ctx))
	}
	for _, u := range idle {
		errs = multierr.Append(errs, u.finalizeDestroy())
	}
	if cancel != nil {
		cancel()
	}

	if errs != nil {
		log.Printf("modules: shutdown finished with errors: %v", errs)
		return fmt.Errorf("modules: shutdown: %w", errs)
	}
	return nil
}

func (o *Orchestrator) Initialized() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.units != nil
}

func (o *Orchestrator) Module(kind Kind) (Module, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	u, ok := o.units[kind]
	if !ok {
		return nil, false
	}
	return u.module, true
}

func (o *Orchestrator) Kinds() []Kind {
	o.mu.RLock()
	out := append([]Kind(nil), o.order...)
	o.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Displays returns the registered display modules in registration order.
func (o *Orchestrator) Displays() []DisplayModule {
	var out []DisplayModule
	for _, u := range o.snapshot() {
		if d, ok := u.module.(DisplayModule); ok {
			out = append(out, d)
		}
	}
	return out
}

func (o *Orchestrator) snapshot() []*unit {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]*unit, 0, len(o.order))
	for _, k := range o.order {
		out = append(out, o.units[k])
	}
	return out
}
