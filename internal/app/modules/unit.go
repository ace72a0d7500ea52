package modules

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
)

type jobKind int

const (
	jobStartStop jobKind = iota
	jobEvent
	jobBarrier
)

type job struct {
	kind jobKind
	ev   domain.Event
	ack  chan struct{}
}

// unit serializes every call into one module through a single goroutine fed
// by an unbounded queue, so producers never block on a slow module.
type unit struct {
	module Module

	mu     sync.Mutex
	queue  []job
	closed bool
	wake   chan struct{}
	done   chan struct{}

	running  bool
	stopTick context.CancelFunc
}

func newUnit(m Module) *unit {
	return &unit{
		module: m,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (u *unit) push(j job) bool {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return false
	}
	u.queue = append(u.queue, j)
	u.mu.Unlock()

	select {
	case u.wake <- struct{}{}:
	default:
	}
	return true
}

func (u *unit) pop() (job, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.queue) == 0 {
		return job{}, false
	}
	j := u.queue[0]
	u.queue[0] = job{}
	u.queue = u.queue[1:]
	return j, true
}

// close stops intake. Queued jobs are discarded; barriers are released.
func (u *unit) close() {
	u.mu.Lock()
	u.closed = true
	pending := u.queue
	u.queue = nil
	u.mu.Unlock()
	for _, j := range pending {
		if j.ack != nil {
			close(j.ack)
		}
	}
	select {
	case u.wake <- struct{}{}:
	default:
	}
}

func (u *unit) isClosed() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.closed
}

func (u *unit) loop(ctx context.Context) {
	defer close(u.done)
	for {
		j, ok := u.pop()
		if !ok {
			if u.isClosed() {
				u.stopTicker()
				return
			}
			<-u.wake
			continue
		}
		u.run(ctx, j)
	}
}

func (u *unit) run(ctx context.Context, j job) {
	switch j.kind {
	case jobBarrier:
		close(j.ack)
	case jobStartStop:
		u.startOrStop(ctx)
	case jobEvent:
		u.startOrStop(ctx)
		if !u.running {
			return
		}
		if err := u.call("update", func() error { return u.module.Update(ctx, j.ev) }); err != nil {
			log.Printf("modules: %v", err)
		}
	}
}

func (u *unit) startOrStop(ctx context.Context) {
	var should bool
	if err := u.call("should-run check", func() error {
		should = u.module.ShouldRun()
		return nil
	}); err != nil {
		log.Printf("modules: %v", err)
		return
	}

	switch {
	case should && !u.running:
		if err := u.call("start", func() error { return u.module.Start(ctx) }); err != nil {
			log.Printf("modules: %v", err)
			return
		}
		u.running = true
		u.startTicker(ctx)
		log.Printf("modules: %s started", u.module)
	case !should && u.running:
		u.stopTicker()
		u.running = false
		if err := u.call("stop", func() error { return u.module.Stop(ctx) }); err != nil {
			log.Printf("modules: %v", err)
		}
		log.Printf("modules: %s stopped", u.module)
	}
}

// wait reports whether the loop exited before ctx expired.
func (u *unit) wait(ctx context.Context) bool {
	select {
	case <-u.done:
		return true
	default:
	}
	select {
	case <-u.done:
		return true
	case <-ctx.Done():
		return false
	}
}

// finalizeStop must only run once the loop has exited.
func (u *unit) finalizeStop(ctx context.Context) error {
	u.stopTicker()
	err := u.call("stop", func() error { return u.module.Stop(ctx) })
	u.running = false
	return err
}

func (u *unit) finalizeDestroy() error {
	return u.call("destroy", func() error { u.module.Destroy(); return nil })
}

func (u *unit) finalizeWhenDone() {
	<-u.done
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := multierr.Append(u.finalizeStop(ctx), u.finalizeDestroy()); err != nil {
		log.Printf("modules: late shutdown: %v", err)
	}
}

func (u *unit) startTicker(ctx context.Context) {
	t, ok := u.module.(Ticker)
	if !ok {
		return
	}
	delay, interval := t.TimerSchedule()
	if interval <= 0 {
		return
	}
	tickCtx, cancel := context.WithCancel(ctx)
	u.stopTick = cancel

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-tickCtx.Done():
			return
		case <-timer.C:
		}
		u.push(timerJob())

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-tickCtx.Done():
				return
			case <-ticker.C:
				u.push(timerJob())
			}
		}
	}()
}

func (u *unit) stopTicker() {
	if u.stopTick != nil {
		u.stopTick()
		u.stopTick = nil
	}
}

func timerJob() job {
	return job{kind: jobEvent, ev: domain.Event{ID: uuid.NewString(), Kind: domain.EventTimer, At: time.Now()}}
}

// call runs fn and turns a panic into an error naming the module.
func (u *unit) call(step string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s of %s panicked: %v\n%s", step, u.module, r, debug.Stack())
		}
	}()
	if err := fn(); err != nil {
		return fmt.Errorf("%s of %s failed: %w", step, u.module, err)
	}
	return nil
}
