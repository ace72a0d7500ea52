package events

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

// Stage orders listeners of one dispatch.
type Stage int

const (
	// StageStorage listeners persist state before anyone reads it.
	StageStorage Stage = iota
	// StageIdentity listeners keep account link status current.
	StageIdentity
	StageModules
	// StagePresence only sees PresenceTriggers.
	StagePresence

	stageCount
)

func (s Stage) String() string {
	switch s {
	case StageStorage:
		return "storage"
	case StageIdentity:
		return "identity"
	case StageModules:
		return "modules"
	case StagePresence:
		return "presence"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

const PresenceTriggers = domain.EventJoin | domain.EventLogin | domain.EventLogout | domain.EventTimer

type Listener interface {
	Name() string
	HandleEvent(ctx context.Context, ev domain.Event) error
}

type funcListener struct {
	name string
	fn   func(ctx context.Context, ev domain.Event) error
}

func (f funcListener) Name() string { return f.name }

func (f funcListener) HandleEvent(ctx context.Context, ev domain.Event) error {
	return f.fn(ctx, ev)
}

// ListenerFunc wraps fn as a named Listener.
func ListenerFunc(name string, fn func(ctx context.Context, ev domain.Event) error) Listener {
	return funcListener{name: name, fn: fn}
}

// Task tracks one dispatch.
type Task struct {
	Event domain.Event

	done chan struct{}
	mu   sync.Mutex
	err  error
}

func (t *Task) fail(err error) {
	t.mu.Lock()
	t.err = multierr.Append(t.err, err)
	t.mu.Unlock()
}

// Wait blocks until every stage ran or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns the listener failures of a finished task. They are already
// logged; callers only inspect them.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

type Dispatcher struct {
	bus   *Bus
	now   func() time.Time
	debug func() bool

	mu     sync.RWMutex
	stages [stageCount][]Listener

	inflight sync.WaitGroup
}

func NewDispatcher(bus *Bus) *Dispatcher {
	return &Dispatcher{bus: bus, now: time.Now}
}

// SetDebug makes every dispatch log its event while fn reports true.
func (d *Dispatcher) SetDebug(fn func() bool) {
	d.mu.Lock()
	d.debug = fn
	d.mu.Unlock()
}

func (d *Dispatcher) debugf(format string, args ...any) {
	d.mu.RLock()
	fn := d.debug
	d.mu.RUnlock()
	if fn != nil && fn() {
		log.Printf("events: "+format, args...)
	}
}

func (d *Dispatcher) Register(stage Stage, l Listener) {
	if l == nil || stage < 0 || stage >= stageCount {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stages[stage] = append(d.stages[stage], l)
}

// Dispatch hands an event to every stage in order on its own goroutine and
// returns immediately. Overlapping dispatches are not serialized.
func (d *Dispatcher) Dispatch(ctx context.Context, kind domain.EventKind, data ...any) *Task {
	if ctx == nil {
		ctx = context.Background()
	}

	task := &Task{
		Event: domain.Event{
			ID:   uuid.NewString(),
			Kind: kind,
			Data: data,
			At:   d.now(),
		},
		done: make(chan struct{}),
	}

	if !kind.Single() {
		task.fail(fmt.Errorf("events: dispatch: invalid event kind %s", kind))
		log.Printf("events: refusing to dispatch %s", kind)
		close(task.done)
		return task
	}

	d.debugf("dispatching %s (%s)", kind, task.Event.ID)
	if d.bus != nil {
		d.bus.Publish(TopicEvent, NewEventDTO(task.Event))
	}

	d.mu.RLock()
	var stages [stageCount][]Listener
	for i := range d.stages {
		stages[i] = append([]Listener(nil), d.stages[i]...)
	}
	d.mu.RUnlock()

	runCtx := context.WithoutCancel(ctx)
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		defer close(task.done)
		for stage, listeners := range stages {
			if Stage(stage) == StagePresence && !kind.Matches(PresenceTriggers) {
				continue
			}
			for _, l := range listeners {
				if err := d.invoke(runCtx, Stage(stage), l, task.Event); err != nil {
					task.fail(err)
				}
			}
		}
	}()

	return task
}

func (d *Dispatcher) invoke(ctx context.Context, stage Stage, l Listener, ev domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("events: %s listener %s panicked on %s: %v", stage, l.Name(), ev.Kind, r)
			log.Printf("%v\n%s", err, debug.Stack())
		}
	}()
	if err := l.HandleEvent(ctx, ev); err != nil {
		log.Printf("events: %s listener %s failed on %s: %v", stage, l.Name(), ev.Kind, err)
		return fmt.Errorf("events: %s: %w", l.Name(), err)
	}
	return nil
}

// Drain waits for every in-flight dispatch or until ctx is done.
func (d *Dispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
