package modules

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
)

type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, s)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

type testModule struct {
	base
	log       *journal
	run       atomic.Bool
	updates   atomic.Int32
	inFlight  atomic.Int32
	overlap   atomic.Bool
	updateErr error
	panicOn   string
	slow      time.Duration
	block     chan struct{}
}

func newTestModule(kind Kind, triggers domain.EventKind, log *journal) *testModule {
	m := &testModule{base: base{name: string(kind), kind: kind, triggers: triggers}, log: log}
	m.run.Store(true)
	return m
}

func (m *testModule) maybePanic(step string) {
	if m.panicOn == step {
		panic(step + " exploded")
	}
}

func (m *testModule) Setup() {
	m.log.add("setup:" + m.name)
	m.maybePanic("setup")
}

func (m *testModule) ShouldRun() bool { return m.run.Load() }

func (m *testModule) Start(context.Context) error {
	m.log.add("start:" + m.name)
	return nil
}

func (m *testModule) Stop(context.Context) error {
	m.log.add("stop:" + m.name)
	m.maybePanic("stop")
	return nil
}

func (m *testModule) Destroy() {
	m.log.add("destroy:" + m.name)
}

func (m *testModule) Update(context.Context, domain.Event) error {
	if m.inFlight.Add(1) > 1 {
		m.overlap.Store(true)
	}
	defer m.inFlight.Add(-1)
	if m.slow > 0 {
		time.Sleep(m.slow)
	}
	if m.block != nil {
		<-m.block
	}
	m.updates.Add(1)
	m.maybePanic("update")
	return m.updateErr
}

func syncAll(t *testing.T, o *Orchestrator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, o.Sync(ctx))
}

func TestOrchestrator_TriggerMaskFiltersUpdates(t *testing.T) {
	log := &journal{}
	trades := newTestModule("trades", domain.EventTrade, log)
	o := NewOrchestrator()
	require.NoError(t, o.Init(context.Background(), trades))
	defer o.Shutdown(context.Background())

	o.Update(context.Background(), domain.Event{Kind: domain.EventVote})
	syncAll(t, o)
	assert.Zero(t, trades.updates.Load())

	o.Update(context.Background(), domain.Event{Kind: domain.EventTrade})
	syncAll(t, o)
	assert.EqualValues(t, 1, trades.updates.Load())
}

func TestOrchestrator_FailingModuleDoesNotBlockOthers(t *testing.T) {
	log := &journal{}
	bad := newTestModule("bad", domain.EventTrade, log)
	bad.panicOn = "update"
	failing := newTestModule("failing", domain.EventTrade, log)
	failing.updateErr = errors.New("nope")
	good := newTestModule("good", domain.EventTrade, log)

	o := NewOrchestrator()
	require.NoError(t, o.Init(context.Background(), bad, failing, good))
	defer o.Shutdown(context.Background())

	o.Update(context.Background(), domain.Event{Kind: domain.EventTrade})
	o.Update(context.Background(), domain.Event{Kind: domain.EventTrade})
	syncAll(t, o)

	assert.EqualValues(t, 2, bad.updates.Load())
	assert.EqualValues(t, 2, good.updates.Load())
}

func TestOrchestrator_SetupRunsBeforeStart(t *testing.T) {
	log := &journal{}
	a := newTestModule("a", domain.EventTrade, log)
	b := newTestModule("b", domain.EventTrade, log)
	b.panicOn = "setup"

	o := NewOrchestrator()
	require.NoError(t, o.Init(context.Background(), a, b))
	defer o.Shutdown(context.Background())
	syncAll(t, o)

	entries := log.list()
	require.Len(t, entries, 4)
	assert.Equal(t, []string{"setup:a", "setup:b"}, entries[:2])
	assert.ElementsMatch(t, []string{"start:a", "start:b"}, entries[2:])
}

func TestOrchestrator_ShouldRunIsReevaluated(t *testing.T) {
	log := &journal{}
	m := newTestModule("late", domain.EventTrade, log)
	m.run.Store(false)

	o := NewOrchestrator()
	require.NoError(t, o.Init(context.Background(), m))
	defer o.Shutdown(context.Background())

	o.Update(context.Background(), domain.Event{Kind: domain.EventTrade})
	syncAll(t, o)
	assert.Zero(t, m.updates.Load(), "not running modules are not updated")

	m.run.Store(true)
	o.Update(context.Background(), domain.Event{Kind: domain.EventTrade})
	syncAll(t, o)
	assert.EqualValues(t, 1, m.updates.Load())

	m.run.Store(false)
	o.HandleStartOrStopAll(context.Background())
	syncAll(t, o)
	assert.Contains(t, log.list(), "stop:late")
}

func TestOrchestrator_UpdatesAreSerializedPerModule(t *testing.T) {
	log := &journal{}
	m := newTestModule("serial", domain.EventTrade, log)
	m.slow = time.Millisecond

	o := NewOrchestrator()
	require.NoError(t, o.Init(context.Background(), m))
	defer o.Shutdown(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.Update(context.Background(), domain.Event{Kind: domain.EventTrade})
		}()
	}
	wg.Wait()
	syncAll(t, o)

	assert.EqualValues(t, 20, m.updates.Load())
	assert.False(t, m.overlap.Load())
}

func TestOrchestrator_ShutdownIsTwoPhaseAndTolerant(t *testing.T) {
	log := &journal{}
	a := newTestModule("a", domain.EventTrade, log)
	a.panicOn = "stop"
	b := newTestModule("b", domain.EventTrade, log)

	o := NewOrchestrator()
	require.NoError(t, o.Init(context.Background(), a, b))
	syncAll(t, o)

	err := o.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop of a panicked")

	entries := log.list()
	assert.Equal(t, []string{"stop:a", "stop:b", "destroy:a", "destroy:b"}, entries[len(entries)-4:])
	assert.False(t, o.Initialized())
	assert.NoError(t, o.Shutdown(context.Background()))

	o.Update(context.Background(), domain.Event{Kind: domain.EventTrade})
	assert.Zero(t, b.updates.Load())
}

func TestOrchestrator_ShutdownLeavesBusyModuleAlone(t *testing.T) {
	log := &journal{}
	busy := newTestModule("busy", domain.EventTrade, log)
	busy.block = make(chan struct{})
	idle := newTestModule("idle", domain.EventTrade, log)

	o := NewOrchestrator()
	require.NoError(t, o.Init(context.Background(), busy, idle))
	syncAll(t, o)

	o.Update(context.Background(), domain.Event{Kind: domain.EventTrade})
	require.Eventually(t, func() bool { return busy.inFlight.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := o.Shutdown(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	entries := log.list()
	assert.Contains(t, entries, "stop:idle")
	assert.Contains(t, entries, "destroy:idle")
	assert.NotContains(t, entries, "stop:busy")
	assert.NotContains(t, entries, "destroy:busy")

	close(busy.block)
	require.Eventually(t, func() bool {
		entries := log.list()
		return len(entries) >= 2 &&
			entries[len(entries)-2] == "stop:busy" && entries[len(entries)-1] == "destroy:busy"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestOrchestrator_InitTwice(t *testing.T) {
	o := NewOrchestrator()
	require.NoError(t, o.Init(context.Background()))
	assert.ErrorIs(t, o.Init(context.Background()), ErrAlreadyInitialized)
	require.NoError(t, o.Shutdown(context.Background()))
	assert.NoError(t, o.Init(context.Background()))
}

func TestOrchestrator_RegistryLookups(t *testing.T) {
	log := &journal{}
	o := NewOrchestrator()
	require.NoError(t, o.Init(context.Background(),
		newTestModule("b", domain.EventTrade, log),
		newTestModule("a", domain.EventTrade, log),
		newTestModule("a", domain.EventVote, log),
	))
	defer o.Shutdown(context.Background())

	assert.Equal(t, []Kind{"a", "b"}, o.Kinds())
	m, ok := o.Module("a")
	require.True(t, ok)
	assert.Equal(t, domain.EventTrade, m.Triggers())
	_, ok = o.Module("missing")
	assert.False(t, ok)
}
