package runtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/app"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/app/events"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/app/identity"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/app/modules"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/app/verification"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/infrastructure/config"
	sqlitestorage "github.com/Le-Village-ECO/EcoDiscordPlugin/internal/infrastructure/persistence/sqlite"
	discordadapter "github.com/Le-Village-ECO/EcoDiscordPlugin/internal/interface/adapters/discord"
	ws "github.com/Le-Village-ECO/EcoDiscordPlugin/internal/interface/api/ws"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/interface/outs"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/usecase/chatlog"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/usecase/presence"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/usecase/worlddata"
)

// ActivityInterval is how often the activity string is refreshed while
// connected.
const ActivityInterval = 60 * time.Second

var (
	ErrCannotRestart = errors.New("runtime: not in a state that allows restarting")
	ErrNotConnected  = errors.New("runtime: discord client not connected")
)

// RemoteSession is the Discord client the runtime drives.
type RemoteSession interface {
	domain.RemoteClient
	app.DiscordSession
	SetHandlers(h discordadapter.Handlers)
}

type Options struct {
	// Env defaults to the process environment.
	Env *config.Env
	// Discord defaults to a discordgo backed adapter.
	Discord RemoteSession
	// DisableServer skips listening for the game server.
	DisableServer bool
}

type Runtime struct {
	ctx    context.Context
	cancel context.CancelFunc
	env    *config.Env

	cfg          *config.Store
	store        *sqlitestorage.Store
	bus          *events.Bus
	dispatcher   *events.Dispatcher
	verifier     *verification.Verifier
	identity     *identity.Manager
	orchestrator *modules.Orchestrator
	chatlog      *chatlog.Logger
	tracker      *worlddata.Tracker
	activity     *presence.Activity
	discord      RemoteSession
	platform     *app.PlatformManager
	wsServer     *ws.Server
	multiOut     *outs.MultiSender
	wg           sync.WaitGroup

	statusMu sync.RWMutex
	status   Status

	// lifecycleMu serializes connect, disconnect and stop handling.
	lifecycleMu   sync.Mutex
	connected     bool
	serverStarted bool
	stopped       bool
	tickerCancel  context.CancelFunc

	restartMu  sync.Mutex
	canRestart bool
}

func Start(ctx context.Context, opts Options) (*Runtime, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	runtimeCtx, cancel := context.WithCancel(ctx)

	run := &Runtime{ctx: runtimeCtx, cancel: cancel}
	run.setStatus(StatusInitializingPlugin)

	env := opts.Env
	if env == nil {
		loaded, err := config.LoadEnv()
		if err != nil {
			cancel()
			return nil, err
		}
		env = loaded
	}
	run.env = env

	data, err := config.LoadFile(env.ConfigPath, config.Defaults(env.ChatlogDir))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("load config: %w", err)
	}
	run.cfg = config.NewStore(data,
		config.WithPath(env.ConfigPath),
		config.WithChatlogDir(env.ChatlogDir),
		config.WithTokenOverride(env.BotToken),
	)

	store, err := sqlitestorage.Open(env.DatabasePath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	run.store = store

	run.bus = events.NewBus()
	run.dispatcher = events.NewDispatcher(run.bus)
	run.dispatcher.SetDebug(run.cfg.Debug)
	run.multiOut = outs.NewMultiSender()

	run.discord = opts.Discord
	if run.discord == nil {
		run.discord = discordadapter.NewAdapter()
	}

	game := ws.NewGameState()

	run.chatlog = chatlog.NewLogger()
	run.chatlog.Apply(run.cfg.Current())
	run.cfg.RegisterHook(run.chatlog.OnConfigChange)

	run.tracker = worlddata.NewTracker(store)
	if err := run.tracker.Load(runtimeCtx); err != nil {
		log.Printf("runtime: world data not loaded: %v", err)
	}

	run.identity = identity.NewManager(store, run.dispatcher)
	run.activity = presence.NewActivity(game, run.discord)

	run.verifier = verification.New(run.cfg, run.discord, game, verification.Options{})
	run.verifier.RegisterHook(func(r verification.Report) {
		run.bus.Publish(events.TopicVerification, r.String())
	})
	run.cfg.RegisterVerifier(run.verifier.VerifyChanged)

	run.orchestrator = modules.NewOrchestrator()
	run.wsServer = ws.NewServer(ws.Config{
		Addr:       env.GameAddr,
		Token:      env.GameToken,
		Dispatcher: run.dispatcher,
		Links:      run.identity,
		Bus:        run.bus,
		State:      game,
		Displays:   run.orchestrator,
		Status:     run.StatusDTO,
	})
	run.multiOut.Register(domain.PlatformEco, run.wsServer)

	run.dispatcher.Register(events.StageStorage, run.verifier)
	run.dispatcher.Register(events.StageStorage, run.chatlog)
	run.dispatcher.Register(events.StageStorage, run.tracker)
	run.dispatcher.Register(events.StageIdentity, run.identity)
	run.dispatcher.Register(events.StageModules, run.orchestrator)
	run.dispatcher.Register(events.StagePresence, run.activity)

	run.platform = app.NewPlatformManager(app.ManagerConfig{
		Context:  runtimeCtx,
		Discord:  run.discord,
		MultiOut: run.multiOut,
	})
	run.cfg.RegisterHook(run.platform.HandleConfigChange)

	run.discord.SetHandlers(discordadapter.Handlers{
		OnConnected:    run.handleConnected,
		OnDisconnected: run.handleDisconnected,
		OnMessage: func(ctx context.Context, msg domain.ChatMessage) {
			run.dispatcher.Dispatch(ctx, domain.EventDiscordMessageSent, msg)
		},
	})

	if !opts.DisableServer {
		run.wg.Add(1)
		go func() {
			defer run.wg.Done()
			if err := run.wsServer.Start(runtimeCtx); err != nil {
				log.Printf("runtime: game bridge server error: %v", err)
			}
		}()
	}

	// The first pass normalizes the document read from disk and writes the
	// canonical form back.
	run.cfg.OnConfigChanged()

	run.setStatus(StatusAwaitingGuildDownload)
	token := run.cfg.Current().BotToken
	if strings.TrimSpace(token) == "" {
		log.Printf("runtime: failed to start: missing bot token")
		run.setStatus(StatusInitializationAborted)
	} else if err := run.platform.EnableDiscord(token); err != nil {
		log.Printf("runtime: failed to start discord: %v", err)
		run.setStatus(StatusInitializationAborted)
	}
	run.setCanRestart(true)

	log.Println("runtime: bridge started")
	return run, nil
}

func (r *Runtime) handleConnected() {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()
	if r.connected || r.stopped {
		return
	}
	r.connected = true
	first := !r.serverStarted
	if first {
		r.setStatus(StatusPostServerInit)
	}

	r.verifier.EnqueueFullVerification()

	r.setStatus(StatusInitializingModules)
	deps := modules.Deps{
		Config: r.cfg,
		Remote: r.discord,
		Game:   r.wsServer.State(),
		Out:    r.multiOut,
		Trades: r.tracker,
	}
	if err := r.orchestrator.Init(r.ctx, modules.Registry(deps)...); err != nil {
		log.Printf("runtime: %v", err)
	}

	tickerCtx, cancel := context.WithCancel(r.ctx)
	r.tickerCancel = cancel
	r.wg.Add(1)
	go r.runActivityTicker(tickerCtx)

	r.dispatcher.Dispatch(r.ctx, domain.EventDiscordClientConnected)
	r.setStatus(StatusConnected)
	log.Println("runtime: connection successful - bridge running")

	if first {
		if r.wsServer.State().ConsumeWorldReset() {
			r.dispatcher.Dispatch(r.ctx, domain.EventWorldReset)
		}
		r.dispatcher.Dispatch(r.ctx, domain.EventServerStarted)
		r.serverStarted = true
	}
	r.setCanRestart(true)
}

func (r *Runtime) handleDisconnected() {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()
	r.disconnectLocked()
	if !r.stopped {
		r.setStatus(StatusDisconnected)
	}
}

func (r *Runtime) disconnectLocked() {
	if !r.connected {
		return
	}
	r.connected = false

	if r.tickerCancel != nil {
		r.tickerCancel()
		r.tickerCancel = nil
	}

	r.setStatus(StatusShuttingDownModules)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.orchestrator.Shutdown(ctx); err != nil {
		log.Printf("runtime: %v", err)
	}
	r.dispatcher.Dispatch(r.ctx, domain.EventDiscordClientDisconnected)
}

func (r *Runtime) runActivityTicker(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(ActivityInterval)
	defer ticker.Stop()

	if err := r.activity.Refresh(ctx); err != nil {
		log.Printf("runtime: %v", err)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.activity.Refresh(ctx); err != nil {
				log.Printf("runtime: %v", err)
			}
		}
	}
}

// ForceUpdate re-evaluates every module and pushes a ForceUpdate event.
func (r *Runtime) ForceUpdate(ctx context.Context) error {
	if !r.discord.IsConnected() {
		return ErrNotConnected
	}
	r.orchestrator.HandleStartOrStopAll(ctx)
	r.dispatcher.Dispatch(ctx, domain.EventForceUpdate)
	log.Println("runtime: forced update")
	return nil
}

// Restart opens a fresh Discord session. It is refused while a previous
// start or restart is still settling.
func (r *Runtime) Restart() error {
	r.restartMu.Lock()
	if !r.canRestart {
		r.restartMu.Unlock()
		return ErrCannotRestart
	}
	r.canRestart = false
	r.restartMu.Unlock()

	log.Println("runtime: restarting discord session")
	err := r.platform.Restart()
	if err != nil {
		r.setStatus(StatusServerConnectionFailed)
	}
	r.setCanRestart(true)
	return err
}

func (r *Runtime) CanRestart() bool {
	r.restartMu.Lock()
	defer r.restartMu.Unlock()
	return r.canRestart
}

func (r *Runtime) setCanRestart(v bool) {
	r.restartMu.Lock()
	r.canRestart = v
	r.restartMu.Unlock()
}

// Reload re-reads the configuration document.
func (r *Runtime) Reload() error {
	return r.cfg.Reload()
}

func (r *Runtime) Stop() error {
	if r == nil {
		return nil
	}
	r.lifecycleMu.Lock()
	if r.stopped {
		r.lifecycleMu.Unlock()
		return nil
	}
	r.stopped = true
	r.setStatus(StatusShuttingDownPlugin)
	r.lifecycleMu.Unlock()

	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.dispatcher.Dispatch(r.ctx, domain.EventServerStopped).Wait(waitCtx); err != nil {
		log.Printf("runtime: server stopped event: %v", err)
	}

	r.platform.Shutdown()

	r.lifecycleMu.Lock()
	r.disconnectLocked()
	r.lifecycleMu.Unlock()

	r.verifier.DequeueAll()
	if err := r.dispatcher.Drain(waitCtx); err != nil {
		log.Printf("runtime: events still in flight: %v", err)
	}

	r.cancel()
	r.wg.Wait()
	r.bus.Close()

	var errs []error
	if err := r.chatlog.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := r.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r *Runtime) setStatus(s Status) {
	r.statusMu.Lock()
	prev := r.status
	r.status = s
	r.statusMu.Unlock()
	if prev != s {
		log.Printf("runtime: status changed from %q to %q", prev, s)
	}
	if r.bus != nil {
		r.bus.Publish(events.TopicStatus, events.NewStatusDTO(s.String(), s.Description()))
	}
}

func (r *Runtime) Status() Status {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()
	return r.status
}

func (r *Runtime) StatusDTO() events.StatusDTO {
	s := r.Status()
	return events.NewStatusDTO(s.String(), s.Description())
}

func (r *Runtime) Config() *config.Store { return r.cfg }
func (r *Runtime) Bus() *events.Bus { return r.bus }
func (r *Runtime) Dispatcher() *events.Dispatcher { return r.dispatcher }
func (r *Runtime) Verifier() *verification.Verifier { return r.verifier }
func (r *Runtime) Identity() *identity.Manager { return r.identity }
func (r *Runtime) Orchestrator() *modules.Orchestrator { return r.orchestrator }
func (r *Runtime) GameServer() *ws.Server { return r.wsServer }
