// Package verification checks that the configured remote targets resolve
// against the live remote topology.
package verification

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/infrastructure/config"
)

const (
	DefaultTimeout     = 15 * time.Second
	DefaultStaticDelay = 2 * time.Second
	DefaultGuildDelay  = 3 * time.Second
)

type Flags uint8

const (
	Static Flags = 1 << iota
	ChannelLinks

	All = Static | ChannelLinks
)

type State int

const (
	Idle State = iota
	PendingStatic
	PendingChannelLinks
	Verified
	PartiallyVerified
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PendingStatic:
		return "pending-static"
	case PendingChannelLinks:
		return "pending-channel-links"
	case Verified:
		return "verified"
	case PartiallyVerified:
		return "partially-verified"
	default:
		return "unknown"
	}
}

// ConfigSource hands out copies of the live configuration.
type ConfigSource interface {
	Current() config.Data
}

type Options struct {
	Timeout     time.Duration
	StaticDelay time.Duration
	GuildDelay  time.Duration
	AfterFunc   AfterFunc
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.StaticDelay <= 0 {
		o.StaticDelay = DefaultStaticDelay
	}
	if o.GuildDelay <= 0 {
		o.GuildDelay = DefaultGuildDelay
	}
	if o.AfterFunc == nil {
		o.AfterFunc = realAfterFunc
	}
	return o
}

type ReportHook func(Report)

type Verifier struct {
	cfg   ConfigSource
	topo  domain.Topology
	users domain.UserDirectory
	opts  Options

	mu       sync.Mutex
	state    State
	verified map[string]struct{}
	order    []string
	timeout  slot
	static   slot
	guild    slot

	hooksMu sync.RWMutex
	hooks   []ReportHook
}

func New(cfg ConfigSource, topo domain.Topology, users domain.UserDirectory, opts Options) *Verifier {
	return &Verifier{
		cfg:      cfg,
		topo:     topo,
		users:    users,
		opts:     opts.withDefaults(),
		verified: make(map[string]struct{}),
		timeout:  slot{name: "timeout"},
		static:   slot{name: "static"},
		guild:    slot{name: "guild"},
	}
}

func (v *Verifier) Name() string { return "verification" }

func (v *Verifier) RegisterHook(h ReportHook) {
	if h == nil {
		return
	}
	v.hooksMu.Lock()
	defer v.hooksMu.Unlock()
	v.hooks = append(v.hooks, h)
}

func (v *Verifier) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Verified returns the verified identities in the order they were added.
func (v *Verifier) Verified() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.order...)
}

// EnqueueFullVerification opens the timeout window and schedules the static
// pass.
func (v *Verifier) EnqueueFullVerification() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.timeout.arm(&v.mu, v.opts.AfterFunc, v.opts.Timeout, v.onTimeout)
	v.static.arm(&v.mu, v.opts.AfterFunc, v.opts.StaticDelay, func() { v.VerifyConfig(Static) })
	v.state = PendingStatic
}

// VerifyChanged is the config store's verification callback. It runs every
// pass at once while the remote client is connected; otherwise the next
// connection verifies.
func (v *Verifier) VerifyChanged() {
	if v.topo == nil || !v.topo.IsConnected() {
		return
	}
	v.VerifyConfig(All)
}

// EnqueueGuildVerification schedules the channel-link pass, leaving time for
// the remote topology cache to fill.
func (v *Verifier) EnqueueGuildVerification() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.guild.arm(&v.mu, v.opts.AfterFunc, v.opts.GuildDelay, func() { v.VerifyConfig(ChannelLinks) })
	if v.state != PendingStatic {
		v.state = PendingChannelLinks
	}
}

func (v *Verifier) DequeueAll() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dequeueLocked()
}

func (v *Verifier) dequeueLocked() {
	v.timeout.cancel()
	v.static.cancel()
	v.guild.cancel()
}

func (v *Verifier) ClearVerified() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.clearLocked()
}

func (v *Verifier) clearLocked() {
	v.verified = make(map[string]struct{})
	v.order = nil
}

// Reset drops every pending timer and the verified set.
func (v *Verifier) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dequeueLocked()
	v.clearLocked()
	v.state = Idle
}

// HandleEvent reacts to remote connection changes.
func (v *Verifier) HandleEvent(_ context.Context, ev domain.Event) error {
	switch ev.Kind {
	case domain.EventDiscordClientConnected:
		v.EnqueueGuildVerification()
	case domain.EventDiscordClientDisconnected:
		v.Reset()
	}
	return nil
}

// VerifyConfig runs the requested passes immediately and reports the result.
// It never panics to the caller.
func (v *Verifier) VerifyConfig(flags Flags) (report Report) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("verification: pass panicked: %v", r)
		}
	}()

	data := v.cfg.Current()
	report.Flags = flags
	switch {
	case v.topo == nil:
		// Offline check, no remote platform involved.
		report.Flags &^= ChannelLinks
	case !v.topo.IsConnected():
		report.StaticErrors = append(report.StaticErrors, "[General Verification] No Discord client connected.")
		report.Flags &^= ChannelLinks
	}

	if flags&Static != 0 {
		report.StaticErrors = append(report.StaticErrors, v.staticErrors(data)...)
		if len(report.StaticErrors) == 0 {
			log.Printf("verification: static configuration verification completed without errors")
		} else {
			log.Printf("verification: static configuration errors detected!\n%s", strings.Join(report.StaticErrors, "\n"))
		}
	}

	v.mu.Lock()
	if flags&Static != 0 && v.state == PendingStatic {
		v.state = PendingChannelLinks
	}
	var newly []string
	if report.Flags&ChannelLinks != 0 {
		targets := data.ActiveTargets()
		for _, t := range targets {
			if !v.resolves(t) {
				continue
			}
			id := t.Identity()
			if _, ok := v.verified[id]; ok {
				continue
			}
			v.verified[id] = struct{}{}
			v.order = append(v.order, id)
			newly = append(newly, id)
		}
		report.Unverified = v.unverifiedLocked(targets)
		report.FullyVerified = len(v.verified) >= len(targets)
		switch {
		case report.FullyVerified:
			v.timeout.cancel()
			v.state = Verified
		case v.timeout.armed():
			report.Pending = true
			v.state = PendingChannelLinks
		default:
			v.state = PartiallyVerified
		}
	}
	report.Verified = append([]string(nil), v.order...)
	v.mu.Unlock()

	for _, id := range newly {
		log.Printf("verification: Channel Link Verified: %s", id)
	}
	if report.Flags&ChannelLinks != 0 {
		switch {
		case report.FullyVerified:
			log.Printf("verification: all channel links successfully verified")
		case !report.Pending && len(report.Unverified) > 0:
			log.Printf("verification: unverified channels detected:\n%s", strings.Join(report.Unverified, "\n"))
		}
	}

	v.notify(report)
	return report
}

func (v *Verifier) onTimeout() {
	data := v.cfg.Current()
	targets := data.ActiveTargets()

	v.mu.Lock()
	report := Report{Timeout: true}
	report.Verified = append([]string(nil), v.order...)
	report.FullyVerified = len(v.verified) >= len(targets)
	if !report.FullyVerified {
		report.Unverified = v.unverifiedLocked(targets)
		v.state = PartiallyVerified
	} else {
		v.state = Verified
	}
	v.clearLocked()
	v.mu.Unlock()

	if len(report.Unverified) > 0 {
		log.Printf("verification: unverified channels detected:\n%s", strings.Join(report.Unverified, "\n"))
	}
	v.notify(report)
}

func (v *Verifier) staticErrors(data config.Data) []string {
	var out []string

	if strings.TrimSpace(data.BotToken) == "" {
		out = append(out, "[Bot Token] Bot token not configured. See the install instructions.")
	}

	// Without a user directory there is nothing to check player configs
	// against.
	if v.users != nil {
		users := v.users.Users()
		for _, pc := range data.PlayerConfigs {
			if strings.TrimSpace(pc.Username) == "" {
				continue
			}
			found := false
			for _, u := range users {
				if u.Name == pc.Username {
					found = true
					break
				}
			}
			if !found {
				out = append(out, "[Player Configs] No user with name \""+pc.Username+"\" was found")
			}
		}
	}

	if strings.TrimSpace(data.EcoCommandChannel) != "" && strings.Contains(data.EcoCommandChannel, "#") {
		out = append(out, "[Eco Command Channel] Channel name contains a channel indicator (#). The indicator is added automatically and adding one manually may cause message sending to fail")
	}

	if strings.TrimSpace(data.InviteMessage) != "" && !strings.Contains(data.InviteMessage, config.InviteLinkToken) {
		out = append(out, "[Invite Message] Message does not contain the invite link token "+config.InviteLinkToken+". If the invite link has been added manually, consider adding it to the network config instead")
	}

	return out
}

func (v *Verifier) resolves(t domain.RemoteTarget) bool {
	guild, ok := v.topo.GuildByNameOrID(t.GuildRef())
	if !ok {
		return false
	}
	_, ok = v.topo.ChannelByNameOrID(guild, t.ChannelRef())
	return ok
}

func (v *Verifier) unverifiedLocked(targets []domain.RemoteTarget) []string {
	var out []string
	for _, t := range targets {
		if _, ok := v.verified[t.Identity()]; !ok {
			out = append(out, t.Identity())
		}
	}
	return out
}

func (v *Verifier) notify(r Report) {
	v.hooksMu.RLock()
	hooks := append([]ReportHook(nil), v.hooks...)
	v.hooksMu.RUnlock()
	for _, h := range hooks {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					log.Printf("verification: report hook panicked: %v", rec)
				}
			}()
			h(r)
		}()
	}
}
