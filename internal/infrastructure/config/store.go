package config

import (
	"fmt"
	"log"
	"reflect"
	"strings"
	"sync"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
)

// Change names a side effect detected while saving.
type Change int

const (
	ChangeSaved Change = iota
	ChangeChatlogEnabled
	ChangeChatlogDisabled
	ChangeChatlogPath
	ChangeToken
	ChangePrefix
)

func (c Change) String() string {
	switch c {
	case ChangeSaved:
		return "saved"
	case ChangeChatlogEnabled:
		return "chatlog-enabled"
	case ChangeChatlogDisabled:
		return "chatlog-disabled"
	case ChangeChatlogPath:
		return "chatlog-path"
	case ChangeToken:
		return "token"
	case ChangePrefix:
		return "prefix"
	default:
		return fmt.Sprintf("change(%d)", int(c))
	}
}

// Hook observes one change of a save. data is the normalized document. Hooks
// run inside the save critical section and must not call Save, Update or
// OnConfigChanged themselves.
type Hook func(change Change, data Data)

type StoreOption func(*Store)

// WithPath makes every save that changed the document persist it to path.
func WithPath(path string) StoreOption {
	return func(s *Store) { s.path = path }
}

// WithTokenOverride makes token replace the document's bot token on load and
// reload. The file keeps its own bot_token when written back.
func WithTokenOverride(token string) StoreOption {
	return func(s *Store) { s.tokenOverride = strings.TrimSpace(token) }
}

// WithChatlogDir sets the directory the default chat log path is built from.
func WithChatlogDir(dir string) StoreOption {
	return func(s *Store) { s.chatlogDir = dir }
}

// Store owns the live configuration for the lifetime of the process. The
// document is mutated in place, never replaced.
type Store struct {
	path          string
	chatlogDir    string
	tokenOverride string

	saveMu sync.Mutex

	mu   sync.RWMutex
	data *Data
	prev Data
	// fileToken is the bot_token of the document on disk.
	fileToken string

	hooksMu  sync.RWMutex
	hooks    []Hook
	verifier []func()
}

func NewStore(data Data, opts ...StoreOption) *Store {
	s := &Store{chatlogDir: "."}
	for _, opt := range opts {
		opt(s)
	}
	s.fileToken = data.BotToken
	if s.tokenOverride != "" {
		data.BotToken = s.tokenOverride
	}
	d := data.Clone()
	s.data = &d
	s.prev = data.Clone()
	return s
}

// Current returns a deep copy of the live document.
func (s *Store) Current() Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}

// Snapshot returns the document as of the last successful save.
func (s *Store) Snapshot() Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prev.Clone()
}

// Persisted returns the live document as it is written to disk.
func (s *Store) Persisted() Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistedLocked()
}

func (s *Store) persistedLocked() Data {
	out := s.data.Clone()
	if s.tokenOverride != "" {
		out.BotToken = s.fileToken
	}
	return out
}

func (s *Store) Debug() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Debug
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) RegisterHook(h Hook) {
	if h == nil {
		return
	}
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = append(s.hooks, h)
}

// RegisterVerifier adds a callback run when an external change settled
// without corrections and without a token change.
func (s *Store) RegisterVerifier(fn func()) {
	if fn == nil {
		return
	}
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.verifier = append(s.verifier, fn)
}

// Update mutates the live document and routes the change through
// OnConfigChanged.
func (s *Store) Update(fn func(*Data)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	fn(s.data)
	s.mu.Unlock()
	s.OnConfigChanged()
}

// Reload re-reads the document from disk into the live configuration.
func (s *Store) Reload() error {
	if s.path == "" {
		return fmt.Errorf("config: reload: no path configured")
	}
	loaded, err := LoadFile(s.path, Defaults(s.chatlogDir))
	if err != nil {
		return err
	}
	s.Update(func(d *Data) {
		s.fileToken = loaded.BotToken
		if s.tokenOverride != "" {
			loaded.BotToken = s.tokenOverride
		}
		*d = loaded
	})
	return nil
}

// OnConfigChanged is the entry point for external edits. It saves, and asks
// for verification only when the save needed no correction and the bot token
// is unchanged. A correcting save is followed by one more pass, which is the
// one allowed to verify.
func (s *Store) OnConfigChanged() {
	tokenChanged := false
	for pass := 0; pass < 2; pass++ {
		tokenChanged = tokenChanged || s.tokenDiffers()
		if !s.Save() {
			continue
		}
		if !tokenChanged {
			s.requestVerification()
		}
		return
	}
}

func (s *Store) tokenDiffers() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.BotToken != s.prev.BotToken
}

func (s *Store) requestVerification() {
	s.hooksMu.RLock()
	fns := append([]func(){}, s.verifier...)
	s.hooksMu.RUnlock()
	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("config: verification callback panicked: %v", r)
				}
			}()
			fn()
		}()
	}
}

// Save normalizes the live document, fires change hooks against the last
// successful save and replaces that snapshot. It reports true when nothing
// needed correcting. Save never fails; problems are logged.
func (s *Store) Save() (clean bool) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("config: save panicked: %v", r)
			clean = false
		}
	}()

	s.mu.Lock()
	corrections := normalize(s.data, s.chatlogDir)
	current := s.data.Clone()
	prev := s.prev
	persisted := s.persistedLocked()
	s.mu.Unlock()

	for _, c := range corrections {
		log.Printf("config: %s", c)
	}

	changes := diff(prev, current)
	for _, change := range changes {
		s.fire(change, current)
	}

	if s.path != "" && (len(corrections) > 0 || !reflect.DeepEqual(prev, current)) {
		if err := WriteFile(s.path, persisted); err != nil {
			log.Printf("config: persisting document failed: %v", err)
		}
	}

	s.mu.Lock()
	s.prev = current.Clone()
	s.mu.Unlock()

	return len(corrections) == 0
}

func (s *Store) fire(change Change, data Data) {
	s.hooksMu.RLock()
	hooks := append([]Hook(nil), s.hooks...)
	s.hooksMu.RUnlock()
	for _, h := range hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("config: %s hook panicked: %v", change, r)
				}
			}()
			h(change, data)
		}()
	}
}

// normalize corrects d in place and describes every correction.
func normalize(d *Data, chatlogDir string) []string {
	var out []string

	if strings.TrimSpace(d.CommandPrefix) == "" {
		d.CommandPrefix = DefaultCommandPrefix
		out = append(out, "Command prefix found empty - resetting to default.")
	}

	fix := func(kind, guild string, channel *string) {
		if strings.TrimSpace(*channel) == "" {
			return
		}
		fixed := NormalizeChannelName(*channel)
		if fixed == *channel {
			return
		}
		out = append(out, fmt.Sprintf("Corrected Discord channel name in %s with guild %q from %q to %q", kind, guild, *channel, fixed))
		*channel = fixed
	}

	for i := range d.ChatChannelLinks {
		l := &d.ChatChannelLinks[i]
		fix("Channel Link", l.DiscordGuild, &l.DiscordChannel)
	}
	for i := range d.StatusChannels {
		sc := &d.StatusChannels[i]
		fix("Eco Status Channel", sc.DiscordGuild, &sc.DiscordChannel)
	}
	for i := range d.CurrencyDisplayChannels {
		c := &d.CurrencyDisplayChannels[i]
		fix("Currency Display Channel", c.DiscordGuild, &c.DiscordChannel)
	}
	for _, feed := range []struct {
		name string
		list []domain.FeedChannel
	}{
		{FeedCrafting, d.CraftingFeedChannels},
		{FeedTrade, d.TradeFeedChannels},
		{FeedPlayerStatus, d.PlayerStatusFeedChannels},
		{FeedElection, d.ElectionFeedChannels},
	} {
		for i := range feed.list {
			f := &feed.list[i]
			fix(feed.name+" Channel", f.DiscordGuild, &f.DiscordChannel)
		}
	}

	if strings.TrimSpace(d.ChatlogPath) == "" {
		d.ChatlogPath = DefaultChatlogPath(chatlogDir)
		out = append(out, "Chatlog path found empty - resetting to default.")
	}
	if strings.TrimSpace(d.EcoCommandChannel) == "" {
		d.EcoCommandChannel = DefaultEcoCommandChannel
		out = append(out, "Eco command channel found empty - resetting to default.")
	}
	if strings.TrimSpace(d.InviteMessage) == "" {
		d.InviteMessage = DefaultInviteMessage
		out = append(out, "Invite message found empty - resetting to default.")
	}

	return out
}

func diff(prev, current Data) []Change {
	var out []Change
	if current.CommandPrefix != prev.CommandPrefix {
		log.Printf("config: command prefix changed - restart required to take effect.")
		out = append(out, ChangePrefix)
	}
	switch {
	case current.LogChat && !prev.LogChat:
		log.Printf("config: chatlog enabled")
		out = append(out, ChangeChatlogEnabled)
	case !current.LogChat && prev.LogChat:
		log.Printf("config: chatlog disabled")
		out = append(out, ChangeChatlogDisabled)
	}
	if current.ChatlogPath != prev.ChatlogPath {
		log.Printf("config: chatlog path changed. New path: %s", current.ChatlogPath)
		out = append(out, ChangeChatlogPath)
	}
	if current.BotToken != prev.BotToken {
		log.Printf("config: bot token changed")
		out = append(out, ChangeToken)
	}
	return append(out, ChangeSaved)
}

// ChatLinksForDiscordChannel returns the active chat links bound to the given
// remote guild and channel, each matched by name or ID.
func (s *Store) ChatLinksForDiscordChannel(guild domain.Guild, channel domain.Channel) []domain.ChannelLink {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ChannelLink
	for _, l := range s.data.ChatChannelLinks {
		if l.Inert() {
			continue
		}
		if !matchesRef(l.DiscordGuild, guild.ID, guild.Name) {
			continue
		}
		if !matchesRef(l.DiscordChannel, channel.ID, NormalizeChannelName(channel.Name)) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// ChatLinksForEcoChannel returns the active chat links of a local channel.
func (s *Store) ChatLinksForEcoChannel(ecoChannel string) []domain.ChannelLink {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ChannelLink
	for _, l := range s.data.ChatChannelLinks {
		if l.Inert() {
			continue
		}
		if EqualNames(l.EcoChannel, ecoChannel) {
			out = append(out, l)
		}
	}
	return out
}

func matchesRef(ref, id, name string) bool {
	return (id != "" && strings.TrimSpace(ref) == id) || EqualNames(ref, name)
}
