package outs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/multierr"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
)

var ErrNoSender = errors.New("outs: no sender registered")

// DiscordMessageLimit is the longest message Discord accepts, in characters.
const DiscordMessageLimit = 2000

// Sender delivers a chat line on one platform.
type Sender interface {
	SendMessage(ctx context.Context, platform domain.Platform, channelID, text string) error
}

type route struct {
	sender Sender
	limit  int
}

// MultiSender routes each message to the sender of its platform. The
// discord adapter and the game bridge register themselves as they come up.
// Text longer than a platform's limit goes out as several messages.
type MultiSender struct {
	mu     sync.RWMutex
	routes map[domain.Platform]route
}

func NewMultiSender() *MultiSender {
	return &MultiSender{routes: make(map[domain.Platform]route)}
}

func (m *MultiSender) Register(platform domain.Platform, sender Sender) {
	if m == nil || sender == nil {
		return
	}
	limit := 0
	if platform == domain.PlatformDiscord {
		limit = DiscordMessageLimit
	}
	m.mu.Lock()
	m.routes[platform] = route{sender: sender, limit: limit}
	m.mu.Unlock()
}

func (m *MultiSender) Unregister(platform domain.Platform) {
	if m == nil {
		return
	}
	m.mu.Lock()
	delete(m.routes, platform)
	m.mu.Unlock()
}

// Registered reports whether platform currently has a sender.
func (m *MultiSender) Registered(platform domain.Platform) bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.routes[platform]
	return ok
}

// SendMessage delivers text. Blank text is dropped.
func (m *MultiSender) SendMessage(ctx context.Context, platform domain.Platform, channelID, text string) error {
	if m == nil {
		return fmt.Errorf("%w: no router", ErrNoSender)
	}
	m.mu.RLock()
	r, ok := m.routes[platform]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w for platform %s", ErrNoSender, platform)
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var errs error
	for _, part := range split(text, r.limit) {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		errs = multierr.Append(errs, r.sender.SendMessage(ctx, platform, channelID, part))
	}
	return errs
}

// split cuts text into parts of at most limit runes, breaking after the last
// newline in a part when there is one. limit <= 0 means no limit.
func split(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var parts []string
	for utf8.RuneCountInString(text) > limit {
		cut := byteOffset(text, limit)
		if nl := strings.LastIndexByte(text[:cut], '\n'); nl > 0 {
			cut = nl + 1
		}
		parts = append(parts, strings.TrimRight(text[:cut], "\n"))
		text = text[cut:]
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}

func byteOffset(s string, runes int) int {
	i := 0
	for n := 0; n < runes && i < len(s); n++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}

var _ domain.OutgoingMessagePort = (*MultiSender)(nil)
