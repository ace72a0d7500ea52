package app

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/infrastructure/config"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/interface/outs"
)

// DiscordSession is a client that runs one gateway session per Start call.
type DiscordSession interface {
	Start(ctx context.Context, token string) error
	outs.Sender
}

type ManagerConfig struct {
	Context  context.Context
	Discord  DiscordSession
	MultiOut *outs.MultiSender
}

// PlatformManager starts, restarts and stops the Discord session as the bot
// token comes and goes.
type PlatformManager struct {
	ctx      context.Context
	discord  DiscordSession
	multiOut *outs.MultiSender

	mu  sync.Mutex
	run *discordRuntime
}

type discordRuntime struct {
	token  string
	cancel context.CancelFunc
	done   chan struct{}
}

func (r *discordRuntime) alive() bool {
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

func NewPlatformManager(cfg ManagerConfig) *PlatformManager {
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return &PlatformManager{
		ctx:      ctx,
		discord:  cfg.Discord,
		multiOut: cfg.MultiOut,
	}
}

// EnableDiscord starts a session for token. A running session with the same
// token is kept; any other one is replaced.
func (m *PlatformManager) EnableDiscord(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("discord manager: empty bot token")
	}
	if m.discord == nil {
		return errors.New("discord manager: no client configured")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.run != nil && m.run.token == token && m.run.alive() {
		return nil
	}
	m.stopLocked()

	ctx, cancel := context.WithCancel(m.ctx)
	run := &discordRuntime{token: token, cancel: cancel, done: make(chan struct{})}
	m.run = run

	if m.multiOut != nil {
		m.multiOut.Register(domain.PlatformDiscord, m.discord)
	}

	go func() {
		defer close(run.done)
		if err := m.discord.Start(ctx, token); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("discord manager: session ended with error: %v", err)
		}
	}()

	log.Println("discord manager: discord enabled.")
	return nil
}

func (m *PlatformManager) DisableDiscord() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *PlatformManager) stopLocked() {
	if m.run == nil {
		return
	}
	m.run.cancel()
	<-m.run.done
	if m.multiOut != nil {
		m.multiOut.Unregister(domain.PlatformDiscord)
	}
	m.run = nil
	log.Println("discord manager: discord disabled.")
}

// Restart replaces the session with a fresh one using the same token.
func (m *PlatformManager) Restart() error {
	m.mu.Lock()
	token := ""
	if m.run != nil {
		token = m.run.token
	}
	m.stopLocked()
	m.mu.Unlock()

	if token == "" {
		return errors.New("discord manager: nothing to restart")
	}
	return m.EnableDiscord(token)
}

func (m *PlatformManager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.run != nil && m.run.alive()
}

// HandleConfigChange is registered as a config store hook.
func (m *PlatformManager) HandleConfigChange(change config.Change, data config.Data) {
	if change != config.ChangeToken {
		return
	}
	if strings.TrimSpace(data.BotToken) == "" {
		m.DisableDiscord()
		return
	}
	if err := m.EnableDiscord(data.BotToken); err != nil {
		log.Printf("discord manager: could not start discord: %v", err)
	}
}

func (m *PlatformManager) Shutdown() {
	m.DisableDiscord()
}
