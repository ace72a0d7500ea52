package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/infrastructure/config"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/interface/outs"
)

type fakeSession struct {
	mu      sync.Mutex
	tokens  []string
	active  int
	failing bool
}

func (f *fakeSession) Start(ctx context.Context, token string) error {
	f.mu.Lock()
	f.tokens = append(f.tokens, token)
	failing := f.failing
	if !failing {
		f.active++
	}
	f.mu.Unlock()
	if failing {
		return errors.New("authentication failed")
	}

	<-ctx.Done()
	f.mu.Lock()
	f.active--
	f.mu.Unlock()
	return ctx.Err()
}

func (f *fakeSession) SendMessage(context.Context, domain.Platform, string, string) error { return nil }

func (f *fakeSession) snapshot() ([]string, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens...), f.active
}

func waitStarts(t *testing.T, f *fakeSession, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		tokens, _ := f.snapshot()
		return len(tokens) == n
	}, time.Second, 5*time.Millisecond)
}

func TestPlatformManager_TokenLifecycle(t *testing.T) {
	session := &fakeSession{}
	router := outs.NewMultiSender()
	m := NewPlatformManager(ManagerConfig{Discord: session, MultiOut: router})
	t.Cleanup(m.Shutdown)

	require.NoError(t, m.EnableDiscord("one"))
	waitStarts(t, session, 1)
	require.NoError(t, m.EnableDiscord("one"))
	assert.True(t, m.Running())
	assert.NoError(t, router.SendMessage(context.Background(), domain.PlatformDiscord, "c", "x"))

	m.HandleConfigChange(config.ChangeToken, config.Data{BotToken: "two"})
	waitStarts(t, session, 2)
	tokens, active := session.snapshot()
	assert.Equal(t, []string{"one", "two"}, tokens)
	assert.Equal(t, 1, active, "previous session closed before the new one")

	m.HandleConfigChange(config.ChangeSaved, config.Data{})
	assert.True(t, m.Running())

	m.HandleConfigChange(config.ChangeToken, config.Data{BotToken: ""})
	assert.False(t, m.Running())
	_, active = session.snapshot()
	assert.Equal(t, 0, active)
	assert.ErrorIs(t, router.SendMessage(context.Background(), domain.PlatformDiscord, "c", "x"), outs.ErrNoSender)
}

func TestPlatformManager_RestartAfterFailure(t *testing.T) {
	session := &fakeSession{failing: true}
	m := NewPlatformManager(ManagerConfig{Discord: session})
	t.Cleanup(m.Shutdown)

	require.NoError(t, m.EnableDiscord("bad"))
	require.Eventually(t, func() bool { return !m.Running() }, time.Second, 5*time.Millisecond)

	session.mu.Lock()
	session.failing = false
	session.mu.Unlock()

	require.NoError(t, m.EnableDiscord("bad"))
	waitStarts(t, session, 2)
	assert.True(t, m.Running())

	require.NoError(t, m.Restart())
	waitStarts(t, session, 3)
}

func TestPlatformManager_Errors(t *testing.T) {
	m := NewPlatformManager(ManagerConfig{})
	assert.Error(t, m.EnableDiscord("token"))
	assert.Error(t, m.EnableDiscord(" "))
	assert.Error(t, m.Restart())
}
