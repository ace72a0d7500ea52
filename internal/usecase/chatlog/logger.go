package chatlog

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/infrastructure/config"
)

// Logger appends relayed chat lines to the chat log file while chat logging
// is enabled.
type Logger struct {
	now func() time.Time

	mu      sync.Mutex
	enabled bool
	path    string
	file    *os.File
}

func NewLogger() *Logger {
	return &Logger{now: time.Now}
}

func (l *Logger) Name() string { return "chatlog" }

// Apply aligns the logger with a configuration document.
func (l *Logger) Apply(data config.Data) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if data.ChatlogPath != l.path {
		l.closeLocked()
		l.path = data.ChatlogPath
	}
	l.enabled = data.LogChat
	if !l.enabled {
		l.closeLocked()
	}
}

// OnConfigChange is registered as a config store hook.
func (l *Logger) OnConfigChange(change config.Change, data config.Data) {
	switch change {
	case config.ChangeChatlogEnabled, config.ChangeChatlogDisabled, config.ChangeChatlogPath:
		l.Apply(data)
		log.Printf("chatlog: %s (enabled=%t path=%s)", change, data.LogChat, data.ChatlogPath)
	}
}

func (l *Logger) HandleEvent(_ context.Context, ev domain.Event) error {
	if ev.Kind != domain.EventEcoMessageSent && ev.Kind != domain.EventDiscordMessageSent {
		return nil
	}
	msg, ok := ev.First().(domain.ChatMessage)
	if !ok {
		return nil
	}

	at := msg.At
	if at.IsZero() {
		at = l.now()
	}
	return l.write(formatLine(at, msg))
}

func formatLine(at time.Time, msg domain.ChatMessage) string {
	source := "Eco"
	channel := msg.Channel
	if msg.Platform == domain.PlatformDiscord {
		source = "Discord"
		if msg.Guild != "" {
			channel = msg.Guild + " - " + msg.Channel
		}
	}
	text := strings.ReplaceAll(msg.Text, "\n", " ")
	return fmt.Sprintf("[%s] [%s] [%s] %s: %s\n", at.UTC().Format("2006-01-02 15:04:05"), source, channel, msg.Author, text)
}

func (l *Logger) write(line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled || l.path == "" {
		return nil
	}
	if l.file == nil {
		if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
			return fmt.Errorf("chatlog: create dir: %w", err)
		}
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("chatlog: open %s: %w", l.path, err)
		}
		l.file = f
	}
	if _, err := l.file.WriteString(line); err != nil {
		return fmt.Errorf("chatlog: write: %w", err)
	}
	return nil
}

func (l *Logger) closeLocked() {
	if l.file == nil {
		return
	}
	if err := l.file.Close(); err != nil {
		log.Printf("chatlog: close %s: %v", l.path, err)
	}
	l.file = nil
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeLocked()
	return nil
}
