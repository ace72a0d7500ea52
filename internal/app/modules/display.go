package modules

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/infrastructure/config"
)

const displayBaseTriggers = domain.EventDiscordClientConnected | domain.EventForceUpdate

// displayHistory is how many recent messages are searched for a tagged block
// posted before a restart.
const displayHistory = 50

// display posts tagged blocks once and edits them afterwards.
type display struct {
	base
	deps     Deps
	delay    time.Duration
	interval time.Duration
	targets  func(config.Data) []domain.RemoteTarget
	render   func(domain.RemoteTarget) []Content

	// channel ID + tag -> message ID; only used from Update.
	messages map[string]string
}

func (d *display) TimerSchedule() (time.Duration, time.Duration) {
	return d.delay, d.interval
}

func (d *display) Setup() {
	d.messages = make(map[string]string)
}

func (d *display) Destroy() {
	d.messages = nil
}

func (d *display) DisplayTargets() []domain.RemoteTarget {
	var out []domain.RemoteTarget
	for _, t := range d.targets(d.deps.Config.Current()) {
		if !t.Inert() {
			out = append(out, t)
		}
	}
	return out
}

func (d *display) DisplayContent(t domain.RemoteTarget) []Content {
	return d.render(t)
}

func (d *display) ShouldRun() bool {
	return len(d.DisplayTargets()) > 0
}

func (d *display) Update(ctx context.Context, _ domain.Event) error {
	if d.messages == nil {
		d.messages = make(map[string]string)
	}
	var errs error
	for _, t := range d.DisplayTargets() {
		_, channel, err := resolveChannel(d.deps.Remote, t)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", t.Identity(), err))
			continue
		}
		for _, c := range d.render(t) {
			if err := d.upsert(ctx, channel.ID, c); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s %s: %w", t.Identity(), c.Tag, err))
			}
		}
	}
	return errs
}

func (d *display) upsert(ctx context.Context, channelID string, c Content) error {
	key := channelID + "|" + c.Tag
	text := c.Render()

	if id, ok := d.messages[key]; ok {
		if err := d.deps.Remote.EditMessage(ctx, channelID, id, text); err == nil {
			d.ops.Add(1)
			return nil
		}
		delete(d.messages, key)
	}

	if id, ok := d.findTagged(ctx, channelID, c.Tag); ok {
		if err := d.deps.Remote.EditMessage(ctx, channelID, id, text); err != nil {
			return err
		}
		d.messages[key] = id
		d.ops.Add(1)
		return nil
	}

	id, err := d.deps.Remote.PostMessage(ctx, channelID, text)
	if err != nil {
		return err
	}
	d.messages[key] = id
	d.ops.Add(1)
	return nil
}

func (d *display) findTagged(ctx context.Context, channelID, tag string) (string, bool) {
	msgs, err := d.deps.Remote.ChannelMessages(ctx, channelID, displayHistory)
	if err != nil {
		return "", false
	}
	bot := d.deps.Remote.BotUserID()
	for _, m := range msgs {
		if m.AuthorID != bot {
			continue
		}
		first, _, _ := strings.Cut(m.Content, "\n")
		if first == tag {
			return m.ID, true
		}
	}
	return "", false
}
