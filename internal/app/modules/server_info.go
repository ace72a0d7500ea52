package modules

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/infrastructure/config"
)

const serverInfoTag = "[Server Info]"

type ServerInfoDisplay struct {
	display
}

func NewServerInfoDisplay(deps Deps) *ServerInfoDisplay {
	m := &ServerInfoDisplay{}
	m.display = display{
		base: base{
			name: "Server Info Display",
			kind: KindServerInfoDisplay,
			triggers: displayBaseTriggers | domain.EventTimer | domain.EventLogin | domain.EventLogout |
				domain.EventElectionStarted | domain.EventElectionStopped | domain.EventVote,
		},
		deps:     deps,
		interval: time.Minute,
		targets: func(d config.Data) []domain.RemoteTarget {
			out := make([]domain.RemoteTarget, 0, len(d.StatusChannels))
			for _, s := range d.StatusChannels {
				out = append(out, s)
			}
			return out
		},
		render: m.content,
	}
	return m
}

func (m *ServerInfoDisplay) content(t domain.RemoteTarget) []Content {
	sc, ok := t.(domain.StatusChannel)
	if !ok {
		return nil
	}
	cfg := m.deps.Config.Current()
	var info domain.ServerInfo
	var online []domain.User
	if m.deps.Game != nil {
		info = m.deps.Game.ServerInfo()
		online = m.deps.Game.OnlineUsers()
	}

	var b strings.Builder
	if sc.UseName {
		fmt.Fprintf(&b, "**%s Server Status**\n", firstNonEmpty(cfg.ServerName, info.Description, "[Server Title Missing]"))
	} else {
		b.WriteString("**Server Status**\n")
	}
	fmt.Fprintf(&b, "%s\n", m.deps.now().UTC().Format("2006-01-02 : 15:04 UTC"))

	if sc.UseDescription {
		fmt.Fprintf(&b, "%s\n", firstNonEmpty(cfg.ServerDescription, info.Description, "No server description is available."))
	}
	if sc.UseLogo && strings.TrimSpace(cfg.ServerLogo) != "" {
		fmt.Fprintf(&b, "%s\n", cfg.ServerLogo)
	}
	if sc.UseAddress {
		fmt.Fprintf(&b, "Connection Info: %s\n", firstNonEmpty(cfg.ServerAddress, info.Address, "-- Connection info not configured --"))
	}
	if sc.UsePlayerCount {
		fmt.Fprintf(&b, "Online Players Count: %d/%d\n", len(online), info.TotalPlayers)
	}
	if sc.UseTimeSinceStart {
		fmt.Fprintf(&b, "Ingame Time: %s\n", ingameTime(info.TimeSinceStart))
	}
	if sc.UseTimeRemaining {
		left := info.TimeLeft
		if left < 0 {
			left = 0
		}
		fmt.Fprintf(&b, "Time Left: %s\n", timeDescription(left))
	}
	if sc.UseMeteorHasHit && info.MeteorHasHit {
		b.WriteString("The meteor has hit!\n")
	}
	if sc.UsePlayerList {
		fmt.Fprintf(&b, "Online Players (%d/%d):\n%s\n", len(online), info.TotalPlayers, playerList(online))
	}

	return []Content{{Tag: serverInfoTag, Text: strings.TrimRight(b.String(), "\n")}}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func playerList(users []domain.User) string {
	if len(users) == 0 {
		return "-- No players online --"
	}
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Name)
	}
	sort.Strings(names)
	return strings.Join(names, "\n")
}

// ingameTime starts at day 1 like the game does.
func ingameTime(d time.Duration) string {
	days := int(d / (24 * time.Hour))
	rest := d % (24 * time.Hour)
	return fmt.Sprintf("Day %d %02d:%02d", days+1, int(rest/time.Hour), int(rest%time.Hour/time.Minute))
}

func timeDescription(d time.Duration) string {
	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	minutes := int(d % time.Hour / time.Minute)

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", days, plural(days, "day", "days")))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", hours, plural(hours, "hour", "hours")))
	}
	if minutes > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d %s", minutes, plural(minutes, "minute", "minutes")))
	}
	return strings.Join(parts, " ")
}
