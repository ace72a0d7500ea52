package presence

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
)

// Client is the remote side the activity is shown on.
type Client interface {
	IsConnected() bool
	domain.PresenceSetter
}

type species struct {
	name     string
	movement string
}

var idleAnimals = []species{
	{"wolves", "run"},
	{"bison", "run"},
	{"foxes", "run"},
	{"salmon", "swim"},
	{"tuna", "swim"},
	{"otters", "swim"},
	{"owls", "fly"},
	{"turkeys", "run"},
}

var idlePlants = []string{"fir", "oak", "cedar", "wheat", "corn", "sunflower", "huckleberry"}

// Activity keeps the remote client's activity string in line with the
// number of online players.
type Activity struct {
	users  domain.UserDirectory
	client Client
	pick   func(n int) int

	mu   sync.Mutex
	last string
}

func NewActivity(users domain.UserDirectory, client Client) *Activity {
	return &Activity{users: users, client: client, pick: rand.Intn}
}

func (a *Activity) Name() string { return "presence" }

// Text builds the activity string.
func (a *Activity) Text() string {
	online := 0
	if a.users != nil {
		online = len(a.users.OnlineUsers())
	}
	if online > 0 {
		desc := "players"
		if online == 1 {
			desc = "player"
		}
		return fmt.Sprintf("%d %s play Eco", online, desc)
	}

	if a.pick(2) == 0 {
		s := idleAnimals[a.pick(len(idleAnimals))]
		return fmt.Sprintf("%s %s around", s.name, s.movement)
	}
	return idlePlants[a.pick(len(idlePlants))] + " grow"
}

// Refresh pushes the activity string when the client is connected and the text
// differs from the last one sent.
func (a *Activity) Refresh(ctx context.Context) error {
	if a.client == nil || !a.client.IsConnected() {
		return nil
	}
	text := a.Text()

	a.mu.Lock()
	defer a.mu.Unlock()
	if text == a.last {
		return nil
	}
	if err := a.client.SetActivity(ctx, text); err != nil {
		return fmt.Errorf("presence: set activity: %w", err)
	}
	a.last = text
	return nil
}

// HandleEvent runs in the presence stage, which only sees join, login,
// logout and timer events.
func (a *Activity) HandleEvent(ctx context.Context, ev domain.Event) error {
	if !ev.Kind.Matches(domain.EventJoin | domain.EventLogin | domain.EventLogout | domain.EventTimer) {
		return nil
	}
	return a.Refresh(ctx)
}
