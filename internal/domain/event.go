package domain

import (
	"fmt"
	"math/bits"
	"strings"
	"time"
)

// EventKind is a closed set of occurrences the bridge reacts to. Kinds are bit
// flags so that consumers can declare interest in several of them at once.
type EventKind uint64

const (
	EventEcoMessageSent EventKind = 1 << iota
	EventDiscordMessageSent
	EventTrade
	EventWorkOrderCreated
	EventPostedWorkParty
	EventCompletedWorkParty
	EventJoinedWorkParty
	EventLeftWorkParty
	EventWorkedWorkParty
	EventVote
	EventCurrencyCreated
	EventEnteredDemographic
	EventLeftDemographic
	EventGainedSpecialty
	EventLostSpecialty
	EventJoin
	EventLogin
	EventLogout
	EventElectionStarted
	EventElectionStopped
	EventDiscordClientConnected
	EventDiscordClientDisconnected
	EventAccountLinkVerified
	EventAccountLinkRemoved
	EventTimer
	EventForceUpdate
	EventWorldReset
	EventServerStarted
	EventServerStopped

	eventKindEnd
)

// EventNone matches nothing.
const EventNone EventKind = 0

// EventAll matches every known kind.
const EventAll = eventKindEnd - 1

var eventKindNames = map[EventKind]string{
	EventEcoMessageSent:            "eco_message_sent",
	EventDiscordMessageSent:        "discord_message_sent",
	EventTrade:                     "trade",
	EventWorkOrderCreated:          "work_order_created",
	EventPostedWorkParty:           "posted_work_party",
	EventCompletedWorkParty:        "completed_work_party",
	EventJoinedWorkParty:           "joined_work_party",
	EventLeftWorkParty:             "left_work_party",
	EventWorkedWorkParty:           "worked_work_party",
	EventVote:                      "vote",
	EventCurrencyCreated:           "currency_created",
	EventEnteredDemographic:        "entered_demographic",
	EventLeftDemographic:           "left_demographic",
	EventGainedSpecialty:           "gained_specialty",
	EventLostSpecialty:             "lost_specialty",
	EventJoin:                      "join",
	EventLogin:                     "login",
	EventLogout:                    "logout",
	EventElectionStarted:           "election_started",
	EventElectionStopped:           "election_stopped",
	EventDiscordClientConnected:    "discord_client_connected",
	EventDiscordClientDisconnected: "discord_client_disconnected",
	EventAccountLinkVerified:       "account_link_verified",
	EventAccountLinkRemoved:        "account_link_removed",
	EventTimer:                     "timer",
	EventForceUpdate:               "force_update",
	EventWorldReset:                "world_reset",
	EventServerStarted:             "server_started",
	EventServerStopped:             "server_stopped",
}

// ParseEventKind resolves the wire name of a single kind.
func ParseEventKind(name string) (EventKind, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for kind, n := range eventKindNames {
		if n == want {
			return kind, nil
		}
	}
	return EventNone, fmt.Errorf("domain: unknown event kind %q", name)
}

// Matches reports whether k shares at least one flag with mask.
func (k EventKind) Matches(mask EventKind) bool {
	return k&mask != 0
}

// Single reports whether exactly one known flag is set.
func (k EventKind) Single() bool {
	return k != EventNone && k&EventAll == k && bits.OnesCount64(uint64(k)) == 1
}

func (k EventKind) String() string {
	if k == EventNone {
		return "none"
	}
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	var parts []string
	for bit := EventKind(1); bit < eventKindEnd; bit <<= 1 {
		if k&bit != 0 {
			parts = append(parts, eventKindNames[bit])
		}
	}
	if rest := k &^ EventAll; rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint64(rest)))
	}
	return strings.Join(parts, "|")
}

// Event is one normalized occurrence. It is passed by value and its payload is
// treated as read-only by every consumer.
type Event struct {
	ID   string
	Kind EventKind
	Data []any
	At   time.Time
}

// First returns the leading payload value, or nil.
func (e Event) First() any {
	if len(e.Data) == 0 {
		return nil
	}
	return e.Data[0]
}
