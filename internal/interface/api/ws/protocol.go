package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
)

// Frame types exchanged with the game server.
const (
	FrameEvent = "event"
	FrameState = "state"
	FrameLink  = "link"
	FrameChat  = "chat"
)

var ErrUnsupportedKind = errors.New("ws: event kind not accepted from the game server")

// Frame is the envelope of every game connection message.
type Frame struct {
	Type string          `json:"type"`
	Kind string          `json:"kind,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// StateFrame replaces the game-side view kept by GameState.
type StateFrame struct {
	Users      []domain.User     `json:"users"`
	Currencies []domain.Currency `json:"currencies"`
	Info       domain.ServerInfo `json:"info"`
	WorldReset bool              `json:"world_reset,omitempty"`
}

// LinkFrame carries an account link request issued in game.
type LinkFrame struct {
	Action    string `json:"action"`
	DiscordID string `json:"discord_id"`
	EcoName   string `json:"eco_name,omitempty"`
}

// ChatFrame is sent to the game server to post a line in a game channel.
type ChatFrame struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

// decodeEvent resolves the kind and decodes its payload. Kinds produced
// inside the bridge are refused.
func decodeEvent(kind string, data json.RawMessage) (domain.EventKind, []any, error) {
	k, err := domain.ParseEventKind(kind)
	if err != nil {
		return domain.EventNone, nil, err
	}

	var payload any
	switch k {
	case domain.EventEcoMessageSent:
		var m domain.ChatMessage
		if err := unmarshal(data, &m); err != nil {
			return k, nil, err
		}
		m.Platform = domain.PlatformEco
		m.Text = strings.TrimSpace(m.Text)
		if m.Text == "" {
			return k, nil, fmt.Errorf("ws: %s without text", k)
		}
		payload = m
	case domain.EventTrade:
		payload, err = decodeAs[domain.Trade](data)
	case domain.EventWorkOrderCreated:
		payload, err = decodeAs[domain.WorkOrder](data)
	case domain.EventPostedWorkParty, domain.EventCompletedWorkParty, domain.EventJoinedWorkParty,
		domain.EventLeftWorkParty, domain.EventWorkedWorkParty:
		payload, err = decodeAs[domain.WorkParty](data)
	case domain.EventVote:
		payload, err = decodeAs[domain.Vote](data)
	case domain.EventCurrencyCreated:
		payload, err = decodeAs[domain.Currency](data)
	case domain.EventEnteredDemographic, domain.EventLeftDemographic:
		var d domain.DemographicChange
		if err := unmarshal(data, &d); err != nil {
			return k, nil, err
		}
		d.Entered = k == domain.EventEnteredDemographic
		payload = d
	case domain.EventGainedSpecialty, domain.EventLostSpecialty:
		payload, err = decodeAs[domain.SpecialtyChange](data)
	case domain.EventJoin, domain.EventLogin, domain.EventLogout:
		payload, err = decodeAs[domain.User](data)
	case domain.EventElectionStarted, domain.EventElectionStopped:
		payload, err = decodeAs[domain.Election](data)
	case domain.EventWorldReset, domain.EventServerStarted, domain.EventServerStopped:
		return k, nil, nil
	default:
		return k, nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, k)
	}
	if err != nil {
		return k, nil, err
	}
	return k, []any{payload}, nil
}

func decodeAs[T any](data json.RawMessage) (T, error) {
	var v T
	err := unmarshal(data, &v)
	return v, err
}

func unmarshal(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("ws: missing payload")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("ws: decode payload: %w", err)
	}
	return nil
}
