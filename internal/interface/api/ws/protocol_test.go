package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
)

func TestDecodeEvent_Payloads(t *testing.T) {
	tests := []struct {
		name string
		kind string
		data string
		want domain.EventKind
		pay  any
	}{
		{
			name: "chat",
			kind: "eco_message_sent",
			data: `{"channel":"General","author":"ann","text":" hi "}`,
			want: domain.EventEcoMessageSent,
			pay:  domain.ChatMessage{Platform: domain.PlatformEco, Channel: "General", Author: "ann", Text: "hi"},
		},
		{
			name: "trade",
			kind: "trade",
			data: `{"citizen":"ann","currency_id":2,"currency":"Gold","amount":1.5,"store":"Shop","item":"Bread","bought":true}`,
			want: domain.EventTrade,
			pay:  domain.Trade{Citizen: "ann", CurrencyID: 2, Currency: "Gold", Amount: 1.5, Store: "Shop", Item: "Bread", Bought: true},
		},
		{
			name: "left demographic forces direction",
			kind: "left_demographic",
			data: `{"citizen":"ann","demographic":"Farmers","entered":true}`,
			want: domain.EventLeftDemographic,
			pay:  domain.DemographicChange{Citizen: "ann", Demographic: "Farmers", Entered: false},
		},
		{
			name: "login",
			kind: "LOGIN",
			data: `{"id":7,"name":"ann"}`,
			want: domain.EventLogin,
			pay:  domain.User{ID: 7, Name: "ann"},
		},
		{
			name: "world reset has no payload",
			kind: "world_reset",
			want: domain.EventWorldReset,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, data, err := decodeEvent(tt.kind, json.RawMessage(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, kind)
			if tt.pay == nil {
				assert.Empty(t, data)
				return
			}
			require.Len(t, data, 1)
			assert.Equal(t, tt.pay, data[0])
		})
	}
}

func TestDecodeEvent_Rejects(t *testing.T) {
	_, _, err := decodeEvent("discord_client_connected", nil)
	assert.ErrorIs(t, err, ErrUnsupportedKind)

	_, _, err = decodeEvent("account_link_verified", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrUnsupportedKind)

	_, _, err = decodeEvent("nonsense", nil)
	assert.Error(t, err)

	_, _, err = decodeEvent("trade", nil)
	assert.Error(t, err, "payload required")

	_, _, err = decodeEvent("eco_message_sent", json.RawMessage(`{"text":"   "}`))
	assert.Error(t, err)

	_, _, err = decodeEvent("vote", json.RawMessage(`[1,2]`))
	assert.Error(t, err)
}

func TestGameState_AppliesFramesAndEvents(t *testing.T) {
	g := NewGameState()
	g.apply(StateFrame{
		Users:      []domain.User{{ID: 1, Name: "ann", Online: true}, {ID: 2, Name: "bob"}},
		Currencies: []domain.Currency{{ID: 1, Name: "Gold"}},
		Info:       domain.ServerInfo{TotalPlayers: 2},
		WorldReset: true,
	})

	assert.Len(t, g.Users(), 2)
	assert.Len(t, g.OnlineUsers(), 1)
	assert.Equal(t, 2, g.ServerInfo().TotalPlayers)

	g.applyEvent(domain.EventLogin, []any{domain.User{ID: 2, Name: "bob"}})
	g.applyEvent(domain.EventLogout, []any{domain.User{ID: 1, Name: "ann"}})
	g.applyEvent(domain.EventJoin, []any{domain.User{ID: 3, Name: "zoe"}})
	g.applyEvent(domain.EventCurrencyCreated, []any{domain.Currency{ID: 2, Name: "Silver"}})
	g.applyEvent(domain.EventCurrencyCreated, []any{domain.Currency{ID: 2, Name: "Silver"}})

	var online []string
	for _, u := range g.OnlineUsers() {
		online = append(online, u.Name)
	}
	assert.Equal(t, []string{"bob", "zoe"}, online)
	assert.Len(t, g.Currencies(), 2)

	assert.True(t, g.ConsumeWorldReset())
	assert.False(t, g.ConsumeWorldReset())
}
