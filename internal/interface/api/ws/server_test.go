package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/app/events"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/app/modules"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
)

type captureListener struct {
	mu   sync.Mutex
	seen []domain.Event
}

func (c *captureListener) Name() string { return "capture" }

func (c *captureListener) HandleEvent(_ context.Context, ev domain.Event) error {
	c.mu.Lock()
	c.seen = append(c.seen, ev)
	c.mu.Unlock()
	return nil
}

func (c *captureListener) events() []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Event(nil), c.seen...)
}

type linkCalls struct {
	mu    sync.Mutex
	calls []string
}

func (l *linkCalls) Link(_ context.Context, id, name string) (domain.LinkedUser, error) {
	l.add("link " + id + " " + name)
	return domain.LinkedUser{DiscordID: id, EcoName: name}, nil
}

func (l *linkCalls) Verify(_ context.Context, id string) (domain.LinkedUser, error) {
	l.add("verify " + id)
	return domain.LinkedUser{DiscordID: id, Verified: true}, nil
}

func (l *linkCalls) Unlink(_ context.Context, id string) error {
	l.add("unlink " + id)
	return nil
}

func (l *linkCalls) add(s string) {
	l.mu.Lock()
	l.calls = append(l.calls, s)
	l.mu.Unlock()
}

func (l *linkCalls) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	return dialWith(t, srv, path, nil)
}

func dialWith(t *testing.T, srv *httptest.Server, path string, header http.Header) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, path), header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s := NewServer(cfg)
	srv := httptest.NewServer(s.Handler(ctx))
	t.Cleanup(srv.Close)
	return s, srv
}

func TestServer_GameFramesReachDispatcherAndState(t *testing.T) {
	d := events.NewDispatcher(nil)
	capture := &captureListener{}
	d.Register(events.StageModules, capture)
	links := &linkCalls{}

	s, srv := newTestServer(t, Config{Dispatcher: d, Links: links})
	conn := dial(t, srv, "/ws/game")

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "state",
		"data": map[string]any{"users": []map[string]any{{"id": 1, "name": "ann", "online": true}}},
	}))
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "event",
		"kind": "trade",
		"data": map[string]any{"citizen": "ann", "currency_id": 1, "currency": "Gold"},
	}))
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "link",
		"data": map[string]any{"action": "link", "discord_id": "42", "eco_name": "ann"},
	}))

	require.Eventually(t, func() bool {
		return len(capture.events()) == 1 && len(links.all()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	ev := capture.events()[0]
	assert.Equal(t, domain.EventTrade, ev.Kind)
	assert.Equal(t, domain.Trade{Citizen: "ann", CurrencyID: 1, Currency: "Gold"}, ev.First())
	assert.Equal(t, []string{"link 42 ann"}, links.all())
	assert.Len(t, s.State().OnlineUsers(), 1)
}

func TestServer_SendMessageWritesChatFrame(t *testing.T) {
	s, srv := newTestServer(t, Config{})
	ctx := context.Background()

	assert.ErrorIs(t, s.SendMessage(ctx, domain.PlatformEco, "General", "hi"), ErrGameOffline)

	conn := dial(t, srv, "/ws/game")
	require.Eventually(t, s.GameConnected, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.SendMessage(ctx, domain.PlatformEco, "General", "bob: hi"))
	assert.Error(t, s.SendMessage(ctx, domain.PlatformDiscord, "c-1", "hi"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got ChatFrame
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, ChatFrame{Type: FrameChat, Channel: "General", Text: "bob: hi"}, got)
}

func TestServer_ObserversFollowTheBus(t *testing.T) {
	bus := events.NewBus()
	t.Cleanup(bus.Close)
	_, srv := newTestServer(t, Config{Bus: bus})

	conn := dial(t, srv, "/ws/events")

	// The subscription is made after the upgrade; publish until one arrives.
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case <-time.After(20 * time.Millisecond):
				bus.Publish(events.TopicStatus, events.NewStatusDTO("Connected", "Connected to Discord"))
			}
		}
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Topic string            `json:"topic"`
		Data  events.StatusDTO `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.TopicStatus, msg.Topic)
	assert.Equal(t, "Connected", msg.Data.State)
}

type staticDisplay struct {
	modules.DisplayModule
}

func (staticDisplay) String() string { return "Server Info Display" }

func (staticDisplay) DisplayTargets() []domain.RemoteTarget {
	return []domain.RemoteTarget{domain.StatusChannel{DiscordGuild: "MyGuild", DiscordChannel: "status"}}
}

func (staticDisplay) DisplayContent(domain.RemoteTarget) []modules.Content {
	return []modules.Content{{Tag: "[Server Info]", Text: "Online Players Count: 1/2"}}
}

type displays []modules.DisplayModule

func (d displays) Displays() []modules.DisplayModule { return d }

func TestServer_DisplaysAndStatusAPI(t *testing.T) {
	_, srv := newTestServer(t, Config{
		Displays: displays{staticDisplay{}},
		Status:   func() events.StatusDTO { return events.StatusDTO{State: "Connected"} },
	})

	resp, err := http.Get(srv.URL + "/api/displays")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var views []displayView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&views))
	assert.Equal(t, []displayView{{
		Module:  "Server Info Display",
		Target:  "MyGuild - status (Eco Status)",
		Content: []modules.Content{{Tag: "[Server Info]", Text: "Online Players Count: 1/2"}},
	}}, views)

	resp2, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var st events.StatusDTO
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&st))
	assert.Equal(t, "Connected", st.State)

	post, err := http.Post(srv.URL+"/api/status", "application/json", nil)
	require.NoError(t, err)
	post.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, post.StatusCode)
}

func TestServer_GameRequiresSharedToken(t *testing.T) {
	s, srv := newTestServer(t, Config{Token: "s3cret"})

	for name, header := range map[string]http.Header{
		"missing": nil,
		"wrong":   {"Authorization": {"Bearer nope"}},
		"scheme":  {"Authorization": {"s3cret"}},
	} {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/game"), header)
		require.Error(t, err, name)
		require.NotNil(t, resp, name)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, name)
		resp.Body.Close()
	}
	assert.False(t, s.GameConnected())

	dialWith(t, srv, "/ws/game", http.Header{"Authorization": {"Bearer s3cret"}})
	require.Eventually(t, s.GameConnected, 2*time.Second, 10*time.Millisecond)
}

func TestServer_GameWithoutTokenOnlyAcceptsLoopback(t *testing.T) {
	s := NewServer(Config{})
	h := s.Handler(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/ws/game", nil)
	req.RemoteAddr = "203.0.113.7:51000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, s.GameConnected())

	// httptest listens on loopback.
	_, srv := newTestServer(t, Config{})
	dial(t, srv, "/ws/game")
}

func TestConfig_DefaultAddrIsLoopback(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8080", NewServer(Config{}).addr)
}
