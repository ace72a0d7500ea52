package ws

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/app/events"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/app/modules"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
)

var ErrGameOffline = errors.New("ws: game server not connected")

const DefaultAddr = "127.0.0.1:8080"

type Dispatcher interface {
	Dispatch(ctx context.Context, kind domain.EventKind, data ...any) *events.Task
}

// LinkHandler serves account link requests made in game.
type LinkHandler interface {
	Link(ctx context.Context, discordID, ecoName string) (domain.LinkedUser, error)
	Verify(ctx context.Context, discordID string) (domain.LinkedUser, error)
	Unlink(ctx context.Context, discordID string) error
}

type DisplaySource interface {
	Displays() []modules.DisplayModule
}

type Config struct {
	Addr       string
	// Token is the shared secret the game server presents as
	// "Authorization: Bearer <token>". Without one, only loopback peers may
	// attach on /ws/game.
	Token      string
	Dispatcher Dispatcher
	Links      LinkHandler
	Bus        *events.Bus
	State      *GameState
	Displays   DisplaySource
	Status     func() events.StatusDTO
}

func (c *Config) addr() string {
	if c == nil || c.Addr == "" {
		return DefaultAddr
	}
	return c.Addr
}

// Server accepts the game server connection on /ws/game and lets observers
// follow the bridge on /ws/events.
type Server struct {
	addr     string
	upgrader websocket.Upgrader
	cfg      Config
	state    *GameState

	mu        sync.RWMutex
	game      *wsClient
	observers map[*wsClient]struct{}
	httpSrv   *http.Server
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(v)
}

func NewServer(cfg Config) *Server {
	state := cfg.State
	if state == nil {
		state = NewGameState()
	}
	return &Server{
		addr: cfg.addr(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		cfg:       cfg,
		state:     state,
		observers: make(map[*wsClient]struct{}),
	}
}

// State is the game-side view fed by the game connection.
func (s *Server) State() *GameState { return s.state }

// GameConnected reports whether a game server is attached.
func (s *Server) GameConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.game != nil
}

func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/game", func(w http.ResponseWriter, r *http.Request) {
		s.handleGame(ctx, w, r)
	})
	mux.HandleFunc("/ws/events", func(w http.ResponseWriter, r *http.Request) {
		s.handleObserver(ctx, w, r)
	})
	newAPIHandlers(s.cfg).register(mux)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			setCORSHeaders(w)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		mux.ServeHTTP(w, r)
	})
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("ws: shutdown error: %v", err)
		}
		s.closeAll()
	}()

	log.Printf("ws: listening on %s", s.addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game != nil {
		s.game.conn.Close()
		s.game = nil
	}
	for c := range s.observers {
		c.conn.Close()
		delete(s.observers, c)
	}
}

// authorizeGame returns the HTTP status to refuse r with, or 0.
func (s *Server) authorizeGame(r *http.Request) int {
	if s.cfg.Token == "" {
		if !isLoopback(r.RemoteAddr) {
			return http.StatusForbidden
		}
		return 0
	}

	got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.Token)) != 1 {
		return http.StatusUnauthorized
	}
	return 0
}

func isLoopback(remote string) bool {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		host = remote
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) handleGame(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	if status := s.authorizeGame(r); status != 0 {
		log.Printf("ws: game connection from %s refused (%d)", r.RemoteAddr, status)
		http.Error(w, http.StatusText(status), status)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade error: %v", err)
		return
	}

	client := &wsClient{conn: conn}

	s.mu.Lock()
	prev := s.game
	s.game = client
	s.mu.Unlock()
	if prev != nil {
		log.Printf("ws: replacing game connection")
		prev.conn.Close()
	}

	log.Printf("ws: game server connected from %s", r.RemoteAddr)
	go s.readGame(ctx, client)
}

func (s *Server) readGame(ctx context.Context, client *wsClient) {
	defer func() {
		client.conn.Close()
		s.mu.Lock()
		if s.game == client {
			s.game = nil
		}
		s.mu.Unlock()
		log.Printf("ws: game server disconnected")
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		msgType, data, err := client.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("ws: game read error: %v", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		if err := s.handleFrame(ctx, data); err != nil {
			log.Printf("ws: game frame rejected: %v", err)
		}
	}
}

func (s *Server) handleFrame(ctx context.Context, data []byte) error {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("ws: decode frame: %w", err)
	}

	switch f.Type {
	case FrameEvent:
		kind, payload, err := decodeEvent(f.Kind, f.Data)
		if err != nil {
			return err
		}
		s.state.applyEvent(kind, payload)
		if s.cfg.Dispatcher != nil {
			s.cfg.Dispatcher.Dispatch(ctx, kind, payload...)
		}
		return nil

	case FrameState:
		var st StateFrame
		if err := unmarshal(f.Data, &st); err != nil {
			return err
		}
		s.state.apply(st)
		return nil

	case FrameLink:
		var lf LinkFrame
		if err := unmarshal(f.Data, &lf); err != nil {
			return err
		}
		return s.handleLink(ctx, lf)

	default:
		return fmt.Errorf("ws: unknown frame type %q", f.Type)
	}
}

func (s *Server) handleLink(ctx context.Context, lf LinkFrame) error {
	if s.cfg.Links == nil {
		return fmt.Errorf("ws: account linking not available")
	}
	var err error
	switch strings.ToLower(strings.TrimSpace(lf.Action)) {
	case "link":
		_, err = s.cfg.Links.Link(ctx, lf.DiscordID, lf.EcoName)
	case "verify":
		_, err = s.cfg.Links.Verify(ctx, lf.DiscordID)
	case "unlink":
		err = s.cfg.Links.Unlink(ctx, lf.DiscordID)
	default:
		return fmt.Errorf("ws: unknown link action %q", lf.Action)
	}
	if err != nil {
		return fmt.Errorf("ws: link %s: %w", lf.Action, err)
	}
	return nil
}

// SendMessage posts text in a game chat channel.
func (s *Server) SendMessage(ctx context.Context, platform domain.Platform, channelID, text string) error {
	if platform != domain.PlatformEco {
		return fmt.Errorf("ws: game bridge does not serve platform %s", platform)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	game := s.game
	s.mu.RUnlock()
	if game == nil {
		return ErrGameOffline
	}

	if err := game.writeJSON(ChatFrame{Type: FrameChat, Channel: channelID, Text: text}); err != nil {
		return fmt.Errorf("ws: send chat: %w", err)
	}
	return nil
}

type observerMessage struct {
	Topic string `json:"topic"`
	Data  any    `json:"data"`
}

func (s *Server) handleObserver(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	if s.cfg.Bus == nil {
		http.Error(w, "event feed disabled", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade error: %v", err)
		return
	}

	client := &wsClient{conn: conn}
	s.mu.Lock()
	s.observers[client] = struct{}{}
	count := len(s.observers)
	s.mu.Unlock()
	log.Printf("ws: observer connected from %s (%d active)", r.RemoteAddr, count)

	go s.serveObserver(ctx, client)
}

func (s *Server) serveObserver(ctx context.Context, client *wsClient) {
	evCh, unsubEv := s.cfg.Bus.Subscribe(events.TopicEvent)
	repCh, unsubRep := s.cfg.Bus.Subscribe(events.TopicVerification)
	stCh, unsubSt := s.cfg.Bus.Subscribe(events.TopicStatus)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := client.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		unsubEv()
		unsubRep()
		unsubSt()
		client.conn.Close()
		s.mu.Lock()
		delete(s.observers, client)
		count := len(s.observers)
		s.mu.Unlock()
		log.Printf("ws: observer closed (%d active)", count)
	}()

	for {
		var msg observerMessage
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case p, ok := <-evCh:
			if !ok {
				return
			}
			msg = observerMessage{Topic: events.TopicEvent, Data: p}
		case p, ok := <-repCh:
			if !ok {
				return
			}
			msg = observerMessage{Topic: events.TopicVerification, Data: p}
		case p, ok := <-stCh:
			if !ok {
				return
			}
			msg = observerMessage{Topic: events.TopicStatus, Data: p}
		}

		if err := client.writeJSON(msg); err != nil {
			log.Printf("ws: removing observer due to write error: %v", err)
			return
		}
	}
}

var _ domain.OutgoingMessagePort = (*Server)(nil)
