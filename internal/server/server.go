// Package server is the engine inspector: it streams engine bus events to
// websocket clients and reports the current state as JSON.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/zeusengine/internal/core/events/bus"
	"github.com/zeusync/zeusengine/internal/core/observability/log"
	"github.com/zeusync/zeusengine/internal/core/state"
)

// Config holds inspector configuration.
type Config struct {
	ListenAddr   string
	WriteTimeout time.Duration
	PingInterval time.Duration
	// ClientBuffer is the number of events queued per client before new
	// events are dropped for that client.
	ClientBuffer int
}

// DefaultServerConfig returns default inspector configuration.
func DefaultServerConfig() Config {
	return Config{
		ListenAddr:   "127.0.0.1:7070",
		WriteTimeout: 5 * time.Second,
		PingInterval: 30 * time.Second,
		ClientBuffer: 256,
	}
}

func (c Config) Validate() error {
	switch {
	case c.ListenAddr == "":
		return fmt.Errorf("%w: listen address is empty", ErrInvalidConfig)
	case c.WriteTimeout <= 0, c.PingInterval <= 0:
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	case c.ClientBuffer <= 0:
		return fmt.Errorf("%w: client buffer must be positive", ErrInvalidConfig)
	}
	return nil
}

// StateSource yields the state to report on.
type StateSource interface {
	Current() *state.State
}

// Message is the wire form of one bus event.
type Message struct {
	Type   string    `json:"type"`
	Source string    `json:"source"`
	Time   time.Time `json:"time"`
	Data   any       `json:"data,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Server is the inspector.
type Server struct {
	config   Config
	states   StateSource
	bus      bus.EventBus
	logger   log.Log
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	sub     bus.Subscription
	http    *http.Server
	running atomic.Bool
	dropped atomic.Uint64
}

func NewServer(cfg Config, states StateSource, b bus.EventBus, logger log.Log) *Server {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Server{
		config: cfg,
		states: states,
		bus:    b,
		logger: logger.Named("inspector"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Handler serves /events (websocket), /state and /bus (JSON).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/state", s.handleState)
	mux.HandleFunc("/bus", s.handleBus)
	return mux
}

// Attach subscribes the server to every bus event. Start calls it.
func (s *Server) Attach() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil || s.bus == nil {
		return nil
	}
	sub, err := s.bus.Subscribe(bus.AnyType, s.broadcast)
	if err != nil {
		return err
	}
	s.sub = sub
	return nil
}

// Start listens on the configured address and serves until Stop.
func (s *Server) Start(ctx context.Context) error {
	if err := s.config.Validate(); err != nil {
		return err
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerAlreadyRunning
	}
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("inspector listen: %w", err)
	}
	if err := s.Attach(); err != nil {
		_ = ln.Close()
		s.running.Store(false)
		return err
	}

	srv := &http.Server{
		Handler:     s.Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("inspector stopped", log.Error(err))
		}
	}()
	s.logger.Info("inspector listening", log.String("addr", ln.Addr().String()))
	return nil
}

// Stop closes every client and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return ErrServerNotRunning
	}
	s.mu.Lock()
	srv, sub := s.http, s.sub
	s.http, s.sub = nil, nil
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	if sub != nil {
		_ = sub.Cancel()
	}
	for _, c := range clients {
		c.close()
	}
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

// Clients is the number of connected event clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Dropped counts events discarded for slow clients.
func (s *Server) Dropped() uint64 { return s.dropped.Load() }

func (s *Server) broadcast(e bus.Event) error {
	raw, err := json.Marshal(Message{Type: e.Type(), Source: e.Source(), Time: e.Timestamp(), Data: e.Data()})
	if err != nil {
		return fmt.Errorf("inspector encode %s: %w", e.Type(), err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- raw:
		default:
			s.dropped.Add(1)
		}
	}
	return nil
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", log.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, s.config.ClientBuffer), done: make(chan struct{})}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.logger.Debug("inspector client connected", log.String("remote", conn.RemoteAddr().String()))

	go s.readPump(c)
	s.writePump(c)

	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.close()
}

// readPump drains client frames so that close and pong control frames are
// processed; clients have nothing to say.
func (s *Server) readPump(c *client) {
	defer c.close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(c *client) {
	ping := time.NewTicker(s.config.PingInterval)
	defer ping.Stop()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
