package control

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/cwbudde/algo-rack/dsp/rack"
	"github.com/cwbudde/algo-rack/measure/spectrum"
	"github.com/gorilla/websocket"
)

const (
	defaultTelemetryInterval = 100 * time.Millisecond
	pingInterval             = 54 * time.Second
	pongWait                 = 60 * time.Second
	writeWait                = 10 * time.Second
	clientQueue              = 64
)

// Message is the envelope of everything the server sends to a client.
type Message struct {
	Type     string       `json:"type"`
	Reply    *Reply       `json:"reply,omitempty"`
	Levels   *rack.Levels `json:"levels,omitempty"`
	Spectrum []float64    `json:"spectrum,omitempty"`
	BinHz    float64      `json:"binHz,omitempty"`
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAnalyzer adds spectrum frames to the telemetry broadcast.
func WithAnalyzer(a *spectrum.Analyzer) ServerOption {
	return func(s *Server) { s.analyzer = a }
}

// WithTelemetryInterval sets how often levels are broadcast.
func WithTelemetryInterval(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithLogger routes server logs to l.
func WithLogger(l *log.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// Server exposes a rack over HTTP and websockets. Clients send Command
// values as JSON text frames and receive a "reply" Message for each, plus
// periodic "telemetry" Messages.
type Server struct {
	rack     *rack.Rack
	analyzer *spectrum.Analyzer
	interval time.Duration
	log      *log.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	server *Server
}

// NewServer creates a control server for r.
func NewServer(r *rack.Rack, opts ...ServerOption) *Server {
	s := &Server{
		rack:     r,
		interval: defaultTelemetryInterval,
		log:      log.Default(),
		clients:  make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/effects", s.handleEffects)
	mux.HandleFunc("/api/command", s.handleCommand)
	return mux
}

// Run serves on addr and broadcasts telemetry until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() {
		s.log.Printf("[control] listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()
	go s.telemetryLoop(ctx)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	s.closeClients()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Broadcast sends the current telemetry to every client once.
func (s *Server) Broadcast() {
	msg := Message{Type: "telemetry"}
	if lv := s.rack.Levels(); lv.Input != nil {
		msg.Levels = &lv
	}
	if s.analyzer != nil {
		msg.Spectrum = s.analyzer.Spectrum(nil)
		msg.BinHz = s.analyzer.BinFrequency(1)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Printf("[control] encode telemetry: %v", err)
		return
	}

	s.mu.Lock()
	targets := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		targets = append(targets, c)
	}
	s.mu.Unlock()

	for _, c := range targets {
		c.enqueue(data)
	}
}

func (s *Server) telemetryLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Broadcast()
		}
	}
}

func (s *Server) handleEffects(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, Effects(s.rack))
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var cmd Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, Handle(s.rack, cmd))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("[control] websocket upgrade error: %v", err)
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan []byte, clientQueue),
		done:   make(chan struct{}),
		server: s,
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	go c.writePump()
	go c.readPump()
}

func (s *Server) closeClients() {
	s.mu.Lock()
	targets := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		targets = append(targets, c)
	}
	s.mu.Unlock()

	for _, c := range targets {
		c.close()
	}
}

// enqueue drops clients that cannot keep up instead of blocking.
func (c *client) enqueue(data []byte) {
	select {
	case <-c.done:
	case c.send <- data:
	default:
		c.server.log.Printf("[control] dropping slow client %s", c.conn.RemoteAddr())
		c.close()
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.server.mu.Lock()
		delete(c.server.clients, c)
		c.server.mu.Unlock()
		_ = c.conn.Close()
	})
}

func (c *client) readPump() {
	defer c.close()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.reply(Reply{Error: "malformed command: " + err.Error(), Effects: Effects(c.server.rack)})
			continue
		}
		c.reply(Handle(c.server.rack, cmd))
	}
}

func (c *client) reply(r Reply) {
	data, err := json.Marshal(Message{Type: "reply", Reply: &r})
	if err != nil {
		c.server.log.Printf("[control] encode reply: %v", err)
		return
	}
	c.enqueue(data)
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
