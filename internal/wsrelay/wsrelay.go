// Package wsrelay optionally exposes the sync lifecycle event bus
// (internal/events) over a WebSocket so an external dashboard can observe
// sync:start/finish/error in real time. It is off by default and has no
// bearing on store correctness if never started.
//
// Adapted from the teacher's internal/turso/dashboard.Server: same
// client-map-plus-broadcast-channel shape, trimmed to the one message type
// this package actually needs (a sync lifecycle Event) instead of the five
// dashboard message kinds the teacher relays.
package wsrelay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/gitkv-project/gitkv/internal/events"
)

// Config controls the relay's HTTP listener.
type Config struct {
	Addr   string // e.g. ":8099"
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Addr: ":8099", Logger: log.Default()}
}

// wireMessage is what's actually written to each client; Timestamp is the
// event's At, or the broadcast time when At is unset.
type wireMessage struct {
	Kind      events.Kind `json:"kind"`
	Reason    string      `json:"reason,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Relay broadcasts events.Bus notifications to connected WebSocket clients.
type Relay struct {
	addr     string
	listener net.Listener
	server   *http.Server
	logger   *log.Logger

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]bool

	broadcast chan wireMessage
	unsub     func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Relay subscribed to bus. Call Start to begin serving.
func New(cfg Config, bus *events.Bus) *Relay {
	if cfg.Addr == "" {
		cfg = DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[wsrelay] ", log.LstdFlags)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Relay{
		addr:      cfg.Addr,
		logger:    cfg.Logger,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan wireMessage, 100),
		ctx:       ctx,
		cancel:    cancel,
	}

	r.unsub = bus.Subscribe(func(ev events.Event) {
		ts := time.UnixMilli(ev.At)
		if ev.At == 0 {
			ts = time.Now()
		}
		msg := wireMessage{Kind: ev.Kind, Reason: ev.Reason, Timestamp: ts}
		if ev.Err != nil {
			msg.Error = ev.Err.Error()
		}
		select {
		case r.broadcast <- msg:
		case <-r.ctx.Done():
		default:
			r.logger.Println("broadcast channel full, dropping event")
		}
	})

	return r
}

// Start begins listening and relaying.
func (r *Relay) Start() error {
	ln, err := net.Listen("tcp", r.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", r.addr, err)
	}
	r.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", r.handleWebSocket)
	mux.HandleFunc("/health", r.handleHealth)

	r.server = &http.Server{Handler: mux, ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second}

	r.wg.Add(1)
	go r.broadcastLoop()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.logger.Printf("wsrelay listening on %s", r.addr)
		if err := r.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			r.logger.Printf("server error: %v", err)
		}
	}()

	return nil
}

// Addr returns the actual listening address, useful when Config.Addr used
// port 0 to pick a free one.
func (r *Relay) Addr() string {
	if r.listener == nil {
		return ""
	}
	return r.listener.Addr().String()
}

// ClientCount returns the number of currently connected clients.
func (r *Relay) ClientCount() int {
	r.clientsMu.RLock()
	defer r.clientsMu.RUnlock()
	return len(r.clients)
}

// Stop unsubscribes from the bus, closes all client connections, and shuts
// down the HTTP server.
func (r *Relay) Stop() error {
	r.unsub()
	r.cancel()

	r.clientsMu.Lock()
	for conn := range r.clients {
		_ = conn.Close(websocket.StatusGoingAway, "relay shutting down")
		delete(r.clients, conn)
	}
	r.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	r.wg.Wait()
	return nil
}

func (r *Relay) broadcastLoop() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case msg := <-r.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				r.logger.Printf("marshal event: %v", err)
				continue
			}

			r.clientsMu.RLock()
			conns := make([]*websocket.Conn, 0, len(r.clients))
			for c := range r.clients {
				conns = append(conns, c)
			}
			r.clientsMu.RUnlock()

			for _, c := range conns {
				wctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := c.Write(wctx, websocket.MessageText, data)
				cancel()
				if err != nil {
					r.removeClient(c)
				}
			}
		}
	}
}

func (r *Relay) handleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := websocket.Accept(w, req, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		r.logger.Printf("websocket upgrade failed: %v", err)
		return
	}

	r.clientsMu.Lock()
	r.clients[conn] = true
	r.clientsMu.Unlock()

	go func() {
		defer r.removeClient(conn)
		for {
			if _, _, err := conn.Read(r.ctx); err != nil {
				return
			}
		}
	}()
}

func (r *Relay) removeClient(conn *websocket.Conn) {
	r.clientsMu.Lock()
	if _, ok := r.clients[conn]; ok {
		delete(r.clients, conn)
		r.clientsMu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "")
		return
	}
	r.clientsMu.Unlock()
}

func (r *Relay) handleHealth(w http.ResponseWriter, req *http.Request) {
	r.clientsMu.RLock()
	n := len(r.clients)
	r.clientsMu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "clients": n})
}
