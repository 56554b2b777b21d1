// Package monitor serves the latest flight telemetry over HTTP and pushes every
// published sample to websocket clients.
package monitor

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"HabTracker/internal/flightlog"
	"HabTracker/internal/model"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

const writeWait = 2 * time.Second

// History is the read side of a flight log.
type History interface {
	Runs() ([]flightlog.Run, error)
	Records(runID string, limit int) ([]flightlog.Record, error)
}

// Server is the monitor endpoint. Publish may be called from any goroutine.
type Server struct {
	Addr    string
	History History

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	latest  []byte
	limiter *rate.Limiter

	server *http.Server
	ln     net.Listener
}

// New returns a monitor that broadcasts at most maxRateHz samples per second.
// A non-positive rate broadcasts every sample.
func New(addr string, maxRateHz float64) *Server {
	limit := rate.Inf
	if maxRateHz > 0 {
		limit = rate.Limit(maxRateHz)
	}
	return &Server{
		Addr:    addr,
		clients: map[*websocket.Conn]bool{},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Handler returns the HTTP routes of the monitor.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleRecords)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.server = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	log.Printf("[monitor] listening on %s", ln.Addr())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[monitor] serve: %v", err)
		}
	}()
	return nil
}

// ListenAddr returns the bound address once Start has succeeded.
func (s *Server) ListenAddr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop shuts down the HTTP server and drops every websocket client.
func (s *Server) Stop() {
	if s.server != nil {
		_ = s.server.Close()
	}
	s.mu.Lock()
	for c := range s.clients {
		_ = c.Close()
		delete(s.clients, c)
	}
	s.mu.Unlock()
}

// Publish records t as the latest state and broadcasts it unless the rate limit
// has been reached. It reports whether the sample was broadcast.
func (s *Server) Publish(t model.Telemetry) bool {
	b, err := json.Marshal(t)
	if err != nil {
		log.Printf("[monitor] encode telemetry: %v", err)
		return false
	}
	s.mu.Lock()
	s.latest = b
	s.mu.Unlock()
	if !s.limiter.Allow() {
		return false
	}
	s.broadcast(b)
	return true
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) broadcast(msg []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("[monitor] dropping client %s: %v", c.RemoteAddr(), err)
			_ = c.Close()
			delete(s.clients, c)
		}
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	b := s.latest
	s.mu.Unlock()
	if b == nil {
		http.Error(w, "no telemetry yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(b); err != nil {
		log.Printf("[monitor] warning: failed to write state: %v", err)
	}
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		http.Error(w, "no flight log", http.StatusNotFound)
		return
	}
	runs, err := s.History.Runs()
	if err != nil {
		http.Error(w, "failed to read runs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		http.Error(w, "no flight log", http.StatusNotFound)
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	recs, err := s.History.Records(r.PathValue("id"), limit)
	if errors.Is(err, flightlog.ErrNotFound) {
		http.Error(w, "unknown run", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "failed to read records", http.StatusInternalServerError)
		return
	}
	writeJSON(w, recs)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.clients[conn] = true
	if s.latest != nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteMessage(websocket.TextMessage, s.latest)
	}
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[monitor] warning: failed to write response: %v", err)
	}
}
