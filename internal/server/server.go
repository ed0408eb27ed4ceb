// Package server exposes the bot's live status over HTTP: a JSON snapshot at
// /api/status, a websocket stream at /ws and the mission history at
// /api/sessions and /api/paths.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"jordanella.com/escort-bot/internal/database"
	"jordanella.com/escort-bot/internal/logging"
)

// History is the read side of the mission database
type History interface {
	ListSessions(limit int) ([]*database.Session, error)
	GetPathStats() ([]database.PathStats, error)
}

type Server struct {
	addr     string
	source   StatusSource
	history  History
	interval time.Duration
	hub      *hub
	logger   *logging.Logger
}

func New(addr string, source StatusSource) *Server {
	return &Server{
		addr:     addr,
		source:   source,
		interval: time.Second,
		hub:      newHub(),
		logger:   logging.NewLogger("StatusServer"),
	}
}

// WithHistory enables the history endpoints
func (s *Server) WithHistory(h History) *Server {
	s.history = h
	return s
}

// WithInterval sets how often /ws clients receive a frame
func (s *Server) WithInterval(d time.Duration) *Server {
	if d > 0 {
		s.interval = d
	}
	return s
}

// Run listens on the configured address until ctx is done
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve handles requests on ln until ctx is done
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.run(hubCtx)
	go s.broadcastStatus(hubCtx)

	srv := &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info(fmt.Sprintf("Status server listening on %s", ln.Addr()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stopHub()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown status server: %w", err)
	}
	return nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.status)
	mux.HandleFunc("/ws", s.handleWebSocket)
	if s.history != nil {
		mux.HandleFunc("/api/sessions", s.sessions)
		mux.HandleFunc("/api/paths", s.paths)
	}
	return mux
}

func (s *Server) broadcastStatus(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			data, err := json.Marshal(s.source.Status())
			if err != nil {
				s.logger.Error("Failed to marshal status", err)
				continue
			}
			s.hub.publish(ctx, data)
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection to WebSocket", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 256)}
	// New clients get a frame right away instead of waiting for the ticker
	if data, err := json.Marshal(s.source.Status()); err == nil {
		c.send <- data
	}

	select {
	case s.hub.register <- c:
	case <-s.hub.quit:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(s.hub, func(err error) {
		s.logger.Warn(fmt.Sprintf("WebSocket read error: %v", err))
	})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.source.Status())
}

func (s *Server) sessions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	sessions, err := s.history.ListSessions(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, sessions)
}

func (s *Server) paths(w http.ResponseWriter, r *http.Request) {
	stats, err := s.history.GetPathStats()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
