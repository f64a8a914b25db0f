package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/robfig/cron/v3"

	"github.com/jholhewres/voiceclaw/pkg/voiceclaw/config"
)

// healthProbeSchedule is the cadence of the background LLM probe.
const healthProbeSchedule = "@every 30s"

// maxInboundBytes caps a single inbound control message.
const maxInboundBytes = 4_000_000

// Server is the websocket control channel. Every connected client can
// drive the shared controller; llm_status changes are broadcast to all
// of them.
type Server struct {
	ctrl   *Controller
	cfg    config.ServerConfig
	logger *slog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewServer creates the control channel server around a controller.
func NewServer(ctrl *Controller, cfg config.ServerConfig, logger *slog.Logger) *Server {
	return &Server{
		ctrl:   ctrl,
		cfg:    cfg,
		logger: logger.With("component", "server"),
		conns:  make(map[*websocket.Conn]struct{}),
	}
}

// ListenAndServe runs the server until ctx is cancelled. The periodic
// LLM health probe runs alongside and broadcasts availability changes.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	probe := cron.New()
	if _, err := probe.AddFunc(healthProbeSchedule, func() {
		available, changed := s.ctrl.CheckLLM(ctx)
		if !changed {
			return
		}
		if available {
			s.logger.Info("LLM backend is available")
		} else {
			s.logger.Warn("LLM backend is not reachable, assistant mode disabled")
		}
		s.broadcast(newLLMStatus(available))
	}); err != nil {
		return fmt.Errorf("scheduling health probe: %w", err)
	}
	probe.Start()
	defer probe.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("control channel listening", "addr", "ws://"+addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("server shutdown error", "error", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("control channel server: %w", err)
	}
}

// ServeHTTP upgrades to websocket and runs the command read loop.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "bye"); closeErr != nil {
			s.logger.Debug("websocket close error", "error", closeErr)
		}
	}()
	ws.SetReadLimit(maxInboundBytes)

	s.register(ws)
	defer s.unregister(ws)

	s.logger.Info("client connected", "remote", r.RemoteAddr)

	// Clients get the current state immediately, then a fresh LLM probe.
	s.writeJSON(ws, newStatus(StateIdle))
	available, _ := s.ctrl.CheckLLM(r.Context())
	s.writeJSON(ws, newLLMStatus(available))

	emit := func(v any) { s.writeJSON(ws, v) }

	for {
		_, data, err := ws.Read(r.Context())
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				s.logger.Info("client disconnected", "remote", r.RemoteAddr)
			} else {
				s.logger.Debug("websocket read error", "error", err)
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			// Malformed payloads are ignored, not errored.
			continue
		}

		switch cmd.Type {
		case "start":
			s.ctrl.Start(emit, cmd.Mode)
		case "stop":
			s.ctrl.Stop()
		case "check_llm":
			available, _ := s.ctrl.CheckLLM(r.Context())
			s.writeJSON(ws, newLLMStatus(available))
		case "ping":
			s.writeJSON(ws, newPong())
		}
	}
}

func (s *Server) register(ws *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[ws] = struct{}{}
}

func (s *Server) unregister(ws *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, ws)
}

// broadcast sends an event to every connected client.
func (s *Server) broadcast(v any) {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for ws := range s.conns {
		conns = append(conns, ws)
	}
	s.mu.Unlock()

	for _, ws := range conns {
		s.writeJSON(ws, v)
	}
}

// writeJSON sends one event. Send failures are logged and swallowed;
// a dying connection is detected by its own read loop.
func (s *Server) writeJSON(ws *websocket.Conn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("event marshal failed", "error", err)
		return
	}
	writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ws.Write(writeCtx, websocket.MessageText, data); err != nil {
		s.logger.Debug("event write failed", "error", err)
	}
}
