// Package control exposes a rig over a WebSocket request/reply endpoint and
// provides the matching client.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/realtime-ai/ferrolight/pkg/engine"
	"github.com/realtime-ai/ferrolight/pkg/trace"
)

// Target receives the commands decoded from requests.
type Target interface {
	Send(ctx context.Context, cmd engine.Command) error
}

// Config holds the server configuration.
type Config struct {
	// Addr is the address to listen on (e.g., ":5555").
	Addr string

	// Path is the WebSocket endpoint path.
	Path string

	// ReadBufferSize is the WebSocket read buffer size.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	WriteBufferSize int

	// ShutdownTimeout bounds the HTTP shutdown after stop.
	ShutdownTimeout time.Duration
}

// DefaultPath is the control endpoint path.
const DefaultPath = "/control"

// DefaultConfig returns the server configuration for addr.
func DefaultConfig(addr string) *Config {
	return &Config{
		Addr:            addr,
		Path:            DefaultPath,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		ShutdownTimeout: 2 * time.Second,
	}
}

// Server accepts control sessions for one target. A stop request halts the
// target, is acknowledged, and ends Serve.
type Server struct {
	config *Config
	target Target

	sessions   map[string]*websocket.Conn
	sessionsMu sync.Mutex

	mux      *http.ServeMux
	upgrader websocket.Upgrader

	stopped  chan struct{}
	stopOnce sync.Once
}

// NewServer creates a control server.
func NewServer(config *Config, target Target) *Server {
	if config == nil {
		config = DefaultConfig(":5555")
	}
	if config.Path == "" {
		config.Path = DefaultPath
	}

	s := &Server{
		config:   config,
		target:   target,
		sessions: make(map[string]*websocket.Conn),
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		stopped: make(chan struct{}),
	}
	s.mux.HandleFunc(config.Path, s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler serving the control endpoint.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Stopped is closed once a stop request has been handled.
func (s *Server) Stopped() <-chan struct{} {
	return s.stopped
}

// Serve listens on the configured address until a stop request or ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until a stop request or ctx ends.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{Handler: s.mux}

	log.Printf("[ControlServer] listening on %s%s", ln.Addr(), s.config.Path)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	case <-s.stopped:
	}

	s.closeSessions()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[ControlServer] shutdown: %v", err)
	}
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.stopped:
		http.Error(w, "stopped", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ControlServer] WebSocket upgrade failed: %v", err)
		return
	}

	id := uuid.New().String()
	s.sessionsMu.Lock()
	s.sessions[id] = conn
	s.sessionsMu.Unlock()

	log.Printf("[ControlServer] [session %s] connected from %s", id, r.RemoteAddr)
	s.handleSession(r.Context(), id, conn)
}

func (s *Server) handleSession(ctx context.Context, id string, conn *websocket.Conn) {
	ctx, span := trace.InstrumentSession(ctx, id)
	defer span.End()
	defer s.closeSession(id)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[ControlServer] [session %s] read error: %v", id, err)
			}
			return
		}

		reply, stop := s.handle(ctx, id, data)
		if err := conn.WriteJSON(reply); err != nil {
			log.Printf("[ControlServer] [session %s] write error: %v", id, err)
			return
		}

		if stop {
			log.Printf("[ControlServer] [session %s] stop handled, shutting down", id)
			s.stopOnce.Do(func() { close(s.stopped) })
			return
		}
	}
}

// handle executes one request and reports whether it was a stop.
func (s *Server) handle(ctx context.Context, sessionID string, data []byte) (Reply, bool) {
	req, err := ParseRequest(data)
	if err != nil {
		log.Printf("[ControlServer] [session %s] invalid request: %v", sessionID, err)
		return Reply{ID: requestID(data), Status: StatusError, Error: err.Error()}, false
	}

	ctx, span := trace.InstrumentRequest(ctx, sessionID, req.GetID(), string(req.RequestType()))
	defer span.End()

	cmd, err := req.Command()
	if err == nil {
		err = s.target.Send(ctx, cmd)
	}
	if err != nil {
		trace.RecordError(span, err)
		log.Print(trace.LogWithTrace(ctx, fmt.Sprintf("[ControlServer] [session %s] %s failed: %v", sessionID, req.RequestType(), err)))
		return Reply{ID: req.GetID(), Status: StatusError, Error: err.Error()}, false
	}

	_, stop := cmd.(engine.Stop)
	return Reply{ID: req.GetID(), Status: StatusOK}, stop
}

// requestID salvages the id of a request that failed to parse.
func requestID(data []byte) string {
	var base struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(data, &base)
	return base.ID
}

func (s *Server) closeSession(id string) {
	s.sessionsMu.Lock()
	conn, ok := s.sessions[id]
	delete(s.sessions, id)
	s.sessionsMu.Unlock()

	if ok {
		conn.Close()
		log.Printf("[ControlServer] [session %s] closed", id)
	}
}

func (s *Server) closeSessions() {
	s.sessionsMu.Lock()
	conns := s.sessions
	s.sessions = make(map[string]*websocket.Conn)
	s.sessionsMu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}
