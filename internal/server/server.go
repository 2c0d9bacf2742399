// SPDX-License-Identifier: MIT
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"audiorelay/internal/config"
	applog "audiorelay/internal/log"
	"audiorelay/internal/session"
	"audiorelay/internal/transport"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

// HealthStatus is the message reported by the health endpoint.
const HealthStatus = "Audio relay service running"

// HealthResponse is the body of GET /.
type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// Server exposes the health endpoint and the audio WebSocket endpoint.
type Server struct {
	cfg      config.ServerConfig
	registry *session.Registry
	loop     *session.Loop
	upgrader *websocket.Upgrader
	http     *http.Server

	// sessionCtx is cancelled on Shutdown to end every session loop.
	sessionCtx    context.Context
	cancelSession context.CancelFunc
	handlers      sync.WaitGroup
}

// New creates a server. Sessions are registered in registry and driven by loop.
func New(cfg config.ServerConfig, registry *session.Registry, loop *session.Loop) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:           cfg,
		registry:      registry,
		loop:          loop,
		upgrader:      transport.NewUpgrader(cfg.ReadBufferSize, cfg.WriteBufferSize),
		sessionCtx:    ctx,
		cancelSession: cancel,
	}
	s.http = &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/", s.handleHealth)
	r.Get("/audio", s.handleAudio)
	return r
}

// ListenAndServe binds the configured address and serves until Shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	applog.Infof("Server: listening on %s", ln.Addr())
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, closes every session and waits for
// their handlers to return or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	applog.Infof("Server: shutting down (%d sessions)", s.registry.Len())

	err := s.http.Shutdown(ctx)
	s.cancelSession()
	s.registry.Close()

	done := make(chan struct{})
	go func() {
		s.handlers.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := HealthResponse{Status: HealthStatus, Sessions: s.registry.Len()}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		applog.Warnf("Server: failed to write health response: %v", err)
	}
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	if s.sessionCtx.Err() != nil {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	ws, err := transport.Upgrade(s.upgrader, w, r)
	if err != nil {
		// The upgrader has already written the HTTP error.
		applog.Warnf("Server: %v", err)
		return
	}

	var conn transport.Conn = ws
	if applog.GetLevel() == applog.LevelDebug {
		conn = transport.NewLoggingConn(ws, r.RemoteAddr)
	}

	s.handlers.Add(1)
	defer s.handlers.Done()

	if err := s.loop.Serve(s.sessionCtx, conn); err != nil {
		applog.Warnf("Server: session from %s rejected: %v", r.RemoteAddr, err)
	}
}

// requestLogger logs each request at debug level. It does not wrap the
// ResponseWriter so WebSocket hijacking keeps working.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		applog.Debugf("Server: %s %s from %s [%s] (%s)",
			r.Method, r.URL.Path, r.RemoteAddr, chimiddleware.GetReqID(r.Context()), time.Since(start))
	})
}
