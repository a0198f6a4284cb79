// Package server runs the superlifter daemon: a JSON-RPC 2.0 endpoint
// served over WebSocket connections, dispatching method calls to the
// scheduler through the api package's handler map.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"

	"github.com/hkrishnan/superlifter/pkg/logger"
)

// Server accepts WebSocket connections and serves JSON-RPC on each.
type Server struct {
	log     logger.Logger
	addr    string
	methods handler.Map

	mu       sync.Mutex
	httpSrv  *http.Server
	listener net.Listener
}

// NewServer creates a Server listening on addr once started.
func NewServer(l logger.Logger, addr string, methods handler.Map) *Server {
	return &Server{
		log:     l,
		addr:    addr,
		methods: methods,
	}
}

// Start begins listening and blocks until the context is cancelled or the
// listener fails. Each WebSocket connection is served by its own jrpc2
// server instance in its own goroutine.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", s.handleWS)

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	srv := &http.Server{Handler: mux}
	s.mu.Lock()
	s.httpSrv = srv
	s.listener = ln
	s.mu.Unlock()

	// Watch for context cancellation to trigger shutdown.
	go func() {
		<-ctx.Done()
		if err := s.Shutdown(); err != nil {
			s.log.Error("shutdown: %v", err)
		}
	}()

	s.log.Info("daemon listening on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server, closing the listener and waiting
// briefly for in-flight requests. Safe to call more than once.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	srv := s.httpSrv
	s.httpSrv = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Addr returns the bound listener address, or empty before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// handleWS upgrades the request to a WebSocket and serves JSON-RPC over it
// until the peer disconnects.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := cws.Accept(w, r, nil)
	if err != nil {
		s.log.Error("websocket accept: %v", err)
		return
	}

	ch := &wsChannel{conn: conn, ctx: r.Context()}
	rpc := jrpc2.NewServer(s.methods, nil)
	rpc.Start(ch)
	if err := rpc.Wait(); err != nil {
		s.log.Debug("rpc session ended: %v", err)
	}
}
