package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/l0p7/seometa/internal/config"
)

const drainTimeout = 5 * time.Second

// Server runs one HTTP listener for the generator endpoints.
type Server struct {
	logger *slog.Logger
	http   *http.Server

	ready     chan struct{}
	readyOnce sync.Once

	mu    sync.Mutex
	bound net.Addr
}

// New prepares a server for handler on the configured listen address.
// Nothing is bound until Run.
func New(cfg config.Config, logger *slog.Logger, handler http.Handler) (*Server, error) {
	if handler == nil {
		return nil, errors.New("server: handler required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger: logger.With(slog.String("agent", "http_server")),
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Listen.Address, strconv.Itoa(cfg.Server.Listen.Port)),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		ready: make(chan struct{}),
	}, nil
}

// Ready is closed once Run has bound the listener.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr is the bound address once Ready, else the configured one. With port 0
// only the bound address is dialable.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bound != nil {
		return s.bound.String()
	}
	return s.http.Addr
}

// Run serves until ctx is done and then drains in-flight requests for up to
// drainTimeout. A clean drain returns ctx.Err().
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	s.mu.Lock()
	s.bound = ln.Addr()
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })
	s.logger.Info("http listener bound", slog.String("address", ln.Addr().String()))

	drained := make(chan error, 1)
	stop := context.AfterFunc(ctx, func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		s.logger.Info("http listener draining")
		drained <- s.http.Shutdown(drainCtx)
	})
	defer stop()

	if err := s.http.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: serve: %w", err)
	}
	if err := <-drained; err != nil {
		return fmt.Errorf("server: drain: %w", err)
	}
	return ctx.Err()
}
