package chat

import (
	"errors"
	"log/slog"
	"net"
	"sync"
)

type Server struct {
	addr    string
	logger  *slog.Logger
	reg     *Registry
	handler *Handler

	mu       sync.Mutex // guards listener, conns and stopping
	listener net.Listener
	conns    map[net.Conn]struct{}
	stopping bool
	wg       sync.WaitGroup
}

func NewServer(addr string, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	reg := NewRegistry()
	s := &Server{
		addr:    addr,
		logger:  logger,
		reg:     reg,
		handler: NewHandler(reg, NewDispatcher(logger), logger),
		conns:   make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Server) Registry() *Registry {
	return s.reg
}

// Addr returns the bound address once Start succeeded.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop(ln)
	}()

	s.logger.Info("server started", "addr", ln.Addr().String())
	return nil
}

// Stop closes the listener, closes every live connection so its handler
// runs the leave path, and waits for all handlers to return.
func (s *Server) Stop() {
	s.logger.Info("shutting down")

	s.mu.Lock()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.stopping = true
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()

	s.logger.Info("shutdown complete")
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}

		s.logger.Debug("client connected", "addr", conn.RemoteAddr().String())

		s.track(conn, true)
		s.wg.Add(1)
		go func() {
			defer func() {
				s.track(conn, false)
				s.wg.Done()
			}()
			s.handler.Serve(conn)
		}()
	}
}

func (s *Server) track(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
		if s.stopping {
			_ = conn.Close()
		}
		return
	}
	delete(s.conns, conn)
}
