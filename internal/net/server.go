package net

import (
	"errors"
	"net"
	"sync/atomic"

	"go.uber.org/zap"
)

// Server accepts TCP connections and creates Sessions. Every session
// reports its lifecycle and data on the shared Events channel.
type Server struct {
	listener net.Listener
	nextID   atomic.Uint64
	events   chan Event
	cfg      SessionConfig
	log      *zap.Logger
	closeCh  chan struct{}
}

func NewServer(bindAddr string, cfg SessionConfig, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: ln,
		events:   make(chan Event, 64),
		cfg:      cfg,
		log:      log,
		closeCh:  make(chan struct{}),
	}, nil
}

// AcceptLoop runs in its own goroutine until Shutdown. Each accepted
// connection is announced with a Connect event before its reader starts,
// so the loop never sees Data from a session it does not know.
func (s *Server) AcceptLoop() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return nil // server shutting down
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.log.Error("accept failed", zap.Error(err))
			continue
		}

		id := s.nextID.Add(1)
		sess := NewSession(conn, id, s.events, s.closeCh, s.cfg, s.log)
		s.log.Info("client connected", zap.Uint64("session", id), zap.String("ip", sess.IP))

		if !sess.emit(Event{Kind: EventConnect, Session: sess}) {
			sess.Close()
			return nil
		}
		sess.Start()
	}
}

// Events returns the channel of transport events.
func (s *Server) Events() <-chan Event {
	return s.events
}

// Shutdown stops accepting new connections and releases blocked sessions.
func (s *Server) Shutdown() {
	close(s.closeCh)
	s.listener.Close()
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
