package net

import (
	"errors"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrQueueFull is returned by Send when the writer has fallen behind.
var ErrQueueFull = errors.New("output queue full")

// readBufferSize matches the receive buffer of the firmware this protocol
// was designed for; any chunk size works.
const readBufferSize = 2048

// Session represents a single client connection. Network I/O runs in
// dedicated goroutines; everything else happens on the event loop.
type Session struct {
	ID   uint64
	IP   string
	conn net.Conn

	events chan<- Event
	done   <-chan struct{} // closed when the server shuts down

	OutQueue chan []byte // writer goroutine reads from here

	idleTimeout  time.Duration
	writeTimeout time.Duration

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	log *zap.Logger
}

// SessionConfig carries the per-connection transport settings.
type SessionConfig struct {
	OutQueueSize int
	IdleTimeout  time.Duration // 0 disables the idle disconnect
	WriteTimeout time.Duration
}

func NewSession(conn net.Conn, id uint64, events chan<- Event, done <-chan struct{}, cfg SessionConfig, log *zap.Logger) *Session {
	return &Session{
		ID:           id,
		IP:           conn.RemoteAddr().String(),
		conn:         conn,
		events:       events,
		done:         done,
		OutQueue:     make(chan []byte, cfg.OutQueueSize),
		idleTimeout:  cfg.IdleTimeout,
		writeTimeout: cfg.WriteTimeout,
		closeCh:      make(chan struct{}),
		log:          log.With(zap.Uint64("session", id)),
	}
}

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Send queues data for the writer without blocking. Delivery is not
// confirmed; a full queue drops the data and reports ErrQueueFull.
func (s *Session) Send(data []byte) error {
	if s.closed.Load() {
		return net.ErrClosed
	}
	select {
	case s.OutQueue <- data:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close gracefully shuts down the session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		s.conn.Close()
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// emit hands an event to the loop unless the server is going away.
func (s *Session) emit(ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

// readLoop runs in its own goroutine. It forwards raw chunks to the event
// loop as they arrive and reports a Disconnect on EOF, error, idle
// timeout, or Close.
func (s *Session) readLoop() {
	defer func() {
		s.Close()
		s.emit(Event{Kind: EventDisconnect, Session: s})
	}()

	buf := make([]byte, readBufferSize)
	for {
		if s.idleTimeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
		}
		n, err := s.conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			if !s.emit(Event{Kind: EventData, Session: s, Data: data}) {
				return
			}
		}
		if err != nil {
			switch {
			case s.closed.Load():
			case errors.Is(err, os.ErrDeadlineExceeded):
				s.log.Info("no data from client, disconnecting", zap.Duration("idle_timeout", s.idleTimeout))
			default:
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}
	}
}

// writeLoop runs in its own goroutine and writes queued replies. A failed
// write is logged and does not end the session; a dead connection is
// detected by the reader.
func (s *Session) writeLoop() {
	for {
		select {
		case data := <-s.OutQueue:
			if s.writeTimeout > 0 {
				s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			}
			if _, err := s.conn.Write(data); err != nil && !s.closed.Load() {
				s.log.Warn("write failed", zap.Int("len", len(data)), zap.Error(err))
			}
		case <-s.closeCh:
			return
		}
	}
}
