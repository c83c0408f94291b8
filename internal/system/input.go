package system

import (
	"github.com/pixelwall/server/internal/net"
	"github.com/pixelwall/server/internal/net/packet"
	"go.uber.org/zap"
)

// Preemptor is the part of the playback scheduler the input path needs.
type Preemptor interface {
	Stop() bool
}

// InputSystem turns transport events into dispatched commands. It owns the
// reassembly buffer of the one live session; a newer connection replaces
// the older one.
type InputSystem struct {
	registry *packet.Registry
	player   Preemptor
	active   *net.Session
	asm      *net.Reassembler
	log      *zap.Logger
}

func NewInputSystem(registry *packet.Registry, player Preemptor, log *zap.Logger) *InputSystem {
	return &InputSystem{
		registry: registry,
		player:   player,
		asm:      net.NewReassembler(),
		log:      log,
	}
}

// Active returns the live session, or nil.
func (s *InputSystem) Active() *net.Session {
	return s.active
}

// Handle processes one transport event.
func (s *InputSystem) Handle(ev net.Event) {
	switch ev.Kind {
	case net.EventConnect:
		if s.active != nil && s.active != ev.Session {
			s.log.Info("replacing client", zap.Uint64("old", s.active.ID), zap.Uint64("new", ev.Session.ID))
			s.active.Close()
		}
		s.active = ev.Session
		s.asm.Reset()

	case net.EventData:
		if ev.Session != s.active {
			return
		}
		s.handleData(ev.Session, ev.Data)

	case net.EventDisconnect:
		if ev.Session != s.active {
			return
		}
		if n := s.asm.Pending(); n > 0 {
			s.log.Debug("discarding partial packet", zap.Uint64("session", ev.Session.ID), zap.Int("bytes", n))
		}
		s.active = nil
		s.asm.Reset()
		s.log.Info("client disconnected", zap.Uint64("session", ev.Session.ID))
	}
}

// handleData reassembles a chunk and runs every completed command. Each
// command is acknowledged as soon as it is decoded, and any running
// playback is stopped before the command takes effect.
func (s *InputSystem) handleData(sess *net.Session, chunk []byte) {
	packets, dropped := s.asm.Feed(chunk)
	if dropped > 0 {
		s.log.Debug("dropped unknown bytes", zap.Uint64("session", sess.ID), zap.Int("count", dropped))
	}

	for _, raw := range packets {
		cmd, err := packet.Decode(raw)
		if err != nil {
			s.log.Warn("decode failed", zap.Uint64("session", sess.ID), zap.Error(err))
			continue
		}

		if err := sess.Send(packet.AckMessage[:]); err != nil {
			s.log.Warn("ack not queued", zap.Uint64("session", sess.ID), zap.Error(err))
		}

		if s.player.Stop() {
			s.log.Debug("playback preempted", zap.String("by", packet.Name(cmd.Opcode())))
		}

		if err := s.registry.Dispatch(cmd); err != nil {
			s.log.Warn("command failed",
				zap.Uint64("session", sess.ID),
				zap.String("cmd", packet.Name(cmd.Opcode())),
				zap.Error(err),
			)
		}
	}
}
