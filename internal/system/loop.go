// Package system runs the server's single event loop: transport events and
// playback ticks are serialized here, so commands and frames never race.
package system

import (
	"context"
	"time"

	"github.com/pixelwall/server/internal/net"
	"go.uber.org/zap"
)

// Player is the playback scheduler as seen by the loop.
type Player interface {
	Preemptor
	C() <-chan time.Time
	Tick() error
}

// Loop selects over transport events and playback ticks.
type Loop struct {
	events <-chan net.Event
	input  *InputSystem
	player Player
	log    *zap.Logger
}

func NewLoop(events <-chan net.Event, input *InputSystem, player Player, log *zap.Logger) *Loop {
	return &Loop{events: events, input: input, player: player, log: log}
}

// Run processes events until ctx is cancelled or the event channel closes.
// Playback is stopped on the way out.
func (l *Loop) Run(ctx context.Context) error {
	defer l.player.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-l.events:
			if !ok {
				return nil
			}
			l.input.Handle(ev)
		case <-l.player.C():
			if err := l.player.Tick(); err != nil {
				l.log.Warn("playback tick failed", zap.Error(err))
			}
		}
	}
}
