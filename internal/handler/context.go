package handler

import (
	"github.com/pixelwall/server/internal/display"
	"github.com/pixelwall/server/internal/net/packet"
	"github.com/pixelwall/server/internal/persist"
	"github.com/pixelwall/server/internal/playback"
	"go.uber.org/zap"
)

// Deps holds shared dependencies injected into all command handlers.
type Deps struct {
	Frame  *display.FrameBuffer
	Store  *persist.Store
	Player *playback.Scheduler
	Log    *zap.Logger
}

// RegisterAll registers all command handlers into the registry.
func RegisterAll(reg *packet.Registry, deps *Deps) {
	reg.Register(packet.OpShowFull, func(cmd packet.Command) error {
		return HandleShowFull(cmd.(*packet.ShowFull), deps)
	})
	reg.Register(packet.OpShowHalf, func(cmd packet.Command) error {
		return HandleShowHalf(cmd.(*packet.ShowHalf), deps)
	})
	reg.Register(packet.OpWriteFrame, func(cmd packet.Command) error {
		return HandleWriteFrame(cmd.(*packet.WriteFrame), deps)
	})
	reg.Register(packet.OpPlayRange, func(cmd packet.Command) error {
		return HandlePlayRange(cmd.(*packet.PlayRange), deps)
	})
}
