package handler

import (
	"errors"
	"fmt"

	"github.com/pixelwall/server/internal/net/packet"
	"github.com/pixelwall/server/internal/persist"
	"go.uber.org/zap"
)

// HandleWriteFrame stores one frame. Medium failures are not retried.
func HandleWriteFrame(cmd *packet.WriteFrame, deps *Deps) error {
	err := deps.Store.WriteFrame(int(cmd.Slot), cmd.Pixels[:])
	if err == nil {
		return nil
	}
	var merr *persist.MediumError
	if errors.As(err, &merr) {
		deps.Log.Error("frame write failed",
			zap.Uint16("slot", cmd.Slot),
			zap.String("op", merr.Op),
			zap.Int("block", merr.Block),
			zap.Error(merr.Err),
		)
	} else {
		deps.Log.Warn("frame write rejected", zap.Uint16("slot", cmd.Slot), zap.Error(err))
	}
	return err
}

// HandlePlayRange starts playback over stored slots. A bad range leaves
// playback stopped with an empty window.
func HandlePlayRange(cmd *packet.PlayRange, deps *Deps) error {
	if capacity := deps.Store.Capacity(); int(cmd.End) >= capacity {
		deps.Player.Reset()
		err := fmt.Errorf("%w: end slot %d (capacity %d)", persist.ErrSlotRange, cmd.End, capacity)
		deps.Log.Warn("play range rejected", zap.Error(err))
		return err
	}
	if err := deps.Player.Start(int(cmd.Begin), int(cmd.End), cmd.Interval()); err != nil {
		deps.Log.Warn("play range rejected", zap.Error(err))
		return err
	}
	return nil
}
