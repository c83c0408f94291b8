package handler

import "github.com/pixelwall/server/internal/net/packet"

// HandleShowFull draws an 8-bit frame and flushes it.
func HandleShowFull(cmd *packet.ShowFull, deps *Deps) error {
	if err := deps.Frame.Load(cmd.Pixels[:]); err != nil {
		return err
	}
	return deps.Frame.Flush()
}

// HandleShowHalf expands a 4-bit frame, draws it and flushes it.
func HandleShowHalf(cmd *packet.ShowHalf, deps *Deps) error {
	pixels := cmd.Pixels()
	if err := deps.Frame.Load(pixels[:]); err != nil {
		return err
	}
	return deps.Frame.Flush()
}
