// Package playback cycles stored frames onto the display on a timer.
package playback

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var (
	ErrInvalidRange    = errors.New("begin slot after end slot")
	ErrInvalidInterval = errors.New("playback interval must be positive")
)

// FrameSource reads stored frames by slot.
type FrameSource interface {
	ReadFrame(slot int) ([]byte, error)
}

// Display receives one frame per tick.
type Display interface {
	Load(pixels []byte) error
	Flush() error
}

// State is the scheduler lifecycle.
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Running:
		return "Running"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Window is the active playback range. Current cycles over [Begin, End].
type Window struct {
	Begin    int
	End      int
	Current  int
	Interval time.Duration
}

// Scheduler is not safe for concurrent use. It belongs to the event loop,
// which also dispatches commands, so a tick in progress always finishes
// before the next command can stop it.
type Scheduler struct {
	src    FrameSource
	out    Display
	clock  Clock
	log    *zap.Logger
	state  State
	window Window
	ticker Ticker
	ticks  uint64
}

func New(src FrameSource, out Display, clock Clock, log *zap.Logger) *Scheduler {
	return &Scheduler{src: src, out: out, clock: clock, log: log}
}

// Start replaces any running playback with [begin, end] at interval.
// An invalid range leaves the scheduler stopped with an empty window.
func (s *Scheduler) Start(begin, end int, interval time.Duration) error {
	if begin > end {
		s.Reset()
		return fmt.Errorf("%w: %d > %d", ErrInvalidRange, begin, end)
	}
	if interval <= 0 {
		s.Reset()
		return fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}
	s.Stop()

	s.window = Window{Begin: begin, End: end, Current: begin, Interval: interval}
	s.ticker = s.clock.NewTicker(interval)
	s.state = Running
	s.log.Info("playback started",
		zap.Int("begin", begin),
		zap.Int("end", end),
		zap.Duration("interval", interval),
	)
	return nil
}

// Reset stops playback and clears the window.
func (s *Scheduler) Reset() {
	s.Stop()
	s.window = Window{}
}

// Stop cancels playback. Ticks already queued on the old ticker are never
// consumed because C returns nil once stopped. Reports whether playback
// was running.
func (s *Scheduler) Stop() bool {
	if s.state != Running {
		return false
	}
	s.ticker.Stop()
	s.ticker = nil
	s.state = Stopped
	s.log.Info("playback stopped", zap.Int("at_slot", s.window.Current), zap.Uint64("ticks", s.ticks))
	return true
}

// C is the tick channel to select on; nil while stopped.
func (s *Scheduler) C() <-chan time.Time {
	if s.ticker == nil {
		return nil
	}
	return s.ticker.C()
}

// Tick shows the frame at the current slot and advances, wrapping from End
// back to Begin. A read or flush failure is returned after the advance so
// one bad slot cannot stall the animation.
func (s *Scheduler) Tick() error {
	if s.state != Running {
		return nil
	}
	slot := s.window.Current
	s.window.Current++
	if s.window.Current > s.window.End {
		s.window.Current = s.window.Begin
	}
	s.ticks++

	frame, err := s.src.ReadFrame(slot)
	if err != nil {
		return fmt.Errorf("playback slot %d: %w", slot, err)
	}
	if err := s.out.Load(frame); err != nil {
		return fmt.Errorf("playback slot %d: %w", slot, err)
	}
	if err := s.out.Flush(); err != nil {
		return fmt.Errorf("playback slot %d: %w", slot, err)
	}
	return nil
}

func (s *Scheduler) State() State {
	return s.state
}

func (s *Scheduler) Window() Window {
	return s.window
}
