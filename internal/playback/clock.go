package playback

import "time"

// Ticker delivers periodic ticks spaced start-to-start.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock creates tickers. Production code uses RealClock; tests inject a
// clock whose ticks they fire by hand.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

type realClock struct{}

// RealClock returns a Clock backed by time.Ticker. A slow consumer drops
// ticks instead of queueing them, so the period never drifts.
func RealClock() Clock { return realClock{} }

func (realClock) NewTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }
