package display

import "errors"

// Sink consumes flushed frames. Implementations are synchronous and bounded.
type Sink interface {
	Flush(f *Frame) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(f *Frame) error

func (fn SinkFunc) Flush(f *Frame) error { return fn(f) }

// Discard drops every frame.
var Discard Sink = SinkFunc(func(*Frame) error { return nil })

// MultiSink flushes to every sink in order and joins their errors.
type MultiSink []Sink

func (m MultiSink) Flush(f *Frame) error {
	var errs []error
	for _, s := range m {
		if err := s.Flush(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
