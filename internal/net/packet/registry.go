package packet

import (
	"fmt"

	"go.uber.org/zap"
)

// HandlerFunc is the callback signature for command handlers.
type HandlerFunc func(cmd Command) error

// Registry maps opcodes to handlers.
type Registry struct {
	handlers map[byte]HandlerFunc
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[byte]HandlerFunc),
		log:      log,
	}
}

// Register maps an opcode to a handler. A later registration replaces an
// earlier one.
func (reg *Registry) Register(opcode byte, fn HandlerFunc) {
	reg.handlers[opcode] = fn
}

// Dispatch finds the handler for cmd's opcode and calls it. Handler errors
// are returned as-is; a missing handler is reported as ErrUnknownType.
func (reg *Registry) Dispatch(cmd Command) error {
	opcode := cmd.Opcode()
	reg.log.Debug("dispatch", zap.String("cmd", Name(opcode)))

	fn, ok := reg.handlers[opcode]
	if !ok {
		return fmt.Errorf("%w: no handler for %s", ErrUnknownType, Name(opcode))
	}
	return reg.safeCall(fn, cmd, opcode)
}

// safeCall executes a handler with panic recovery so a single bad message
// cannot take down the event loop.
func (reg *Registry) safeCall(fn HandlerFunc, cmd Command, opcode byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("handler panic recovered",
				zap.String("cmd", Name(opcode)),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for %s: %v", Name(opcode), rec)
		}
	}()
	return fn(cmd)
}
