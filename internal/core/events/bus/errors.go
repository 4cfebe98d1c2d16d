package bus

import "errors"

var (
	ErrNilHandler   = errors.New("bus: nil event handler")
	ErrHandlerPanic = errors.New("bus: event handler panicked")
)
