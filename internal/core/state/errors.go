package state

import "errors"

var (
	ErrDuplicateSystem = errors.New("state: system already registered")
	ErrUnknownSystem   = errors.New("state: no such system")
	ErrStateStopped    = errors.New("state: state has been stopped")
	ErrNoState         = errors.New("state: no current state")
)
