package systems

import "errors"

var (
	ErrNilSystem      = errors.New("systems: nil system")
	ErrNilStore       = errors.New("systems: nil store")
	ErrNoFamily       = errors.New("systems: system has no family")
	ErrRunnerStopped  = errors.New("systems: runner is stopped and cannot be restarted")
	ErrAlreadyRunning = errors.New("systems: runner already running")
	ErrTickPanic      = errors.New("systems: panic during tick")
)
