package scene

import "errors"

var (
	ErrUnknownComponent = errors.New("scene: unknown component identifier")
	ErrUnknownSystem    = errors.New("scene: unknown system identifier")
	ErrNilComponent     = errors.New("scene: factory returned no component")
	ErrFactoryPanic     = errors.New("scene: factory panicked")
	ErrMissingParam     = errors.New("scene: missing parameter")
	ErrBadParam         = errors.New("scene: bad parameter")
	ErrEntityIndex      = errors.New("scene: entity index out of range")
	ErrMalformed        = errors.New("scene: malformed document")
	ErrEmptySource      = errors.New("scene: empty source")
)
