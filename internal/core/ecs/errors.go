package ecs

import "errors"

var (
	ErrInvalidFamily = errors.New("ecs: invalid family")
	ErrFamilyRebind  = errors.New("ecs: type already resolved to a different family")
)
