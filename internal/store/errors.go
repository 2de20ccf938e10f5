package store

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrIDCollision = errors.New("appointment id already in use")
)
