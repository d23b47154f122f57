package device

import "errors"

var (
	// ErrDuplicateKey indicates a live pair already exists under the key
	ErrDuplicateKey = errors.New("device key already exists")

	// ErrPoolFull indicates no free slot is left in the pool
	ErrPoolFull = errors.New("device pool is full")

	// ErrNotFound indicates no live pair exists under the key
	ErrNotFound = errors.New("device not found")
)
