// Package display provides the display-surface adapter boundary. The pool
// core depends only on the Adapter interface; concrete backends own pixel
// memory and mode negotiation.
package display

import "errors"

var (
	// ErrOutOfMemory indicates the requested mode does not fit the
	// per-surface memory budget, or no surface slot is available.
	ErrOutOfMemory = errors.New("display: out of video memory")

	// ErrInvalidMode indicates the configured mode string could not be parsed
	ErrInvalidMode = errors.New("display: invalid mode")

	// ErrSurfaceClosed indicates an operation on a released surface
	ErrSurfaceClosed = errors.New("display: surface already released")
)

// KeyResolver maps a live surface back to the pool key that created it.
// Wired in by the daemon; returns "" when the surface is unknown.
type KeyResolver func(s *Surface) string

// Adapter allocates and releases display surfaces
type Adapter interface {
	// Allocate creates a new surface in the preferred mode
	Allocate() (*Surface, error)

	// Release tears down a surface and frees its pixel memory
	Release(s *Surface) error
}
