// Package touch provides the touch-input adapter boundary: registration and
// teardown of synthetic touch devices paired with display surfaces.
package touch

import "errors"

var (
	// ErrDeviceClosed indicates an operation on an already-released device
	ErrDeviceClosed = errors.New("touch: device already released")

	// ErrInvalidBounds indicates unusable coordinate bounds or contact count
	ErrInvalidBounds = errors.New("touch: invalid device bounds")
)

// Device is a registered synthetic touch input source
type Device interface {
	// Key returns the pool key the device was registered under
	Key() string

	// Close unregisters the device
	Close() error
}

// Adapter registers and unregisters touch devices
type Adapter interface {
	// Allocate registers a new touch device carrying the given pool key so
	// consumers enumerating input devices can recover the pairing
	Allocate(key string) (Device, error)

	// Release unregisters a device
	Release(d Device) error
}
