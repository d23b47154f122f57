package touch

import (
	"fmt"
	"io"

	"github.com/ThomasT75/uinput"
	"github.com/bnema/dispool/internal/logger"
)

// deviceName is the base name touch devices register under; the pool key is
// appended so the pairing survives into the input-device listing.
const deviceName = "Virtual touchscreen"

// uinputNameMax is the uinput device-name limit; composed names are clipped
// to it so a max-length pool key still registers.
const uinputNameMax = 80

// createFunc is the registration seam, matching uinput.CreateMultiTouch
type createFunc func(path string, name []byte, minX, maxX, minY, maxY int32, contacts int) (io.Closer, error)

// uinputDevice wraps a registered uinput multi-touch device
type uinputDevice struct {
	dev    io.Closer
	key    string
	closed bool
}

func (d *uinputDevice) Key() string { return d.key }

func (d *uinputDevice) Close() error {
	if d.closed {
		return ErrDeviceClosed
	}
	d.closed = true
	return d.dev.Close()
}

// UinputAdapter registers touch devices through the uinput subsystem
type UinputAdapter struct {
	path        string
	maxX, maxY  int32
	maxContacts int
	create      createFunc
}

// NewUinputAdapter creates an adapter registering devices at the given
// uinput path with the given coordinate bounds and contact limit.
func NewUinputAdapter(path string, maxX, maxY int32, maxContacts int) (*UinputAdapter, error) {
	if maxX <= 0 || maxY <= 0 || maxContacts <= 0 {
		return nil, fmt.Errorf("%w: %dx%d, %d contacts", ErrInvalidBounds, maxX, maxY, maxContacts)
	}
	return &UinputAdapter{
		path:        path,
		maxX:        maxX,
		maxY:        maxY,
		maxContacts: maxContacts,
		create: func(path string, name []byte, minX, maxX, minY, maxY int32, contacts int) (io.Closer, error) {
			return uinput.CreateMultiTouch(path, name, minX, maxX, minY, maxY, int32(contacts))
		},
	}, nil
}

// Allocate registers a new multi-contact touch device named after the pool
// key.
func (a *UinputAdapter) Allocate(key string) (Device, error) {
	name := composeName(key)
	dev, err := a.create(a.path, []byte(name), 0, a.maxX, 0, a.maxY, a.maxContacts)
	if err != nil {
		return nil, fmt.Errorf("failed to register touch device: %w", err)
	}
	logger.Debug("registered touch device", "key", key, "bounds",
		fmt.Sprintf("%dx%d", a.maxX, a.maxY), "contacts", a.maxContacts)
	return &uinputDevice{dev: dev, key: key}, nil
}

// Release unregisters a device
func (a *UinputAdapter) Release(d Device) error {
	if d == nil {
		return ErrDeviceClosed
	}
	return d.Close()
}

// composeName appends the pool key to the base device name, clipped to the
// uinput limit.
func composeName(key string) string {
	name := deviceName
	if key != "" {
		name = fmt.Sprintf("%s (%s)", deviceName, key)
	}
	if len(name) > uinputNameMax {
		name = name[:uinputNameMax]
	}
	return name
}
