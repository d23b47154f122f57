package display

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bnema/dispool/internal/logger"
)

// Mode is a parsed video mode
type Mode struct {
	Width   int
	Height  int
	Depth   int // bits per pixel
	Refresh int // Hz
}

// ParseMode parses a mode string of the form WxH-depth@refresh. Depth and
// refresh are optional and default to 8 bpp at 60 Hz.
func ParseMode(s string) (Mode, error) {
	m := Mode{Depth: 8, Refresh: 60}

	rest := s
	if at := strings.IndexByte(rest, '@'); at >= 0 {
		hz, err := strconv.Atoi(rest[at+1:])
		if err != nil || hz <= 0 {
			return Mode{}, fmt.Errorf("%w: %q", ErrInvalidMode, s)
		}
		m.Refresh = hz
		rest = rest[:at]
	}
	if dash := strings.IndexByte(rest, '-'); dash >= 0 {
		depth, err := strconv.Atoi(rest[dash+1:])
		if err != nil || depth <= 0 || depth > 32 {
			return Mode{}, fmt.Errorf("%w: %q", ErrInvalidMode, s)
		}
		m.Depth = depth
		rest = rest[:dash]
	}

	x := strings.IndexByte(rest, 'x')
	if x < 0 {
		return Mode{}, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	w, errW := strconv.Atoi(rest[:x])
	h, errH := strconv.Atoi(rest[x+1:])
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return Mode{}, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	m.Width = w
	m.Height = h
	return m, nil
}

// LineLength returns the length of one scanline in bytes, padded to a
// 32-bit boundary.
func (m Mode) LineLength() int {
	bits := m.Width * m.Depth
	bits = (bits + 31) &^ 31
	return bits >> 3
}

// Size returns the frame buffer size in bytes for this mode
func (m Mode) Size() int {
	return m.LineLength() * m.Height
}

func (m Mode) String() string {
	return fmt.Sprintf("%dx%d-%d@%d", m.Width, m.Height, m.Depth, m.Refresh)
}

// Surface is a memory-backed display surface. The pixel buffer lives for
// exactly as long as the surface is registered with its adapter.
type Surface struct {
	id   uint64
	mode Mode

	mu       sync.Mutex
	buf      []byte
	released bool

	resolver KeyResolver
}

// ID returns the surface's registration number, unique per adapter
func (s *Surface) ID() uint64 { return s.id }

// Mode returns the surface's active video mode
func (s *Surface) Mode() Mode { return s.mode }

// Buffer exposes the surface's pixel memory. Returns nil after release.
func (s *Surface) Buffer() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	return s.buf
}

// Uniq reports the pool key this surface belongs to, or "" if the surface
// is not (or no longer) part of a live pair. This is the read-only
// identification attribute consumers use to map an enumerated surface back
// to its control-channel key.
func (s *Surface) Uniq() string {
	if s.resolver == nil {
		return ""
	}
	return s.resolver(s)
}

// MemoryAdapter allocates surfaces backed by plain memory buffers in the
// configured preferred mode, enforcing a per-surface memory budget.
type MemoryAdapter struct {
	mode   Mode
	budget int
	nextID atomic.Uint64

	resolver KeyResolver
}

// NewMemoryAdapter creates an adapter for the given mode string and
// per-surface memory budget in bytes.
func NewMemoryAdapter(modeStr string, budget int) (*MemoryAdapter, error) {
	mode, err := ParseMode(modeStr)
	if err != nil {
		return nil, err
	}
	if mode.Size() > budget {
		return nil, fmt.Errorf("%w: mode %s needs %d bytes, budget is %d",
			ErrOutOfMemory, mode, mode.Size(), budget)
	}
	return &MemoryAdapter{mode: mode, budget: budget}, nil
}

// SetKeyResolver wires in the callback used by Surface.Uniq. Must be called
// before the first Allocate.
func (a *MemoryAdapter) SetKeyResolver(r KeyResolver) {
	a.resolver = r
}

// Allocate creates a new surface in the preferred mode
func (a *MemoryAdapter) Allocate() (*Surface, error) {
	s := &Surface{
		id:       a.nextID.Add(1),
		mode:     a.mode,
		buf:      make([]byte, a.mode.Size()),
		resolver: a.resolver,
	}
	logger.Debug("allocated display surface", "id", s.id, "mode", a.mode.String())
	return s, nil
}

// Release frees a surface's pixel memory. Releasing twice is an error but
// leaves the surface in the released state either way.
func (a *MemoryAdapter) Release(s *Surface) error {
	if s == nil {
		return ErrSurfaceClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return ErrSurfaceClosed
	}
	s.released = true
	s.buf = nil
	logger.Debug("released display surface", "id", s.id)
	return nil
}
