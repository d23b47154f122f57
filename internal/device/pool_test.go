package device

import (
	"errors"
	"strings"
	"testing"

	"github.com/bnema/dispool/internal/display"
)

func newTestSurface(t *testing.T) *display.Surface {
	t.Helper()
	adapter, err := display.NewMemoryAdapter("64x48-8@60", 1<<20)
	if err != nil {
		t.Fatalf("NewMemoryAdapter: %v", err)
	}
	s, err := adapter.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	return s
}

func TestPoolReserve(t *testing.T) {
	t.Run("duplicate key is rejected", func(t *testing.T) {
		p := NewPool(4)
		idx, err := p.tryReserve("room-1")
		if err != nil {
			t.Fatalf("first reserve failed: %v", err)
		}
		p.finalize(idx, newTestSurface(t), &fakeTouchDevice{key: "room-1"})

		if _, err := p.tryReserve("room-1"); !errors.Is(err, ErrDuplicateKey) {
			t.Errorf("expected ErrDuplicateKey, got %v", err)
		}
		if got := p.LiveCount(); got != 1 {
			t.Errorf("live count changed by rejected reserve: %d", got)
		}
	})

	t.Run("reserved key already blocks duplicates", func(t *testing.T) {
		p := NewPool(4)
		if _, err := p.tryReserve("room-1"); err != nil {
			t.Fatalf("reserve failed: %v", err)
		}
		// second reserve races the pre-finalize window
		if _, err := p.tryReserve("room-1"); !errors.Is(err, ErrDuplicateKey) {
			t.Errorf("expected ErrDuplicateKey during reserved window, got %v", err)
		}
	})

	t.Run("full pool is rejected", func(t *testing.T) {
		p := NewPool(2)
		for _, key := range []string{"a", "b"} {
			idx, err := p.tryReserve(key)
			if err != nil {
				t.Fatalf("reserve %q failed: %v", key, err)
			}
			p.finalize(idx, newTestSurface(t), &fakeTouchDevice{key: key})
		}
		if _, err := p.tryReserve("c"); !errors.Is(err, ErrPoolFull) {
			t.Errorf("expected ErrPoolFull, got %v", err)
		}
		if got := p.LiveCount(); got != 2 {
			t.Errorf("expected 2 live entries, got %d", got)
		}
	})

	t.Run("abort frees the slot for reuse", func(t *testing.T) {
		p := NewPool(1)
		idx, err := p.tryReserve("a")
		if err != nil {
			t.Fatalf("reserve failed: %v", err)
		}
		p.abort(idx)
		if _, err := p.tryReserve("a"); err != nil {
			t.Errorf("reserve after abort failed: %v", err)
		}
	})

	t.Run("key is truncated to the limit", func(t *testing.T) {
		p := NewPool(2)
		long := strings.Repeat("x", KeyMaxLen+10)
		idx, err := p.tryReserve(long)
		if err != nil {
			t.Fatalf("reserve failed: %v", err)
		}
		p.finalize(idx, newTestSurface(t), &fakeTouchDevice{})

		// the truncated form denotes the same entry
		if _, err := p.tryReserve(long[:KeyMaxLen]); !errors.Is(err, ErrDuplicateKey) {
			t.Errorf("expected ErrDuplicateKey for truncated form, got %v", err)
		}
	})
}

func TestPoolRelease(t *testing.T) {
	t.Run("release returns the attached handles", func(t *testing.T) {
		p := NewPool(2)
		surf := newTestSurface(t)
		dev := &fakeTouchDevice{key: "a"}
		idx, err := p.tryReserve("a")
		if err != nil {
			t.Fatalf("reserve failed: %v", err)
		}
		p.finalize(idx, surf, dev)

		pair, err := p.releaseByKey("a")
		if err != nil {
			t.Fatalf("releaseByKey failed: %v", err)
		}
		if pair.Display != surf || pair.Touch != dev {
			t.Error("released handles do not match attached handles")
		}
		if got := p.LiveCount(); got != 0 {
			t.Errorf("expected empty pool, got %d live", got)
		}
	})

	t.Run("unknown key reports not found", func(t *testing.T) {
		p := NewPool(2)
		if _, err := p.releaseByKey("missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("reserved slot is not releasable", func(t *testing.T) {
		p := NewPool(2)
		if _, err := p.tryReserve("a"); err != nil {
			t.Fatalf("reserve failed: %v", err)
		}
		if _, err := p.releaseByKey("a"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for reserved slot, got %v", err)
		}
	})

	t.Run("releaseAll drains every live slot", func(t *testing.T) {
		p := NewPool(4)
		for _, key := range []string{"a", "b", "c"} {
			idx, err := p.tryReserve(key)
			if err != nil {
				t.Fatalf("reserve %q failed: %v", key, err)
			}
			p.finalize(idx, newTestSurface(t), &fakeTouchDevice{key: key})
		}

		pairs := p.releaseAll()
		if len(pairs) != 3 {
			t.Fatalf("expected 3 pairs, got %d", len(pairs))
		}
		if got := p.LiveCount(); got != 0 {
			t.Errorf("expected empty pool, got %d live", got)
		}
		if more := p.releaseAll(); len(more) != 0 {
			t.Errorf("second releaseAll returned %d pairs", len(more))
		}
	})
}

func TestPoolFindKeyByDisplay(t *testing.T) {
	p := NewPool(2)
	surf := newTestSurface(t)
	idx, err := p.tryReserve("room-1")
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	p.finalize(idx, surf, &fakeTouchDevice{key: "room-1"})

	if got := p.findKeyByDisplay(surf); got != "room-1" {
		t.Errorf("expected room-1, got %q", got)
	}
	if got := p.findKeyByDisplay(newTestSurface(t)); got != "" {
		t.Errorf("expected empty key for foreign surface, got %q", got)
	}

	if _, err := p.releaseByKey("room-1"); err != nil {
		t.Fatalf("releaseByKey failed: %v", err)
	}
	if got := p.findKeyByDisplay(surf); got != "" {
		t.Errorf("expected empty key after release, got %q", got)
	}
}
