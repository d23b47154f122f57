// Package device implements the bounded pool of keyed display+touch pairs
// and the lifecycle manager that creates and destroys them.
package device

import (
	"sync"

	"github.com/bnema/dispool/internal/display"
	"github.com/bnema/dispool/internal/touch"
)

// KeyMaxLen is the maximum key length in bytes; longer keys are truncated
// before they reach the pool.
const KeyMaxLen = 64

type slotState int

const (
	slotFree slotState = iota
	slotReserved
	slotLive
)

// slot is one entry in the fixed-size pool. A slot is reserved while its
// adapters are being attached and live once both handles are in place.
type slot struct {
	state   slotState
	key     string
	display *display.Surface
	touch   touch.Device
}

// HandlePair is a released slot's adapter handles, returned to the caller
// for out-of-lock teardown.
type HandlePair struct {
	Display *display.Surface
	Touch   touch.Device
}

// Pool is the fixed-capacity registry of keyed device pairs. All state
// transitions happen under one mutex covering the full scan-and-mutate
// sequence; adapter handles are only ever touched outside the lock.
type Pool struct {
	mu    sync.Mutex
	slots []slot
}

// NewPool creates a pool with the given fixed capacity
func NewPool(capacity int) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	return &Pool{slots: make([]slot, capacity)}
}

// Capacity returns the pool's fixed slot count
func (p *Pool) Capacity() int {
	return len(p.slots)
}

// LiveCount returns the number of live pairs
func (p *Pool) LiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for i := range p.slots {
		if p.slots[i].state == slotLive {
			n++
		}
	}
	return n
}

// tryReserve claims a free slot for the key. The duplicate scan and the
// free-slot claim form a single critical section so two concurrent creates
// can neither share a slot nor both miss a duplicate.
func (p *Pool) tryReserve(key string) (int, error) {
	key = clampKey(key)

	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.slots {
		if p.slots[i].state != slotFree && p.slots[i].key == key {
			return -1, ErrDuplicateKey
		}
	}
	for i := range p.slots {
		if p.slots[i].state == slotFree {
			p.slots[i].state = slotReserved
			p.slots[i].key = key
			return i, nil
		}
	}
	return -1, ErrPoolFull
}

// finalize transitions a reserved slot to live, attaching both handles
func (p *Pool) finalize(idx int, d *display.Surface, t touch.Device) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.slots[idx].state = slotLive
	p.slots[idx].display = d
	p.slots[idx].touch = t
}

// abort rolls a reserved slot back to free, dropping any handle already
// attached. The handles themselves are the caller's to release.
func (p *Pool) abort(idx int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.slots[idx] = slot{}
}

// releaseByKey frees the live slot matching the key and hands its adapter
// handles to the caller for out-of-lock teardown. Only one of several
// racing callers wins; the rest see ErrNotFound. Key uniqueness among live
// slots means at most one slot can match, so the scan stops there.
func (p *Pool) releaseByKey(key string) (HandlePair, error) {
	key = clampKey(key)

	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.slots {
		if p.slots[i].state == slotLive && p.slots[i].key == key {
			pair := HandlePair{Display: p.slots[i].display, Touch: p.slots[i].touch}
			p.slots[i] = slot{}
			return pair, nil
		}
	}
	return HandlePair{}, ErrNotFound
}

// releaseAll frees every live slot and returns all handle pairs. Used at
// shutdown only.
func (p *Pool) releaseAll() []HandlePair {
	p.mu.Lock()
	defer p.mu.Unlock()

	var pairs []HandlePair
	for i := range p.slots {
		if p.slots[i].state == slotLive {
			pairs = append(pairs, HandlePair{Display: p.slots[i].display, Touch: p.slots[i].touch})
			p.slots[i] = slot{}
		}
	}
	return pairs
}

// findKeyByDisplay maps a live display handle back to its key, or "" when
// the handle does not belong to any live pair.
func (p *Pool) findKeyByDisplay(d *display.Surface) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.slots {
		if p.slots[i].state == slotLive && p.slots[i].display == d {
			return p.slots[i].key
		}
	}
	return ""
}

func clampKey(key string) string {
	if len(key) > KeyMaxLen {
		return key[:KeyMaxLen]
	}
	return key
}
