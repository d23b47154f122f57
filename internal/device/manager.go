package device

import (
	"fmt"

	"github.com/bnema/dispool/internal/display"
	"github.com/bnema/dispool/internal/logger"
	"github.com/bnema/dispool/internal/touch"
)

// Manager orchestrates pair creation and destruction. It is the only
// component that talks to both the pool and the adapters, and the only one
// that mutates slot state.
type Manager struct {
	pool    *Pool
	display display.Adapter
	touch   touch.Adapter
}

// NewManager creates a lifecycle manager over a fresh pool of the given
// capacity.
func NewManager(capacity int, d display.Adapter, t touch.Adapter) *Manager {
	return &Manager{
		pool:    NewPool(capacity),
		display: d,
		touch:   t,
	}
}

// Pool exposes the pool for inspection (live counts, capacity)
func (m *Manager) Pool() *Pool {
	return m.pool
}

// CreatePair creates a display+touch pair under the key. The slot is
// reserved first so concurrent creates settle duplicate and capacity
// questions before any adapter is called; adapter failures roll the slot
// back to free with nothing leaked.
func (m *Manager) CreatePair(key string) error {
	idx, err := m.pool.tryReserve(key)
	if err != nil {
		return err
	}
	logger.Debug("reserved pool slot", "key", key, "slot", idx)

	surf, err := m.display.Allocate()
	if err != nil {
		m.pool.abort(idx)
		return fmt.Errorf("display allocation for %q: %w", key, err)
	}

	dev, err := m.touch.Allocate(key)
	if err != nil {
		if relErr := m.display.Release(surf); relErr != nil {
			logger.Error("rollback display release failed", "key", key, "error", relErr)
		}
		m.pool.abort(idx)
		return fmt.Errorf("touch allocation for %q: %w", key, err)
	}

	m.pool.finalize(idx, surf, dev)
	logger.Info("created device pair", "key", key, "slot", idx, "surface", surf.ID())
	return nil
}

// DestroyPair tears down the pair under the key. The slot is freed before
// the adapters are called so the key is immediately reusable; adapter
// teardown is best-effort and never retried.
func (m *Manager) DestroyPair(key string) error {
	pair, err := m.pool.releaseByKey(key)
	if err != nil {
		logger.Warn("destroy: device not found", "key", key)
		return err
	}

	m.teardown(key, pair)
	logger.Info("destroyed device pair", "key", key)
	return nil
}

// ShutdownAll destroys every live pair. Called once at process shutdown.
func (m *Manager) ShutdownAll() {
	pairs := m.pool.releaseAll()
	for _, pair := range pairs {
		m.teardown("", pair)
	}
	if len(pairs) > 0 {
		logger.Info("destroyed remaining device pairs", "count", len(pairs))
	}
}

// ResolveKey maps a live display surface back to its pool key, or "" once
// the pair is gone.
func (m *Manager) ResolveKey(s *display.Surface) string {
	return m.pool.findKeyByDisplay(s)
}

// teardown unregisters a released pair's handles, touch first so no surface
// lingers with its paired input source already unreachable by key.
func (m *Manager) teardown(key string, pair HandlePair) {
	if pair.Touch != nil {
		if err := m.touch.Release(pair.Touch); err != nil {
			logger.Error("touch teardown failed", "key", key, "error", err)
		}
	}
	if pair.Display != nil {
		if err := m.display.Release(pair.Display); err != nil {
			logger.Error("display teardown failed", "key", key, "error", err)
		}
	}
}
