// Package daemon wires configuration, adapters, the lifecycle manager and
// the control socket into one process-scoped object.
package daemon

import (
	"context"
	"fmt"

	"github.com/bnema/dispool/internal/config"
	"github.com/bnema/dispool/internal/control"
	"github.com/bnema/dispool/internal/device"
	"github.com/bnema/dispool/internal/display"
	"github.com/bnema/dispool/internal/ipc"
	"github.com/bnema/dispool/internal/logger"
	"github.com/bnema/dispool/internal/touch"
)

// Daemon owns the device pool and its control surface for the lifetime of
// the process.
type Daemon struct {
	manager *device.Manager
	server  *ipc.SocketServer
}

// New builds a daemon from configuration: a memory-backed display adapter,
// a uinput touch adapter, the lifecycle manager over a pool of the
// configured capacity, and the control socket.
func New(cfg *config.Config) (*Daemon, error) {
	displayAdapter, err := display.NewMemoryAdapter(cfg.Display.Mode, cfg.Display.VideoMemBytes)
	if err != nil {
		return nil, fmt.Errorf("display adapter: %w", err)
	}

	touchAdapter, err := touch.NewUinputAdapter(
		cfg.Touch.DevicePath, cfg.Touch.MaxX, cfg.Touch.MaxY, cfg.Touch.MaxContacts)
	if err != nil {
		return nil, fmt.Errorf("touch adapter: %w", err)
	}

	d := NewWithAdapters(cfg, displayAdapter, touchAdapter)

	// surfaces answer Uniq() through the pool, like the sysfs attribute did
	displayAdapter.SetKeyResolver(d.manager.ResolveKey)

	return d, nil
}

// NewWithAdapters builds a daemon around caller-supplied adapters
func NewWithAdapters(cfg *config.Config, d display.Adapter, t touch.Adapter) *Daemon {
	manager := device.NewManager(cfg.Pool.Capacity, d, t)
	channel := control.NewChannel(manager)
	server := ipc.NewSocketServer(cfg.SocketPath(), channel)

	return &Daemon{
		manager: manager,
		server:  server,
	}
}

// Manager exposes the lifecycle manager
func (d *Daemon) Manager() *device.Manager {
	return d.manager
}

// SocketPath returns the control socket path in use
func (d *Daemon) SocketPath() string {
	return d.server.Path()
}

// Start opens the control socket
func (d *Daemon) Start() error {
	if err := d.server.Start(); err != nil {
		return fmt.Errorf("control socket: %w", err)
	}
	logger.Info("daemon started",
		"capacity", d.manager.Pool().Capacity(), "socket", d.server.Path())
	return nil
}

// Stop closes the control socket and destroys every live pair
func (d *Daemon) Stop() {
	d.server.Stop()
	d.manager.ShutdownAll()
	logger.Info("daemon stopped")
}

// Run starts the daemon and blocks until the context is cancelled
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	d.Stop()
	return nil
}
