// Package ipc exposes the control channel over a unix domain socket.
//
// The socket carries the textual control protocol unchanged: clients write
// newline-terminated `add <key>` / `del <key>` records. The server answers
// each processed chunk with `ok <bytes-consumed>`, refuses a second
// concurrent connection with `busy`, and serves the usage text to a client
// that half-closes without sending anything (the read path of the original
// character device).
package ipc

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/bnema/dispool/internal/control"
	"github.com/bnema/dispool/internal/device"
	"github.com/bnema/dispool/internal/logger"
)

// pendingMax bounds how much of a partial record the server will hold for a
// connection before dropping it.
const pendingMax = 2 * device.KeyMaxLen

// SocketServer accepts control connections and feeds them to the channel
type SocketServer struct {
	mu         sync.Mutex
	listener   net.Listener
	socketPath string
	channel    *control.Channel
	wg         sync.WaitGroup
	cancel     context.CancelFunc
	running    bool

	// exclusive-open flag: the control surface admits one consumer at a time
	open atomic.Bool

	connMu     sync.Mutex
	activeConn net.Conn
}

// NewSocketServer creates a server for the given socket path
func NewSocketServer(socketPath string, ch *control.Channel) *SocketServer {
	return &SocketServer{
		socketPath: socketPath,
		channel:    ch,
	}
}

// Start starts listening on the control socket
func (s *SocketServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create socket listener: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.listener = listener
	s.running = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.acceptConnections(ctx)

	logger.Infof("control socket listening at %s", s.socketPath)
	return nil
}

// Stop stops the server, disconnects any consumer and removes the socket
// file.
func (s *SocketServer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false

	if s.cancel != nil {
		s.cancel()
	}
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Unlock()

	s.connMu.Lock()
	if s.activeConn != nil {
		s.activeConn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	os.RemoveAll(s.socketPath)

	logger.Info("control socket stopped")
}

// Path returns the socket path the server listens on
func (s *SocketServer) Path() string {
	return s.socketPath
}

func (s *SocketServer) acceptConnections(ctx context.Context) {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				logger.Errorf("failed to accept connection: %v", err)
				continue
			}
		}

		if !s.open.CompareAndSwap(false, true) {
			logger.Warn("control socket busy, refusing second consumer")
			fmt.Fprintln(conn, "busy")
			conn.Close()
			continue
		}

		s.connMu.Lock()
		s.activeConn = conn
		s.connMu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.open.Store(false)
			defer func() {
				s.connMu.Lock()
				s.activeConn = nil
				s.connMu.Unlock()
				conn.Close()
			}()
			s.handleConnection(ctx, conn)
		}()
	}
}

// handleConnection feeds a consumer's byte stream through the channel.
// Complete lines are dispatched as they arrive; a trailing partial record
// is held until its newline shows up, standing in for the caller-must-
// resend contract of the raw channel.
func (s *SocketServer) handleConnection(ctx context.Context, conn net.Conn) {
	logger.Debug("control consumer connected")

	var pending []byte
	received := false
	chunk := make([]byte, 512)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := conn.Read(chunk)
		if n > 0 {
			received = true
			pending = append(pending, chunk[:n]...)

			consumed, werr := s.channel.Write(pending)
			if werr != nil && consumed == 0 {
				// no newline yet, keep buffering up to the cap
				if len(pending) > pendingMax {
					logger.Warn("dropping oversized partial record", "bytes", len(pending))
					pending = pending[:0]
					s.respond(conn, "incomplete")
				}
			} else {
				pending = pending[consumed:]
				s.respond(conn, fmt.Sprintf("ok %d", consumed))
			}
		}

		if err != nil {
			if err != io.EOF {
				logger.Debugf("control connection read error: %v", err)
			}
			break
		}
	}

	if !received {
		// a consumer that sends nothing is reading the channel
		s.serveUsage(conn)
		return
	}
	if len(pending) > 0 {
		logger.Warn("control consumer left a partial record", "bytes", len(pending))
	}
	logger.Debug("control consumer disconnected")
}

func (s *SocketServer) serveUsage(conn net.Conn) {
	buf := make([]byte, 128)
	var off int64
	for {
		n, err := s.channel.ReadAt(buf, off)
		if n > 0 {
			if _, werr := conn.Write(buf[:n]); werr != nil {
				return
			}
			off += int64(n)
		}
		if err != nil {
			return
		}
	}
}

func (s *SocketServer) respond(conn net.Conn, line string) {
	if _, err := fmt.Fprintln(conn, line); err != nil {
		logger.Debugf("control response write failed: %v", err)
	}
}
