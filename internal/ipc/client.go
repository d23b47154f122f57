package ipc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// ErrBusy indicates the control socket already has a consumer
var ErrBusy = errors.New("control socket busy")

// Client talks to a running dispool daemon over the control socket
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the given socket path
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// SendCommand sends one `<cmd> <key>` record and waits for the server's
// acknowledgment. A busy socket (the previous consumer's connection still
// winding down) is retried briefly before giving up.
func (c *Client) SendCommand(cmd, key string) error {
	var err error
	for attempt := 0; attempt < 5; attempt++ {
		if err = c.sendCommandOnce(cmd, key); !errors.Is(err, ErrBusy) {
			return err
		}
		time.Sleep(50 * time.Millisecond)
	}
	return err
}

func (c *Client) sendCommandOnce(cmd, key string) error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := fmt.Fprintf(conn, "%s %s\n", cmd, key); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return fmt.Errorf("no response from daemon: %w", err)
	}
	line = strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, "ok"):
		return nil
	case line == "busy":
		return ErrBusy
	case line == "incomplete":
		return fmt.Errorf("daemon rejected command as incomplete")
	default:
		return fmt.Errorf("unexpected daemon response: %q", line)
	}
}

// ReadUsage fetches the channel's usage text by opening the socket and
// half-closing without sending anything.
func (c *Client) ReadUsage() (string, error) {
	conn, err := c.dial()
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if uc, ok := conn.(*net.UnixConn); ok {
		if err := uc.CloseWrite(); err != nil {
			return "", fmt.Errorf("failed to half-close: %w", err)
		}
	}

	data, err := io.ReadAll(conn)
	if err != nil {
		return "", fmt.Errorf("failed to read usage: %w", err)
	}
	text := string(data)
	if strings.TrimSpace(text) == "busy" {
		return "", ErrBusy
	}
	return text, nil
}

func (c *Client) dial() (net.Conn, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("cannot reach daemon at %s: %w", c.socketPath, err)
	}
	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set deadline: %w", err)
	}
	return conn, nil
}
