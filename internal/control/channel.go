// Package control implements the line-oriented command channel: it decodes
// newline-terminated `<cmd> <key>` records from inbound byte streams and
// dispatches them to the device lifecycle manager.
package control

import (
	"bytes"
	"errors"
	"io"

	"github.com/bnema/dispool/internal/device"
	"github.com/bnema/dispool/internal/logger"
)

// Usage is the fixed text served to readers of the control channel
const Usage = "Usage: write the following commands to the control socket:\n" +
	"    add <UUID>  - add new display+touch device pair\n" +
	"    del <UUID>  - delete device pair\n"

// ErrIncompleteWrite indicates a write with no newline at all. The whole
// write is rejected so callers cannot accumulate unbounded partial input;
// they must resend with a trailing newline.
var ErrIncompleteWrite = errors.New("control: incomplete command, trailing newline required")

// Dispatcher is the lifecycle surface the channel drives
type Dispatcher interface {
	CreatePair(key string) error
	DestroyPair(key string) error
}

// Channel parses command records and feeds them to the dispatcher.
// It holds no buffering state of its own; every write stands alone.
type Channel struct {
	dispatcher Dispatcher
}

// NewChannel creates a channel dispatching to d
func NewChannel(d Dispatcher) *Channel {
	return &Channel{dispatcher: d}
}

// Write scans buf for newline-terminated records and dispatches each one
// independently. It returns the offset just past the last newline processed;
// bytes after a trailing partial record are left for the caller to resend.
// A buffer without any newline is rejected with ErrIncompleteWrite.
func (c *Channel) Write(buf []byte) (int, error) {
	consumed := 0
	for {
		nl := bytes.IndexByte(buf[consumed:], '\n')
		if nl < 0 {
			break
		}
		line := buf[consumed : consumed+nl]
		consumed += nl + 1
		c.dispatch(line)
	}

	if consumed == 0 && len(buf) != 0 {
		return 0, ErrIncompleteWrite
	}
	return consumed, nil
}

// ReadAt serves the usage text with byte-offset continuation, io.EOF once
// the full text has been delivered.
func (c *Channel) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(Usage)) {
		return 0, io.EOF
	}
	n := copy(p, Usage[off:])
	if off+int64(n) == int64(len(Usage)) {
		return n, io.EOF
	}
	return n, nil
}

// dispatch parses and executes one record. Per-record failures are logged
// and never abort the write; each record is independent.
func (c *Channel) dispatch(line []byte) {
	cmd, key, ok := tokenize(line)
	if !ok {
		logger.Warn("malformed control record skipped", "line", string(line))
		return
	}

	switch {
	case commandIs(cmd, "add"):
		if err := c.dispatcher.CreatePair(key); err != nil {
			logger.Error("add failed", "key", key, "error", err)
		}
	case commandIs(cmd, "del"):
		if err := c.dispatcher.DestroyPair(key); err != nil && !errors.Is(err, device.ErrNotFound) {
			logger.Error("del failed", "key", key, "error", err)
		}
	default:
		logger.Warn("unknown control command", "cmd", cmd, "key", key)
	}
}

// tokenize splits a record into a command token and the key remainder,
// trimmed to the key length limit. Records that do not yield exactly two
// fields are malformed.
func tokenize(line []byte) (cmd, key string, ok bool) {
	rest := bytes.TrimLeft(line, " \t")
	sp := bytes.IndexAny(rest, " \t")
	if sp < 0 {
		return "", "", false
	}
	cmdTok := rest[:sp]
	keyTok := bytes.TrimLeft(rest[sp:], " \t")
	if len(cmdTok) == 0 || len(keyTok) == 0 {
		return "", "", false
	}
	if len(keyTok) > device.KeyMaxLen {
		keyTok = keyTok[:device.KeyMaxLen]
	}
	return string(cmdTok), string(keyTok), true
}

// commandIs matches a command token against a recognized value; only the
// first three characters are significant, matching the original tooling
// that sends padded tokens.
func commandIs(cmd, want string) bool {
	return len(cmd) >= 3 && cmd[:3] == want
}
