package control

import (
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/dispool/internal/device"
)

// recorder captures dispatched commands and can simulate lifecycle errors
type recorder struct {
	mu      sync.Mutex
	created []string
	deleted []string
	live    map[string]bool
}

func newRecorder() *recorder {
	return &recorder{live: make(map[string]bool)}
}

func (r *recorder) CreatePair(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.live[key] {
		return device.ErrDuplicateKey
	}
	r.live[key] = true
	r.created = append(r.created, key)
	return nil
}

func (r *recorder) DestroyPair(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.live[key] {
		return device.ErrNotFound
	}
	delete(r.live, key)
	r.deleted = append(r.deleted, key)
	return nil
}

func (r *recorder) liveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

func TestChannelWrite(t *testing.T) {
	t.Run("single add record", func(t *testing.T) {
		r := newRecorder()
		ch := NewChannel(r)

		n, err := ch.Write([]byte("add room-1\n"))
		require.NoError(t, err)
		assert.Equal(t, len("add room-1\n"), n)
		assert.Equal(t, []string{"room-1"}, r.created)
	})

	t.Run("add add del add scenario", func(t *testing.T) {
		r := newRecorder()
		ch := NewChannel(r)

		_, err := ch.Write([]byte("add room-1\n"))
		require.NoError(t, err)
		assert.Equal(t, 1, r.liveCount())

		// duplicate is logged, not fatal, pool unchanged
		_, err = ch.Write([]byte("add room-1\n"))
		require.NoError(t, err)
		assert.Equal(t, 1, r.liveCount())

		_, err = ch.Write([]byte("del room-1\n"))
		require.NoError(t, err)
		assert.Equal(t, 0, r.liveCount())

		_, err = ch.Write([]byte("add room-1\n"))
		require.NoError(t, err)
		assert.Equal(t, 1, r.liveCount())
		assert.Equal(t, []string{"room-1", "room-1"}, r.created)
	})

	t.Run("unknown command is ignored", func(t *testing.T) {
		r := newRecorder()
		ch := NewChannel(r)

		n, err := ch.Write([]byte("xyz room-2\n"))
		require.NoError(t, err)
		assert.Equal(t, len("xyz room-2\n"), n)
		assert.Equal(t, 0, r.liveCount())
	})

	t.Run("missing newline rejects the whole write", func(t *testing.T) {
		r := newRecorder()
		ch := NewChannel(r)

		n, err := ch.Write([]byte("add room-3"))
		assert.ErrorIs(t, err, ErrIncompleteWrite)
		assert.Equal(t, 0, n)
		assert.Equal(t, 0, r.liveCount())
	})

	t.Run("empty write consumes nothing", func(t *testing.T) {
		ch := NewChannel(newRecorder())
		n, err := ch.Write(nil)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("multiple records processed in order", func(t *testing.T) {
		r := newRecorder()
		ch := NewChannel(r)

		buf := []byte("add a\nadd b\ndel a\n")
		n, err := ch.Write(buf)
		require.NoError(t, err)
		assert.Equal(t, len(buf), n)
		assert.Equal(t, []string{"a", "b"}, r.created)
		assert.Equal(t, []string{"a"}, r.deleted)
	})

	t.Run("trailing partial record is left unconsumed", func(t *testing.T) {
		r := newRecorder()
		ch := NewChannel(r)

		buf := []byte("add a\nadd b")
		n, err := ch.Write(buf)
		require.NoError(t, err)
		assert.Equal(t, len("add a\n"), n)
		assert.Equal(t, []string{"a"}, r.created)
	})

	t.Run("malformed record skipped, rest processed", func(t *testing.T) {
		r := newRecorder()
		ch := NewChannel(r)

		buf := []byte("add\nadd b\n")
		n, err := ch.Write(buf)
		require.NoError(t, err)
		assert.Equal(t, len(buf), n)
		assert.Equal(t, []string{"b"}, r.created)
	})

	t.Run("destroy of missing key does not fail the write", func(t *testing.T) {
		r := newRecorder()
		ch := NewChannel(r)

		n, err := ch.Write([]byte("del nothing\n"))
		require.NoError(t, err)
		assert.Equal(t, len("del nothing\n"), n)
	})
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		line string
		cmd  string
		key  string
		ok   bool
	}{
		{"simple", "add room-1", "add", "room-1", true},
		{"leading whitespace", "  add room-1", "add", "room-1", true},
		{"key keeps inner spaces", "add a b c", "add", "a b c", true},
		{"tab separator", "del\tkey", "del", "key", true},
		{"no key", "add", "", "", false},
		{"only whitespace", "   ", "", "", false},
		{"empty", "", "", "", false},
		{"trailing space only", "add ", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, key, ok := tokenize([]byte(tt.line))
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.cmd, cmd)
				assert.Equal(t, tt.key, key)
			}
		})
	}

	t.Run("key is truncated to the limit", func(t *testing.T) {
		long := strings.Repeat("k", device.KeyMaxLen+16)
		_, key, ok := tokenize([]byte("add " + long))
		require.True(t, ok)
		assert.Len(t, key, device.KeyMaxLen)
	})

	t.Run("only the first three command characters matter", func(t *testing.T) {
		r := newRecorder()
		ch := NewChannel(r)
		_, err := ch.Write([]byte("addx room-1\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"room-1"}, r.created)
	})
}

func TestChannelReadAt(t *testing.T) {
	ch := NewChannel(newRecorder())

	t.Run("full read", func(t *testing.T) {
		buf := make([]byte, len(Usage)+10)
		n, err := ch.ReadAt(buf, 0)
		assert.Equal(t, len(Usage), n)
		assert.Equal(t, Usage, string(buf[:n]))
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("offset continuation", func(t *testing.T) {
		var got strings.Builder
		buf := make([]byte, 7)
		var off int64
		for {
			n, err := ch.ReadAt(buf, off)
			got.Write(buf[:n])
			off += int64(n)
			if err != nil {
				assert.ErrorIs(t, err, io.EOF)
				break
			}
		}
		assert.Equal(t, Usage, got.String())
	})

	t.Run("past the end", func(t *testing.T) {
		buf := make([]byte, 8)
		n, err := ch.ReadAt(buf, int64(len(Usage)))
		assert.Equal(t, 0, n)
		assert.ErrorIs(t, err, io.EOF)
	})
}
