package astm

import (
	"bytes"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/arloliu/go-astm/internal/util"
	"github.com/stretchr/testify/require"
)

// recordWriter records every Write call as a separate slice.
type recordWriter struct {
	writes [][]byte
	err    error
}

func (w *recordWriter) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	w.writes = append(w.writes, util.CloneSlice(p, 0))

	return len(p), nil
}

// last returns the most recent write, failing the test if there is none.
func (w *recordWriter) last(t *testing.T) []byte {
	t.Helper()
	require.NotEmpty(t, w.writes, "no write recorded")

	return w.writes[len(w.writes)-1]
}

// controls returns all single-byte writes in order.
func (w *recordWriter) controls() []byte {
	var out []byte
	for _, p := range w.writes {
		if len(p) == 1 {
			out = append(out, p[0])
		}
	}

	return out
}

func (w *recordWriter) reset() {
	w.writes = nil
}

var errWriteFailed = errors.New("write failed")

// newTestConfig creates a SessionConfig, failing the test on error.
func newTestConfig(t *testing.T, opts ...SessionOption) *SessionConfig {
	t.Helper()

	cfg, err := NewSessionConfig(opts...)
	require.NoError(t, err)

	return cfg
}

// textOfLen returns an ASCII string of n characters.
func textOfLen(n int) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteByte(alphabet[i%len(alphabet)])
	}

	return sb.String()
}

// wire connects a sender and a receiver through two buffers and pumps bytes
// between them until the sender is finished. mutate, if not nil, may alter
// each data frame before delivery.
type wire struct {
	toRecv bytes.Buffer
	toSend bytes.Buffer

	sender   *SenderSession
	receiver *ReceiverSession
	mutate   func(n int, frame []byte) []byte
	frames   int
}

func newWire(t *testing.T, cfg *SessionConfig, handler MessageHandler, messages ...string) *wire {
	t.Helper()

	w := &wire{}
	w.sender = NewSenderSession(&w.toRecv, cfg, messages...)
	w.receiver = NewReceiverSession(&w.toSend, cfg, handler)

	return w
}

func (w *wire) run(t *testing.T) {
	t.Helper()

	require.NoError(t, w.sender.Start())

	for i := 0; i < 10000 && !w.sender.Finished(); i++ {
		if w.toRecv.Len() > 0 {
			p := util.CloneSlice(w.toRecv.Bytes(), 0)
			w.toRecv.Reset()

			if len(p) > 1 && w.mutate != nil {
				w.frames++
				p = w.mutate(w.frames, p)
			}
			require.NoError(t, w.receiver.OnBytes(p))
		}

		if w.toSend.Len() > 0 {
			p := util.CloneSlice(w.toSend.Bytes(), 0)
			w.toSend.Reset()
			require.NoError(t, w.sender.OnBytes(p))
		}
	}

	require.True(t, w.sender.Finished(), "sender did not finish")

	// deliver EOT
	p := util.CloneSlice(w.toRecv.Bytes(), 0)
	w.toRecv.Reset()
	require.NoError(t, w.receiver.OnBytes(p))
}

// newPipeConn creates a net.Pipe pair and registers cleanup.
func newPipeConn(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()

	local, remote := net.Pipe()
	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
	})

	return local, remote
}
