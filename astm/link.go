package astm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/arloliu/go-astm/internal/pool"
	"github.com/arloliu/go-astm/logger"
)

// Link binds sender and receiver sessions to a byte-stream port.
//
// A Link runs one reader goroutine that only performs I/O and forwards byte
// batches on a channel. Send and Serve consume that channel on the caller's
// goroutine, so session state is only ever touched by one goroutine. Only
// one Send or Serve runs at a time; the link is half-duplex.
type Link struct {
	port   io.ReadWriteCloser
	cfg    *SessionConfig
	logger logger.Logger

	opState atomicOpState

	// serializes Send and Serve
	sessionMu sync.Mutex

	rxChan  chan []byte
	closeCh chan struct{}
	doneCh  chan struct{}

	errMu   sync.Mutex
	readErr error

	metrics SessionMetrics
}

// NewLink creates a Link over port. A nil cfg uses the defaults.
//
// The caller must call [Link.Open] before Send or Serve.
func NewLink(port io.ReadWriteCloser, cfg *SessionConfig) (*Link, error) {
	if port == nil {
		return nil, errors.New("astm: port is nil")
	}

	if cfg == nil {
		var err error
		if cfg, err = NewSessionConfig(); err != nil {
			return nil, err
		}
	}

	l := &Link{
		port:   port,
		cfg:    cfg,
		logger: cfg.logger,
	}
	l.opState.state.Store(uint32(ClosedState))

	return l, nil
}

// GetMetrics returns the metrics accumulated by all sessions run on the link.
func (l *Link) GetMetrics() *SessionMetrics {
	return &l.metrics
}

// GetLogger returns the logger associated with the link.
func (l *Link) GetLogger() logger.Logger {
	return l.logger
}

// State returns the lifecycle state of the link.
func (l *Link) State() OpState {
	return l.opState.Get()
}

// Open starts the reader goroutine. Opening an opened link is a no-op.
func (l *Link) Open() error {
	if !l.opState.ToOpening() {
		if l.opState.IsOpened() {
			return nil
		}

		return fmt.Errorf("%w: cannot open link in %s state", ErrSessionState, l.opState.String())
	}

	l.rxChan = make(chan []byte, rxChannelQueueSize)
	l.closeCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	l.setReadErr(nil)

	go l.readLoop()

	l.opState.ToOpened()
	l.logger.Debug("astm: link opened")

	return nil
}

// Close closes the port and waits for the reader goroutine to stop, at most
// for the configured close timeout.
func (l *Link) Close() error {
	if !l.opState.ToClosing() {
		if l.opState.IsClosed() {
			return nil
		}

		return fmt.Errorf("%w: cannot close link in %s state", ErrSessionState, l.opState.String())
	}

	close(l.closeCh)

	var closeErr error
	if err := l.port.Close(); err != nil {
		closeErr = NewTransportError("close", err)
	}

	if !pool.WaitDone(context.Background(), l.doneCh, l.cfg.closeTimeout) {
		l.logger.Error("astm: close link timeout", "timeout", l.cfg.closeTimeout)
		closeErr = errors.Join(closeErr, fmt.Errorf("astm: close link timeout after %v", l.cfg.closeTimeout))
	}

	l.opState.ToClosed()
	l.logger.Debug("astm: link closed")

	return closeErr
}

// Send runs a SenderSession for messages and returns once EOT has been
// written, the context is done, the reply timeout expires or the port fails.
func (l *Link) Send(ctx context.Context, messages ...string) error {
	if !l.opState.IsOpened() {
		return ErrLinkClosed
	}

	l.sessionMu.Lock()
	defer l.sessionMu.Unlock()

	l.drain()

	s := newSenderSession(portWriter{l.port}, l.cfg, &l.metrics, messages)
	if err := s.Start(); err != nil {
		return err
	}

	for !s.Finished() {
		p, err := l.recv(ctx, l.cfg.replyTimeout)
		if err != nil {
			l.logger.Debug("astm: send aborted", "state", s.State().String(), "error", err)
			return err
		}

		if err := s.OnBytes(p); err != nil {
			return err
		}
	}

	return nil
}

// Serve runs a ReceiverSession until the context is done or the port fails.
// Every finished transmission is passed to handler.
//
// Serve returns the context error on cancellation.
func (l *Link) Serve(ctx context.Context, handler MessageHandler) error {
	if !l.opState.IsOpened() {
		return ErrLinkClosed
	}

	l.sessionMu.Lock()
	defer l.sessionMu.Unlock()

	r := newReceiverSession(portWriter{l.port}, l.cfg, &l.metrics, handler)

	for {
		p, err := l.recv(ctx, 0)
		if err != nil {
			return err
		}

		if err := r.OnBytes(p); err != nil {
			return err
		}
	}
}

// recv waits for the next byte batch. timeout <= 0 waits forever.
func (l *Link) recv(ctx context.Context, timeout time.Duration) ([]byte, error) {
	var timeoutCh <-chan time.Time

	if timeout > 0 {
		timer := pool.GetTimer(timeout)
		defer pool.PutTimer(timer)
		timeoutCh = timer.C
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()

	case <-timeoutCh:
		return nil, fmt.Errorf("%w: no reply within %v", ErrReplyTimeout, timeout)

	case p, ok := <-l.rxChan:
		if !ok {
			return nil, l.getReadErr()
		}

		return p, nil
	}
}

// drain discards byte batches already queued by the reader, such as a late
// reply to the previous transmission.
func (l *Link) drain() {
	for {
		select {
		case p, ok := <-l.rxChan:
			if !ok {
				return
			}
			l.logger.Debug("astm: stale bytes discarded", "size", len(p))
		default:
			return
		}
	}
}

// readLoop reads from the port until it fails or the link is closed.
func (l *Link) readLoop() {
	defer close(l.doneCh)
	defer close(l.rxChan)

	for {
		buf := make([]byte, l.cfg.readBufferSize)

		n, err := l.port.Read(buf)
		if n > 0 {
			select {
			case l.rxChan <- buf[:n]:
			case <-l.closeCh:
				l.setReadErr(ErrLinkClosed)
				return
			}
		}

		if err != nil {
			select {
			case <-l.closeCh:
				l.setReadErr(ErrLinkClosed)
			default:
				l.logger.Error("astm: port read failed", "error", err)
				l.setReadErr(NewTransportError("read", err))
			}

			return
		}
	}
}

func (l *Link) setReadErr(err error) {
	l.errMu.Lock()
	defer l.errMu.Unlock()

	l.readErr = err
}

func (l *Link) getReadErr() error {
	l.errMu.Lock()
	defer l.errMu.Unlock()

	if l.readErr == nil {
		return ErrLinkClosed
	}

	return l.readErr
}

// portWriter writes every byte of p, looping over short writes.
type portWriter struct {
	w io.Writer
}

func (pw portWriter) Write(p []byte) (int, error) {
	for written := 0; written < len(p); {
		n, err := pw.w.Write(p[written:])
		written += n

		if err != nil {
			return written, err
		}

		if n == 0 {
			return written, io.ErrShortWrite
		}
	}

	return len(p), nil
}
