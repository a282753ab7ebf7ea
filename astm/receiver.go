package astm

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/arloliu/go-astm/internal/queue"
	"github.com/arloliu/go-astm/internal/util"
	"github.com/arloliu/go-astm/logger"
)

// maxFrameBuffer bounds the accumulation buffer: the largest frame any
// SessionConfig can produce, with every character taking utf8.UTFMax bytes.
const maxFrameBuffer = MaxChunkLenLimit*utf8.UTFMax + minFrameSize + 1

// MessageHandler receives the messages of a finished transmission, joined
// with "\n", when the peer sends EOT.
type MessageHandler func(text string)

// ReceiverSession is the receiving side of a transmission.
//
// It accumulates incoming bytes until an LF completes a CR LF trailer with
// ETX or ETB right before the checksum digits, then validates the frame
// (structure, sequence, checksum). An LF anywhere else is content. A valid frame is
// answered with ACK and advances the expected sequence; any rejection is
// answered with NAK and leaves the state as it was, so the sender's replay
// is accepted. Frame-level errors never escape; only a *TransportError from
// writing ACK/NAK is returned.
//
// This type is NOT goroutine-safe. All calls must come from one goroutine,
// which is what Link does.
type ReceiverSession struct {
	w       io.Writer
	cfg     *SessionConfig
	codec   FrameCodec
	logger  logger.Logger
	metrics *SessionMetrics
	onMsg   MessageHandler

	expectedSeq byte
	buf         []byte // bytes received since the last frame boundary
	inProgress  []byte // content of continuation frames not yet terminated by ETX
	completed   queue.Queue[string]
}

// NewReceiverSession creates a receiver that answers on w and delivers
// finished transmissions to handler. A nil cfg uses the defaults; a nil
// handler drops delivered messages.
func NewReceiverSession(w io.Writer, cfg *SessionConfig, handler MessageHandler) *ReceiverSession {
	return newReceiverSession(w, cfg, nil, handler)
}

func newReceiverSession(w io.Writer, cfg *SessionConfig, metrics *SessionMetrics, handler MessageHandler) *ReceiverSession {
	if cfg == nil {
		cfg, _ = NewSessionConfig()
	}

	if metrics == nil {
		metrics = &SessionMetrics{}
	}

	return &ReceiverSession{
		w:           w,
		cfg:         cfg,
		codec:       cfg.FrameCodec(),
		logger:      cfg.logger,
		metrics:     metrics,
		onMsg:       handler,
		expectedSeq: InitialSequence,
		completed:   queue.NewSliceQueue[string](8),
	}
}

// ExpectedSequence returns the sequence number the next frame must carry.
func (r *ReceiverSession) ExpectedSequence() byte { return r.expectedSeq }

// Buffered returns the number of bytes received since the last frame boundary.
func (r *ReceiverSession) Buffered() int { return len(r.buf) }

// Completed returns the messages reassembled since the last ENQ or EOT.
func (r *ReceiverSession) Completed() []string {
	return r.completed.Items()
}

// Metrics returns the session metrics.
func (r *ReceiverSession) Metrics() *SessionMetrics { return r.metrics }

// OnBytes consumes a byte batch from the transport. Batches may split or
// combine frames arbitrarily.
//
// ENQ and EOT are only recognized between frames.
func (r *ReceiverSession) OnBytes(p []byte) error {
	for _, b := range p {
		if len(r.buf) == 0 {
			switch b {
			case ENQ:
				if err := r.OnENQ(); err != nil {
					return err
				}

				continue

			case EOT:
				r.OnEOT()

				continue
			}
		}

		r.buf = append(r.buf, b)

		switch {
		case b == LF && r.atFrameEnd():
			if err := r.onFrame(); err != nil {
				return err
			}

		case len(r.buf) > maxFrameBuffer:
			if err := r.onOverflow(); err != nil {
				return err
			}
		}
	}

	return nil
}

// atFrameEnd reports whether the buffer ends with a frame trailer:
// ETX or ETB, two checksum characters, CR, LF.
func (r *ReceiverSession) atFrameEnd() bool {
	n := len(r.buf)
	if n < minFrameSize || r.buf[n-2] != CR {
		return false
	}

	term := r.buf[n-1-frameTrailerSize]

	return term == ETX || term == ETB
}

// onOverflow drops a buffer that grew past any valid frame without a
// trailer and answers NAK.
func (r *ReceiverSession) onOverflow() error {
	r.logger.Warn("astm: frame buffer overflow, bytes dropped",
		"size", len(r.buf),
		"expectedSeq", r.expectedSeq,
	)
	r.buf = r.buf[:0]
	r.metrics.incFrameRejectCount()

	return r.write(NAK)
}

// OnENQ resets the receiver state and acknowledges the request to send.
func (r *ReceiverSession) OnENQ() error {
	if err := r.write(ACK); err != nil {
		return err
	}

	r.reset()
	r.logger.Debug("astm: ENQ acknowledged")

	return nil
}

// OnEOT delivers the completed messages to the handler and resets the
// receiver state.
func (r *ReceiverSession) OnEOT() {
	if len(r.inProgress) > 0 {
		r.logger.Warn("astm: transmission ended inside a message, partial content dropped",
			"size", len(r.inProgress))
	}

	messages := r.completed.Drain()
	r.reset()
	r.metrics.incTransmissionCount()

	r.logger.Info("astm: transmission received", "messages", len(messages))

	if len(messages) > 0 && r.onMsg != nil {
		r.onMsg(strings.Join(messages, "\n"))
	}
}

func (r *ReceiverSession) reset() {
	r.expectedSeq = InitialSequence
	r.buf = r.buf[:0]
	r.inProgress = nil
	r.completed.Reset()
}

// onFrame validates the buffered frame and answers ACK or NAK. The buffer
// is cleared either way.
func (r *ReceiverSession) onFrame() error {
	frame, err := r.validate(r.buf)
	if err != nil {
		r.buf = r.buf[:0]
		r.metrics.incFrameRejectCount()
		r.logger.Warn("astm: frame rejected",
			"error", err,
			"expectedSeq", r.expectedSeq,
		)

		return r.write(NAK)
	}

	r.buf = r.buf[:0]

	if err := r.write(ACK); err != nil {
		return err
	}

	r.commit(frame)

	return nil
}

// validate checks the terminator and structure, then the sequence number,
// then the checksum.
func (r *ReceiverSession) validate(b []byte) (*Frame, error) {
	frame, err := r.codec.DecodeData(b)
	if err != nil {
		return nil, err
	}

	if frame.Seq != r.expectedSeq {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSequenceMismatch, frame.Seq, r.expectedSeq)
	}

	if !r.codec.Checksum().Verify(b) {
		return nil, fmt.Errorf("%w: frame seq %d", ErrChecksumMismatch, frame.Seq)
	}

	return frame, nil
}

// commit applies an acknowledged frame to the reassembly state.
func (r *ReceiverSession) commit(frame *Frame) {
	r.expectedSeq = nextSequence(r.expectedSeq)
	r.metrics.incFrameRecvCount()
	r.logger.Debug("astm: frame accepted",
		"seq", frame.Seq,
		"terminator", ControlName(frame.Terminator()),
		"size", len(frame.Content),
	)

	if !frame.Final {
		r.inProgress = append(r.inProgress, frame.Content...)
		return
	}

	msg := string(util.JoinBytes(r.inProgress, frame.Content))
	r.inProgress = nil
	r.completed.Enqueue(msg)
	r.metrics.incMsgRecvCount()

	r.logger.Debug("astm: message reassembled", "size", len(msg))
}

func (r *ReceiverSession) write(b byte) error {
	if _, err := r.w.Write(EncodeControl(b)); err != nil {
		return NewTransportError("write", err)
	}

	return nil
}
