package astm

import (
	"fmt"
	"io"

	"github.com/arloliu/go-astm/internal/queue"
	"github.com/arloliu/go-astm/internal/util"
	"github.com/arloliu/go-astm/logger"
)

// SenderState is the state of a SenderSession.
type SenderState uint32

const (
	SenderIdle SenderState = iota
	SenderAwaitingAckForEnq
	SenderSending
	SenderAwaitingAckForData
	SenderAwaitingAckForEot
	SenderClosed
)

func (s SenderState) String() string {
	switch s {
	case SenderIdle:
		return "Idle"
	case SenderAwaitingAckForEnq:
		return "AwaitingAckForEnq"
	case SenderSending:
		return "Sending"
	case SenderAwaitingAckForData:
		return "AwaitingAckForData"
	case SenderAwaitingAckForEot:
		return "AwaitingAckForEot"
	case SenderClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// SenderSession is the sending side of a transmission.
//
// It opens the line with ENQ, emits one frame per ACK (strict stop-and-wait),
// replays the in-flight frame on NAK and closes with EOT once all messages
// are sent. It never blocks and never retries I/O; a failed write surfaces as
// a *TransportError and leaves the state untouched.
//
// This type is NOT goroutine-safe. All calls must come from one goroutine,
// which is what Link does.
type SenderSession struct {
	w       io.Writer
	cfg     *SessionConfig
	codec   FrameCodec
	logger  logger.Logger
	metrics *SessionMetrics

	state   SenderState
	pending queue.Queue[string] // messages not yet started
	total   int                 // messages in the transmission, set by Start
	msg     string              // message in flight while AwaitingAckForData
	chunk   int                 // chunk index of the frame in flight
	seq     byte                // sequence for the next emitted frame
	last    []byte              // last emitted data frame
}

// NewSenderSession creates a sender that writes to w and will transmit
// messages in order. A nil cfg uses the defaults.
func NewSenderSession(w io.Writer, cfg *SessionConfig, messages ...string) *SenderSession {
	return newSenderSession(w, cfg, nil, messages)
}

func newSenderSession(w io.Writer, cfg *SessionConfig, metrics *SessionMetrics, messages []string) *SenderSession {
	if cfg == nil {
		cfg, _ = NewSessionConfig()
	}

	if metrics == nil {
		metrics = &SessionMetrics{}
	}

	pending := queue.NewSliceQueue[string](len(messages))
	for _, msg := range messages {
		pending.Enqueue(msg)
	}

	return &SenderSession{
		w:       w,
		cfg:     cfg,
		codec:   cfg.FrameCodec(),
		logger:  cfg.logger,
		metrics: metrics,
		state:   SenderIdle,
		pending: pending,
		seq:     InitialSequence,
	}
}

// State returns the current state.
func (s *SenderSession) State() SenderState { return s.state }

// Sequence returns the sequence number the next emitted frame will carry.
func (s *SenderSession) Sequence() byte { return s.seq }

// LastFrame returns a copy of the last emitted data frame, or nil.
func (s *SenderSession) LastFrame() []byte {
	if s.last == nil {
		return nil
	}

	return util.CloneSlice(s.last, 0)
}

// Finished reports whether EOT has been emitted.
func (s *SenderSession) Finished() bool {
	return s.state == SenderAwaitingAckForEot || s.state == SenderClosed
}

// Closed reports whether the peer acknowledged EOT.
func (s *SenderSession) Closed() bool { return s.state == SenderClosed }

// Metrics returns the session metrics.
func (s *SenderSession) Metrics() *SessionMetrics { return s.metrics }

// Enqueue appends messages to the pending list. It is only allowed before Start.
func (s *SenderSession) Enqueue(messages ...string) error {
	if s.state != SenderIdle {
		return fmt.Errorf("%w: enqueue in %s state", ErrSessionState, s.state)
	}

	for _, msg := range messages {
		s.pending.Enqueue(msg)
	}

	return nil
}

// Start opens the transmission by emitting ENQ.
func (s *SenderSession) Start() error {
	if s.state != SenderIdle {
		return fmt.Errorf("%w: start in %s state", ErrSessionState, s.state)
	}

	if err := s.write(EncodeControl(ENQ)); err != nil {
		return err
	}

	s.state = SenderAwaitingAckForEnq
	s.total = s.pending.Length()
	s.logger.Debug("astm: ENQ sent", "messages", s.total)

	return nil
}

// OnBytes feeds a received byte batch to OnControl, byte by byte.
func (s *SenderSession) OnBytes(p []byte) error {
	for _, b := range p {
		if err := s.OnControl(b); err != nil {
			return err
		}
	}

	return nil
}

// OnControl reacts to a control byte received from the peer.
//
// Bytes that are not expected in the current state are ignored.
func (s *SenderSession) OnControl(b byte) error {
	switch b {
	case ACK:
		switch s.state { //nolint:exhaustive
		case SenderAwaitingAckForEnq:
			return s.sendFirst()
		case SenderAwaitingAckForData:
			return s.advance()
		case SenderAwaitingAckForEot:
			s.state = SenderClosed
			s.logger.Debug("astm: EOT acknowledged, session closed")

			return nil
		}

	case NAK:
		if s.state == SenderAwaitingAckForData {
			return s.replay()
		}

	default:
		s.logger.Warn("astm: unknown control byte", "byte", ControlName(b), "state", s.state.String())

		return nil
	}

	s.logger.Debug("astm: control byte ignored", "byte", ControlName(b), "state", s.state.String())

	return nil
}

// sendFirst handles the ACK of ENQ.
func (s *SenderSession) sendFirst() error {
	s.state = SenderSending

	if err := s.sendNextMessage(); err != nil {
		s.state = SenderAwaitingAckForEnq
		return err
	}

	return nil
}

// advance handles the ACK of the in-flight frame.
func (s *SenderSession) advance() error {
	if s.chunk+1 < ChunkCount(s.msg, s.cfg.maxChunkLen) {
		return s.sendChunk(s.msg, s.chunk+1, s.seq)
	}

	if err := s.sendNextMessage(); err != nil {
		return err
	}
	s.metrics.incMsgSendCount()

	return nil
}

// sendNextMessage emits the first frame of the next pending message, or EOT
// when none is left. The message leaves the queue only once its frame is
// written.
func (s *SenderSession) sendNextMessage() error {
	msg, ok := s.pending.Peek()
	if !ok {
		return s.sendEOT()
	}

	if err := s.sendChunk(msg, 0, s.seq); err != nil {
		return err
	}
	s.pending.Dequeue()

	return nil
}

// replay handles the NAK of the in-flight frame. The chunk is rebuilt from
// the message and re-emitted with the sequence of the rejected frame.
func (s *SenderSession) replay() error {
	seq := prevSequence(s.seq)

	if err := s.sendChunk(s.msg, s.chunk, seq); err != nil {
		return err
	}

	s.metrics.incFrameRetryCount()
	s.logger.Debug("astm: frame replayed after NAK", "seq", seq, "chunk", s.chunk)

	return nil
}

// sendChunk encodes chunk idx of msg with sequence seq and writes it. On
// success the in-flight chunk, the sequence counter and the replay snapshot
// are committed.
func (s *SenderSession) sendChunk(msg string, idx int, seq byte) error {
	chunk, ok := ChunkAt(msg, s.cfg.maxChunkLen, idx)
	if !ok {
		return fmt.Errorf("%w: no chunk %d in message", ErrSessionState, idx)
	}

	frame := s.codec.EncodeData(seq, []byte(chunk.Content), chunk.Final)
	if err := s.write(frame); err != nil {
		return err
	}

	s.msg = msg
	s.chunk = idx
	s.last = frame
	s.seq = nextSequence(seq)
	s.state = SenderAwaitingAckForData
	s.metrics.incFrameSendCount()

	s.logger.Debug("astm: frame sent",
		"seq", seq,
		"chunk", idx,
		"final", chunk.Final,
		"size", len(frame),
	)

	return nil
}

func (s *SenderSession) sendEOT() error {
	if err := s.write(EncodeControl(EOT)); err != nil {
		return err
	}

	s.state = SenderAwaitingAckForEot
	s.metrics.incTransmissionCount()
	s.logger.Info("astm: transmission sent", "messages", s.total)

	return nil
}

func (s *SenderSession) write(p []byte) error {
	if _, err := s.w.Write(p); err != nil {
		return NewTransportError("write", err)
	}

	return nil
}
