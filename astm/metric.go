package astm

import (
	"sync/atomic"
)

// SessionMetrics contains atomic metrics for sender and receiver sessions.
// Metrics can be used as the value of a prometheus CounterFunc.
type SessionMetrics struct {
	// FrameSendCount indicates the number of data frames written, replays included.
	FrameSendCount atomic.Uint64
	// FrameRetryCount indicates the number of frames replayed after NAK.
	FrameRetryCount atomic.Uint64
	// MsgSendCount indicates the number of messages whose final frame was ACK'd.
	MsgSendCount atomic.Uint64

	// FrameRecvCount indicates the number of data frames accepted (ACK'd).
	FrameRecvCount atomic.Uint64
	// FrameRejectCount indicates the number of data frames rejected (NAK'd).
	FrameRejectCount atomic.Uint64
	// MsgRecvCount indicates the number of messages reassembled.
	MsgRecvCount atomic.Uint64

	// TransmissionCount indicates the number of completed ENQ to EOT transmissions.
	TransmissionCount atomic.Uint64
}

func (m *SessionMetrics) incFrameSendCount() {
	m.FrameSendCount.Add(1)
}

func (m *SessionMetrics) incFrameRetryCount() {
	m.FrameRetryCount.Add(1)
}

func (m *SessionMetrics) incMsgSendCount() {
	m.MsgSendCount.Add(1)
}

func (m *SessionMetrics) incFrameRecvCount() {
	m.FrameRecvCount.Add(1)
}

func (m *SessionMetrics) incFrameRejectCount() {
	m.FrameRejectCount.Add(1)
}

func (m *SessionMetrics) incMsgRecvCount() {
	m.MsgRecvCount.Add(1)
}

func (m *SessionMetrics) incTransmissionCount() {
	m.TransmissionCount.Add(1)
}
