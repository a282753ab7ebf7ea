package promexport

import (
	"strings"
	"testing"

	"github.com/arloliu/go-astm/astm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	m := &astm.SessionMetrics{}

	require.NoError(t, Register(reg, "sender", m))

	m.FrameSendCount.Add(3)
	m.FrameRetryCount.Add(1)
	m.MsgSendCount.Add(2)
	m.TransmissionCount.Add(1)

	expected := `
# HELP astm_frame_retries_total Data frames replayed after NAK.
# TYPE astm_frame_retries_total counter
astm_frame_retries_total{role="sender"} 1
# HELP astm_frame_sent_total Data frames written, replays included.
# TYPE astm_frame_sent_total counter
astm_frame_sent_total{role="sender"} 3
# HELP astm_message_sent_total Messages whose final frame was acknowledged.
# TYPE astm_message_sent_total counter
astm_message_sent_total{role="sender"} 2
# HELP astm_transmission_completed_total Completed ENQ to EOT transmissions.
# TYPE astm_transmission_completed_total counter
astm_transmission_completed_total{role="sender"} 1
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"astm_frame_retries_total",
		"astm_frame_sent_total",
		"astm_message_sent_total",
		"astm_transmission_completed_total",
	)
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestRegister_Duplicate(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := &astm.SessionMetrics{}

	require.NoError(t, Register(reg, "receiver", m))
	require.Error(t, Register(reg, "receiver", m))
}

func TestRegister_LiveValues(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := &astm.SessionMetrics{}
	require.NoError(t, Register(reg, "receiver", m))

	m.FrameRejectCount.Add(4)
	m.MsgRecvCount.Add(1)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range mfs {
		values[mf.GetName()] = mf.GetMetric()[0].GetCounter().GetValue()
	}

	assert.Equal(t, float64(4), values["astm_frame_rejected_total"])
	assert.Equal(t, float64(1), values["astm_message_received_total"])
	assert.Equal(t, float64(0), values["astm_frame_accepted_total"])
}
