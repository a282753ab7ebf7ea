// Package promexport exposes astm session metrics as Prometheus counters.
package promexport

import (
	"github.com/arloliu/go-astm/astm"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "astm"

// Register registers one CounterFunc per SessionMetrics counter on reg.
// Every counter carries the constant label role.
func Register(reg prometheus.Registerer, role string, m *astm.SessionMetrics) error {
	counters := []struct {
		subsystem string
		name      string
		help      string
		value     func() uint64
	}{
		{"frame", "sent_total", "Data frames written, replays included.", m.FrameSendCount.Load},
		{"frame", "retries_total", "Data frames replayed after NAK.", m.FrameRetryCount.Load},
		{"frame", "accepted_total", "Data frames acknowledged with ACK.", m.FrameRecvCount.Load},
		{"frame", "rejected_total", "Data frames rejected with NAK.", m.FrameRejectCount.Load},
		{"message", "sent_total", "Messages whose final frame was acknowledged.", m.MsgSendCount.Load},
		{"message", "received_total", "Messages reassembled.", m.MsgRecvCount.Load},
		{"transmission", "completed_total", "Completed ENQ to EOT transmissions.", m.TransmissionCount.Load},
	}

	for _, c := range counters {
		value := c.value
		cf := prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   c.subsystem,
				Name:        c.name,
				Help:        c.help,
				ConstLabels: prometheus.Labels{"role": role},
			},
			func() float64 { return float64(value()) },
		)

		if err := reg.Register(cf); err != nil {
			return err
		}
	}

	return nil
}
