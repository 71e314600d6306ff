package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tmichat/pkg/tmi"
)

var (
	// ConnectionState - 1 for the current ready state of the client, 0 for the others.
	ConnectionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tmi_connection_state",
			Help: "Current ready state of the chat connection",
		},
		[]string{"state"},
	)

	// Reconnects - reconnect attempts since start.
	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tmi_reconnects_total",
		Help: "Total number of reconnect attempts",
	})

	// ReconnectFailures - times the client gave up reconnecting.
	ReconnectFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tmi_reconnect_failures_total",
		Help: "Total number of exhausted reconnect sequences",
	})

	// Disconnects - connections lost, by reason.
	Disconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmi_disconnects_total",
			Help: "Total number of closed connections per reason",
		},
		[]string{"reason"},
	)

	// InboundMessages - inbound notifications per channel and kind.
	InboundMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmi_inbound_messages_total",
			Help: "Total number of inbound chat messages per channel and kind",
		},
		[]string{"channel", "kind"},
	)

	// CommandOutcomes - finished commands per command and outcome.
	CommandOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmi_command_outcomes_total",
			Help: "Total number of finished commands per command and outcome",
		},
		[]string{"command", "outcome"},
	)

	// CommandLatency - time from issue to outcome, in seconds.
	CommandLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tmi_command_duration_seconds",
			Help:    "Time from issuing a command to its outcome",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"command"},
	)

	// Latency - last measured round trip to the chat server, in seconds.
	Latency = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tmi_latency_seconds",
		Help: "Last measured round trip to the chat server",
	})
)

var states = []tmi.ReadyState{
	tmi.StateDisconnected,
	tmi.StateConnecting,
	tmi.StateOpen,
	tmi.StateReconnecting,
	tmi.StateClosing,
	tmi.StateClosed,
}

// SetState marks st as the current ready state.
func SetState(st tmi.ReadyState) {
	for _, s := range states {
		v := 0.0
		if s == st {
			v = 1
		}
		ConnectionState.WithLabelValues(s.String()).Set(v)
	}
}

// Outcome classifies a command error for the outcome label.
func Outcome(err error) string {
	var rejected *tmi.CommandRejectedError
	switch {
	case err == nil:
		return "resolved"
	case errors.Is(err, tmi.ErrTimeout):
		return "timeout"
	case errors.As(err, &rejected):
		return "rejected"
	case errors.Is(err, tmi.ErrConnectionClosed):
		return "connection_closed"
	default:
		return "error"
	}
}

func reason(err error) string {
	if err == nil {
		return "requested"
	}
	return "abnormal"
}

// Subscribe feeds the metrics from the client notifications and returns a
// function removing the subscriptions.
func Subscribe(c *tmi.Client) func() {
	offs := []func(){
		c.On(tmi.EventConnected, func(tmi.Event) { SetState(c.ReadyState()) }),
		c.On(tmi.EventDisconnected, func(ev tmi.Event) {
			Disconnects.WithLabelValues(reason(ev.(tmi.Disconnected).Reason)).Inc()
			SetState(c.ReadyState())
		}),
		c.On(tmi.EventReconnecting, func(tmi.Event) {
			Reconnects.Inc()
			SetState(tmi.StateReconnecting)
		}),
		c.On(tmi.EventReconnectFailed, func(tmi.Event) {
			ReconnectFailures.Inc()
			SetState(tmi.StateClosed)
		}),
		c.On(tmi.EventMessage, func(ev tmi.Event) {
			InboundMessages.WithLabelValues(ev.(tmi.Message).Channel, tmi.EventMessage.String()).Inc()
		}),
		c.On(tmi.EventNotice, func(ev tmi.Event) {
			InboundMessages.WithLabelValues(ev.(tmi.Notice).Channel, tmi.EventNotice.String()).Inc()
		}),
		c.On(tmi.EventUserNotice, func(ev tmi.Event) {
			InboundMessages.WithLabelValues(ev.(tmi.UserNotice).Channel, tmi.EventUserNotice.String()).Inc()
		}),
		c.On(tmi.EventWhisper, func(tmi.Event) {
			InboundMessages.WithLabelValues("", tmi.EventWhisper.String()).Inc()
		}),
		c.On(tmi.EventCommandDone, func(ev tmi.Event) {
			done := ev.(tmi.CommandDone)
			CommandOutcomes.WithLabelValues(string(done.Command), Outcome(done.Err)).Inc()
			CommandLatency.WithLabelValues(string(done.Command)).Observe(done.Elapsed.Seconds())
			Latency.Set(c.Latency().Seconds())
		}),
		c.On(tmi.EventPong, func(tmi.Event) {
			Latency.Set(c.Latency().Seconds())
		}),
	}

	return func() {
		for _, off := range offs {
			off()
		}
	}
}
