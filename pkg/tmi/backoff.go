package tmi

import (
	"github.com/cenkalti/backoff/v5"
)

// newBackoff returns the jitter-free reconnect schedule: ReconnectInterval
// multiplied by ReconnectDecay on every attempt, capped at MaxReconnectInterval.
func newBackoff(o Options) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.ReconnectInterval
	b.Multiplier = o.ReconnectDecay
	b.MaxInterval = o.MaxReconnectInterval
	b.RandomizationFactor = 0
	b.Reset()

	return b
}
