package tmi

import (
	"errors"

	"tmichat/pkg/tmi/correlator"
)

var (
	ErrTimeout          = correlator.ErrTimeout
	ErrConnectionClosed = correlator.ErrConnectionClosed

	ErrReconnectExhausted = errors.New("tmi: reconnect attempts exhausted")
	ErrLoginFailed        = errors.New("tmi: login failed")
	ErrNotConnected       = errors.New("tmi: not connected")
	ErrAlreadyConnected   = errors.New("tmi: already connected")
	ErrInvalidArgument    = errors.New("tmi: invalid argument")
	ErrSendQueueFull      = errors.New("tmi: send queue full")

	errPingTimeout   = errors.New("tmi: ping timeout")
	errLoginTimeout  = errors.New("tmi: login timeout")
	errServerRestart = errors.New("tmi: server requested reconnect")
)

type CommandRejectedError = correlator.CommandRejectedError

// IsRejected reports whether err is a server refusal with the given msg-id.
func IsRejected(err error, reason string) bool {
	return correlator.IsRejected(err, reason)
}
