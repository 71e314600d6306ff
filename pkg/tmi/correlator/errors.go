package correlator

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is the outcome of a command the server never answered.
	ErrTimeout = errors.New("tmi: command timed out")
	// ErrConnectionClosed is the outcome of a command issued without a live
	// connection or still pending when the connection went away.
	ErrConnectionClosed = errors.New("tmi: connection closed")
)

// CommandRejectedError is returned when the server refused a command with a NOTICE.
type CommandRejectedError struct {
	Command Command
	Channel string
	// Reason is the msg-id of the refusing notice, e.g. "no_permission".
	Reason  string
	Message string
}

func (e *CommandRejectedError) Error() string {
	if e.Channel == "" {
		return fmt.Sprintf("tmi: %s rejected: %s", e.Command, e.Reason)
	}
	return fmt.Sprintf("tmi: %s rejected on #%s: %s", e.Command, e.Channel, e.Reason)
}

// IsRejected reports whether err is a CommandRejectedError with the given reason.
func IsRejected(err error, reason string) bool {
	var rejected *CommandRejectedError
	return errors.As(err, &rejected) && rejected.Reason == reason
}
