package ports

import (
	"context"
	"time"

	"tmichat/pkg/tmi"
	"tmichat/pkg/tmi/state"
)

// StatusPort is the read-only view of the chat client served over HTTP.
type StatusPort interface {
	ReadyState() tmi.ReadyState
	Latency() time.Duration
	ReconnectAttempts() int
	Username() string
	Channels() []string
	RoomState(channel string) (state.RoomState, bool)
	Roster(channel string) []string
	Moderators(channel string) ([]string, time.Time, bool)
}

// ChatPort is what chat bot behaviour needs from the client.
type ChatPort interface {
	Username() string
	IsMod(channel, user string) bool
	Say(ctx context.Context, channel, message string) error
	Ping(ctx context.Context) (time.Duration, error)
}
